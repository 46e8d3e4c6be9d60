package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pagelift/pagelift/internal/fetch"
	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/report"
	"github.com/pagelift/pagelift/internal/rewrite"
)

// Report artifact names inside a site's working directory.
const (
	reportJSONName     = "report.json"
	reportMarkdownName = "report.md"
)

// PersistReportStep writes the machine-readable and shareable report
// files. It is registered as a final step so a failed, interrupted, or
// timed-out run still leaves its report behind.
type PersistReportStep struct {
	logger *slog.Logger
}

// NewPersistReportStep creates the report persistence step.
func NewPersistReportStep(logger *slog.Logger) *PersistReportStep {
	return &PersistReportStep{logger: logger}
}

// Name returns the step name.
func (s *PersistReportStep) Name() string {
	return "persist_report"
}

// Do writes report.json and report.md into the output directory.
func (s *PersistReportStep) Do(_ context.Context, r *model.PageReport) error {
	if err := os.MkdirAll(r.OutputDir, 0o750); err != nil {
		return err
	}

	jsonFile, err := os.Create(filepath.Join(r.OutputDir, reportJSONName))
	if err != nil {
		return err
	}
	defer jsonFile.Close()

	mdFile, err := os.Create(filepath.Join(r.OutputDir, reportMarkdownName))
	if err != nil {
		return err
	}
	defer mdFile.Close()

	w := report.NewMultiWriter(
		report.NewJSONWriter(jsonFile, report.WithPrettyPrint()),
		report.NewMarkdownWriter(mdFile),
	)
	if _, err := w.Write(r); err != nil {
		return err
	}

	s.logger.Info("report persisted",
		slog.String("dir", r.OutputDir))
	return nil
}

// PersistCriticalStep writes the fetched mirror and the critical
// stylesheet for extract-only runs, which skip the rewrite and
// persist_site stages that normally produce those artifacts.
type PersistCriticalStep struct {
	logger *slog.Logger
}

// NewPersistCriticalStep creates the extract-only persistence step.
func NewPersistCriticalStep(logger *slog.Logger) *PersistCriticalStep {
	return &PersistCriticalStep{logger: logger}
}

// Name returns the step name.
func (s *PersistCriticalStep) Name() string {
	return "persist_critical"
}

// Do mirrors the fetched resources and writes css/critical.css when
// rules were derived.
func (s *PersistCriticalStep) Do(_ context.Context, r *model.PageReport) error {
	if r.Graph == nil {
		return nil
	}
	if err := fetch.WriteMirror(r.Graph, r.OutputDir); err != nil {
		return err
	}

	if r.CriticalCSS != nil && !r.CriticalCSS.Empty() {
		path := filepath.Join(r.OutputDir, filepath.FromSlash(rewrite.CriticalCSSPath))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(r.CriticalCSS.Text()+"\n"), 0o600); err != nil {
			return err
		}
	}

	s.logger.Info("mirror persisted",
		slog.String("dir", r.OutputDir),
		slog.Int("resources", r.GraphStats.Resources))
	return nil
}
