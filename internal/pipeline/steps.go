package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/audit"
	"github.com/pagelift/pagelift/internal/critical"
	"github.com/pagelift/pagelift/internal/fetch"
	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/optimize"
	"github.com/pagelift/pagelift/internal/render"
	"github.com/pagelift/pagelift/internal/rewrite"
)

// workingSet carries in-flight artifacts between steps that the report
// does not serialize: the mutable document tree and re-encoded image
// bodies. One workingSet belongs to exactly one pipeline run.
type workingSet struct {
	doc    *html.Node
	images map[string]*optimize.EncodedImage
}

// FetchStep retrieves the page and its referenced resources. This is
// the only step whose failure is fatal: without the root document
// nothing downstream can run.
type FetchStep struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates the fetch step.
func NewFetchStep(fetcher *fetch.Fetcher, logger *slog.Logger) *FetchStep {
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches the resource graph and records unresolved references as
// warnings.
func (s *FetchStep) Do(ctx context.Context, report *model.PageReport) error {
	graph, err := s.fetcher.Fetch(ctx, report.URL)
	if err != nil {
		return err
	}
	report.Graph = graph
	report.GraphStats = graph.Stats()

	for _, ref := range graph.References {
		if ref.Unresolved {
			report.Warn(fmt.Sprintf("unresolved %s: %s", ref.URL, ref.Reason))
		}
	}
	return nil
}

// CriticalCSSStep derives the critical rule set for the fetched page.
type CriticalCSSStep struct {
	renderer render.Renderer
	viewport render.Viewport
	logger   *slog.Logger
}

// NewCriticalCSSStep creates the critical-CSS step.
func NewCriticalCSSStep(renderer render.Renderer, viewport render.Viewport, logger *slog.Logger) *CriticalCSSStep {
	return &CriticalCSSStep{renderer: renderer, viewport: viewport, logger: logger}
}

// Name returns the step name.
func (s *CriticalCSSStep) Name() string {
	return "critical_css"
}

// Do extracts critical CSS. An empty result with a warning is a valid
// outcome; the run continues either way.
func (s *CriticalCSSStep) Do(ctx context.Context, report *model.PageReport) error {
	extractor := critical.NewExtractor(s.renderer,
		critical.WithViewport(s.viewport),
		critical.WithLogger(s.logger))

	set, err := extractor.Extract(ctx, string(report.Graph.Root.Body), report.Graph.Stylesheets())
	if err != nil {
		return err
	}
	report.CriticalCSS = set
	if set.Warning != "" {
		report.Warn(set.Warning)
	}
	return nil
}

// OptimizeStep applies the transformation rules to a working copy of
// the document.
type OptimizeStep struct {
	ws       *workingSet
	renderer render.Renderer
	viewport render.Viewport
	logger   *slog.Logger
}

// NewOptimizeStep creates the optimization step.
func NewOptimizeStep(ws *workingSet, renderer render.Renderer, viewport render.Viewport, logger *slog.Logger) *OptimizeStep {
	return &OptimizeStep{ws: ws, renderer: renderer, viewport: viewport, logger: logger}
}

// Name returns the step name.
func (s *OptimizeStep) Name() string {
	return "optimize"
}

// Do parses a working copy of the root document and runs every
// optimization rule against it. When layout capture fails the rules
// run with an empty layout, which treats every element as above the
// fold and therefore never lazy-loads anything.
func (s *OptimizeStep) Do(ctx context.Context, report *model.PageReport) error {
	htmlText := string(report.Graph.Root.Body)

	layout, err := s.renderer.Layout(ctx, htmlText, s.viewport)
	if err != nil {
		report.Warn(fmt.Sprintf("no viewport data for optimization: %v", err))
		layout = &render.Layout{Viewport: s.viewport}
	}

	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return err
	}

	optimizer := optimize.NewOptimizer(layout, optimize.WithLogger(s.logger))
	result := optimizer.Optimize(doc, report.Graph)

	s.ws.doc = doc
	s.ws.images = result.Images
	report.Actions = append(report.Actions, result.Actions...)
	return nil
}

// RewriteStep assembles and renders the optimized output document.
type RewriteStep struct {
	ws     *workingSet
	logger *slog.Logger
}

// NewRewriteStep creates the rewrite step.
func NewRewriteStep(ws *workingSet, logger *slog.Logger) *RewriteStep {
	return &RewriteStep{ws: ws, logger: logger}
}

// Name returns the step name.
func (s *RewriteStep) Name() string {
	return "rewrite"
}

// Do rewrites the working document tree into the final output bytes.
func (s *RewriteStep) Do(_ context.Context, report *model.PageReport) error {
	criticalSet := report.CriticalCSS
	if criticalSet == nil {
		criticalSet = &model.CriticalCSSSet{}
	}

	rewriter := rewrite.NewRewriter(report.Graph,
		rewrite.WithImages(s.ws.images),
		rewrite.WithLogger(s.logger))
	out, actions, err := rewriter.Rewrite(s.ws.doc, criticalSet)
	if err != nil {
		return err
	}
	report.OptimizedDocument = out
	report.Actions = append(report.Actions, actions...)
	return nil
}

// PersistSiteStep writes the optimized mirror to the site's working
// directory. It runs before the audits so the optimized copy can be
// served, and so a later failure still leaves the artifacts on disk.
type PersistSiteStep struct {
	ws     *workingSet
	logger *slog.Logger
}

// NewPersistSiteStep creates the mirror persistence step.
func NewPersistSiteStep(ws *workingSet, logger *slog.Logger) *PersistSiteStep {
	return &PersistSiteStep{ws: ws, logger: logger}
}

// Name returns the step name.
func (s *PersistSiteStep) Name() string {
	return "persist_site"
}

// Do writes the rewritten document, critical stylesheet, and mirrored
// resources under the report's output directory.
func (s *PersistSiteStep) Do(_ context.Context, report *model.PageReport) error {
	criticalSet := report.CriticalCSS
	if criticalSet == nil {
		criticalSet = &model.CriticalCSSSet{}
	}

	return rewrite.WriteSite(report.OutputDir, report.Graph, s.ws.images, report.OptimizedDocument, criticalSet)
}

// AuditOriginalStep measures the remote original page.
type AuditOriginalStep struct {
	analyzer audit.Analyzer
	logger   *slog.Logger
}

// NewAuditOriginalStep creates the original-page audit step.
func NewAuditOriginalStep(analyzer audit.Analyzer, logger *slog.Logger) *AuditOriginalStep {
	return &AuditOriginalStep{analyzer: analyzer, logger: logger}
}

// Name returns the step name.
func (s *AuditOriginalStep) Name() string {
	return "audit_original"
}

// Do audits the original page, substituting clearly-flagged synthetic
// metrics when the analyzer fails.
func (s *AuditOriginalStep) Do(ctx context.Context, report *model.PageReport) error {
	report.OriginalMetrics = runAudit(ctx, s.analyzer, report.URL, report, s.logger)
	return nil
}

// AuditOptimizedStep serves the optimized mirror locally and measures it.
type AuditOptimizedStep struct {
	analyzer audit.Analyzer
	logger   *slog.Logger
}

// NewAuditOptimizedStep creates the optimized-copy audit step.
func NewAuditOptimizedStep(analyzer audit.Analyzer, logger *slog.Logger) *AuditOptimizedStep {
	return &AuditOptimizedStep{analyzer: analyzer, logger: logger}
}

// Name returns the step name.
func (s *AuditOptimizedStep) Name() string {
	return "audit_optimized"
}

// Do serves the mirror on a loopback port for the duration of the
// audit. Serving failure degrades to synthetic metrics like any other
// analyzer failure.
func (s *AuditOptimizedStep) Do(ctx context.Context, report *model.PageReport) error {
	baseURL, stop, err := audit.ServeDir(report.OutputDir)
	if err != nil {
		report.Warn(fmt.Sprintf("cannot serve optimized copy: %v", err))
		synthetic := model.SyntheticMetrics()
		report.OptimizedMetrics = &synthetic
		return nil
	}
	defer func() {
		if err := stop(); err != nil {
			s.logger.Warn("stopping local server", slog.String("error", err.Error()))
		}
	}()

	report.OptimizedMetrics = runAudit(ctx, s.analyzer, baseURL, report, s.logger)
	return nil
}

// runAudit invokes the analyzer once, degrading to synthetic metrics
// on failure. The two audit steps must stay sequential: the analyzer
// holds an exclusive browser profile lock.
func runAudit(ctx context.Context, analyzer audit.Analyzer, pageURL string, report *model.PageReport, logger *slog.Logger) *model.MetricsDocument {
	doc, err := analyzer.Run(ctx, pageURL)
	if err != nil {
		logger.Warn("audit degraded to synthetic metrics",
			slog.String("url", pageURL),
			slog.String("error", err.Error()))
		report.Warn(fmt.Sprintf("audit of %s degraded: %v", pageURL, err))
		synthetic := model.SyntheticMetrics()
		return &synthetic
	}
	return doc
}

// CompareStep diffs the two metrics documents into the final
// comparison report.
type CompareStep struct {
	logger *slog.Logger
}

// NewCompareStep creates the comparison step.
func NewCompareStep(logger *slog.Logger) *CompareStep {
	return &CompareStep{logger: logger}
}

// Name returns the step name.
func (s *CompareStep) Name() string {
	return "compare"
}

// Do builds the comparison from whatever metrics the audits produced.
func (s *CompareStep) Do(_ context.Context, report *model.PageReport) error {
	original := report.OriginalMetrics
	if original == nil {
		synthetic := model.SyntheticMetrics()
		original = &synthetic
		report.OriginalMetrics = original
	}
	optimized := report.OptimizedMetrics
	if optimized == nil {
		synthetic := model.SyntheticMetrics()
		optimized = &synthetic
		report.OptimizedMetrics = optimized
	}

	report.Comparison = model.NewComparisonReport(report.URL, *original, *optimized, report.Actions)
	return nil
}
