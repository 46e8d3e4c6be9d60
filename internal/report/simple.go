package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pagelift/pagelift/internal/model"
)

// signConventionNote spells out the delta sign asymmetry. Rendered in
// every format so no reader has to infer it.
const signConventionNote = "Delta is optimized minus original. A positive score delta is an " +
	"improvement; a positive delta on any time or shift metric is a regression."

// SimpleWriter outputs human-readable text reports for terminals.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose additionally lists skipped optimization actions.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output including skipped actions.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report as formatted text.
func (w *SimpleWriter) Write(report *model.PageReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("Page Performance Report\n")
	sb.WriteString("=======================\n\n")
	fmt.Fprintf(&sb, "URL:       %s\n", report.URL)
	fmt.Fprintf(&sb, "Date:      %s\n", report.DateAudited.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Output:    %s\n", report.OutputDir)
	fmt.Fprintf(&sb, "Status:    %s\n", statusText(report))
	fmt.Fprintf(&sb, "Resources: %d fetched, %d unresolved, %d bytes\n\n",
		report.GraphStats.Resources, report.GraphStats.Unresolved, report.GraphStats.TotalBytes)

	if report.CriticalCSS != nil && !report.CriticalCSS.Empty() {
		fmt.Fprintf(&sb, "Critical CSS: %d rules\n\n", len(report.CriticalCSS.Rules))
	}

	if report.Comparison != nil {
		w.writeComparison(&sb, report.Comparison)
	}

	w.writeActions(&sb, report.Actions)

	if len(report.Warnings) > 0 {
		sb.WriteString("Warnings\n--------\n")
		for _, warning := range report.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", warning)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeComparison(sb *strings.Builder, c *model.ComparisonReport) {
	sb.WriteString("Metrics (original vs optimized)\n")
	sb.WriteString("-------------------------------\n")
	for _, d := range c.Deltas {
		fmt.Fprintf(sb, "  %-26s %10s -> %-10s %s\n",
			d.Name,
			formatValue(d.Original, d.Unit),
			formatValue(d.Optimized, d.Unit),
			deltaText(d))
	}
	fmt.Fprintf(sb, "\nNote: %s\n", signConventionNote)
	if c.Degraded() {
		sb.WriteString("Note: one or both audits used synthetic placeholder data; deltas above make no improvement claims.\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeActions(sb *strings.Builder, actions []model.OptimizationAction) {
	applied := make([]model.OptimizationAction, 0, len(actions))
	skipped := make([]model.OptimizationAction, 0, len(actions))
	for _, a := range actions {
		if a.Skipped {
			skipped = append(skipped, a)
		} else {
			applied = append(applied, a)
		}
	}

	fmt.Fprintf(sb, "Optimizations: %d applied, %d skipped\n", len(applied), len(skipped))
	sb.WriteString("--------------\n")
	for _, a := range applied {
		fmt.Fprintf(sb, "  [%s] %s", a.Kind, a.Target)
		if a.After != "" {
			fmt.Fprintf(sb, " -> %s", a.After)
		}
		sb.WriteString("\n")
	}
	if w.verbose {
		for _, a := range skipped {
			fmt.Fprintf(sb, "  [%s] %s skipped: %s\n", a.Kind, a.Target, a.Reason)
		}
	}
	sb.WriteString("\n")
}

// deltaText renders one delta with its improvement verdict. Suppressed
// deltas carry no verdict at all.
func deltaText(d model.MetricDelta) string {
	if d.Suppressed {
		return "(synthetic data, no delta claimed)"
	}
	verdict := "regressed"
	if d.Improved {
		verdict = "improved"
	} else if d.Delta == 0 {
		verdict = "unchanged"
	}
	return fmt.Sprintf("(%+.1f %s, %s)", d.Delta, unitOrBare(d.Unit), verdict)
}

func formatValue(v float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

func unitOrBare(unit string) string {
	if unit == "" {
		return "shift"
	}
	return unit
}

func statusText(report *model.PageReport) string {
	switch {
	case report.ErrorMessage != "":
		return "error: " + report.ErrorMessage
	case report.Partial:
		return "partial (run timeout)"
	case report.Degraded():
		return "complete (degraded)"
	default:
		return "complete"
	}
}
