package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/pagelift/pagelift/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation
// and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.PageReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeMetrics(md, report)
	w.writeActions(md, report)
	w.writeWarnings(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.PageReport) {
	md.H1("Page Performance Report")
	md.PlainText("")

	criticalRules := 0
	if report.CriticalCSS != nil {
		criticalRules = len(report.CriticalCSS.Rules)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + report.URL + "`"},
			{"Date", report.DateAudited.Format("2006-01-02 15:04:05 MST")},
			{"Output Directory", "`" + report.OutputDir + "`"},
			{"Status", statusText(report)},
			{"Resources Fetched", strconv.Itoa(report.GraphStats.Resources)},
			{"Unresolved References", strconv.Itoa(report.GraphStats.Unresolved)},
			{"Critical CSS Rules", strconv.Itoa(criticalRules)},
		},
	})
	md.PlainText("")
}

// writeMetrics renders the before/after comparison table.
func (w *MarkdownWriter) writeMetrics(md *markdown.Markdown, report *model.PageReport) {
	c := report.Comparison
	if c == nil {
		return
	}

	md.H2("Metrics")
	md.PlainText("")

	rows := make([][]string, 0, len(c.Deltas))
	for _, d := range c.Deltas {
		rows = append(rows, []string{
			d.Name,
			formatValue(d.Original, d.Unit),
			formatValue(d.Optimized, d.Unit),
			markdownDelta(d),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Original", "Optimized", "Delta"},
		Rows:   rows,
	})
	md.PlainText("")
	md.Note(signConventionNote)
	if c.Degraded() {
		md.Warning("One or both audits substituted synthetic placeholder data. " +
			"The affected deltas are suppressed and make no improvement claims.")
	}
	md.PlainText("")
}

// writeActions renders the optimization audit trail.
func (w *MarkdownWriter) writeActions(md *markdown.Markdown, report *model.PageReport) {
	if len(report.Actions) == 0 {
		return
	}

	applied := make([][]string, 0, len(report.Actions))
	skipped := make([][]string, 0, len(report.Actions))
	for _, a := range report.Actions {
		if a.Skipped {
			skipped = append(skipped, []string{string(a.Kind), "`" + a.Target + "`", a.Reason})
		} else {
			applied = append(applied, []string{string(a.Kind), "`" + a.Target + "`", a.Before, a.After})
		}
	}

	md.H2("Optimizations")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Optimization actions"),
		piechart.WithShowData(true),
	)
	chart.LabelAndIntValue("applied", uint64(len(applied)))
	chart.LabelAndIntValue("skipped", uint64(len(skipped)))
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if len(applied) > 0 {
		md.H3("Applied")
		md.Table(markdown.TableSet{
			Header: []string{"Kind", "Target", "Before", "After"},
			Rows:   applied,
		})
		md.PlainText("")
	}
	if len(skipped) > 0 {
		md.H3("Skipped")
		md.Table(markdown.TableSet{
			Header: []string{"Kind", "Target", "Reason"},
			Rows:   skipped,
		})
		md.PlainText("")
	}
}

// writeWarnings lists run degradations.
func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, report *model.PageReport) {
	if len(report.Warnings) == 0 {
		return
	}
	md.H2("Warnings")
	md.BulletList(report.Warnings...)
	md.PlainText("")
}

// markdownDelta renders one delta cell. Suppressed deltas show a dash
// instead of a number so no improvement is implied.
func markdownDelta(d model.MetricDelta) string {
	if d.Suppressed {
		return "– (synthetic)"
	}
	verdict := "regressed"
	if d.Improved {
		verdict = "improved"
	} else if d.Delta == 0 {
		verdict = "unchanged"
	}
	return fmt.Sprintf("%+.1f (%s)", d.Delta, verdict)
}
