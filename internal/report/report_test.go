package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pagelift/pagelift/internal/model"
)

func testReport() *model.PageReport {
	report := model.NewPageReport("https://example.com/")
	report.DateAudited = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	report.OutputDir = "/tmp/pagelift/example-com"
	report.GraphStats = model.GraphStats{References: 5, Resources: 4, Unresolved: 1, TotalBytes: 20480}
	report.CriticalCSS = &model.CriticalCSSSet{Rules: []string{"body {\n  margin: 0;\n}"}}
	report.Actions = []model.OptimizationAction{
		model.Applied(model.ActionAddLazyLoad, "https://example.com/img/footer.png", "eager", "loading=lazy"),
		model.Skipped(model.ActionAddLazyLoad, "https://example.com/img/hero.png", "above the fold"),
	}

	original := model.MetricsDocument{
		PerformanceScore:         60,
		FirstContentfulPaintMs:   2000,
		LargestContentfulPaintMs: 3500,
		CumulativeLayoutShift:    0.2,
		TotalBlockingTimeMs:      400,
		TimeToInteractiveMs:      5000,
		Source:                   model.MetricsSourceBrowser,
	}
	optimized := model.MetricsDocument{
		PerformanceScore:         85,
		FirstContentfulPaintMs:   1200,
		LargestContentfulPaintMs: 2200,
		CumulativeLayoutShift:    0.05,
		TotalBlockingTimeMs:      150,
		TimeToInteractiveMs:      3500,
		Source:                   model.MetricsSourceBrowser,
	}
	report.OriginalMetrics = &original
	report.OptimizedMetrics = &optimized
	report.Comparison = model.NewComparisonReport(report.URL, original, optimized, report.Actions)
	return report
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).Write(testReport())
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"https://example.com/",
		"Performance Score",
		"improved",
		"positive score delta is an improvement",
		"1 applied, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "above the fold") {
		t.Error("skipped actions should be hidden without verbose")
	}
}

func TestSimpleWriterVerboseShowsSkipped(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(testReport()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "above the fold") {
		t.Error("verbose output must list skipped actions with reasons")
	}
}

func TestSimpleWriterSuppressesSyntheticDeltas(t *testing.T) {
	t.Parallel()

	report := testReport()
	synthetic := model.SyntheticMetrics()
	report.OptimizedMetrics = &synthetic
	report.Comparison = model.NewComparisonReport(report.URL, *report.OriginalMetrics, synthetic, report.Actions)

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "synthetic data, no delta claimed") {
		t.Errorf("suppressed deltas must be labeled:\n%s", out)
	}
	if strings.Contains(out, "improved") {
		t.Error("no improvement claim may appear when one side is synthetic")
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testReport()); err != nil {
		t.Fatal(err)
	}

	var decoded model.PageReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.URL != "https://example.com/" {
		t.Errorf("decoded URL = %q", decoded.URL)
	}
	if decoded.Comparison == nil || len(decoded.Comparison.Deltas) != 6 {
		t.Errorf("decoded comparison = %+v, want 6 deltas", decoded.Comparison)
	}
	if decoded.Comparison.Deltas[0].Delta != 25 {
		t.Errorf("score delta = %v, want 25", decoded.Comparison.Deltas[0].Delta)
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(testReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Page Performance Report",
		"## Metrics",
		"Performance Score",
		"+25.0 (improved)",
		"## Optimizations",
		"add-lazy-load",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriterSyntheticSide(t *testing.T) {
	t.Parallel()

	report := testReport()
	synthetic := model.SyntheticMetrics()
	report.OptimizedMetrics = &synthetic
	report.Comparison = model.NewComparisonReport(report.URL, *report.OriginalMetrics, synthetic, report.Actions)

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "(synthetic)") {
		t.Error("suppressed delta cells must be marked synthetic")
	}
	if strings.Contains(out, "(improved)") {
		t.Error("no improvement verdict may render when one side is synthetic")
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
	if _, err := mw.Write(testReport()); err != nil {
		t.Fatal(err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("both writers must receive output")
	}
}
