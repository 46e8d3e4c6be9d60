package model

// Metrics sources. A synthetic document is a clearly-labeled placeholder
// substituted when the analyzer could not produce real measurements.
const (
	MetricsSourceBrowser   = "browser"
	MetricsSourceSynthetic = "synthetic"
)

// MetricsDocument is the normalized subset of one analyzer invocation.
// It is produced once per audit and never mutated.
type MetricsDocument struct {
	// PerformanceScore is the overall performance score, 0-100.
	// Higher is better.
	PerformanceScore float64 `json:"performance_score"`

	// FirstContentfulPaintMs is the FCP timing in milliseconds.
	FirstContentfulPaintMs float64 `json:"first_contentful_paint_ms"`

	// LargestContentfulPaintMs is the LCP timing in milliseconds.
	LargestContentfulPaintMs float64 `json:"largest_contentful_paint_ms"`

	// CumulativeLayoutShift is the unitless CLS score.
	CumulativeLayoutShift float64 `json:"cumulative_layout_shift"`

	// TotalBlockingTimeMs is the TBT in milliseconds.
	TotalBlockingTimeMs float64 `json:"total_blocking_time_ms"`

	// TimeToInteractiveMs is the TTI in milliseconds.
	TimeToInteractiveMs float64 `json:"time_to_interactive_ms"`

	// TotalByteWeight is the total transferred bytes observed while
	// loading the page. Zero when the analyzer could not observe network
	// traffic (synthetic documents, file-served pages with no network).
	TotalByteWeight int64 `json:"total_byte_weight,omitempty"`

	// Degraded is true when this document is a placeholder rather than a
	// real measurement. Degraded documents must never be presented as
	// real data; reporters suppress deltas computed from them.
	Degraded bool `json:"degraded,omitempty"`

	// Source identifies how the document was produced
	// (MetricsSourceBrowser or MetricsSourceSynthetic).
	Source string `json:"source"`
}

// SyntheticMetrics returns the placeholder document used when the
// analyzer is unavailable. The values mirror a mediocre but plausible
// page so downstream reporting still renders; Degraded marks them as
// fabricated.
func SyntheticMetrics() MetricsDocument {
	return MetricsDocument{
		PerformanceScore:         65,
		FirstContentfulPaintMs:   1500,
		LargestContentfulPaintMs: 2500,
		CumulativeLayoutShift:    0.1,
		TotalBlockingTimeMs:      150,
		TimeToInteractiveMs:      3500,
		Degraded:                 true,
		Source:                   MetricsSourceSynthetic,
	}
}
