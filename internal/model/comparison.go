package model

// MetricDelta is the computed difference for one metric between the
// original and optimized audits. Delta is always optimized - original.
//
// The sign convention is asymmetric: for PerformanceScore a positive
// delta is an improvement, while for the time and shift metrics a
// positive delta is a regression. Improved resolves the asymmetry so
// renderers never have to re-derive it.
type MetricDelta struct {
	// Name is the metric's display name.
	Name string `json:"name"`

	// Unit is the metric's unit ("points", "ms", or "" for unitless).
	Unit string `json:"unit,omitempty"`

	// Original is the value measured on the original page.
	Original float64 `json:"original"`

	// Optimized is the value measured on the optimized mirror.
	Optimized float64 `json:"optimized"`

	// Delta is optimized - original.
	Delta float64 `json:"delta"`

	// HigherIsBetter is true only for PerformanceScore.
	HigherIsBetter bool `json:"higher_is_better"`

	// Improved is true when the delta represents an improvement under
	// this metric's sign convention. False when Suppressed.
	Improved bool `json:"improved"`

	// Suppressed is true when either side of the delta came from a
	// synthetic placeholder document. Suppressed deltas carry no claim
	// about real-world improvement and must be rendered as such.
	Suppressed bool `json:"suppressed,omitempty"`
}

// ComparisonReport is the terminal artifact of the pipeline: two metrics
// documents, their per-metric deltas, and the audit trail of
// optimization actions. Built once; never mutated.
type ComparisonReport struct {
	// URL is the audited page.
	URL string `json:"url"`

	// OriginalMetrics is the audit of the remote original page.
	OriginalMetrics MetricsDocument `json:"original_metrics"`

	// OptimizedMetrics is the audit of the locally served optimized copy.
	OptimizedMetrics MetricsDocument `json:"optimized_metrics"`

	// Deltas holds one entry per numeric metric, in fixed order.
	Deltas []MetricDelta `json:"deltas"`

	// ActionsApplied is the ordered optimization audit trail.
	ActionsApplied []OptimizationAction `json:"actions_applied"`

	// Partial is true when the run finalized on an overall timeout with
	// whatever resources and metrics were obtained.
	Partial bool `json:"partial,omitempty"`
}

// NewComparisonReport diffs two metrics documents and attaches the
// optimization audit trail. Deltas involving a synthetic side are
// suppressed rather than omitted so the report still shows both columns.
func NewComparisonReport(url string, original, optimized MetricsDocument, actions []OptimizationAction) *ComparisonReport {
	suppressed := original.Degraded || optimized.Degraded

	delta := func(name, unit string, orig, opt float64, higherIsBetter bool) MetricDelta {
		d := MetricDelta{
			Name:           name,
			Unit:           unit,
			Original:       orig,
			Optimized:      opt,
			Delta:          opt - orig,
			HigherIsBetter: higherIsBetter,
			Suppressed:     suppressed,
		}
		if !suppressed {
			if higherIsBetter {
				d.Improved = d.Delta > 0
			} else {
				d.Improved = d.Delta < 0
			}
		}
		return d
	}

	return &ComparisonReport{
		URL:              url,
		OriginalMetrics:  original,
		OptimizedMetrics: optimized,
		Deltas: []MetricDelta{
			delta("Performance Score", "points", original.PerformanceScore, optimized.PerformanceScore, true),
			delta("First Contentful Paint", "ms", original.FirstContentfulPaintMs, optimized.FirstContentfulPaintMs, false),
			delta("Largest Contentful Paint", "ms", original.LargestContentfulPaintMs, optimized.LargestContentfulPaintMs, false),
			delta("Cumulative Layout Shift", "", original.CumulativeLayoutShift, optimized.CumulativeLayoutShift, false),
			delta("Total Blocking Time", "ms", original.TotalBlockingTimeMs, optimized.TotalBlockingTimeMs, false),
			delta("Time to Interactive", "ms", original.TimeToInteractiveMs, optimized.TimeToInteractiveMs, false),
		},
		ActionsApplied: actions,
	}
}

// Degraded reports whether either side of the comparison is synthetic.
func (c *ComparisonReport) Degraded() bool {
	return c.OriginalMetrics.Degraded || c.OptimizedMetrics.Degraded
}
