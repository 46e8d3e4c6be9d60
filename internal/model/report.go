package model

import (
	"net/url"
	"strings"
	"time"
)

// PageReport is the aggregate carried through the pipeline. Each step
// fills in its portion; the report is persisted to the working directory
// at the end of the run regardless of how far the pipeline got.
//
// Design decision: We use a single large struct rather than per-step
// results because:
//  1. It simplifies serialization and partial-run persistence
//  2. Steps can read what earlier steps produced without extra plumbing
//  3. It mirrors how the report is ultimately rendered: one artifact
type PageReport struct {
	// URL is the audited page URL.
	URL string `json:"url"`

	// Domain is the site domain used to key the working directory.
	Domain string `json:"domain"`

	// DateAudited is when the pipeline run started.
	DateAudited time.Time `json:"date_audited"`

	// OutputDir is the working directory for this site's artifacts.
	OutputDir string `json:"output_dir"`

	// Graph is the fetched resource graph. Excluded from JSON due to size.
	Graph *ResourceGraph `json:"-"`

	// GraphStats summarizes the graph for serialization.
	GraphStats GraphStats `json:"graph_stats"`

	// CriticalCSS is the derived critical rule set.
	CriticalCSS *CriticalCSSSet `json:"critical_css,omitempty"`

	// Actions is the ordered optimization audit trail.
	Actions []OptimizationAction `json:"actions,omitempty"`

	// OptimizedDocument is the rewritten page. Excluded from JSON.
	OptimizedDocument []byte `json:"-"`

	// OriginalMetrics is the audit of the remote original page.
	OriginalMetrics *MetricsDocument `json:"original_metrics,omitempty"`

	// OptimizedMetrics is the audit of the local optimized copy.
	OptimizedMetrics *MetricsDocument `json:"optimized_metrics,omitempty"`

	// Comparison is the final before/after diff.
	Comparison *ComparisonReport `json:"comparison,omitempty"`

	// Warnings collects non-fatal degradations (unresolved resources,
	// missing viewport data, placeholder metrics).
	Warnings []string `json:"warnings,omitempty"`

	// PerformedSteps lists pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Partial is true when the run finalized early (overall timeout).
	Partial bool `json:"partial,omitempty"`

	// Error holds the fatal error if the run aborted. Not serialized;
	// ErrorMessage carries the text.
	Error error `json:"-"`

	// ErrorMessage is the fatal error text, if any.
	ErrorMessage string `json:"error,omitempty"`
}

// NewPageReport creates a report for the given page URL.
func NewPageReport(pageURL string) *PageReport {
	return &PageReport{
		URL:         pageURL,
		Domain:      DomainFor(pageURL),
		DateAudited: time.Now(),
	}
}

// Warn appends a degradation warning to the report.
func (r *PageReport) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Degraded reports whether the run substituted placeholder data or
// skipped a non-fatal stage.
func (r *PageReport) Degraded() bool {
	if r.Partial || len(r.Warnings) > 0 {
		return true
	}
	if r.OriginalMetrics != nil && r.OriginalMetrics.Degraded {
		return true
	}
	if r.OptimizedMetrics != nil && r.OptimizedMetrics.Degraded {
		return true
	}
	return false
}

// DomainFor extracts the site domain from a URL for keying the working
// directory. Falls back to a fixed placeholder when the URL has no host,
// matching the behavior for the default example target.
func DomainFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return "example-com"
	}
	host := strings.ToLower(u.Host)
	return strings.ReplaceAll(host, ":", "-")
}
