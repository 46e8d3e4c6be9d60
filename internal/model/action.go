package model

// ActionKind identifies one category of optimization transformation.
type ActionKind string

// Optimization action kinds.
const (
	ActionConvertFormat   ActionKind = "convert-format"
	ActionCompress        ActionKind = "compress"
	ActionAddDimensions   ActionKind = "add-dimensions"
	ActionAddLazyLoad     ActionKind = "add-lazy-load"
	ActionDefer           ActionKind = "defer"
	ActionAsync           ActionKind = "async"
	ActionAddResourceHint ActionKind = "add-resource-hint"
	ActionSetCacheHeader  ActionKind = "set-cache-header"
	ActionInlineCritical  ActionKind = "inline-critical-css"
	ActionAsyncStylesheet ActionKind = "async-stylesheet"
	ActionPreloadLCP      ActionKind = "preload-lcp"
)

// OptimizationAction records one transformation applied (or deliberately
// skipped) during optimization. The ordered sequence of actions is the
// pipeline's audit trail and is never mutated after creation.
//
// Design decision: Skipped rules still produce an action because the
// comparison report must be able to explain why an expected optimization
// did not happen (e.g. an image already in an optimal format). Silent
// no-ops would make degraded runs indistinguishable from complete ones.
type OptimizationAction struct {
	// Target is the URL of the resource or element the rule applied to.
	// Empty for document-level actions such as resource hints.
	Target string `json:"target,omitempty"`

	// Kind identifies the transformation rule.
	Kind ActionKind `json:"kind"`

	// Before describes the state prior to the transformation
	// (e.g. "image/png 48213 bytes", "blocking script").
	Before string `json:"before,omitempty"`

	// After describes the state after the transformation.
	After string `json:"after,omitempty"`

	// Skipped is true when the rule's preconditions were not met and
	// the transformation was recorded as a no-op.
	Skipped bool `json:"skipped,omitempty"`

	// Reason explains a skipped action.
	Reason string `json:"reason,omitempty"`
}

// Applied creates an applied action record.
func Applied(kind ActionKind, target, before, after string) OptimizationAction {
	return OptimizationAction{Target: target, Kind: kind, Before: before, After: after}
}

// Skipped creates a no-op action record for a rule whose preconditions
// were not met.
func Skipped(kind ActionKind, target, reason string) OptimizationAction {
	return OptimizationAction{Target: target, Kind: kind, Skipped: true, Reason: reason}
}
