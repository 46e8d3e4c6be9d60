package model

import "strings"

// CriticalCSSSet is the ordered sequence of CSS rule strings judged to
// affect the viewport's initial render. It is derived once per resource
// graph and read-only after computation.
//
// Rule order matches the order the rules appeared across source
// stylesheets: reordering critical rules can change computed styles, so
// cascade order must be preserved.
type CriticalCSSSet struct {
	// Rules holds the retained rule texts in source cascade order.
	Rules []string `json:"rules"`

	// Warning is set when extraction degraded (e.g. no viewport data
	// was available and the set is empty as a fallback).
	Warning string `json:"warning,omitempty"`
}

// Empty reports whether no critical rules were retained.
func (s *CriticalCSSSet) Empty() bool {
	return s == nil || len(s.Rules) == 0
}

// Text renders the set as a single stylesheet in cascade order.
func (s *CriticalCSSSet) Text() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.Rules, "\n")
}
