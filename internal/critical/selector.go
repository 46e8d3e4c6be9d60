package critical

import (
	"regexp"
	"strings"
)

// alwaysCritical lists selectors that style the page frame itself.
// Rules for these apply before any content lays out, so they are kept
// without consulting the viewport.
var alwaysCritical = map[string]bool{
	"*":     true,
	"html":  true,
	"body":  true,
	":root": true,
}

// pseudoPattern strips pseudo-classes and pseudo-elements from a
// selector before matching. A parsed document has no hover or focus
// state; the base element standing above the fold is what makes the
// rule critical.
var pseudoPattern = regexp.MustCompile(`::?[\w-]+(\([^)]*\))?`)

// matchableSelector rewrites a selector for structural matching.
// Returns ok=false when nothing structural remains (e.g. ":hover"
// alone), in which case the caller keeps the rule rather than guess.
func matchableSelector(sel string) (string, bool) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return "", false
	}
	if alwaysCritical[strings.ToLower(sel)] {
		return "", false
	}
	stripped := strings.TrimSpace(pseudoPattern.ReplaceAllString(sel, ""))
	stripped = strings.TrimSpace(strings.TrimSuffix(stripped, ">"))
	stripped = strings.TrimSpace(strings.TrimSuffix(stripped, "+"))
	stripped = strings.TrimSpace(strings.TrimSuffix(stripped, "~"))
	if stripped == "" {
		return "", false
	}
	return stripped, true
}

// frameSelector reports whether a selector is on the always-critical
// allow list.
func frameSelector(sel string) bool {
	return alwaysCritical[strings.ToLower(strings.TrimSpace(sel))]
}
