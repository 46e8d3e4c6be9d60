package css

import (
	"regexp"
	"strings"

	douceurcss "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Rule is one stylesheet rule in source order.
//
// Design decision: We flatten douceur's tree into our own struct rather
// than passing douceur types around because:
//  1. Callers only need selectors, rule text, and nesting
//  2. Rule text must be reconstructed deterministically for inlining
//  3. It keeps the parser dependency local to this package
type Rule struct {
	// Selectors is the selector list for qualified rules. Empty for
	// at-rules.
	Selectors []string

	// AtRule is true for @-rules (@media, @font-face, @keyframes, ...).
	AtRule bool

	// Name is the at-rule name including the "@" (e.g. "@media").
	Name string

	// Prelude is the at-rule prelude (e.g. "(max-width: 600px)").
	Prelude string

	// Nested holds the rules inside a block at-rule such as @media.
	Nested []Rule

	// Text is the deterministic reconstruction of the whole rule.
	Text string
}

// ParseRules parses a stylesheet into rules in source order.
// Parse failures on real-world CSS are common enough that a partial
// result with an error is more useful than nothing; callers typically
// log the error and keep whatever was parsed.
func ParseRules(source string) ([]Rule, error) {
	sheet, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		rules = append(rules, convertRule(r))
	}
	return rules, nil
}

// convertRule maps a douceur rule to our flattened representation.
func convertRule(r *douceurcss.Rule) Rule {
	rule := Rule{}
	if r.Kind == douceurcss.AtRule {
		rule.AtRule = true
		rule.Name = r.Name
		rule.Prelude = strings.TrimSpace(r.Prelude)
		for _, nested := range r.Rules {
			rule.Nested = append(rule.Nested, convertRule(nested))
		}
	} else {
		for _, sel := range r.Selectors {
			rule.Selectors = append(rule.Selectors, strings.TrimSpace(sel))
		}
	}
	rule.Text = renderRule(r)
	return rule
}

// renderRule reconstructs rule text with stable formatting: selectors
// joined by ", ", declarations one per line. Identical inputs always
// produce identical text, which the document rewriter depends on.
func renderRule(r *douceurcss.Rule) string {
	var sb strings.Builder

	if r.Kind == douceurcss.AtRule {
		sb.WriteString(r.Name)
		if prelude := strings.TrimSpace(r.Prelude); prelude != "" {
			sb.WriteString(" ")
			sb.WriteString(prelude)
		}
		// Statement at-rules (@import, @charset) have no block.
		if len(r.Rules) == 0 && len(r.Declarations) == 0 {
			if !blockAtRule(r.Name) {
				sb.WriteString(";")
				return sb.String()
			}
		}
	} else {
		sels := make([]string, 0, len(r.Selectors))
		for _, sel := range r.Selectors {
			sels = append(sels, strings.TrimSpace(sel))
		}
		sb.WriteString(strings.Join(sels, ", "))
	}

	sb.WriteString(" {\n")
	for _, d := range r.Declarations {
		sb.WriteString("  ")
		sb.WriteString(d.Property)
		sb.WriteString(": ")
		sb.WriteString(d.Value)
		if d.Important {
			sb.WriteString(" !important")
		}
		sb.WriteString(";\n")
	}
	for _, nested := range r.Rules {
		for _, line := range strings.Split(renderRule(nested), "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// blockAtRule reports whether an at-rule name always carries a block.
func blockAtRule(name string) bool {
	switch name {
	case "@media", "@supports", "@font-face", "@keyframes", "@page":
		return true
	default:
		return false
	}
}

// urlPattern matches url(...) references inside CSS, with optional quotes.
var urlPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// ExtractURLs returns all url() references in a stylesheet, in order,
// skipping data: and fragment-only URIs. Duplicates are preserved; the
// fetcher deduplicates by absolute URL.
func ExtractURLs(source string) []string {
	matches := urlPattern.FindAllStringSubmatch(source, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		u := strings.TrimSpace(m[1])
		if u == "" || strings.HasPrefix(u, "data:") || strings.HasPrefix(u, "#") {
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

// importPattern matches @import statements with either a string or url() form.
var importPattern = regexp.MustCompile(`@import\s+(?:url\(\s*)?['"]?([^'");]+?)['"]?\s*\)?\s*[^;]*;`)

// ExtractImports returns the targets of @import statements in a
// stylesheet. The fetcher records these as unresolved beyond the
// one-level CSS discovery cap rather than following them.
func ExtractImports(source string) []string {
	matches := importPattern.FindAllStringSubmatch(source, -1)
	imports := make([]string, 0, len(matches))
	for _, m := range matches {
		if u := strings.TrimSpace(m[1]); u != "" {
			imports = append(imports, u)
		}
	}
	return imports
}
