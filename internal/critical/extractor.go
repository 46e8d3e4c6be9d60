// Package critical derives the minimal set of CSS rules needed to
// style above-the-fold content. A rule is critical when any of its
// selectors matches an element whose layout box intersects the initial
// viewport, or when it styles the page frame (html, body, :root, *,
// @font-face). Rules are emitted in cascade order and never
// duplicated; dropping a needed rule breaks rendering, so every
// undecidable case resolves toward keeping the rule.
package critical

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/css"
	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/render"
)

// Extractor computes critical CSS for one document.
type Extractor struct {
	renderer render.Renderer
	viewport render.Viewport
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithViewport sets the reference viewport for the fold decision.
func WithViewport(v render.Viewport) Option {
	return func(e *Extractor) {
		if v.Width > 0 && v.Height > 0 {
			e.viewport = v
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor using the given layout renderer.
func NewExtractor(renderer render.Renderer, opts ...Option) *Extractor {
	e := &Extractor{
		renderer: renderer,
		viewport: render.Viewport{Width: 1280, Height: 800},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract lays out the document, then filters every stylesheet down to
// the rules that style above-the-fold content. Layout failure is not
// fatal: the result is an empty set carrying a warning, and the caller
// keeps all stylesheets loading normally.
func (e *Extractor) Extract(ctx context.Context, htmlText string, sheets []*model.Resource) (*model.CriticalCSSSet, error) {
	layout, err := e.renderer.Layout(ctx, htmlText, e.viewport)
	if err != nil {
		e.logger.Warn("layout capture failed, skipping critical css",
			slog.String("error", err.Error()))
		return &model.CriticalCSSSet{
			Warning: fmt.Sprintf("no viewport data: %v", err),
		}, nil
	}

	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	fold := aboveFoldNodes(doc, layout)

	set := &model.CriticalCSSSet{}
	seen := make(map[string]bool)
	warnings := make([]string, 0)

	for _, sheet := range sheets {
		rules, err := css.ParseRules(string(sheet.Body))
		if err != nil {
			e.logger.Warn("stylesheet parse failed",
				slog.String("url", sheet.URL),
				slog.String("error", err.Error()))
			warnings = append(warnings, fmt.Sprintf("parse %s: %v", sheet.URL, err))
			continue
		}
		for _, rule := range rules {
			text, keep := e.criticalText(rule, fold)
			if !keep || seen[text] {
				continue
			}
			seen[text] = true
			set.Rules = append(set.Rules, text)
		}
	}

	if len(warnings) > 0 {
		set.Warning = strings.Join(warnings, "; ")
	}
	e.logger.Info("critical css extracted",
		slog.Int("rules", len(set.Rules)),
		slog.Int("stylesheets", len(sheets)))
	return set, nil
}

// criticalText decides whether a rule is critical and returns its
// emitted text. Block at-rules are rebuilt around only their critical
// nested rules.
func (e *Extractor) criticalText(rule css.Rule, fold []*html.Node) (string, bool) {
	if rule.AtRule {
		switch rule.Name {
		case "@font-face":
			return rule.Text, true
		case "@media", "@supports":
			kept := make([]string, 0, len(rule.Nested))
			for _, nested := range rule.Nested {
				if text, keep := e.criticalText(nested, fold); keep {
					kept = append(kept, text)
				}
			}
			if len(kept) == 0 {
				return "", false
			}
			return wrapAtRule(rule, kept), true
		default:
			// @charset, @import, @keyframes and the rest do not block
			// first paint.
			return "", false
		}
	}

	for _, sel := range rule.Selectors {
		if e.selectorCritical(sel, fold) {
			return rule.Text, true
		}
	}
	return "", false
}

// selectorCritical reports whether one selector matches the page frame
// or any above-the-fold element.
func (e *Extractor) selectorCritical(sel string, fold []*html.Node) bool {
	if frameSelector(sel) {
		return true
	}
	matchable, ok := matchableSelector(sel)
	if !ok {
		return true
	}
	matcher, err := cascadia.Compile(matchable)
	if err != nil {
		// A selector we cannot parse is a rule we cannot prove
		// non-critical.
		e.logger.Debug("unparseable selector kept",
			slog.String("selector", sel))
		return true
	}
	for _, n := range fold {
		if matcher.Match(n) {
			return true
		}
	}
	return false
}

// wrapAtRule rebuilds a block at-rule around its kept nested rules,
// matching the formatting of css.ParseRules reconstruction.
func wrapAtRule(rule css.Rule, kept []string) string {
	var sb strings.Builder
	sb.WriteString(rule.Name)
	if rule.Prelude != "" {
		sb.WriteString(" ")
		sb.WriteString(rule.Prelude)
	}
	sb.WriteString(" {\n")
	for _, text := range kept {
		for _, line := range strings.Split(text, "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// aboveFoldNodes walks the document and collects every element whose
// layout box intersects the viewport. Elements the layout pass skipped
// count as above the fold.
func aboveFoldNodes(doc *html.Node, layout *render.Layout) []*html.Node {
	nodes := make([]*html.Node, 0, 64)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if layout.AboveFold(render.NodePath(n)) {
				nodes = append(nodes, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}
