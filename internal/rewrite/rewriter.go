// Package rewrite assembles the optimized output document: critical
// CSS inlined ahead of every stylesheet reference, non-critical
// stylesheets loading asynchronously with a noscript fallback, and all
// resource references pointing into the local mirror. Output is
// byte-identical across runs for identical inputs.
package rewrite

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/optimize"
)

// stylesheetSwap restores rel=stylesheet once the preloaded sheet has
// arrived.
const stylesheetSwap = "this.onload=null;this.rel='stylesheet'"

// Rewriter produces the optimized document for one page.
type Rewriter struct {
	graph  *model.ResourceGraph
	images map[string]*optimize.EncodedImage
	logger *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithImages supplies re-encoded image replacements keyed by original
// URL; their mirror paths override the fetched resource paths.
func WithImages(images map[string]*optimize.EncodedImage) Option {
	return func(r *Rewriter) { r.images = images }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRewriter creates a Rewriter over the fetched resource graph.
func NewRewriter(graph *model.ResourceGraph, opts ...Option) *Rewriter {
	r := &Rewriter{
		graph:  graph,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite transforms the working document tree and renders it. The
// returned actions extend the optimization audit trail with the
// document-assembly transformations.
func (r *Rewriter) Rewrite(doc *html.Node, critical *model.CriticalCSSSet) ([]byte, []model.OptimizationAction, error) {
	actions := make([]model.OptimizationAction, 0, 4)

	actions = append(actions, r.inlineCritical(doc, critical)...)
	actions = append(actions, r.asyncStylesheets(doc, critical)...)
	r.localizeReferences(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, nil, err
	}
	r.logger.Info("document rewritten",
		slog.Int("bytes", buf.Len()),
		slog.Int("critical_rules", len(critical.Rules)))
	return buf.Bytes(), actions, nil
}

// inlineCritical inserts the critical rules in a style element at the
// top of head, before any stylesheet link can begin loading.
func (r *Rewriter) inlineCritical(doc *html.Node, critical *model.CriticalCSSSet) []model.OptimizationAction {
	if critical.Empty() {
		return []model.OptimizationAction{
			model.Skipped(model.ActionInlineCritical, "", "critical css set is empty"),
		}
	}
	head := elementByTag(doc, "head")
	if head == nil {
		return []model.OptimizationAction{
			model.Skipped(model.ActionInlineCritical, "", "document has no head"),
		}
	}

	style := &html.Node{Type: html.ElementNode, Data: "style"}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: "\n" + critical.Text() + "\n"})
	if head.FirstChild != nil {
		head.InsertBefore(style, head.FirstChild)
	} else {
		head.AppendChild(style)
	}
	return []model.OptimizationAction{
		model.Applied(model.ActionInlineCritical, "", "",
			formatRuleCount(len(critical.Rules))),
	}
}

// asyncStylesheets rewrites each blocking stylesheet link to the
// preload-and-swap pattern with a noscript fallback. Without inlined
// critical rules the page would flash unstyled, so the links stay
// blocking when the critical set is empty.
func (r *Rewriter) asyncStylesheets(doc *html.Node, critical *model.CriticalCSSSet) []model.OptimizationAction {
	actions := make([]model.OptimizationAction, 0, 2)
	if critical.Empty() {
		return actions
	}

	for _, link := range elementsByTag(doc, "link") {
		if !strings.EqualFold(getAttr(link, "rel"), "stylesheet") {
			continue
		}
		href := getAttr(link, "href")
		if href == "" {
			continue
		}

		setAttr(link, "rel", "preload")
		setAttr(link, "as", "style")
		setAttr(link, "onload", stylesheetSwap)

		fallback := &html.Node{Type: html.ElementNode, Data: "noscript"}
		fallback.AppendChild(&html.Node{
			Type: html.ElementNode,
			Data: "link",
			Attr: []html.Attribute{
				{Key: "rel", Val: "stylesheet"},
				{Key: "href", Val: href},
			},
		})
		link.Parent.InsertBefore(fallback, link.NextSibling)

		actions = append(actions,
			model.Applied(model.ActionAsyncStylesheet, href, "blocking stylesheet", "preload with swap"))
	}
	return actions
}

// localizeReferences points every resolvable resource reference at its
// mirror path. Unresolved references keep their original URLs; a
// broken link to the origin beats a broken link to a file that does
// not exist.
func (r *Rewriter) localizeReferences(doc *html.Node) {
	base, err := url.Parse(r.graph.Root.URL)
	if err != nil {
		return
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img", "script":
				r.localizeAttr(n, "src", base)
			case "link":
				r.localizeAttr(n, "href", base)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func (r *Rewriter) localizeAttr(n *html.Node, key string, base *url.URL) {
	raw := getAttr(n, key)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return
	}
	target := resolveRef(base, raw)
	if local := r.localPath(target); local != "" {
		setAttr(n, key, local)
	}
}

// localPath returns the mirror path for an absolute URL, or "".
func (r *Rewriter) localPath(target string) string {
	if enc := r.images[target]; enc != nil {
		return enc.LocalPath
	}
	if res := r.graph.Resolved(target); res != nil && res.LocalPath != "" {
		return res.LocalPath
	}
	return ""
}

func formatRuleCount(n int) string {
	if n == 1 {
		return "1 rule inlined"
	}
	return fmt.Sprintf("%d rules inlined", n)
}
