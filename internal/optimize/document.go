package optimize

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/render"
)

// imageElements applies per-element image rules: explicit dimensions
// where the intrinsic size is known, lazy loading strictly below the
// fold. An image whose position cannot be proven below the fold is
// treated as above it.
func (o *Optimizer) imageElements(doc *html.Node, graph *model.ResourceGraph, result *Result) {
	base, _ := url.Parse(graph.Root.URL)

	for _, img := range elementsByTag(doc, "img") {
		src := getAttr(img, "src")
		if src == "" || strings.HasPrefix(src, "data:") {
			continue
		}
		target := resolveRef(base, src)
		path := render.NodePath(img)

		w, h, known := o.dimensionsFor(target, graph, result)
		switch {
		case getAttr(img, "width") != "" && getAttr(img, "height") != "":
			result.record(model.Skipped(model.ActionAddDimensions, target, "dimensions already present"))
		case known:
			setAttr(img, "width", strconv.Itoa(w))
			setAttr(img, "height", strconv.Itoa(h))
			result.record(model.Applied(model.ActionAddDimensions, target,
				"no intrinsic dimensions", fmt.Sprintf("width=%d height=%d", w, h)))
		default:
			result.record(model.Skipped(model.ActionAddDimensions, target, "dimensions undiscoverable"))
		}

		switch {
		case getAttr(img, "loading") == "lazy":
			result.record(model.Skipped(model.ActionAddLazyLoad, target, "already lazy"))
		case o.layout.AboveFold(path):
			result.record(model.Skipped(model.ActionAddLazyLoad, target, "above the fold"))
		default:
			setAttr(img, "loading", "lazy")
			result.record(model.Applied(model.ActionAddLazyLoad, target, "eager", "loading=lazy"))
		}
	}
}

// dimensionsFor returns the intrinsic dimensions for an image URL,
// preferring the re-encoded variant when one exists.
func (o *Optimizer) dimensionsFor(target string, graph *model.ResourceGraph, result *Result) (int, int, bool) {
	if enc := result.Images[target]; enc != nil {
		return enc.Width, enc.Height, true
	}
	res := graph.Resolved(target)
	if res == nil {
		return 0, 0, false
	}
	w, h, err := decodeDimensions(res.Body)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// scriptElements defers scripts that are not needed for first paint.
// A script standing before any rendered content with no defer or async
// marker is render-blocking by intent; reordering its execution could
// break the page, so it is left untouched.
func (o *Optimizer) scriptElements(doc *html.Node, graph *model.ResourceGraph, result *Result) {
	base, _ := url.Parse(graph.Root.URL)
	contentSeen := false

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "script":
				o.scriptElement(n, base, contentSeen, result)
			case rendersContent(n):
				contentSeen = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func (o *Optimizer) scriptElement(n *html.Node, base *url.URL, contentSeen bool, result *Result) {
	src := getAttr(n, "src")
	if src == "" {
		return
	}
	target := resolveRef(base, src)

	switch {
	case hasAttr(n, "defer") || hasAttr(n, "async"):
		result.record(model.Skipped(model.ActionDefer, target, "already deferred or async"))
	case getAttr(n, "type") == "module":
		result.record(model.Skipped(model.ActionDefer, target, "module scripts defer by default"))
	case !contentSeen:
		result.record(model.Skipped(model.ActionDefer, target, "render-blocking before first content"))
	case crossOrigin(base, target):
		// Third-party scripts carry no execution-order contract with
		// the page's own scripts; async lets them load independently.
		n.Attr = append(n.Attr, html.Attribute{Key: "async"})
		result.record(model.Applied(model.ActionAsync, target, "blocking third-party script", "async"))
	default:
		// Same-origin scripts keep document order via defer.
		n.Attr = append(n.Attr, html.Attribute{Key: "defer"})
		result.record(model.Applied(model.ActionDefer, target, "blocking script", "defer"))
	}
}

// crossOrigin reports whether target lives on a different host than the
// root document.
func crossOrigin(base *url.URL, target string) bool {
	if base == nil {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Host != "" && u.Host != base.Host
}

// resourceHints inserts one preconnect hint per distinct external
// origin, in first-reference order.
func (o *Optimizer) resourceHints(doc *html.Node, graph *model.ResourceGraph, result *Result) {
	base, err := url.Parse(graph.Root.URL)
	if err != nil {
		return
	}
	head := elementByTag(doc, "head")
	if head == nil {
		return
	}

	seen := make(map[string]bool)
	for _, ref := range graph.References {
		u, err := url.Parse(ref.URL)
		if err != nil || u.Host == base.Host {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if seen[origin] {
			continue
		}
		seen[origin] = true

		link := &html.Node{
			Type: html.ElementNode,
			Data: "link",
			Attr: []html.Attribute{
				{Key: "rel", Val: "preconnect"},
				{Key: "href", Val: origin},
			},
		}
		head.AppendChild(link)
		result.record(model.Applied(model.ActionAddResourceHint, origin, "", "preconnect"))
	}
}

// preloadLCP finds the largest above-the-fold image, marks it high
// priority, and adds a matching preload hint so the browser fetches
// the likely LCP element first.
func (o *Optimizer) preloadLCP(doc *html.Node, result *Result) {
	var (
		best     *html.Node
		bestArea float64
	)
	for _, img := range elementsByTag(doc, "img") {
		src := getAttr(img, "src")
		if src == "" || strings.HasPrefix(src, "data:") {
			continue
		}
		box := o.layout.BoxFor(render.NodePath(img))
		if box == nil || !box.Box.IntersectsViewport(o.layout.Viewport) {
			continue
		}
		if area := box.Box.Width * box.Box.Height; area > bestArea {
			best, bestArea = img, area
		}
	}
	if best == nil {
		result.record(model.Skipped(model.ActionPreloadLCP, "", "no above-the-fold image"))
		return
	}

	src := getAttr(best, "src")
	setAttr(best, "fetchpriority", "high")
	if head := elementByTag(doc, "head"); head != nil {
		head.AppendChild(&html.Node{
			Type: html.ElementNode,
			Data: "link",
			Attr: []html.Attribute{
				{Key: "rel", Val: "preload"},
				{Key: "as", Val: "image"},
				{Key: "href", Val: src},
			},
		})
	}
	result.record(model.Applied(model.ActionPreloadLCP, src, "", "fetchpriority=high, preload"))
}

// rendersContent reports whether an element contributes to first paint.
func rendersContent(n *html.Node) bool {
	switch n.Data {
	case "html", "head", "body", "meta", "title", "link", "style",
		"script", "noscript", "template", "base":
		return false
	default:
		return true
	}
}

// resolveRef resolves a raw document reference against the page URL.
func resolveRef(base *url.URL, raw string) string {
	if base == nil {
		return raw
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

// elementsByTag returns all elements with the given tag, in document order.
func elementsByTag(doc *html.Node, tag string) []*html.Node {
	nodes := make([]*html.Node, 0)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}

// elementByTag returns the first element with the given tag, or nil.
func elementByTag(doc *html.Node, tag string) *html.Node {
	nodes := elementsByTag(doc, tag)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasAttr reports whether the node carries the attribute at all.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// setAttr sets or replaces an attribute.
func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
