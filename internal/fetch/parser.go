package fetch

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/model"
)

// Parser enumerates resource references from an HTML document.
//
// Design decision: We use golang.org/x/net/html rather than regex
// because:
//  1. It correctly handles malformed HTML common on the web
//  2. It gives the same tree the rewriter will later operate on
//  3. More maintainable than complex regex patterns
type Parser struct {
	// baseURL resolves relative references.
	baseURL *url.URL
}

// NewParser creates a parser with the given base URL for resolving
// relative references.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// References parses the document and returns resource references in
// document order. Unresolvable hrefs (javascript:, data:, mailto:,
// bare fragments) are dropped.
func (p *Parser) References(content io.Reader) ([]model.Reference, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	refs := make([]model.Reference, 0)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if ref, ok := p.referenceFor(n); ok {
				refs = append(refs, ref)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return refs, nil
}

// referenceFor extracts a reference from a single element, if any.
func (p *Parser) referenceFor(n *html.Node) (model.Reference, bool) {
	switch n.Data {
	case "link":
		href := p.resolveURL(getAttr(n, "href"))
		if href == "" {
			return model.Reference{}, false
		}
		rel := strings.ToLower(getAttr(n, "rel"))
		as := strings.ToLower(getAttr(n, "as"))
		switch {
		case rel == "stylesheet":
			return model.Reference{URL: href, Origin: model.OriginLinkStylesheet}, true
		case strings.Contains(rel, "icon"):
			return model.Reference{URL: href, Origin: model.OriginLinkIcon}, true
		case rel == "preload" && as == "font", strings.Contains(rel, "font"):
			return model.Reference{URL: href, Origin: model.OriginLinkFont}, true
		}

	case "script":
		if src := p.resolveURL(getAttr(n, "src")); src != "" {
			return model.Reference{URL: src, Origin: model.OriginScriptSrc}, true
		}

	case "img":
		if src := p.resolveURL(getAttr(n, "src")); src != "" {
			return model.Reference{URL: src, Origin: model.OriginImgSrc}, true
		}
	}
	return model.Reference{}, false
}

// resolveURL resolves a reference against the base URL.
//
// Design decision: We resolve URLs at parse time rather than storing
// them as-is because:
//  1. Deduplication must be by absolute URL
//  2. The same resource can be referenced absolutely and relatively
//  3. It removes ambiguity from the graph
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
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
