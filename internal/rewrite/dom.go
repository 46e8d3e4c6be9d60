package rewrite

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

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

func elementByTag(doc *html.Node, tag string) *html.Node {
	nodes := elementsByTag(doc, tag)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func resolveRef(base *url.URL, raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}
