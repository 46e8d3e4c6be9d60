package render

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Nominal element heights in CSS pixels for the document-order
// estimator. Real layout varies wildly; these only need to produce a
// plausible fold line, not pixel accuracy.
var nominalHeights = map[string]float64{
	"h1": 60, "h2": 50, "h3": 40, "h4": 40, "h5": 40, "h6": 40,
	"p": 80, "li": 30, "pre": 200, "table": 200, "form": 200,
	"figure": 200, "video": 300, "iframe": 300, "button": 40,
	"hr": 20, "br": 20,
}

// inlineTags are elements that occupy the current line without
// advancing the vertical cursor.
var inlineTags = map[string]bool{
	"a": true, "span": true, "strong": true, "em": true, "b": true,
	"i": true, "u": true, "small": true, "label": true, "code": true,
	"abbr": true, "sub": true, "sup": true, "time": true,
}

// skippedTags never produce boxes: they render nothing.
var skippedTags = map[string]bool{
	"head": true, "title": true, "meta": true, "link": true,
	"style": true, "script": true, "noscript": true, "template": true,
}

// defaultImageHeight is assumed for images without a height attribute.
const defaultImageHeight = 300

// HeuristicRenderer estimates element positions from document order:
// block-level content advances a vertical cursor by a nominal height,
// containers span their children. It is the fallback when no browser is
// available and the layout source for tests.
//
// Design decision: The estimator is intentionally crude but fully
// deterministic. A wrong guess about the fold degrades optimization
// quality; nondeterminism would break the rewriter's byte-identical
// output guarantee and make failures unreproducible.
type HeuristicRenderer struct{}

// NewHeuristicRenderer creates the document-order layout estimator.
func NewHeuristicRenderer() *HeuristicRenderer {
	return &HeuristicRenderer{}
}

// Layout estimates bounding boxes for every rendered element.
// It never fails: any parseable document yields a layout, and parse
// errors from the tolerant HTML parser are effectively impossible.
func (r *HeuristicRenderer) Layout(_ context.Context, htmlText string, viewport Viewport) (*Layout, error) {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}

	layout := &Layout{Viewport: viewport}
	cursor := 0.0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tag := n.Data
			if skippedTags[tag] {
				return
			}

			switch {
			case tag == "img":
				h := attrFloat(n, "height", defaultImageHeight)
				w := attrFloat(n, "width", float64(viewport.Width))
				layout.Boxes = append(layout.Boxes, ElementBox{
					Path: NodePath(n),
					Tag:  tag,
					Box:  Rect{X: 0, Y: cursor, Width: w, Height: h},
				})
				cursor += h
				return

			case inlineTags[tag]:
				layout.Boxes = append(layout.Boxes, ElementBox{
					Path: NodePath(n),
					Tag:  tag,
					Box:  Rect{X: 0, Y: cursor, Width: 100, Height: 20},
				})
				// Inline content still nests (e.g. <a><img></a>).
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				return

			case nominalHeights[tag] > 0:
				h := nominalHeights[tag]
				layout.Boxes = append(layout.Boxes, ElementBox{
					Path: NodePath(n),
					Tag:  tag,
					Box:  Rect{X: 0, Y: cursor, Width: float64(viewport.Width), Height: h},
				})
				cursor += h
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				return

			default:
				// Container: spans whatever its children occupy.
				start := cursor
				idx := len(layout.Boxes)
				layout.Boxes = append(layout.Boxes, ElementBox{Path: NodePath(n), Tag: tag})
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				layout.Boxes[idx].Box = Rect{
					X:      0,
					Y:      start,
					Width:  float64(viewport.Width),
					Height: cursor - start,
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return layout, nil
}

// attrFloat parses a numeric attribute, returning fallback when the
// attribute is missing or not a number.
func attrFloat(n *html.Node, key string, fallback float64) float64 {
	for _, attr := range n.Attr {
		if attr.Key == key {
			if v, err := strconv.ParseFloat(strings.TrimSuffix(attr.Val, "px"), 64); err == nil && v > 0 {
				return v
			}
		}
	}
	return fallback
}
