package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoViewportData is returned when layout information cannot be
// obtained at all. Callers degrade to an empty critical set plus a
// warning; they never abort the pipeline on this error.
var ErrNoViewportData = errors.New("no viewport data available")

// Viewport is the fixed reference viewport for layout capture.
type Viewport struct {
	// Width and Height are in CSS pixels.
	Width  int
	Height int
}

// Rect is an element bounding box in CSS pixels, relative to the
// document origin.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IntersectsViewport reports whether any part of the box falls inside
// the initial viewport (i.e. the content is above the fold).
func (r Rect) IntersectsViewport(v Viewport) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return r.Y < float64(v.Height) && r.Y+r.Height > 0 &&
		r.X < float64(v.Width) && r.X+r.Width > 0
}

// ElementBox associates a document element, identified by its
// structural path, with its laid-out bounding box.
type ElementBox struct {
	// Path is the element's structural path (see NodePath).
	Path string `json:"path"`

	// Tag is the lowercase element name.
	Tag string `json:"tag"`

	// Box is the element's bounding box.
	Box Rect `json:"box"`
}

// Layout is the result of one layout capture.
type Layout struct {
	// Viewport is the viewport the capture used.
	Viewport Viewport

	// Boxes holds one entry per laid-out element, in document order.
	Boxes []ElementBox

	// byPath indexes Boxes for lookup; built lazily.
	byPath map[string]*ElementBox
}

// BoxFor returns the bounding box for a structural path, or nil.
func (l *Layout) BoxFor(path string) *ElementBox {
	if l.byPath == nil {
		l.byPath = make(map[string]*ElementBox, len(l.Boxes))
		for i := range l.Boxes {
			l.byPath[l.Boxes[i].Path] = &l.Boxes[i]
		}
	}
	return l.byPath[path]
}

// AboveFold reports whether the element at path intersects the viewport.
// Unknown paths and zero-size boxes are treated as above the fold: the
// optimizer must never lazy-load or drop content it cannot prove is
// below the fold, and a container whose height comes only from inline
// content can report an empty box.
func (l *Layout) AboveFold(path string) bool {
	box := l.BoxFor(path)
	if box == nil {
		return true
	}
	if box.Box.Width <= 0 || box.Box.Height <= 0 {
		return true
	}
	return box.Box.IntersectsViewport(l.Viewport)
}

// Renderer is the layout collaborator contract: given a complete HTML
// document, return element bounding boxes for the fixed viewport.
type Renderer interface {
	// Layout lays out the document and captures element boxes.
	// Returns ErrNoViewportData (possibly wrapped) when layout
	// information cannot be obtained at all.
	Layout(ctx context.Context, htmlText string, viewport Viewport) (*Layout, error)
}

// NodePath returns the structural path of an element node: tag names
// with :nth-of-type positions, joined by ">", from the root down
// (e.g. "html:nth-of-type(1)>body:nth-of-type(1)>img:nth-of-type(2)").
//
// The same algorithm is implemented in the browser-side capture script,
// so paths computed over a parsed tree and paths reported by the browser
// line up for lookup.
func NodePath(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	parts := make([]string, 0, 8)
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		idx := 1
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == cur.Data {
				idx++
			}
		}
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, idx))
	}
	// Reverse into root-first order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ">")
}
