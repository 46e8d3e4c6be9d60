package model

// RefOrigin identifies where in the document a resource reference was found.
type RefOrigin string

// Reference origins recognized by the fetcher.
const (
	OriginLinkStylesheet RefOrigin = "link-stylesheet"
	OriginScriptSrc      RefOrigin = "script-src"
	OriginImgSrc         RefOrigin = "img-src"
	OriginLinkFont       RefOrigin = "link-font"
	OriginLinkIcon       RefOrigin = "link-icon"
	OriginCSSURL         RefOrigin = "css-url"
)

// Reference is one annotated edge in the resource graph: a location in the
// root document (or a discovered stylesheet) pointing at an absolute URL.
//
// Invariant: a Reference either resolves to exactly one Resource or is
// marked Unresolved, never both. The fetcher enforces this when it
// materializes the graph.
type Reference struct {
	// URL is the absolute URL of the referenced resource.
	URL string `json:"url"`

	// Origin records the reference's location in the document.
	Origin RefOrigin `json:"origin"`

	// Unresolved is true when the referenced resource could not be
	// fetched (timeout, error, or beyond the CSS discovery depth cap).
	Unresolved bool `json:"unresolved,omitempty"`

	// Reason explains why the reference is unresolved, for the report.
	Reason string `json:"reason,omitempty"`
}

// ResourceGraph is the root HTML resource plus the ordered set of
// resources it references.
//
// Design decision: References and Resources are kept separate because the
// same Resource may be referenced from several document locations (an
// image used twice, a stylesheet linked absolutely and relatively), while
// each Reference records exactly one origin. Resources are deduplicated by
// absolute URL; References are not.
type ResourceGraph struct {
	// Root is the fetched root HTML document.
	Root *Resource `json:"root"`

	// References is the ordered list of references discovered in the
	// root document and, one level deep, in fetched stylesheets.
	References []Reference `json:"references"`

	// Resources maps absolute URL to the fetched resource.
	// A URL present here is never marked unresolved in References.
	Resources map[string]*Resource `json:"-"`
}

// NewResourceGraph creates an empty graph for the given root document.
func NewResourceGraph(root *Resource) *ResourceGraph {
	return &ResourceGraph{
		Root:       root,
		References: make([]Reference, 0),
		Resources:  make(map[string]*Resource),
	}
}

// Resolved returns the fetched resource for an absolute URL, or nil.
// The root document resolves to itself, so self-references (a favicon
// link to "/", an anchor back to the page) honor the reference
// invariant without a second fetch.
func (g *ResourceGraph) Resolved(url string) *Resource {
	if g.Root != nil && url == g.Root.URL {
		return g.Root
	}
	return g.Resources[url]
}

// ByKind returns all fetched resources of the given kind, in the order
// they were first referenced. Order matters for CSS cascade correctness.
func (g *ResourceGraph) ByKind(kind ResourceKind) []*Resource {
	seen := make(map[string]bool)
	out := make([]*Resource, 0)
	for _, ref := range g.References {
		if ref.Unresolved || seen[ref.URL] {
			continue
		}
		if res := g.Resources[ref.URL]; res != nil && res.Kind == kind {
			seen[ref.URL] = true
			out = append(out, res)
		}
	}
	return out
}

// Stylesheets returns fetched CSS resources in first-reference order.
func (g *ResourceGraph) Stylesheets() []*Resource {
	return g.ByKind(KindCSS)
}

// UnresolvedCount returns the number of references that failed to resolve.
func (g *ResourceGraph) UnresolvedCount() int {
	n := 0
	for _, ref := range g.References {
		if ref.Unresolved {
			n++
		}
	}
	return n
}

// GraphStats summarizes a graph for logging and the report header.
type GraphStats struct {
	// References is the total number of discovered references.
	References int `json:"references"`

	// Resources is the number of unique fetched resources.
	Resources int `json:"resources"`

	// Unresolved is the number of references that could not be fetched.
	Unresolved int `json:"unresolved"`

	// TotalBytes is the combined size of all fetched resources,
	// including the root document.
	TotalBytes int64 `json:"total_bytes"`
}

// Stats computes summary statistics for the graph.
func (g *ResourceGraph) Stats() GraphStats {
	s := GraphStats{
		References: len(g.References),
		Resources:  len(g.Resources),
		Unresolved: g.UnresolvedCount(),
	}
	if g.Root != nil {
		s.TotalBytes += int64(g.Root.Size())
	}
	for _, res := range g.Resources {
		s.TotalBytes += int64(res.Size())
	}
	return s
}
