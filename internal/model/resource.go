package model

import (
	"path"
	"strings"
)

// ResourceKind classifies a fetched web resource by role.
type ResourceKind string

// Resource kinds recognized by the pipeline.
const (
	KindHTML  ResourceKind = "html"
	KindCSS   ResourceKind = "css"
	KindJS    ResourceKind = "js"
	KindImage ResourceKind = "image"
	KindFont  ResourceKind = "font"
	KindOther ResourceKind = "other"
)

// String returns the kind as a lowercase string.
func (k ResourceKind) String() string {
	return string(k)
}

// Static reports whether resources of this kind are cacheable static assets.
// HTML documents are excluded because they typically carry dynamic content.
func (k ResourceKind) Static() bool {
	switch k {
	case KindCSS, KindJS, KindImage, KindFont:
		return true
	default:
		return false
	}
}

// Resource is a fetched web resource and its on-disk mirror location.
// A Resource is immutable once fetched; optimizers work on copies and
// record their changes as OptimizationActions.
//
// Design decision: We keep the original bytes in memory rather than
// re-reading the mirror because:
//  1. Pages and their assets are small relative to total memory
//  2. Optimization rules need repeated access (decode, re-encode, parse)
//  3. It keeps the mirror a pure output, never an input
type Resource struct {
	// URL is the absolute URL the resource was fetched from.
	URL string `json:"url"`

	// Kind classifies the resource (html, css, js, image, font, other).
	Kind ResourceKind `json:"kind"`

	// ContentType is the Content-Type header reported by the origin.
	ContentType string `json:"content_type,omitempty"`

	// Body holds the original fetched bytes.
	Body []byte `json:"-"`

	// LocalPath is the mirror location relative to the site's output
	// directory (e.g. "css/main.css"). Empty until the resource has been
	// written to disk.
	LocalPath string `json:"local_path,omitempty"`
}

// Size returns the byte length of the original body.
func (r *Resource) Size() int {
	return len(r.Body)
}

// contentTypeKinds maps Content-Type prefixes to resource kinds.
// Checked in declaration order; the first prefix match wins.
var contentTypeKinds = []struct {
	prefix string
	kind   ResourceKind
}{
	{"text/html", KindHTML},
	{"text/css", KindCSS},
	{"application/javascript", KindJS},
	{"text/javascript", KindJS},
	{"application/x-javascript", KindJS},
	{"image/", KindImage},
	{"font/", KindFont},
	{"application/font", KindFont},
	{"application/vnd.ms-fontobject", KindFont},
}

// extensionKinds maps lowercase file extensions to resource kinds.
// Used when the origin reports no usable Content-Type.
var extensionKinds = map[string]ResourceKind{
	".html":  KindHTML,
	".htm":   KindHTML,
	".css":   KindCSS,
	".js":    KindJS,
	".mjs":   KindJS,
	".png":   KindImage,
	".jpg":   KindImage,
	".jpeg":  KindImage,
	".gif":   KindImage,
	".webp":  KindImage,
	".svg":   KindImage,
	".ico":   KindImage,
	".woff":  KindFont,
	".woff2": KindFont,
	".ttf":   KindFont,
	".otf":   KindFont,
	".eot":   KindFont,
}

// KindFor determines the resource kind from a Content-Type header,
// falling back to the URL path extension when the header is missing
// or too generic (e.g. application/octet-stream).
func KindFor(contentType, urlPath string) ResourceKind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, m := range contentTypeKinds {
		if strings.HasPrefix(ct, m.prefix) {
			return m.kind
		}
	}
	if k, ok := extensionKinds[strings.ToLower(path.Ext(urlPath))]; ok {
		return k
	}
	return KindOther
}
