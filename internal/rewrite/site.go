package rewrite

import (
	"os"
	"path/filepath"

	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/optimize"
)

// CriticalCSSPath is where the critical rules land inside a site
// directory, alongside the rewritten document.
const CriticalCSSPath = "css/critical.css"

// WriteSite persists the optimized mirror: the rewritten document at
// index.html, the critical rules as a standalone stylesheet, and every
// fetched resource at its mirror path, re-encoded images replacing
// their originals.
func WriteSite(dir string, graph *model.ResourceGraph, images map[string]*optimize.EncodedImage, document []byte, critical *model.CriticalCSSSet) error {
	// A new run replaces the site tree wholesale; stale resources from a
	// prior run must not leak into the optimized copy being measured.
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := writeFile(dir, "index.html", document); err != nil {
		return err
	}
	if !critical.Empty() {
		if err := writeFile(dir, CriticalCSSPath, []byte(critical.Text()+"\n")); err != nil {
			return err
		}
	}

	for _, ref := range graph.References {
		if ref.Unresolved {
			continue
		}
		res := graph.Resolved(ref.URL)
		if res == nil || res.LocalPath == "" {
			continue
		}
		// A self-reference resolves to the root document; the rewritten
		// index.html must not be overwritten with the original body.
		if res == graph.Root {
			continue
		}
		body, path := res.Body, res.LocalPath
		if enc := images[ref.URL]; enc != nil {
			body, path = enc.Body, enc.LocalPath
		}
		if err := writeFile(dir, path, body); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(dir, rel string, body []byte) error {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}
