package rewrite

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/optimize"
)

const testPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <link rel="stylesheet" href="/css/main.css">
</head>
<body>
  <img src="/img/hero.png">
  <script src="https://cdn.example.org/app.js"></script>
  <img src="https://cdn.example.org/missing.png">
</body>
</html>`

func testGraph() *model.ResourceGraph {
	graph := model.NewResourceGraph(&model.Resource{
		URL:       "https://example.com/",
		Kind:      model.KindHTML,
		Body:      []byte(testPage),
		LocalPath: "index.html",
	})
	graph.References = []model.Reference{
		{URL: "https://example.com/css/main.css", Origin: model.OriginLinkStylesheet},
		{URL: "https://example.com/img/hero.png", Origin: model.OriginImgSrc},
		{URL: "https://cdn.example.org/app.js", Origin: model.OriginScriptSrc},
		{URL: "https://cdn.example.org/missing.png", Origin: model.OriginImgSrc,
			Unresolved: true, Reason: "unexpected status 404"},
	}
	graph.Resources["https://example.com/css/main.css"] = &model.Resource{
		URL: "https://example.com/css/main.css", Kind: model.KindCSS,
		Body: []byte("body { margin: 0; }"), LocalPath: "css/main.css",
	}
	graph.Resources["https://example.com/img/hero.png"] = &model.Resource{
		URL: "https://example.com/img/hero.png", Kind: model.KindImage,
		Body: []byte("png-bytes"), LocalPath: "img/hero.png",
	}
	graph.Resources["https://cdn.example.org/app.js"] = &model.Resource{
		URL: "https://cdn.example.org/app.js", Kind: model.KindJS,
		Body: []byte("app();"), LocalPath: "ext/cdn.example.org/app.js",
	}
	return graph
}

func parsePage(t *testing.T) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(testPage))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func testCritical() *model.CriticalCSSSet {
	return &model.CriticalCSSSet{Rules: []string{
		"body {\n  margin: 0;\n}",
		"h1 {\n  font-size: 2rem;\n}",
	}}
}

func TestRewriteInlinesCriticalFirst(t *testing.T) {
	t.Parallel()

	r := NewRewriter(testGraph())
	out, actions, err := r.Rewrite(parsePage(t), testCritical())
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	styleAt := strings.Index(text, "<style>")
	linkAt := strings.Index(text, "rel=\"preload\"")
	if styleAt < 0 {
		t.Fatal("no inline style element in output")
	}
	if linkAt >= 0 && styleAt > linkAt {
		t.Error("critical style must precede every stylesheet reference")
	}
	if !strings.Contains(text, "margin: 0") {
		t.Error("critical rules missing from inline style")
	}

	var inlined bool
	for _, a := range actions {
		if a.Kind == model.ActionInlineCritical && !a.Skipped {
			inlined = true
		}
	}
	if !inlined {
		t.Errorf("actions = %+v, want applied inline-critical-css", actions)
	}
}

func TestRewriteAsyncStylesheetWithFallback(t *testing.T) {
	t.Parallel()

	r := NewRewriter(testGraph())
	out, _, err := r.Rewrite(parsePage(t), testCritical())
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	if !strings.Contains(text, `as="style"`) {
		t.Error("stylesheet link not converted to preload")
	}
	// Attribute rendering escapes the quotes inside the handler.
	if !strings.Contains(text, "this.onload=null;this.rel=") {
		t.Error("missing onload swap handler")
	}
	if !strings.Contains(text, "<noscript>") {
		t.Error("missing noscript fallback for disabled scripting")
	}
}

func TestRewriteKeepsBlockingStylesheetWithoutCritical(t *testing.T) {
	t.Parallel()

	r := NewRewriter(testGraph())
	out, actions, err := r.Rewrite(parsePage(t), &model.CriticalCSSSet{})
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	if strings.Contains(text, `rel="preload"`) {
		t.Error("stylesheet must stay blocking when there is no critical css to inline")
	}
	for _, a := range actions {
		if a.Kind == model.ActionInlineCritical && !a.Skipped {
			t.Errorf("inline action = %+v, want skipped", a)
		}
	}
}

func TestRewriteLocalizesReferences(t *testing.T) {
	t.Parallel()

	images := map[string]*optimize.EncodedImage{
		"https://example.com/img/hero.png": {
			URL:       "https://example.com/img/hero.png",
			Body:      []byte("jpeg-bytes"),
			LocalPath: "img/hero.jpg",
		},
	}
	r := NewRewriter(testGraph(), WithImages(images))
	out, _, err := r.Rewrite(parsePage(t), testCritical())
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	if !strings.Contains(text, `src="img/hero.jpg"`) {
		t.Error("re-encoded image src not rewritten to its new mirror path")
	}
	if !strings.Contains(text, `src="ext/cdn.example.org/app.js"`) {
		t.Error("cross-origin script not rewritten to its mirror path")
	}
	if !strings.Contains(text, `src="https://cdn.example.org/missing.png"`) {
		t.Error("unresolved reference must keep its original URL")
	}
	if !strings.Contains(text, `href="css/main.css"`) {
		t.Error("stylesheet href not rewritten to its mirror path")
	}
}

func TestRewriteDeterministic(t *testing.T) {
	t.Parallel()

	run := func() []byte {
		r := NewRewriter(testGraph())
		out, _, err := r.Rewrite(parsePage(t), testCritical())
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	first := run()
	for i := 0; i < 5; i++ {
		if next := run(); !bytes.Equal(first, next) {
			t.Fatalf("output differs between runs:\n%s\n---\n%s", first, next)
		}
	}
}

func TestWriteSite(t *testing.T) {
	t.Parallel()

	graph := testGraph()
	images := map[string]*optimize.EncodedImage{
		"https://example.com/img/hero.png": {
			URL:       "https://example.com/img/hero.png",
			Body:      []byte("jpeg-bytes"),
			LocalPath: "img/hero.jpg",
		},
	}
	dir := t.TempDir()

	// Simulate leftovers from a prior run for the same site.
	if err := os.WriteFile(filepath.Join(dir, "stale.css"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := WriteSite(dir, graph, images, []byte("<html>optimized</html>"), testCritical())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stale.css")); err == nil {
		t.Error("prior run artifacts must be replaced wholesale")
	}

	doc, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(doc) != "<html>optimized</html>" {
		t.Errorf("index.html = %q", doc)
	}

	if _, err := os.Stat(filepath.Join(dir, "css", "critical.css")); err != nil {
		t.Errorf("critical css file missing: %v", err)
	}

	jpg, err := os.ReadFile(filepath.Join(dir, "img", "hero.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(jpg) != "jpeg-bytes" {
		t.Errorf("re-encoded body = %q", jpg)
	}
	if _, err := os.Stat(filepath.Join(dir, "img", "hero.png")); err == nil {
		t.Error("original image must not be written when a re-encoded variant exists")
	}

	if _, err := os.Stat(filepath.Join(dir, "ext", "cdn.example.org", "app.js")); err != nil {
		t.Errorf("cross-origin script missing from mirror: %v", err)
	}
}
