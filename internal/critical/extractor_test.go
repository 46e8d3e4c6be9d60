package critical

import (
	"context"
	"strings"
	"testing"

	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/render"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title>Sample</title></head>
<body>
  <h1>Headline <a href="/about">about</a></h1>
  <img src="hero.jpg" height="600">
  <pre>above the fold block</pre>
  <p class="intro">below the fold paragraph</p>
  <div class="footer"><p>footer text</p></div>
</body>
</html>`

// failingRenderer simulates a layout capture that produced nothing.
type failingRenderer struct{}

func (failingRenderer) Layout(context.Context, string, render.Viewport) (*render.Layout, error) {
	return nil, render.ErrNoViewportData
}

func sheet(url, body string) *model.Resource {
	return &model.Resource{URL: url, Kind: model.KindCSS, Body: []byte(body)}
}

func TestExtractKeepsAboveFoldRules(t *testing.T) {
	t.Parallel()

	source := `
h1 { font-size: 2rem; }
.intro { color: gray; }
.footer p { margin: 0; }
body { margin: 0; }
a:hover { color: red; }
@font-face { font-family: Body; src: url(body.woff2); }
@keyframes spin { from { opacity: 0; } }
@media (max-width: 600px) {
  h1 { font-size: 1rem; }
  .intro { padding: 0; }
}
`
	e := NewExtractor(render.NewHeuristicRenderer(),
		WithViewport(render.Viewport{Width: 1280, Height: 800}))
	set, err := e.Extract(context.Background(), testPage,
		[]*model.Resource{sheet("https://example.com/main.css", source)})
	if err != nil {
		t.Fatal(err)
	}

	text := set.Text()

	for _, want := range []string{
		"font-size: 2rem",   // h1 stands above the fold
		"margin: 0",         // body is frame styling
		"color: red",        // a:hover matches via its base element
		"@font-face",        // always kept
		"font-size: 1rem",   // critical branch inside @media
		"@media (max-width: 600px)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("critical css missing %q:\n%s", want, text)
		}
	}
	for _, drop := range []string{
		"color: gray",  // .intro lies below the fold
		"padding: 0",   // non-critical branch inside @media
		"@keyframes",
	} {
		if strings.Contains(text, drop) {
			t.Errorf("critical css must not contain %q:\n%s", drop, text)
		}
	}
}

func TestExtractPreservesOrderAndDeduplicates(t *testing.T) {
	t.Parallel()

	e := NewExtractor(render.NewHeuristicRenderer())
	set, err := e.Extract(context.Background(), testPage, []*model.Resource{
		sheet("https://example.com/a.css", "body { margin: 0; }\nh1 { color: blue; }"),
		sheet("https://example.com/b.css", "body { margin: 0; }\npre { font-family: monospace; }"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(set.Rules) != 3 {
		t.Fatalf("got %d rules, want 3 (duplicate body rule collapsed): %v", len(set.Rules), set.Rules)
	}
	if !strings.Contains(set.Rules[0], "margin") {
		t.Errorf("rules[0] = %q, want the body rule first", set.Rules[0])
	}
	if !strings.Contains(set.Rules[1], "blue") {
		t.Errorf("rules[1] = %q, want the h1 rule second", set.Rules[1])
	}
	if !strings.Contains(set.Rules[2], "monospace") {
		t.Errorf("rules[2] = %q, want the pre rule last", set.Rules[2])
	}
}

func TestExtractDegradesWithoutViewportData(t *testing.T) {
	t.Parallel()

	e := NewExtractor(failingRenderer{})
	set, err := e.Extract(context.Background(), testPage,
		[]*model.Resource{sheet("https://example.com/main.css", "body { margin: 0; }")})
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Errorf("set = %v, want empty on layout failure", set.Rules)
	}
	if set.Warning == "" {
		t.Error("expected a warning explaining the empty set")
	}
}

func TestExtractRecordsStylesheetParseWarnings(t *testing.T) {
	t.Parallel()

	e := NewExtractor(render.NewHeuristicRenderer())
	set, err := e.Extract(context.Background(), testPage, []*model.Resource{
		sheet("https://example.com/broken.css", "h1 { color:"),
		sheet("https://example.com/ok.css", "h1 { color: blue; }"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Rules) != 1 {
		t.Fatalf("got %d rules, want 1 from the healthy sheet", len(set.Rules))
	}
	if !strings.Contains(set.Warning, "broken.css") {
		t.Errorf("warning %q should name the failing stylesheet", set.Warning)
	}
}

func TestMatchableSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sel  string
		want string
		ok   bool
	}{
		{"h1", "h1", true},
		{"a:hover", "a", true},
		{"li::marker", "li", true},
		{"ul > li:nth-child(2)", "ul > li", true},
		{":hover", "", false},
		{"body", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := matchableSelector(tt.sel)
		if got != tt.want || ok != tt.ok {
			t.Errorf("matchableSelector(%q) = (%q, %v), want (%q, %v)",
				tt.sel, got, ok, tt.want, tt.ok)
		}
	}
}
