package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/pagelift/pagelift/internal/config"
	"github.com/pagelift/pagelift/internal/css"
	"github.com/pagelift/pagelift/internal/model"
)

// Fetcher downloads a page and its referenced resources into a
// ResourceGraph.
type Fetcher struct {
	client      *http.Client
	concurrency int
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	headers     map[string]string
	logger      *slog.Logger

	mu      sync.Mutex
	visited map[string]bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency sets the maximum number of in-flight resource fetches.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithTimeout sets the per-resource fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize caps the size of any single fetched resource.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders sets additional request headers applied to every fetch.
func WithHeaders(h map[string]string) Option {
	return func(f *Fetcher) { f.headers = h }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher with sensible defaults.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		concurrency: config.DefaultConcurrency,
		timeout:     config.DefaultFetchTimeout,
		maxBodySize: config.DefaultMaxBodySize,
		userAgent:   config.DefaultUserAgent,
		logger:      slog.New(slog.DiscardHandler),
		visited:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the root document at rawURL and every resource it
// references, one level of CSS url() discovery included. Only a root
// fetch failure is fatal; dependent failures are recorded as
// unresolved references in the returned graph.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.ResourceGraph, error) {
	rootURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}

	root, err := f.fetchOne(ctx, rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	root.Kind = model.KindHTML
	root.LocalPath = "index.html"
	if decoded, derr := decodeHTML(root.Body, root.ContentType); derr == nil {
		root.Body = decoded
	}
	f.markVisited(rawURL)

	graph := model.NewResourceGraph(root)

	parser, err := NewParser(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	refs, err := parser.References(bytes.NewReader(root.Body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}

	f.fetchWave(ctx, graph, rootURL, refs)

	cssRefs := f.discoverCSSReferences(graph)
	f.fetchWave(ctx, graph, rootURL, cssRefs)

	stats := graph.Stats()
	f.logger.Info("fetch complete",
		slog.String("url", rawURL),
		slog.Int("references", stats.References),
		slog.Int("resources", stats.Resources),
		slog.Int("unresolved", stats.Unresolved),
		slog.Int64("total_bytes", stats.TotalBytes))

	return graph, nil
}

// fetchWave downloads one batch of references with a bounded worker
// pool and appends them, in input order, to the graph.
func (f *Fetcher) fetchWave(ctx context.Context, graph *model.ResourceGraph, rootURL *url.URL, refs []model.Reference) {
	if len(refs) == 0 {
		return
	}

	start := len(graph.References)
	graph.References = append(graph.References, refs...)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i := range refs {
		ref := &graph.References[start+i]
		if ref.Unresolved {
			continue
		}
		if !f.markVisited(ref.URL) {
			// Another reference to an in-flight URL. The resource
			// lands in the map under the first reference; this one
			// just records the extra origin.
			continue
		}

		g.Go(func() error {
			res, err := f.fetchOne(ctx, ref.URL)
			if err != nil {
				f.logger.Warn("resource fetch failed",
					slog.String("url", ref.URL),
					slog.String("error", err.Error()))
				ref.Unresolved = true
				ref.Reason = err.Error()
				return nil
			}
			if u, perr := url.Parse(ref.URL); perr == nil {
				res.LocalPath = localPathFor(rootURL, u)
			}
			mu.Lock()
			graph.Resources[ref.URL] = res
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	// A duplicate reference to a URL that later failed must be marked
	// unresolved too, so the invariant holds.
	for i := range refs {
		ref := &graph.References[start+i]
		// Self-references resolve to the root document itself.
		if ref.URL == graph.Root.URL {
			continue
		}
		if !ref.Unresolved && graph.Resources[ref.URL] == nil {
			ref.Unresolved = true
			ref.Reason = "duplicate of failed fetch"
		}
	}
}

// discoverCSSReferences scans fetched stylesheets for url() references
// and @import statements. url() targets are returned for fetching;
// @import targets are recorded directly as unresolved because
// discovery stops one level below the root document.
func (f *Fetcher) discoverCSSReferences(graph *model.ResourceGraph) []model.Reference {
	seen := make(map[string]bool)
	refs := make([]model.Reference, 0)

	for _, sheet := range graph.Stylesheets() {
		base, err := url.Parse(sheet.URL)
		if err != nil {
			continue
		}
		source := string(sheet.Body)

		// Imports claim their URLs first so that @import url(...) is not
		// also picked up by the plain url() scan below.
		for _, raw := range css.ExtractImports(source) {
			resolved := resolveAgainst(base, raw)
			if resolved == "" || seen[resolved] {
				continue
			}
			seen[resolved] = true
			refs = append(refs, model.Reference{
				URL:        resolved,
				Origin:     model.OriginCSSURL,
				Unresolved: true,
				Reason:     "beyond discovery depth",
			})
		}

		for _, raw := range css.ExtractURLs(source) {
			resolved := resolveAgainst(base, raw)
			if resolved == "" || seen[resolved] {
				continue
			}
			seen[resolved] = true
			refs = append(refs, model.Reference{URL: resolved, Origin: model.OriginCSSURL})
		}
	}
	return refs
}

// fetchOne performs a single HTTP GET with the per-resource timeout
// and body size cap.
func (f *Fetcher) fetchOne(ctx context.Context, rawURL string) (*model.Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("body exceeds %d bytes", f.maxBodySize)
	}

	contentType := resp.Header.Get("Content-Type")
	return &model.Resource{
		URL:         rawURL,
		Kind:        model.KindFor(contentType, req.URL.Path),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// markVisited records a URL as claimed and reports whether this call
// was the first to claim it.
func (f *Fetcher) markVisited(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visited[rawURL] {
		return false
	}
	f.visited[rawURL] = true
	return true
}

// resolveAgainst resolves a raw CSS reference against its stylesheet URL.
func resolveAgainst(base *url.URL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// decodeHTML converts a fetched HTML body to UTF-8 using the charset
// declared in the Content-Type header or the document itself.
func decodeHTML(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// WriteMirror writes every fetched resource, the root document
// included, to its LocalPath under dir.
func WriteMirror(graph *model.ResourceGraph, dir string) error {
	if err := writeResource(dir, graph.Root); err != nil {
		return err
	}
	for _, ref := range graph.References {
		if ref.Unresolved {
			continue
		}
		res := graph.Resources[ref.URL]
		if res == nil || res.LocalPath == "" {
			continue
		}
		if err := writeResource(dir, res); err != nil {
			return err
		}
	}
	return nil
}

func writeResource(dir string, res *model.Resource) error {
	path := filepath.Join(dir, filepath.FromSlash(res.LocalPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, res.Body, 0o600)
}
