package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// layoutScript walks every element in the rendered document and reports
// its structural path and bounding box. The path algorithm must match
// NodePath exactly.
const layoutScript = `(() => {
	const path = (el) => {
		const parts = [];
		while (el && el.nodeType === 1) {
			let i = 1, sib = el;
			while ((sib = sib.previousElementSibling)) {
				if (sib.tagName === el.tagName) i++;
			}
			parts.unshift(el.tagName.toLowerCase() + ':nth-of-type(' + i + ')');
			el = el.parentElement;
		}
		return parts.join('>');
	};
	const out = [];
	for (const el of document.querySelectorAll('*')) {
		const r = el.getBoundingClientRect();
		out.push({
			path: path(el),
			tag: el.tagName.toLowerCase(),
			box: {x: r.x + window.scrollX, y: r.y + window.scrollY, width: r.width, height: r.height},
		});
	}
	return out;
})()`

// BrowserRenderer captures real layout by loading the document in a
// headless browser via chromedp.
type BrowserRenderer struct {
	// execPath is the browser binary to launch. Empty means chromedp's
	// default discovery.
	execPath string

	// timeout bounds one layout capture.
	timeout time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// BrowserRendererOption configures a BrowserRenderer.
type BrowserRendererOption func(*BrowserRenderer)

// WithExecPath sets the browser binary path.
func WithExecPath(path string) BrowserRendererOption {
	return func(r *BrowserRenderer) {
		r.execPath = path
	}
}

// WithRenderTimeout sets the per-capture timeout.
func WithRenderTimeout(d time.Duration) BrowserRendererOption {
	return func(r *BrowserRenderer) {
		r.timeout = d
	}
}

// WithRenderLogger sets a custom logger.
func WithRenderLogger(logger *slog.Logger) BrowserRendererOption {
	return func(r *BrowserRenderer) {
		r.logger = logger
	}
}

// NewBrowserRenderer creates a renderer backed by a headless browser.
func NewBrowserRenderer(opts ...BrowserRendererOption) *BrowserRenderer {
	r := &BrowserRenderer{
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout loads the document in a fresh browser context and captures
// element boxes. Any launch or navigation failure is reported as
// ErrNoViewportData so callers degrade instead of aborting.
func (r *BrowserRenderer) Layout(ctx context.Context, htmlText string, viewport Viewport) (*Layout, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, r.timeout)
	defer cancelTimeout()

	var boxes []ElementBox
	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(int64(viewport.Width), int64(viewport.Height)),
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(fmt.Sprintf(`document.open(); document.write(%s); document.close();`, jsString(htmlText)), nil),
		chromedp.Sleep(200*time.Millisecond), // let layout settle
		chromedp.Evaluate(layoutScript, &boxes),
	)
	if err != nil {
		r.logger.Warn("browser layout capture failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNoViewportData, err)
	}

	r.logger.Debug("layout captured", "elements", len(boxes))
	return &Layout{Viewport: viewport, Boxes: boxes}, nil
}

// jsString encodes s as a JavaScript string literal. JSON string syntax
// is a subset of JavaScript's except for U+2028 and U+2029, which are
// legal unescaped in JSON but terminate a JS line; json.Marshal escapes
// them already, the ReplaceAll calls keep that guaranteed.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string never fails.
		return `""`
	}
	out := string(b)
	out = strings.ReplaceAll(out, " ", ` `)
	out = strings.ReplaceAll(out, " ", ` `)
	return out
}
