// Package audit measures page load performance by driving a headless
// browser over the DevTools protocol and normalizing the observed
// timings into a metrics document. When no supported browser is
// available the caller substitutes a synthetic placeholder; this
// package never fabricates measurements itself.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	cdruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/pagelift/pagelift/internal/config"
	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/render"
)

// metricsScript observes paint, layout-shift and longtask entries,
// then resolves with the collected raw metrics after a settle delay.
const metricsScript = `new Promise((resolve) => {
	const result = { fcp: 0, lcp: 0, cls: 0, tbt: 0, tti: 0 };
	try {
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				if (e.name === 'first-contentful-paint') { result.fcp = e.startTime; }
			}
		}).observe({ type: 'paint', buffered: true });
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) { result.lcp = e.startTime; }
		}).observe({ type: 'largest-contentful-paint', buffered: true });
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				if (!e.hadRecentInput) { result.cls += e.value; }
			}
		}).observe({ type: 'layout-shift', buffered: true });
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				result.tbt += Math.max(0, e.duration - 50);
			}
		}).observe({ type: 'longtask', buffered: true });
	} catch (err) {}
	setTimeout(() => {
		const nav = performance.getEntriesByType('navigation')[0];
		result.tti = Math.max(nav ? nav.domInteractive : 0, result.lcp);
		resolve(result);
	}, 1500);
})`

// rawMetrics is the shape resolved by metricsScript.
type rawMetrics struct {
	FCP float64 `json:"fcp"`
	LCP float64 `json:"lcp"`
	CLS float64 `json:"cls"`
	TBT float64 `json:"tbt"`
	TTI float64 `json:"tti"`
}

// Analyzer is the measurement contract the pipeline depends on.
type Analyzer interface {
	// Run audits one URL and returns its normalized metrics.
	Run(ctx context.Context, pageURL string) (*model.MetricsDocument, error)
}

// Runner audits pages with a locally installed browser. Invocations
// must be sequenced by the caller: the browser profile lock does not
// allow two concurrent audits.
type Runner struct {
	preference string
	timeout    time.Duration
	viewport   render.Viewport
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBrowserPreference pins the browser choice (brave, chrome, auto).
func WithBrowserPreference(p string) Option {
	return func(r *Runner) {
		if p != "" {
			r.preference = p
		}
	}
}

// WithTimeout bounds one audit invocation.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithViewport sets the emulated viewport.
func WithViewport(v render.Viewport) Option {
	return func(r *Runner) {
		if v.Width > 0 && v.Height > 0 {
			r.viewport = v
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a browser-backed Analyzer.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		preference: config.BrowserAuto,
		timeout:    config.DefaultAuditTimeout,
		viewport:   render.Viewport{Width: config.DefaultViewportWidth, Height: config.DefaultViewportHeight},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run audits pageURL. It fails with AuditUnavailableError when no
// browser can be launched and AuditTimeoutError when the invocation
// exceeds its wall-clock limit.
func (r *Runner) Run(ctx context.Context, pageURL string) (*model.MetricsDocument, error) {
	browser, ok := DiscoverBrowser(r.preference)
	if !ok {
		return nil, &AuditUnavailableError{
			URL:   pageURL,
			Cause: errors.New("no supported browser found"),
		}
	}
	r.logger.Info("audit starting",
		slog.String("url", pageURL),
		slog.String("browser", browser.Name))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browser.ExecPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, r.timeout)
	defer cancelTimeout()

	var (
		mu         sync.Mutex
		byteWeight int64
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventLoadingFinished); ok {
			mu.Lock()
			byteWeight += int64(e.EncodedDataLength)
			mu.Unlock()
		}
	})

	var raw rawMetrics
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(r.viewport.Width), int64(r.viewport.Height)),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(metricsScript, &raw, func(p *cdruntime.EvaluateParams) *cdruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &AuditTimeoutError{URL: pageURL, Timeout: r.timeout}
		}
		return nil, &AuditUnavailableError{URL: pageURL, Cause: err}
	}

	mu.Lock()
	weight := byteWeight
	mu.Unlock()

	doc := &model.MetricsDocument{
		FirstContentfulPaintMs:   raw.FCP,
		LargestContentfulPaintMs: raw.LCP,
		CumulativeLayoutShift:    raw.CLS,
		TotalBlockingTimeMs:      raw.TBT,
		TimeToInteractiveMs:      raw.TTI,
		TotalByteWeight:          weight,
		Source:                   model.MetricsSourceBrowser,
	}
	doc.PerformanceScore = Score(doc)

	r.logger.Info("audit complete",
		slog.String("url", pageURL),
		slog.Float64("score", doc.PerformanceScore),
		slog.Int64("byte_weight", weight))
	return doc, nil
}
