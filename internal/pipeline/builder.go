package pipeline

import (
	"log/slog"

	"github.com/pagelift/pagelift/internal/audit"
	"github.com/pagelift/pagelift/internal/config"
	"github.com/pagelift/pagelift/internal/fetch"
	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/render"
)

// Build assembles the pipeline for one run from the immutable run
// configuration. Fetching always happens; critical-CSS extraction and
// the optimize-audit-compare sequence follow the configuration flags.
// The caller passes cfg already merged for the target site (see
// config.Config.ForSite).
func Build(cfg *config.Config, analyzer audit.Analyzer, renderer render.Renderer, logger *slog.Logger) *Pipeline {
	domain := model.DomainFor(cfg.TargetURL)

	fetcher := fetch.NewFetcher(
		fetch.WithConcurrency(cfg.Concurrency),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHeaders(cfg.SiteHeaders(domain)),
		fetch.WithLogger(logger),
	)
	viewport := render.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}

	p := New(WithLogger(logger))
	p.AddStep(NewFetchStep(fetcher, logger))

	if cfg.ExtractCriticalCSS {
		p.AddStep(NewCriticalCSSStep(renderer, viewport, logger))
		if !cfg.OptimizeAndTest {
			// Extract-only runs still leave the fetched mirror and the
			// critical stylesheet behind; normally persist_site covers
			// both.
			p.AddStep(NewPersistCriticalStep(logger))
		}
	}

	if cfg.OptimizeAndTest {
		ws := &workingSet{}
		p.AddSteps(
			NewOptimizeStep(ws, renderer, viewport, logger),
			NewRewriteStep(ws, logger),
			NewPersistSiteStep(ws, logger),
			NewAuditOriginalStep(analyzer, logger),
			NewAuditOptimizedStep(analyzer, logger),
			NewCompareStep(logger),
		)
	}

	// Report files are flushed even when an earlier step failed or the
	// run deadline expired.
	p.AddFinalStep(NewPersistReportStep(logger))
	return p
}
