// Package optimize applies performance transformation rules to a
// fetched page: image re-encoding, explicit dimensions, lazy loading,
// script deferral, resource hints, and cache-policy recommendations.
// Rules are independent; a rule whose preconditions are not met records
// a skipped action instead of failing. The fetched originals are never
// modified: rules mutate a working copy of the document tree and emit
// replacement bodies for re-encoded images.
package optimize

import (
	"bytes"
	"image"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/render"
)

const (
	// defaultJPEGQuality balances size against visible artifacts.
	defaultJPEGQuality = 80

	// defaultMaxImageWidth caps image width at twice the reference
	// viewport, covering high-density displays.
	defaultMaxImageWidth = 2560
)

// cachePolicies maps static resource kinds to the Cache-Control value
// recommended for them. Recommendations are surfaced in the report;
// a file mirror cannot set response headers.
var cachePolicies = map[model.ResourceKind]string{
	model.KindCSS:   "public, max-age=31536000, immutable",
	model.KindJS:    "public, max-age=31536000, immutable",
	model.KindImage: "public, max-age=2592000",
	model.KindFont:  "public, max-age=31536000, immutable",
}

// Result is the outcome of one optimization pass: the audit trail plus
// re-encoded image bodies keyed by original URL. The document tree
// passed to Optimize is mutated in place.
type Result struct {
	// Actions is the ordered audit trail, applied and skipped alike.
	Actions []model.OptimizationAction

	// Images holds re-encoded replacements for image resources.
	Images map[string]*EncodedImage
}

func (r *Result) record(a model.OptimizationAction) {
	r.Actions = append(r.Actions, a)
}

// Optimizer applies the transformation rules for one page.
type Optimizer struct {
	layout        *render.Layout
	logger        *slog.Logger
	jpegQuality   int
	maxImageWidth int
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithJPEGQuality sets the JPEG re-encode quality (1..100).
func WithJPEGQuality(q int) Option {
	return func(o *Optimizer) {
		if q > 0 && q <= 100 {
			o.jpegQuality = q
		}
	}
}

// WithMaxImageWidth sets the width cap for image downscaling.
func WithMaxImageWidth(w int) Option {
	return func(o *Optimizer) {
		if w > 0 {
			o.maxImageWidth = w
		}
	}
}

// NewOptimizer creates an Optimizer using the given layout for fold
// decisions. The layout must have been captured from the document that
// will be optimized.
func NewOptimizer(layout *render.Layout, opts ...Option) *Optimizer {
	o := &Optimizer{
		layout:        layout,
		logger:        slog.New(slog.DiscardHandler),
		jpegQuality:   defaultJPEGQuality,
		maxImageWidth: defaultMaxImageWidth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize runs every rule against the working document tree and the
// fetched resource set. Rule order is fixed so that repeated runs over
// identical inputs produce an identical audit trail.
func (o *Optimizer) Optimize(doc *html.Node, graph *model.ResourceGraph) *Result {
	result := &Result{
		Actions: make([]model.OptimizationAction, 0, 16),
		Images:  make(map[string]*EncodedImage),
	}

	// Image resources first: element rules read the re-encoded
	// dimensions.
	for _, res := range graph.ByKind(model.KindImage) {
		encoded, action := o.reencodeImage(res)
		if encoded != nil {
			result.Images[res.URL] = encoded
		}
		result.record(action)
	}

	o.imageElements(doc, graph, result)
	o.scriptElements(doc, graph, result)
	o.resourceHints(doc, graph, result)
	o.preloadLCP(doc, result)
	o.cachePolicy(graph, result)

	applied := 0
	for _, a := range result.Actions {
		if !a.Skipped {
			applied++
		}
	}
	o.logger.Info("optimization complete",
		slog.Int("applied", applied),
		slog.Int("skipped", len(result.Actions)-applied))
	return result
}

// cachePolicy records one recommended Cache-Control header per static
// resource kind present in the graph.
func (o *Optimizer) cachePolicy(graph *model.ResourceGraph, result *Result) {
	for _, kind := range []model.ResourceKind{model.KindCSS, model.KindJS, model.KindImage, model.KindFont} {
		if !kind.Static() || len(graph.ByKind(kind)) == 0 {
			continue
		}
		result.record(model.Applied(model.ActionSetCacheHeader, string(kind),
			"", "Cache-Control: "+cachePolicies[kind]))
	}
}

// decodeDimensions reads an image header for its intrinsic size.
func decodeDimensions(body []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
