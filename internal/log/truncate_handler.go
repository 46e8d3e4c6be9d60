package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"
)

// DefaultMaxValueLen is the longest attribute value emitted before
// truncation kicks in. Fetched documents and stylesheets routinely run to
// hundreds of kilobytes, and a single debug line quoting one would drown
// the rest of the run log.
const DefaultMaxValueLen = 256

// TruncateHandler wraps an slog.Handler and shortens oversized attribute
// values. It intercepts log records and replaces any string value longer
// than the configured limit with a truncated form that records how much
// was cut.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Components that accept *slog.Logger need no changes
type TruncateHandler struct {
	// handler is the underlying slog handler that receives shortened records.
	handler slog.Handler

	// maxValueLen is the longest string value passed through untouched.
	maxValueLen int
}

// NewTruncateHandler creates a new TruncateHandler wrapping the given handler.
// String attribute values longer than maxValueLen bytes are truncated before
// being passed on. If handler is nil, the returned TruncateHandler uses
// slog.Default().Handler(). A maxValueLen of zero or less selects
// DefaultMaxValueLen.
func NewTruncateHandler(handler slog.Handler, maxValueLen int) *TruncateHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxValueLen <= 0 {
		maxValueLen = DefaultMaxValueLen
	}
	return &TruncateHandler{handler: handler, maxValueLen: maxValueLen}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TruncateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle shortens the record's attributes and passes it to the underlying handler.
func (h *TruncateHandler) Handle(ctx context.Context, r slog.Record) error {
	shortened := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		shortened.AddAttrs(h.truncateAttr(a))
		return true
	})

	return h.handler.Handle(ctx, shortened)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are shortened before being added.
func (h *TruncateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	shortenedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		shortenedAttrs[i] = h.truncateAttr(a)
	}
	return &TruncateHandler{handler: h.handler.WithAttrs(shortenedAttrs), maxValueLen: h.maxValueLen}
}

// WithGroup returns a new handler with the given group name.
func (h *TruncateHandler) WithGroup(name string) slog.Handler {
	return &TruncateHandler{handler: h.handler.WithGroup(name), maxValueLen: h.maxValueLen}
}

// truncateAttr shortens a single attribute, recursively handling groups.
func (h *TruncateHandler) truncateAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		shortenedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			shortenedAttrs[i] = h.truncateAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(shortenedAttrs...)}
	}

	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if len(strVal) > h.maxValueLen {
			return slog.String(a.Key, truncate(strVal, h.maxValueLen))
		}
	}

	return a
}

// truncate cuts s down to at most limit bytes, backing off to a rune
// boundary, and appends a marker recording how many bytes were removed.
func truncate(s string, limit int) string {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... (%d bytes truncated)", s[:cut], len(s)-cut)
}

// NewLogger creates a new slog.Logger whose output is safe to keep in a
// terminal scrollback: oversized attribute values such as document bodies
// or stylesheet text are truncated before being written.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewTruncateHandler(textHandler, DefaultMaxValueLen))
}
