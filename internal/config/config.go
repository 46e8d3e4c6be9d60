package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values were chosen for auditing typical public web pages.
const (
	// DefaultTargetURL is the placeholder page audited when the user
	// supplies no URL.
	DefaultTargetURL = "https://example.com"

	// DefaultConcurrency is the bounded worker-pool size for resource
	// fetching. A small fixed constant avoids overwhelming the origin
	// server or tripping local rate limits.
	DefaultConcurrency = 6

	// DefaultFetchTimeout applies to each individual resource fetch.
	// A timed-out fetch yields an unresolved graph entry, never a run
	// abort, so this can stay reasonably tight.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultRunTimeout bounds the whole pipeline run. On expiry the
	// pipeline finalizes with whatever it has and marks the run partial.
	DefaultRunTimeout = 10 * time.Minute

	// DefaultAuditTimeout bounds one analyzer invocation. Browser-driven
	// audits need to load the page and let the metric observers settle,
	// so this is generous relative to the fetch timeout.
	DefaultAuditTimeout = 90 * time.Second

	// DefaultViewportWidth and DefaultViewportHeight define the fixed
	// reference viewport for above-the-fold decisions.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800

	// DefaultMaxBodySize limits the size of any single fetched resource.
	// 10MB covers real-world page assets while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultUserAgent identifies a mainstream browser. Some origins
	// serve degraded or blocked responses to unknown agents, which would
	// skew the audit.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// AppName is the application name used for XDG directory paths.
	AppName = "pagelift"
)

// Browser selection preferences passed opaquely to the audit runner.
// BrowserAuto prefers Brave and falls back to Chrome.
const (
	BrowserAuto   = "auto"
	BrowserBrave  = "brave"
	BrowserChrome = "chrome"
)

// Config holds all options for one pipeline run.
//
// Design decision: Feature toggles (critical-CSS extraction, the
// optimize-and-measure workflow) are fields of one immutable
// configuration struct threaded through every component call, never
// ambient state. We use a single flat struct instead of nested structs
// for simplicity; the number of options is manageable.
type Config struct {
	// TargetURL is the page to audit.
	TargetURL string

	// Browser is the analyzer browser preference
	// (BrowserAuto, BrowserBrave, or BrowserChrome).
	Browser string

	// ExtractCriticalCSS enables the critical-CSS derivation stage.
	ExtractCriticalCSS bool

	// OptimizeAndTest enables the full optimize-rewrite-audit-compare
	// workflow. When false only the analysis/critical-CSS stages run.
	OptimizeAndTest bool

	// WorkDir is the root working directory; artifacts live under
	// <WorkDir>/<domain>/. Defaults to the XDG data directory.
	WorkDir string

	// OutputDir, when set, overrides <WorkDir>/<domain> entirely.
	OutputDir string

	// Concurrency is the fetch worker-pool size.
	Concurrency int

	// FetchTimeout is the per-resource fetch timeout.
	FetchTimeout time.Duration

	// RunTimeout is the overall per-run timeout.
	RunTimeout time.Duration

	// AuditTimeout is the wall-clock limit for one analyzer invocation.
	AuditTimeout time.Duration

	// ViewportWidth and ViewportHeight define the reference viewport.
	ViewportWidth  int
	ViewportHeight int

	// MaxBodySize is the maximum bytes read for any single resource.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every fetch.
	UserAgent string

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// JSONReport selects JSON report output on stdout.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output on stdout.
	MarkdownReport bool

	// ConfigFilePath is the explicit configuration file path. If empty,
	// .pagelift is searched for in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because most defaults are non-zero; the constructor doubles as
// documentation of what those defaults are.
func NewConfig() *Config {
	return &Config{
		TargetURL:      DefaultTargetURL,
		Browser:        BrowserAuto,
		Concurrency:    DefaultConcurrency,
		FetchTimeout:   DefaultFetchTimeout,
		RunTimeout:     DefaultRunTimeout,
		AuditTimeout:   DefaultAuditTimeout,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent,
		WorkDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pagelift.
// On Linux: ~/.local/share/pagelift
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks the configuration and returns a specific sentinel
// error describing the first problem found.
//
// Design decision: We validate once after CLI parsing rather than at
// each point of use to fail fast with a clear message, and we return
// the first error because fixing one often makes others irrelevant.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return ErrNoTarget
	}
	switch c.Browser {
	case BrowserAuto, BrowserBrave, BrowserChrome:
	default:
		return ErrInvalidBrowser
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.FetchTimeout <= 0 || c.AuditTimeout <= 0 || c.RunTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ForSite returns a copy of the configuration with per-site overrides
// from the config file applied for the given domain. The receiver is
// never modified.
func (c *Config) ForSite(domain string) *Config {
	out := *c
	if c.SiteConfigs == nil {
		return &out
	}
	site := c.SiteConfigs.GetSiteConfig(domain)
	if site.Concurrency != 0 {
		out.Concurrency = site.Concurrency
	}
	if site.ViewportWidth != 0 {
		out.ViewportWidth = site.ViewportWidth
	}
	if site.ViewportHeight != 0 {
		out.ViewportHeight = site.ViewportHeight
	}
	if site.Browser != "" {
		out.Browser = site.Browser
	}
	if site.FetchTimeoutSeconds != 0 {
		out.FetchTimeout = time.Duration(site.FetchTimeoutSeconds) * time.Second
	}
	return &out
}

// SiteHeaders returns the custom fetch headers configured for a domain,
// or nil.
func (c *Config) SiteHeaders(domain string) map[string]string {
	if c.SiteConfigs == nil {
		return nil
	}
	return c.SiteConfigs.GetSiteConfig(domain).Headers
}

// SiteDir returns the artifact directory for the given domain:
// OutputDir when overridden, otherwise <WorkDir>/<domain>.
func (c *Config) SiteDir(domain string) string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.WorkDir, domain)
}
