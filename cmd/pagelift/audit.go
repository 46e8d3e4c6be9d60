package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagelift/pagelift/internal/audit"
	"github.com/pagelift/pagelift/internal/config"
	"github.com/pagelift/pagelift/internal/fetch"
	"github.com/pagelift/pagelift/internal/log"
	"github.com/pagelift/pagelift/internal/model"
	"github.com/pagelift/pagelift/internal/pipeline"
	"github.com/pagelift/pagelift/internal/render"
	"github.com/pagelift/pagelift/internal/report"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url]",
		Short: "Audit a page and build an optimized copy of it",
		Long: `Audit fetches the page and every resource it references, derives the
critical CSS for the above-the-fold content, rewrites an optimized local
copy (inlined critical CSS, lazy-loaded images, deferred scripts,
resource hints, re-encoded images), then measures both versions in a
headless browser and reports the difference.

When no supported browser is installed, layout and metrics fall back to
deterministic estimates and the report is marked degraded. The run still
completes and all artifacts are written.

Examples:
  # Full audit of a page
  pagelift audit https://example.com

  # Audit without the optimize-and-measure stage
  pagelift audit --optimize=false https://example.com

  # Pin the analyzer browser and emit a JSON report
  pagelift audit --browser chrome --json https://example.com

  # Use a custom configuration file
  pagelift audit -c myconfig.yaml https://example.com

Configuration file (.pagelift) example:
  sites:
    example.com:
      viewportWidth: 390
      viewportHeight: 844
      headers:
        Authorization: "Bearer token"
  defaults:
    concurrency: 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAuditCmd,
	}

	addRunFlags(cmd)

	// Stage selection flags
	cmd.Flags().Bool("critical-css", true,
		"Derive critical CSS for the above-the-fold content")
	cmd.Flags().Bool("optimize", true,
		"Build the optimized copy and measure it against the original")

	return cmd
}

// addRunFlags registers the flags shared by audit and critical.
func addRunFlags(cmd *cobra.Command) {
	// Analyzer flags
	cmd.Flags().StringP("browser", "b", config.BrowserAuto,
		"Analyzer browser preference: auto, brave, or chrome")
	cmd.Flags().String("viewport", "",
		fmt.Sprintf("Reference viewport as WIDTHxHEIGHT (default %dx%d)",
			config.DefaultViewportWidth, config.DefaultViewportHeight))
	cmd.Flags().Duration("audit-timeout", config.DefaultAuditTimeout,
		"Timeout for one browser measurement")

	// Fetch behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent resource fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for each individual resource fetch")
	cmd.Flags().Duration("run-timeout", config.DefaultRunTimeout,
		"Overall timeout for the whole run")

	// Artifact location flags
	cmd.Flags().StringP("output", "o", "",
		"Artifact directory (default: XDG data dir under the page's domain)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagelift in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	cfg.ExtractCriticalCSS, err = cmd.Flags().GetBool("critical-css")
	if err != nil {
		return err
	}
	cfg.OptimizeAndTest, err = cmd.Flags().GetBool("optimize")
	if err != nil {
		return err
	}

	return runWithConfig(cmd, cfg)
}

// runWithConfig validates the configuration, sets up logging and signal
// handling, and executes the run.
func runWithConfig(cmd *cobra.Command, cfg *config.Config) error {
	// Apply per-site overrides before validating so a bad override in
	// the config file is caught here too.
	cfg = cfg.ForSite(model.DomainFor(cfg.TargetURL))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finalizing...")
		cancel()
	}()

	return run(ctx, cmd, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if len(args) > 0 {
		cfg.TargetURL = normalizeTargetURL(args[0])
	}

	var err error

	cfg.Browser, err = cmd.Flags().GetString("browser")
	if err != nil {
		return nil, err
	}

	viewport, err := cmd.Flags().GetString("viewport")
	if err != nil {
		return nil, err
	}
	if viewport != "" {
		cfg.ViewportWidth, cfg.ViewportHeight, err = parseViewport(viewport)
		if err != nil {
			return nil, err
		}
	}

	cfg.AuditTimeout, err = cmd.Flags().GetDuration("audit-timeout")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RunTimeout, err = cmd.Flags().GetDuration("run-timeout")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// normalizeTargetURL defaults a bare host to an https URL.
func normalizeTargetURL(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return "https://" + target
}

// parseViewport parses a WIDTHxHEIGHT string such as "1280x800".
func parseViewport(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid viewport %q (expected WIDTHxHEIGHT)", s)
	}
	width, err = strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport width %q: %w", w, err)
	}
	height, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport height %q: %w", h, err)
	}
	return width, height, nil
}

// selectRenderer picks the layout source: a headless browser when one is
// installed, otherwise the deterministic heuristic estimator. The run
// never fails over renderer choice; the heuristic path is reported as a
// degradation by the stages that consume it.
func selectRenderer(cfg *config.Config, logger *slog.Logger) render.Renderer {
	browser, ok := audit.DiscoverBrowser(cfg.Browser)
	if !ok {
		logger.Warn("no supported browser found, layout falls back to heuristic estimates",
			"preference", cfg.Browser)
		return render.NewHeuristicRenderer()
	}

	logger.Info("layout browser selected", "browser", browser.Name, "path", browser.ExecPath)
	return render.NewBrowserRenderer(
		render.WithExecPath(browser.ExecPath),
		render.WithRenderLogger(logger),
	)
}

// run executes the pipeline and reports the result.
func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	domain := model.DomainFor(cfg.TargetURL)

	logger.Info("starting audit",
		"url", cfg.TargetURL,
		"criticalCSS", cfg.ExtractCriticalCSS,
		"optimize", cfg.OptimizeAndTest,
	)

	analyzer := audit.NewRunner(
		audit.WithBrowserPreference(cfg.Browser),
		audit.WithTimeout(cfg.AuditTimeout),
		audit.WithViewport(render.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}),
		audit.WithLogger(logger),
	)
	renderer := selectRenderer(cfg, logger)

	pageReport := model.NewPageReport(cfg.TargetURL)
	pageReport.OutputDir = cfg.SiteDir(domain)

	runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	p := pipeline.Build(cfg, analyzer, renderer, logger)

	fmt.Fprintf(cmd.ErrOrStderr(), "Auditing %s...\n", cfg.TargetURL)
	startTime := time.Now()

	execErr := p.Execute(runCtx, pageReport)

	elapsed := time.Since(startTime)
	fmt.Fprintf(cmd.ErrOrStderr(), "Run finished in %s\n\n", elapsed.Round(time.Millisecond))

	// The report is written even after a failed or interrupted run so
	// the user always sees what happened.
	if err := outputReport(cmd, cfg, pageReport); err != nil {
		logger.Error("report output failed", "url", cfg.TargetURL, "error", err)
	}

	if execErr != nil {
		var fetchErr *fetch.FetchError
		if errors.As(execErr, &fetchErr) {
			return fmt.Errorf("page could not be fetched: %w", execErr)
		}
		if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
			// A partial report was produced and flushed; the run counts
			// as finished.
			logger.Warn("run interrupted", "url", cfg.TargetURL, "error", execErr)
			return nil
		}
		return execErr
	}

	// A single failed measurement degrades to synthetic data and still
	// exits cleanly, but when neither page could be measured the
	// comparison is meaningless and the run must say so.
	if bothAuditsFailed(cfg, pageReport) {
		return errors.New("performance analyzer unavailable: both measurements fell back to synthetic data")
	}

	return nil
}

// bothAuditsFailed reports whether neither the original nor the
// optimized page produced real browser metrics.
func bothAuditsFailed(cfg *config.Config, pageReport *model.PageReport) bool {
	if !cfg.OptimizeAndTest {
		return false
	}
	return pageReport.OriginalMetrics != nil && pageReport.OriginalMetrics.Degraded &&
		pageReport.OptimizedMetrics != nil && pageReport.OptimizedMetrics.Degraded
}

// outputReport writes the run report to stdout in the requested format.
func outputReport(cmd *cobra.Command, cfg *config.Config, pageReport *model.PageReport) error {
	out := cmd.OutOrStdout()

	if cfg.JSONReport {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).Write(pageReport)
		return err
	}

	if cfg.MarkdownReport {
		_, err := report.NewMarkdownWriter(out).Write(pageReport)
		return err
	}

	_, err := report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)).Write(pageReport)
	return err
}
