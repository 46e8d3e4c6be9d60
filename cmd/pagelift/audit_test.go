package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pagelift/pagelift/internal/config"
	"github.com/pagelift/pagelift/internal/model"
)

// TestNewAuditCmd tests the audit command creation.
func TestNewAuditCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAuditCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "audit [url]" {
			t.Errorf("expected use 'audit [url]', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"browser", "viewport", "audit-timeout",
			"concurrency", "timeout", "run-timeout",
			"output", "config", "json", "markdown",
			"critical-css", "optimize",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("stages default on", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("critical-css").DefValue != "true" {
			t.Error("critical-css should default to true")
		}
		if cmd.Flags().Lookup("optimize").DefValue != "true" {
			t.Error("optimize should default to true")
		}
	})
}

// TestNewCriticalCmd tests the critical command creation.
func TestNewCriticalCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCriticalCmd()

	if cmd.Use != "critical [url]" {
		t.Errorf("expected use 'critical [url]', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("viewport") == nil {
		t.Error("expected viewport flag")
	}
	if cmd.Flags().Lookup("optimize") != nil {
		t.Error("critical command should not expose the optimize flag")
	}
}

// TestParseViewport tests viewport string parsing.
func TestParseViewport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{name: "desktop", input: "1280x800", wantWidth: 1280, wantHeight: 800},
		{name: "phone", input: "390x844", wantWidth: 390, wantHeight: 844},
		{name: "missing separator", input: "1280", wantErr: true},
		{name: "non-numeric width", input: "widex800", wantErr: true},
		{name: "non-numeric height", input: "1280xtall", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, h, err := parseViewport(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseViewport(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseViewport(%q) failed: %v", tt.input, err)
			}
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Errorf("parseViewport(%q) = %dx%d, want %dx%d",
					tt.input, w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

// TestNormalizeTargetURL tests scheme defaulting.
func TestNormalizeTargetURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "example.com", want: "https://example.com"},
		{input: "https://example.com", want: "https://example.com"},
		{input: "http://example.com/page", want: "http://example.com/page"},
	}

	for _, tt := range tests {
		if got := normalizeTargetURL(tt.input); got != tt.want {
			t.Errorf("normalizeTargetURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cmd := NewAuditCmd()

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}

		if cfg.TargetURL != config.DefaultTargetURL {
			t.Errorf("TargetURL = %q, want %q", cfg.TargetURL, config.DefaultTargetURL)
		}
		if cfg.Browser != config.BrowserAuto {
			t.Errorf("Browser = %q, want %q", cfg.Browser, config.BrowserAuto)
		}
		if cfg.Concurrency != config.DefaultConcurrency {
			t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, config.DefaultConcurrency)
		}
		if cfg.SiteConfigs == nil {
			t.Error("SiteConfigs should never be nil")
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		cmd := NewAuditCmd()
		for flag, value := range map[string]string{
			"browser":     "chrome",
			"viewport":    "390x844",
			"concurrency": "3",
			"timeout":     "5s",
			"output":      "/tmp/pagelift-out",
			"json":        "true",
		} {
			if err := cmd.Flags().Set(flag, value); err != nil {
				t.Fatalf("setting --%s failed: %v", flag, err)
			}
		}

		cfg, err := buildConfig(cmd, []string{"example.com/page"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}

		if cfg.TargetURL != "https://example.com/page" {
			t.Errorf("TargetURL = %q, want scheme-defaulted URL", cfg.TargetURL)
		}
		if cfg.Browser != config.BrowserChrome {
			t.Errorf("Browser = %q, want chrome", cfg.Browser)
		}
		if cfg.ViewportWidth != 390 || cfg.ViewportHeight != 844 {
			t.Errorf("viewport = %dx%d, want 390x844", cfg.ViewportWidth, cfg.ViewportHeight)
		}
		if cfg.Concurrency != 3 {
			t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
		}
		if cfg.FetchTimeout != 5*time.Second {
			t.Errorf("FetchTimeout = %s, want 5s", cfg.FetchTimeout)
		}
		if cfg.OutputDir != "/tmp/pagelift-out" {
			t.Errorf("OutputDir = %q, want /tmp/pagelift-out", cfg.OutputDir)
		}
		if !cfg.JSONReport {
			t.Error("JSONReport should be set")
		}
	})

	t.Run("explicit config file loads site overrides", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".pagelift")
		content := `sites:
  example.com:
    viewportWidth: 414
    viewportHeight: 896
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("writing config file failed: %v", err)
		}

		cmd := NewAuditCmd()
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatalf("setting --config failed: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("buildConfig failed: %v", err)
		}

		merged := cfg.ForSite("example.com")
		if merged.ViewportWidth != 414 || merged.ViewportHeight != 896 {
			t.Errorf("merged viewport = %dx%d, want 414x896",
				merged.ViewportWidth, merged.ViewportHeight)
		}
	})

	t.Run("missing explicit config file fails", func(t *testing.T) {
		cmd := NewAuditCmd()
		if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
			t.Fatalf("setting --config failed: %v", err)
		}

		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("buildConfig should fail for a missing explicit config file")
		}
	})
}

// TestBothAuditsFailed tests the total-analyzer-unavailability check.
func TestBothAuditsFailed(t *testing.T) {
	t.Parallel()

	measured := &model.MetricsDocument{Source: "browser"}
	degraded := model.SyntheticMetrics()
	synthetic := &degraded

	tests := []struct {
		name      string
		optimize  bool
		original  *model.MetricsDocument
		optimized *model.MetricsDocument
		want      bool
	}{
		{name: "both synthetic", optimize: true, original: synthetic, optimized: synthetic, want: true},
		{name: "one synthetic", optimize: true, original: measured, optimized: synthetic, want: false},
		{name: "both real", optimize: true, original: measured, optimized: measured, want: false},
		{name: "no audits in analysis-only mode", optimize: false, original: nil, optimized: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.OptimizeAndTest = tt.optimize
			pageReport := model.NewPageReport(cfg.TargetURL)
			pageReport.OriginalMetrics = tt.original
			pageReport.OptimizedMetrics = tt.optimized

			if got := bothAuditsFailed(cfg, pageReport); got != tt.want {
				t.Errorf("bothAuditsFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestRunAuditCmdRejectsInvalidConfig tests that validation failures
// surface before any network activity.
func TestRunAuditCmdRejectsInvalidConfig(t *testing.T) {
	cmd := NewAuditCmd()
	if err := cmd.Flags().Set("browser", "netscape"); err != nil {
		t.Fatalf("setting --browser failed: %v", err)
	}

	err := runAuditCmd(cmd, []string{"https://example.com"})
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if !strings.Contains(err.Error(), "configuration error") {
		t.Errorf("error should name the configuration, got: %v", err)
	}
}
