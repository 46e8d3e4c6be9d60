package main

import (
	"github.com/spf13/cobra"
)

// NewCriticalCmd creates the critical command.
func NewCriticalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critical [url]",
		Short: "Derive the critical CSS for a page",
		Long: `Critical fetches the page and its stylesheets, renders the page to find
which elements sit above the fold, and extracts the subset of CSS rules
those elements need. The optimize-and-measure stage is skipped.

The fetched resources are mirrored into the artifact directory and the
derived rules are written to css/critical.css alongside the report.

Examples:
  # Derive critical CSS for a page
  pagelift critical https://example.com

  # Use a phone-sized reference viewport
  pagelift critical --viewport 390x844 https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCriticalCmd,
	}

	addRunFlags(cmd)

	return cmd
}

// runCriticalCmd executes the critical command.
func runCriticalCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	cfg.ExtractCriticalCSS = true
	cfg.OptimizeAndTest = false

	return runWithConfig(cmd, cfg)
}
