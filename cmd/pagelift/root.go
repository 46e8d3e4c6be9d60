// Package main provides the entry point for the pagelift CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagelift.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagelift",
		Short: "Web page performance auditor and optimizer",
		Long: `Pagelift audits the loading performance of a web page and produces an
optimized local copy of it.

A run fetches the page and its resources, derives the critical CSS for
the above-the-fold content, rewrites the page with performance
optimizations applied (inlined critical CSS, lazy-loaded images,
deferred scripts, resource hints), then measures both versions in a
headless browser and reports the difference.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewCriticalCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
