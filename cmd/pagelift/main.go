// Package main provides the entry point for the pagelift CLI.
//
// Pagelift audits the loading performance of a web page, derives the
// critical CSS for its above-the-fold content, builds an optimized local
// mirror of the page, and measures the optimized copy against the
// original.
//
// Usage:
//
//	pagelift audit <url>
//	pagelift critical <url>
//
// See --help for all available options.
package main

// main is the entry point for pagelift.
func main() {
	Execute()
}
