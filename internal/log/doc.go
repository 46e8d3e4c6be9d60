// Package log provides logging helpers built on top of the standard slog
// package.
//
// This package extends slog with:
//   - Automatic truncation of oversized attribute values (document bodies,
//     stylesheet text, long data URLs)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// Pipeline stages quote fetched content at debug level, and a single page
// can carry attribute values hundreds of kilobytes long. The TruncateHandler
// keeps those lines readable by cutting each string value at a fixed limit
// and recording how much was removed.
//
// # Usage
//
//	// Create a truncating logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Debug("stylesheet fetched",
//	    "url", "https://example.com/css/main.css",
//	    "body", cssText, // shortened to 256 bytes plus a marker
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
