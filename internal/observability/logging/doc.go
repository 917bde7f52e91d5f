// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Source slug tagging for interleaved worker output
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "newswire/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started", slog.String("version", "1.0"))
//	}
//
//	func processSource(logger *slog.Logger, slug string) {
//	    log := logging.WithSource(logger, slug)
//	    log.Info("discovery started")
//	}
package logging
