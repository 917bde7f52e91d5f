// Package observability provides the logging and metrics infrastructure
// shared by the worker and the backfill command.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//
// Example usage:
//
//	import (
//	    "newswire/internal/observability/logging"
//	    "newswire/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordScrape("example-source", metrics.ResultInserted)
//	}
package observability
