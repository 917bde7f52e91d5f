// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the ingestion metrics including:
//   - Scrape outcomes and durations per source
//   - Dead link and discovery counters
//   - Worker pool and queue gauges
//
// All metrics are registered with the Prometheus default registry and exposed
// via the worker's /metrics endpoint.
//
// Example usage:
//
//	import "newswire/internal/observability/metrics"
//
//	func process(source string) {
//	    start := time.Now()
//	    // ... scrape the article ...
//	    metrics.RecordScrape(source, metrics.ResultInserted, time.Since(start))
//	}
package metrics
