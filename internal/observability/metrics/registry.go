// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape metrics track per-source scraping outcomes and performance
var (
	// ScrapesTotal counts processed candidates by source and result.
	// Result is one of: inserted, skipped_no_date, skipped_duplicate, error.
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of processed article candidates",
		},
		[]string{"source", "result"},
	)

	// ScrapeErrorsTotal counts scrape failures by source and error kind
	ScrapeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_errors_total",
			Help: "Total number of scrape failures",
		},
		[]string{"source", "kind"},
	)

	// ScrapeDuration measures time to scrape one article page
	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Time taken to scrape one article page",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		},
		[]string{"source"},
	)

	// CandidatesDiscoveredTotal counts discovered candidates by source and method.
	// Method is one of: feed, listing, archive, nid, date.
	CandidatesDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidates_discovered_total",
			Help: "Total number of discovered article candidates",
		},
		[]string{"source", "method"},
	)

	// DeadLinksRecordedTotal counts dead-link registry writes
	DeadLinksRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_links_recorded_total",
			Help: "Total number of dead links recorded",
		},
		[]string{"source", "kind"},
	)
)

// Scheduler metrics track the autoscaling worker pool
var (
	// WorkersActive tracks the number of live scheduler workers
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_workers_active",
			Help: "Number of live scheduler workers",
		},
	)

	// QueueDepth tracks pending candidates across all source queues
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Pending candidates across all source queues",
		},
	)
)

// Business metrics track stored totals
var (
	// ArticlesTotal tracks total number of articles in database
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Total number of articles in the database",
		},
	)

	// SourcesTotal tracks total number of sources in database
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Total number of sources in the database",
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
