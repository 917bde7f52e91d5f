package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"newswire/internal/pkg/config"
)

// WorkerMetrics tracks cron-driven ingest runs. It embeds ConfigMetrics for
// the configuration fallback counters.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts ingest runs by status (success/failure).
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds observes how long one ingest run takes.
	CronJobDurationSeconds prometheus.Histogram

	// CronJobArticlesIngestedTotal accumulates inserted articles across runs.
	CronJobArticlesIngestedTotal prometheus.Counter

	// CronJobLastSuccessTimestamp is the Unix time of the last clean run.
	// Alerting on its age catches a worker that silently stopped producing.
	CronJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of ingest runs by status (success/failure)",
		}, []string{"status"}),

		CronJobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of one ingest run in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		CronJobArticlesIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_articles_ingested_total",
			Help: "Total articles inserted across all ingest runs",
		}),

		CronJobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful ingest run",
		}),
	}
}

// RecordJobRun increments the run counter with "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes one run's duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CronJobDurationSeconds.Observe(seconds)
}

// RecordArticlesIngested adds one run's inserted article count.
func (m *WorkerMetrics) RecordArticlesIngested(count int) {
	m.CronJobArticlesIngestedTotal.Add(float64(count))
}

// RecordLastSuccess stamps the current time as the last clean run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}
