// Package worker carries the operational shell of the ingestion worker:
// environment configuration, the health endpoints, and cron job metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"newswire/internal/pkg/config"
)

// WorkerConfig holds the worker's operational settings.
//
// All fields load from environment variables with a fail-open strategy:
// an invalid value falls back to the default with a warning and a metric,
// never a startup failure. A scraper that refuses to start because of one
// bad env var loses a whole night of articles.
type WorkerConfig struct {
	// CronSchedule is the ingest schedule as a 5-field cron expression.
	// Default "0 * * * *" (hourly).
	CronSchedule string

	// Timezone is the IANA timezone for cron scheduling. The sources are
	// Sri Lankan, so their publishing rhythm follows Asia/Colombo.
	Timezone string

	// CrawlTimeout bounds one ingest run. Default 30 minutes.
	CrawlTimeout time.Duration

	// HealthPort serves /health and /health/ready. Default 9091.
	HealthPort int

	// MetricsPort serves the Prometheus endpoint. Default 9092.
	MetricsPort int

	// BrowserWSURL is the CDP websocket of an external browser. Empty
	// launches a local headless Chrome.
	BrowserWSURL string

	// ProxyURL routes page traffic through a proxy when launching locally.
	ProxyURL string

	// SourcesConfig is the path to sources.yaml. Default "sources.yaml".
	SourcesConfig string

	// IngestLimit caps candidates per source per run. Default 50.
	IngestLimit int
}

// DefaultConfig returns production worker settings.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:  "0 * * * *",
		Timezone:      "Asia/Colombo",
		CrawlTimeout:  30 * time.Minute,
		HealthPort:    9091,
		MetricsPort:   9092,
		SourcesConfig: "sources.yaml",
		IngestLimit:   50,
	}
}

// Validate checks every field, collecting all failures into one error.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CrawlTimeout); err != nil {
		errs = append(errs, fmt.Errorf("crawl timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if err := config.ValidateIntRange(c.IngestLimit, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("ingest limit: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from the environment.
//
// Environment variables:
//   - CRON_SCHEDULE: cron expression (default "0 * * * *")
//   - WORKER_TIMEZONE: IANA timezone (default "Asia/Colombo")
//   - CRAWL_TIMEOUT: duration string, 1m-4h (default 30m)
//   - WORKER_HEALTH_PORT: 1024-65535 (default 9091)
//   - WORKER_METRICS_PORT: 1024-65535 (default 9092)
//   - BROWSER_WS_URL: CDP websocket endpoint (default: launch local)
//   - PROXY_URL: proxy for local browser traffic (default: none)
//   - SOURCES_CONFIG: path to sources.yaml (default "sources.yaml")
//   - INGEST_LIMIT: candidates per source per run, 1-1000 (default 50)
//
// Fail-open: validation failures fall back to the default, log a warning,
// and tick the fallback metrics. The returned error is always nil.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	warn := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	warn("cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	warn("timezone", result)

	result = config.LoadEnvDuration("CRAWL_TIMEOUT", cfg.CrawlTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.CrawlTimeout = result.Value.(time.Duration)
	warn("crawl_timeout", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	warn("health_port", result)

	result = config.LoadEnvInt("WORKER_METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.MetricsPort = result.Value.(int)
	warn("metrics_port", result)

	result = config.LoadEnvInt("INGEST_LIMIT", cfg.IngestLimit, func(v int) error {
		return config.ValidateIntRange(v, 1, 1000)
	})
	cfg.IngestLimit = result.Value.(int)
	warn("ingest_limit", result)

	cfg.BrowserWSURL = config.LoadEnvString("BROWSER_WS_URL", cfg.BrowserWSURL)
	cfg.ProxyURL = config.LoadEnvString("PROXY_URL", cfg.ProxyURL)
	cfg.SourcesConfig = config.LoadEnvString("SOURCES_CONFIG", cfg.SourcesConfig)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
