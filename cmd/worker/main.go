// The worker runs scheduled ingestion: every cron tick it connects to the
// browser, discovers candidates for all active sources, and scrapes them
// through the autoscaling scheduler.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/infra/adapter/persistence/postgres"
	"newswire/internal/infra/browser"
	"newswire/internal/infra/db"
	"newswire/internal/infra/discover"
	"newswire/internal/infra/scraper"
	workerPkg "newswire/internal/infra/worker"
	"newswire/internal/observability/logging"
	"newswire/internal/observability/metrics"
	"newswire/internal/resilience/circuitbreaker"
	"newswire/internal/scheduler"
	"newswire/internal/usecase/ingest"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg, _ := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("crawl_timeout", cfg.CrawlTimeout),
		slog.String("sources_config", cfg.SourcesConfig))

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	profiles, err := config.Load(cfg.SourcesConfig)
	if err != nil {
		logger.Error("failed to load source profiles", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	breaker := circuitbreaker.NewDBCircuitBreaker(database)
	sourceRepo := postgres.NewSourceRepo(breaker)
	articleRepo := postgres.NewArticleRepo(breaker)
	deadLinkRepo := postgres.NewDeadLinkRepo(breaker)

	if err := syncSources(ctx, sourceRepo, profiles); err != nil {
		logger.Error("failed to sync sources from config", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.UpdateSourcesTotal(len(profiles.Slugs()))

	svc := ingest.NewService(ingest.Deps{
		Sources:   sourceRepo,
		Articles:  articleRepo,
		DeadLinks: deadLinkRepo,
		Feeds:     discover.NewFeedFetcher(newFeedHTTPClient(), logger),
		Scraper:   scraper.New(logger),
		Listings:  scraper.New(logger),
		Profiles:  profiles,
		Scheduler: scheduler.DefaultConfig(),
		Limit:     cfg.IngestLimit,
		Logger:    logger,
	})

	startMetricsServer(ctx, logger, cfg.MetricsPort)
	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runCron(ctx, logger, svc, cfg, workerMetrics, healthServer)
}

// syncSources upserts every configured profile into the sources table so the
// database always reflects sources.yaml.
func syncSources(ctx context.Context, repo interface {
	Upsert(ctx context.Context, source *entity.Source) error
}, profiles *config.Sources) error {
	for _, slug := range profiles.Slugs() {
		p := profiles.Get(slug)
		src := &entity.Source{
			Slug:          slug,
			Name:          p.Name,
			BaseURL:       p.BaseURL,
			FeedURL:       p.FeedURL,
			Language:      p.Language,
			Priority:      p.Scheduling.Priority,
			RateLimitMS:   p.Scheduling.RateLimitMS,
			MaxConcurrent: p.Scheduling.MaxConcurrency,
			Active:        true,
			FreshContext:  p.FreshContext,
		}
		if err := repo.Upsert(ctx, src); err != nil {
			return fmt.Errorf("syncSources: %s: %w", slug, err)
		}
	}
	return nil
}

func newFeedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

func startMetricsServer(ctx context.Context, logger *slog.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func runCron(ctx context.Context, logger *slog.Logger, svc *ingest.Service, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC",
			slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.CronSchedule, func() {
		runIngestJob(ctx, logger, svc, cfg, workerMetrics)
	}); err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("shutting down, waiting for running job")
	cronCtx := c.Stop()
	<-cronCtx.Done()
	logger.Info("worker stopped")
}

// runIngestJob executes one scheduled ingest run. A browser that cannot be
// reached aborts the run outright rather than reporting zero articles.
func runIngestJob(ctx context.Context, logger *slog.Logger, svc *ingest.Service, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics) {
	start := time.Now()
	logger.Info("ingest job started")

	jobCtx, cancel := context.WithTimeout(ctx, cfg.CrawlTimeout)
	defer cancel()

	browserCfg := browser.DefaultConfig()
	browserCfg.WSURL = cfg.BrowserWSURL
	browserCfg.ProxyURL = cfg.ProxyURL
	pool, err := browser.Connect(jobCtx, browserCfg, logger)
	if err != nil {
		if errors.Is(err, entity.ErrBrowserUnavailable) {
			logger.Error("browser unavailable, aborting run", slog.Any("error", err))
		} else {
			logger.Error("browser connect failed", slog.Any("error", err))
		}
		workerMetrics.RecordJobRun("failure")
		workerMetrics.RecordJobDuration(time.Since(start).Seconds())
		return
	}
	defer pool.Close()

	summary, err := svc.Run(jobCtx, pool)
	if err != nil {
		logger.Error("ingest job failed", slog.Any("error", err))
		workerMetrics.RecordJobRun("failure")
		workerMetrics.RecordJobDuration(time.Since(start).Seconds())
		return
	}

	workerMetrics.RecordJobRun("success")
	workerMetrics.RecordJobDuration(time.Since(start).Seconds())
	workerMetrics.RecordArticlesIngested(summary.Inserted())
	workerMetrics.RecordLastSuccess()
	logger.Info("ingest job completed",
		slog.Int("inserted", summary.Inserted()),
		slog.Int("skipped", summary.Skipped()),
		slog.Int("errors", summary.Errors()),
		slog.Duration("duration", time.Since(start)))
}
