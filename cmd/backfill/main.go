// The backfill command crawls historical archives for one or more sources.
// It reuses the worker's scraping pipeline but drives discovery from archive
// pages, numeric article IDs, or dated listing URLs instead of feeds.
//
// Usage:
//
//	backfill --mode archive --source adaderana-sinhala --pages 20
//	backfill --mode nid --source lankadeepa --concurrency 5
//	backfill --mode date --source divaina --days 90
//	backfill --mode auto
//	backfill --mode check
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"newswire/internal/config"
	"newswire/internal/infra/adapter/persistence/postgres"
	"newswire/internal/infra/browser"
	"newswire/internal/infra/db"
	"newswire/internal/infra/discover"
	"newswire/internal/infra/scraper"
	"newswire/internal/observability/logging"
	envconfig "newswire/internal/pkg/config"
	"newswire/internal/repository"
	"newswire/internal/resilience/circuitbreaker"
	"newswire/internal/scheduler"
	"newswire/internal/usecase/backfill"
	"newswire/internal/usecase/ingest"
)

func main() {
	var (
		mode        = flag.String("mode", "auto", "backfill mode: archive, nid, date, auto or check")
		sourceList  = flag.String("source", "", "comma-separated source slugs, empty for all active sources")
		pages       = flag.Int("pages", 5, "archive pages to crawl per section")
		concurrency = flag.Int("concurrency", 3, "concurrent scrapes per source")
		days        = flag.Int("days", 0, "date sweep window in days, 0 for the full configured range")
		configPath  = flag.String("config", "", "path to sources.yaml, defaults to SOURCES_CONFIG")
	)
	flag.Parse()

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	if err := run(logger, *mode, *sourceList, *pages, *concurrency, *days, *configPath); err != nil {
		logger.Error("backfill failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, mode, sourceList string, pages, concurrency, days int, configPath string) error {
	if configPath == "" {
		configPath = envconfig.LoadEnvString("SOURCES_CONFIG", "sources.yaml")
	}
	profiles, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	database := db.Open()
	defer database.Close()

	breaker := circuitbreaker.NewDBCircuitBreaker(database)
	sourceRepo := postgres.NewSourceRepo(breaker)
	articleRepo := postgres.NewArticleRepo(breaker)
	deadLinkRepo := postgres.NewDeadLinkRepo(breaker)

	pageScraper := scraper.New(logger)
	ingestSvc := ingest.NewService(ingest.Deps{
		Sources:   sourceRepo,
		Articles:  articleRepo,
		DeadLinks: deadLinkRepo,
		Feeds:     discover.NewFeedFetcher(newHTTPClient(), logger),
		Scraper:   pageScraper,
		Listings:  pageScraper,
		Profiles:  profiles,
		Scheduler: scheduler.DefaultConfig(),
		Logger:    logger,
	})

	svc := backfill.NewService(backfill.Deps{
		Sources:   sourceRepo,
		Articles:  articleRepo,
		DeadLinks: deadLinkRepo,
		Scraper:   pageScraper,
		Listings:  pageScraper,
		Profiles:  profiles,
		Scheduler: scheduler.DefaultConfig(),
		Processor: ingestSvc,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slugs := splitSlugs(sourceList)

	// check only reads the database, so it runs without a browser.
	if mode == "check" {
		return runCheck(ctx, logger, sourceRepo, articleRepo, deadLinkRepo, slugs)
	}

	browserCfg := browser.DefaultConfig()
	browserCfg.WSURL = envconfig.LoadEnvString("BROWSER_WS_URL", "")
	browserCfg.ProxyURL = envconfig.LoadEnvString("PROXY_URL", "")
	pool, err := browser.Connect(ctx, browserCfg, logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer pool.Close()

	start := time.Now()

	var result *backfill.Result
	switch mode {
	case "archive":
		result, err = svc.Archive(ctx, pool, pages, slugs...)
	case "nid":
		result, err = svc.NIDSweep(ctx, pool, concurrency, slugs...)
	case "date":
		result, err = svc.DateSweep(ctx, pool, concurrency, days, slugs...)
	case "auto":
		result, err = svc.Auto(ctx, pool, backfill.AutoOptions{
			Pages:       pages,
			Concurrency: concurrency,
			Days:        days,
		}, slugs...)
	default:
		return fmt.Errorf("run: unknown mode %q", mode)
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger.Info("backfill completed",
		slog.String("mode", mode),
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
		slog.Int("not_found", result.NotFound),
		slog.Duration("duration", time.Since(start).Round(time.Second)))
	return nil
}

// runCheck prints stored-article and dead-link statistics per source.
func runCheck(ctx context.Context, logger *slog.Logger, sources repository.SourceRepository, articles repository.ArticleRepository, deadLinks repository.DeadLinkRepository, slugs []string) error {
	list, err := sources.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("runCheck: %w", err)
	}

	wanted := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		wanted[slug] = true
	}

	stats, err := articles.CountBySource(ctx)
	if err != nil {
		return fmt.Errorf("runCheck: %w", err)
	}
	bySource := make(map[int64]repository.SourceArticleStats, len(stats))
	for _, st := range stats {
		bySource[st.SourceID] = st
	}

	for _, src := range list {
		if len(wanted) > 0 && !wanted[src.Slug] {
			continue
		}

		dead, err := deadLinks.Stats(ctx, src.ID)
		if err != nil {
			return fmt.Errorf("runCheck: %w", err)
		}

		attrs := []any{
			slog.String("source", src.Slug),
			slog.Int64("articles", bySource[src.ID].ArticleCount),
			slog.Int64("dead_links", dead.Total),
			slog.Int64("dead_permanent", dead.Permanent),
		}
		if st, ok := bySource[src.ID]; ok {
			if st.OldestAt != nil {
				attrs = append(attrs, slog.String("oldest", *st.OldestAt))
			}
			if st.NewestAt != nil {
				attrs = append(attrs, slog.String("newest", *st.NewestAt))
			}
		}
		logger.Info("source summary", attrs...)
	}
	return nil
}

func splitSlugs(list string) []string {
	if list == "" {
		return nil
	}
	var slugs []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}
	return slugs
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}
