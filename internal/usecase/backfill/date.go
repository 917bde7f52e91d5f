package backfill

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/observability/logging"
	"newswire/internal/observability/metrics"
	"newswire/internal/pkg/ratelimit"
	"newswire/internal/scheduler"
	"newswire/internal/usecase/ingest"
)

// DateSweep walks daily archive pages from each source's configured start
// date to today, then scrapes the discovered articles in parallel. days > 0
// limits the sweep to the trailing window.
func (s *Service) DateSweep(ctx context.Context, browser scheduler.BrowserProvider, concurrency, days int, slugs ...string) (*Result, error) {
	sources, err := s.resolveSources(ctx, slugs)
	if err != nil {
		return nil, err
	}

	total := &Result{}
	for _, src := range sources {
		profile := s.deps.Profiles.Get(src.Slug)
		if profile == nil || profile.DateSweep == nil {
			s.logger.Warn("no date sweep configured, skipping",
				slog.String("source", src.Slug))
			continue
		}
		result, err := s.runDateSweep(ctx, browser, src, profile, concurrency, days)
		if err != nil {
			return nil, err
		}
		total.add(*result)
	}
	s.logger.Info("date sweep complete",
		slog.Int("inserted", total.Inserted), slog.Int("skipped", total.Skipped))
	return total, nil
}

func (s *Service) runDateSweep(ctx context.Context, browser scheduler.BrowserProvider, src *entity.Source, profile *config.SourceProfile, concurrency, days int) (*Result, error) {
	log := logging.WithSource(s.logger, src.Slug)
	sweep := profile.DateSweep

	start, err := time.Parse("2006-01-02", sweep.StartDate)
	if err != nil {
		return nil, err
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if days > 0 {
		if cutoff := today.AddDate(0, 0, -days); cutoff.After(start) {
			start = cutoff
		}
	}
	log.Info("date sweep starting",
		slog.String("from", start.Format("2006-01-02")),
		slog.String("to", today.Format("2006-01-02")))

	existing, err := s.deps.Articles.AllURLs(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	dead, err := s.deps.DeadLinks.AllSuppressed(ctx, src.ID)
	if err != nil {
		return nil, err
	}

	items, err := s.discoverDates(ctx, browser, src, profile, start, today, existing, dead, log)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		log.Info("no new articles across the date range")
		return &Result{}, nil
	}
	log.Info("date sweep discovered", slog.Int("candidates", len(items)))
	metrics.RecordDiscovery(src.Slug, "date", len(items))

	state := &sweepState{existing: existing}
	limiter := ratelimit.New(profile.RateLimit())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}
			pageCtx, cancel, err := browser.NewContext()
			if err != nil {
				return nil
			}
			defer cancel()
			s.scrapeAndStore(gctx, pageCtx, src, profile, item, state, storeOpts{})
			return nil
		})
	}
	_ = g.Wait()

	state.mu.Lock()
	result := state.result
	state.mu.Unlock()
	log.Info("date sweep source done",
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
		slog.Int("not_found", result.NotFound))
	return &result, nil
}

// discoverDates loads each daily archive page and collects unseen article
// links. One shared browsing context serves the whole walk.
func (s *Service) discoverDates(ctx context.Context, browser scheduler.BrowserProvider, src *entity.Source, profile *config.SourceProfile, start, end time.Time, existing, dead map[string]bool, log *slog.Logger) ([]entity.Candidate, error) {
	pageCtx, cancel, err := browser.NewContext()
	if err != nil {
		return nil, err
	}
	defer cancel()

	sweep := profile.DateSweep
	seen := map[string]bool{}
	for u := range existing {
		seen[u] = true
	}
	for u := range dead {
		seen[u] = true
	}

	var items []entity.Candidate
	emptyStreak := 0
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return items, nil
		}
		dateStr := current.Format(sweep.DateFormat)
		archiveURL := strings.ReplaceAll(sweep.URLPattern, "{date}", dateStr)

		links, err := s.deps.Listings.ExtractListingLinks(pageCtx, archiveURL, profile)
		if err != nil {
			log.Warn("daily archive page failed",
				slog.String("date", current.Format("2006-01-02")), slog.Any("error", err))
			continue
		}

		newCount := 0
		for _, link := range links {
			if !seen[link.URL] && !ingest.ShouldSkipURL(link.URL) && !profile.SkipsURL(link.URL) {
				seen[link.URL] = true
				items = append(items, link)
				newCount++
			}
		}
		if newCount > 0 {
			emptyStreak = 0
			log.Info("daily archive crawled",
				slog.String("date", current.Format("2006-01-02")),
				slog.Int("new", newCount), slog.Int("total", len(items)))
		} else {
			emptyStreak++
			if emptyStreak%30 == 0 {
				log.Info("consecutive empty days",
					slog.String("date", current.Format("2006-01-02")),
					slog.Int("streak", emptyStreak))
			}
		}
	}
	return items, nil
}
