// Package backfill recovers historical articles that feeds no longer carry:
// paginated archive crawls, exhaustive numeric-ID sweeps, and calendar-based
// archive sweeps. Modes are derived from each source's profile.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/observability/metrics"
	"newswire/internal/pkg/text"
	"newswire/internal/repository"
	"newswire/internal/scheduler"
	"newswire/internal/usecase/ingest"
)

// Deps carries the service dependencies. Processor is the ingest pipeline's
// scheduler.Processor, reused for the interleaved archive phase.
type Deps struct {
	Sources   repository.SourceRepository
	Articles  repository.ArticleRepository
	DeadLinks repository.DeadLinkRepository
	Scraper   ingest.ArticleScraper
	Listings  ingest.ListingScraper
	Profiles  *config.Sources
	Scheduler scheduler.Config
	Processor scheduler.Processor
	Logger    *slog.Logger
}

// Service runs the backfill modes.
type Service struct {
	deps   Deps
	logger *slog.Logger
}

// NewService creates the backfill service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, logger: deps.Logger}
}

// Result is the aggregate outcome of one backfill invocation.
type Result struct {
	Inserted int
	Skipped  int
	NotFound int
}

func (r *Result) add(other Result) {
	r.Inserted += other.Inserted
	r.Skipped += other.Skipped
	r.NotFound += other.NotFound
}

// minContentRunes rejects scrapes whose content is too short to be a real
// article. Matches the article scraper's own empty threshold.
const minContentRunes = 100

func (s *Service) resolveSources(ctx context.Context, slugs []string) ([]*entity.Source, error) {
	if len(slugs) == 0 {
		sources, err := s.deps.Sources.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolveSources: %w", err)
		}
		return sources, nil
	}
	sources := make([]*entity.Source, 0, len(slugs))
	for _, slug := range slugs {
		src, err := s.deps.Sources.GetBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("resolveSources: %w", err)
		}
		if src == nil {
			return nil, fmt.Errorf("resolveSources: unknown source %q", slug)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// filterDiscovered drops candidates already stored, suppressed, skip-matched,
// or carrying a recently seen title.
func filterDiscovered(items []entity.Candidate, existing, dead, titles map[string]bool, profile *config.SourceProfile) []entity.Candidate {
	filtered := make([]entity.Candidate, 0, len(items))
	for _, item := range items {
		if existing[item.URL] || dead[item.URL] {
			continue
		}
		if ingest.ShouldSkipURL(item.URL) {
			continue
		}
		if profile != nil && profile.SkipsURL(item.URL) {
			continue
		}
		norm := text.NormalizeTitle(item.Title)
		if utf8.RuneCountInString(norm) > 10 && titles[norm] {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func titleSet(normalized []string) map[string]bool {
	set := make(map[string]bool, len(normalized))
	for _, t := range normalized {
		if utf8.RuneCountInString(t) > 10 {
			set[t] = true
		}
	}
	return set
}

// sweepState is the shared mutable state of one sweep's parallel scrape
// phase. existing doubles as the canonical-URL dedup set.
type sweepState struct {
	mu       sync.Mutex
	existing map[string]bool
	result   Result
}

// storeOpts tunes scrapeAndStore per sweep mode.
type storeOpts struct {
	// useCanonicalURL stores under the post-redirect URL instead of the
	// requested one. NID patterns redirect to slugged URLs, so the
	// canonical form is the only stable dedup key.
	useCanonicalURL bool
	fallbackTitle   string
}

// storeOutcome distinguishes a page that failed to load from one that loaded
// but was not stored. Sweeps use the distinction for their abort counters.
type storeOutcome int

const (
	storeFailed storeOutcome = iota
	storeNoDate
	storeSkipped
	storeInserted
)

// scrapeAndStore scrapes one URL and persists the result, maintaining the
// dead-link registry.
func (s *Service) scrapeAndStore(ctx context.Context, pageCtx context.Context, source *entity.Source, profile *config.SourceProfile, item entity.Candidate, state *sweepState, opts storeOpts) storeOutcome {
	start := time.Now()
	slug := source.Slug

	scraped, err := s.deps.Scraper.ScrapeArticle(pageCtx, item.URL, item.PublishedHint, profile)
	if err != nil {
		var scrapeErr *entity.ScrapeError
		if errors.As(err, &scrapeErr) {
			if recordErr := s.deps.DeadLinks.Record(ctx, source.ID, scrapeErr.URL, scrapeErr.Kind); recordErr != nil {
				s.logger.Warn("dead link record failed",
					slog.String("url", scrapeErr.URL), slog.Any("error", recordErr))
			} else {
				metrics.RecordDeadLink(slug, scrapeErr.Kind)
			}
			metrics.RecordScrapeError(slug, scrapeErr.Kind)
		}
		metrics.RecordScrape(slug, metrics.ResultError, time.Since(start))
		state.mu.Lock()
		state.result.NotFound++
		state.mu.Unlock()
		return storeFailed
	}
	if utf8.RuneCountInString(scraped.Content) < minContentRunes {
		metrics.RecordScrape(slug, metrics.ResultError, time.Since(start))
		state.mu.Lock()
		state.result.NotFound++
		state.mu.Unlock()
		return storeFailed
	}

	if err := s.deps.DeadLinks.Remove(ctx, item.URL); err != nil {
		s.logger.Warn("dead link remove failed",
			slog.String("url", item.URL), slog.Any("error", err))
	}

	title := scraped.Title
	if title == "" {
		title = text.Normalize(item.Title)
	}
	if title == "" {
		title = opts.fallbackTitle
	}

	if scraped.PublishedAt == nil {
		metrics.RecordScrape(slug, metrics.ResultSkippedNoDate, time.Since(start))
		state.mu.Lock()
		state.result.NotFound++
		state.mu.Unlock()
		return storeNoDate
	}

	storageURL := item.URL
	if opts.useCanonicalURL && scraped.FinalURL != "" {
		storageURL = scraped.FinalURL
	}

	language := source.Language
	if language == "" {
		language = text.DetectLanguage(scraped.Content)
	}
	imageURL := scraped.ImageURL
	if imageURL == "" {
		imageURL = item.ImageURL
	}
	article := &entity.Article{
		SourceID:    source.ID,
		URL:         storageURL,
		Title:       title,
		Content:     scraped.Content,
		Excerpt:     optional(scraped.Excerpt),
		Author:      optional(scraped.Author),
		ImageURL:    optional(imageURL),
		Language:    language,
		PublishedAt: *scraped.PublishedAt,
		ScrapedAt:   time.Now(),
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.existing[storageURL] {
		state.result.Skipped++
		metrics.RecordScrape(slug, metrics.ResultSkippedDuplicate, time.Since(start))
		return storeSkipped
	}
	_, inserted, err := s.deps.Articles.Insert(ctx, article)
	if err != nil {
		s.logger.Error("insert failed",
			slog.String("source", slug), slog.String("url", storageURL), slog.Any("error", err))
		metrics.RecordScrape(slug, metrics.ResultError, time.Since(start))
		state.result.NotFound++
		return storeFailed
	}
	if !inserted {
		state.result.Skipped++
		metrics.RecordScrape(slug, metrics.ResultSkippedDuplicate, time.Since(start))
		return storeSkipped
	}
	state.existing[storageURL] = true
	state.result.Inserted++
	metrics.RecordScrape(slug, metrics.ResultInserted, time.Since(start))
	if state.result.Inserted%10 == 0 {
		s.logger.Info("backfill progress",
			slog.String("source", slug), slog.Int("inserted", state.result.Inserted))
	}
	return storeInserted
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
