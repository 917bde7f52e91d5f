// Package ingest orchestrates one ingestion run: discover candidates for
// every active source, interleave scraping through the scheduler, and
// persist what survives deduplication.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/observability/logging"
	"newswire/internal/observability/metrics"
	"newswire/internal/repository"
	"newswire/internal/scheduler"
)

// defaultLimit caps candidates per source per run.
const defaultLimit = 50

// discoveryTitleWindowDays is the recency window for title dedup at
// discovery time. Sites recycle evergreen headlines, so the window is long.
const discoveryTitleWindowDays = 365

// runTitleWindowDays seeds the in-run title set used for the post-scrape
// re-check under the persistence lock.
const runTitleWindowDays = 7

// FeedDiscoverer finds candidates from a source's feed.
type FeedDiscoverer interface {
	Fetch(ctx context.Context, feedURL string, minYear int) ([]entity.Candidate, error)
}

// ArticleScraper extracts one article page.
type ArticleScraper interface {
	ScrapeArticle(browserCtx context.Context, url, feedHint string, profile *config.SourceProfile) (*entity.ScrapedArticle, error)
}

// ListingScraper extracts article links from a listing page.
type ListingScraper interface {
	ExtractListingLinks(browserCtx context.Context, pageURL string, profile *config.SourceProfile) ([]entity.Candidate, error)
}

// Deps carries the service dependencies.
type Deps struct {
	Sources   repository.SourceRepository
	Articles  repository.ArticleRepository
	DeadLinks repository.DeadLinkRepository
	Feeds     FeedDiscoverer
	Scraper   ArticleScraper
	Listings  ListingScraper
	Profiles  *config.Sources
	Scheduler scheduler.Config
	// Limit caps candidates per source per run. Zero means the default.
	Limit  int
	Logger *slog.Logger
}

// Service runs the ingestion pipeline.
type Service struct {
	deps    Deps
	limit   int
	logger  *slog.Logger
	browser scheduler.BrowserProvider

	// dbMu serializes the title re-check and insert so racing workers
	// cannot double-insert the same story under different URLs.
	dbMu   sync.Mutex
	titles map[string]map[string]bool
	urls   map[string]map[string]bool
}

// NewService creates the ingest service.
func NewService(deps Deps) *Service {
	limit := deps.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Service{
		deps:   deps,
		limit:  limit,
		logger: deps.Logger,
		titles: map[string]map[string]bool{},
		urls:   map[string]map[string]bool{},
	}
}

// Run ingests all active sources (or the named subset) through the given
// browser. The caller owns the browser connection; an unreachable browser
// must abort before Run is called rather than producing an empty run.
func (s *Service) Run(ctx context.Context, browser scheduler.BrowserProvider, slugs ...string) (*scheduler.Summary, error) {
	sources, err := s.resolveSources(ctx, slugs)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		s.logger.Warn("no active sources to ingest")
		return &scheduler.Summary{Sources: map[string]*scheduler.SourceSummary{}}, nil
	}
	s.logger.Info("ingest starting", slog.Int("sources", len(sources)))
	s.browser = browser

	sched := scheduler.New(s.deps.Scheduler, browser, s, s.logger)
	registered := make([]*entity.Source, 0, len(sources))
	for _, src := range sources {
		profile := s.deps.Profiles.Get(src.Slug)
		if profile == nil {
			s.logger.Warn("source has no profile in sources.yaml, skipping",
				slog.String("source", src.Slug))
			continue
		}
		sched.Register(src, profile.RateLimit(), profile.Scheduling.MaxConcurrency, profile.Scheduling.Priority)
		registered = append(registered, src)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range registered {
		src := src
		g.Go(func() error {
			defer sched.MarkDiscoveryDone(src.Slug)
			log := logging.WithSource(s.logger, src.Slug)
			if err := s.discoverAndEnqueue(gctx, sched, src, log); err != nil {
				// One source failing discovery must not sink the run.
				log.Error("discovery failed", slog.Any("error", err))
			}
			return nil
		})
	}

	runDone := make(chan struct{})
	var summary *scheduler.Summary
	go func() {
		defer close(runDone)
		summary = sched.Run(ctx)
	}()
	_ = g.Wait()
	<-runDone

	now := time.Now()
	for _, src := range registered {
		if err := s.deps.Sources.TouchScrapedAt(ctx, src.ID, now); err != nil {
			s.logger.Warn("TouchScrapedAt failed",
				slog.String("source", src.Slug), slog.Any("error", err))
		}
	}

	s.logSummary(summary)
	return summary, nil
}

func (s *Service) resolveSources(ctx context.Context, slugs []string) ([]*entity.Source, error) {
	if len(slugs) == 0 {
		sources, err := s.deps.Sources.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("Run: %w", err)
		}
		return sources, nil
	}
	sources := make([]*entity.Source, 0, len(slugs))
	for _, slug := range slugs {
		src, err := s.deps.Sources.GetBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("Run: %w", err)
		}
		if src == nil {
			return nil, fmt.Errorf("Run: unknown source %q", slug)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// discoverAndEnqueue is the per-source producer: feed first, listing pages
// as fallback, then the pre-enqueue dedup pass.
func (s *Service) discoverAndEnqueue(ctx context.Context, sched *scheduler.Scheduler, src *entity.Source, log *slog.Logger) error {
	profile := s.deps.Profiles.Get(src.Slug)

	items, method := s.discover(ctx, src, profile, log)
	if len(items) == 0 {
		log.Info("no candidates discovered")
		return nil
	}
	metrics.RecordDiscovery(src.Slug, method, len(items))

	if len(items) > s.limit {
		items = items[:s.limit]
	}
	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.URL
	}

	existing, err := s.deps.Articles.ExistingURLs(ctx, src.ID, urls)
	if err != nil {
		return fmt.Errorf("discoverAndEnqueue: %w", err)
	}
	dead, err := s.deps.DeadLinks.SuppressedSubset(ctx, src.ID, urls)
	if err != nil {
		return fmt.Errorf("discoverAndEnqueue: %w", err)
	}
	discoveryTitles, err := s.deps.Articles.RecentTitles(ctx, src.ID, discoveryTitleWindowDays)
	if err != nil {
		return fmt.Errorf("discoverAndEnqueue: %w", err)
	}
	runTitles, err := s.deps.Articles.RecentTitles(ctx, src.ID, runTitleWindowDays)
	if err != nil {
		return fmt.Errorf("discoverAndEnqueue: %w", err)
	}

	s.dbMu.Lock()
	s.titles[src.Slug] = titleSet(runTitles)
	s.urls[src.Slug] = existing
	s.dbMu.Unlock()

	filtered := filterCandidates(items, s.limit, existing, dead, titleSet(discoveryTitles), profile)
	if len(filtered) == 0 {
		log.Info("all discovered candidates already known",
			slog.Int("discovered", len(items)))
		return nil
	}
	log.Info("candidates queued",
		slog.Int("discovered", len(items)), slog.Int("queued", len(filtered)))
	sched.Enqueue(src.Slug, filtered)
	return nil
}

// discover tries the feed first, falling back to listing page extraction.
func (s *Service) discover(ctx context.Context, src *entity.Source, profile *config.SourceProfile, log *slog.Logger) ([]entity.Candidate, string) {
	if src.FeedURL != "" {
		items, err := s.deps.Feeds.Fetch(ctx, src.FeedURL, profile.MinFeedYear)
		if err != nil {
			log.Warn("feed fetch failed, trying listing pages", slog.Any("error", err))
		} else if len(items) > 0 {
			return items, "feed"
		}
	}

	listingURLs := profile.ListingURLs()
	if len(listingURLs) == 0 {
		listingURLs = []string{src.BaseURL}
	}

	var all []entity.Candidate
	seen := map[string]bool{}
	for _, pageURL := range listingURLs {
		if len(all) >= s.limit {
			break
		}
		links, err := s.extractListing(ctx, pageURL, profile)
		if err != nil {
			log.Warn("listing extraction failed",
				slog.String("page", pageURL), slog.Any("error", err))
			continue
		}
		for _, link := range links {
			if !seen[link.URL] {
				seen[link.URL] = true
				all = append(all, link)
			}
		}
	}
	return all, "listing"
}

func (s *Service) extractListing(ctx context.Context, pageURL string, profile *config.SourceProfile) ([]entity.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pageCtx, cancel, err := s.browser.NewContext()
	if err != nil {
		return nil, err
	}
	defer cancel()
	return s.deps.Listings.ExtractListingLinks(pageCtx, pageURL, profile)
}

func (s *Service) logSummary(summary *scheduler.Summary) {
	for slug, src := range summary.Sources {
		if src.Processed() == 0 {
			continue
		}
		s.logger.Info("source complete",
			slog.String("source", slug),
			slog.Int("inserted", src.Inserted),
			slog.Int("skipped_no_date", src.SkippedNoDate),
			slog.Int("skipped_duplicate", src.SkippedDuplicate),
			slog.Int("errors", src.Errors()))
	}
	s.logger.Info("ingest complete",
		slog.Int("inserted", summary.Inserted()),
		slog.Int("skipped", summary.Skipped()),
		slog.Int("errors", summary.Errors()))
}
