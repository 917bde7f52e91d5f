package backfill

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/observability/logging"
	"newswire/internal/observability/metrics"
	"newswire/internal/scheduler"
)

// consecutiveEmptyLimit stops a section after this many pages in a row yield
// zero new links. Deep archive pages repeat the same evergreen stories.
const consecutiveEmptyLimit = 3

// Archive crawls paginated archive sections for the given sources and scrapes
// what is new, interleaved across sources through the scheduler.
func (s *Service) Archive(ctx context.Context, browser scheduler.BrowserProvider, pages int, slugs ...string) (*Result, error) {
	sources, err := s.resolveSources(ctx, slugs)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(s.deps.Scheduler, browser, s.deps.Processor, s.logger)
	var registered []*entity.Source
	for _, src := range sources {
		profile := s.deps.Profiles.Get(src.Slug)
		if profile == nil || len(profile.ArchiveSections()) == 0 {
			s.logger.Warn("no archive sections configured, skipping",
				slog.String("source", src.Slug))
			continue
		}
		sched.Register(src, profile.RateLimit(), profile.Scheduling.MaxConcurrency, profile.Scheduling.Priority)
		registered = append(registered, src)
	}
	if len(registered) == 0 {
		return &Result{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range registered {
		src := src
		g.Go(func() error {
			defer sched.MarkDiscoveryDone(src.Slug)
			log := logging.WithSource(s.logger, src.Slug)
			if err := s.discoverArchive(gctx, browser, sched, src, pages, log); err != nil {
				log.Error("archive discovery failed", slog.Any("error", err))
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

	result := &Result{
		Inserted: summary.Inserted(),
		Skipped:  summary.Skipped(),
		NotFound: summary.Errors(),
	}
	s.logger.Info("archive backfill complete",
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.NotFound))
	return result, nil
}

// discoverArchive crawls one source's archive sections, filters against the
// database, and enqueues what is left.
func (s *Service) discoverArchive(ctx context.Context, browser scheduler.BrowserProvider, sched *scheduler.Scheduler, src *entity.Source, pages int, log *slog.Logger) error {
	profile := s.deps.Profiles.Get(src.Slug)
	discovered := s.crawlArchivePages(ctx, browser, src, profile, pages, log)
	if len(discovered) == 0 {
		log.Info("no archive candidates discovered")
		return nil
	}
	metrics.RecordDiscovery(src.Slug, "archive", len(discovered))

	urls := make([]string, len(discovered))
	for i, item := range discovered {
		urls[i] = item.URL
	}
	existing, err := s.deps.Articles.ExistingURLs(ctx, src.ID, urls)
	if err != nil {
		return err
	}
	dead, err := s.deps.DeadLinks.SuppressedSubset(ctx, src.ID, urls)
	if err != nil {
		return err
	}
	recentTitles, err := s.deps.Articles.RecentTitles(ctx, src.ID, 365)
	if err != nil {
		return err
	}

	filtered := filterDiscovered(discovered, existing, dead, titleSet(recentTitles), profile)
	if len(filtered) == 0 {
		log.Info("all archive candidates already known",
			slog.Int("discovered", len(discovered)))
		return nil
	}
	log.Info("archive candidates queued",
		slog.Int("discovered", len(discovered)), slog.Int("queued", len(filtered)))
	sched.Enqueue(src.Slug, filtered)
	return nil
}

// crawlArchivePages walks every archive section page by page. Gated sources
// get a fresh browsing context per page; the rest share one for the crawl.
func (s *Service) crawlArchivePages(ctx context.Context, browser scheduler.BrowserProvider, src *entity.Source, profile *config.SourceProfile, pages int, log *slog.Logger) []entity.Candidate {
	sections := profile.ArchiveSections()
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var sharedCtx context.Context
	if !src.NeedsFreshContext() {
		pageCtx, cancel, err := browser.NewContext()
		if err != nil {
			log.Error("browsing context unavailable", slog.Any("error", err))
			return nil
		}
		defer cancel()
		sharedCtx = pageCtx
	}

	var all []entity.Candidate
	seen := map[string]bool{}
	for _, name := range names {
		sec := sections[name]
		maxPages := min(pages, sec.MaxPages)
		consecutiveEmpty := 0

		for i := 0; i < maxPages; i++ {
			if ctx.Err() != nil {
				return all
			}
			pageVal := sec.PageStart + i*sec.PageStep
			pageURL := strings.ReplaceAll(sec.ArchivePattern, "{page}", strconv.Itoa(pageVal))

			links, err := s.extractArchivePage(browser, sharedCtx, pageURL, profile)
			if err != nil {
				log.Error("archive page failed",
					slog.String("section", name), slog.Int("page", i+1), slog.Any("error", err))
				continue
			}

			newCount := 0
			for _, link := range links {
				if !seen[link.URL] {
					seen[link.URL] = true
					all = append(all, link)
					newCount++
				}
			}
			log.Info("archive page crawled",
				slog.String("section", name), slog.Int("page", i+1),
				slog.Int("new_links", newCount), slog.Int("total", len(all)))

			if len(links) == 0 {
				break
			}
			if newCount == 0 {
				consecutiveEmpty++
				if consecutiveEmpty >= consecutiveEmptyLimit {
					log.Info("section exhausted, moving on", slog.String("section", name))
					break
				}
			} else {
				consecutiveEmpty = 0
			}
		}
	}
	return all
}

func (s *Service) extractArchivePage(browser scheduler.BrowserProvider, sharedCtx context.Context, pageURL string, profile *config.SourceProfile) ([]entity.Candidate, error) {
	pageCtx := sharedCtx
	if pageCtx == nil {
		freshCtx, cancel, err := browser.NewContext()
		if err != nil {
			return nil, err
		}
		defer cancel()
		pageCtx = freshCtx
	}
	return s.deps.Listings.ExtractListingLinks(pageCtx, pageURL, profile)
}
