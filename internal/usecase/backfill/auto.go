package backfill

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"newswire/internal/domain/entity"
	"newswire/internal/scheduler"
)

// AutoOptions tunes an Auto run. Zero values fall back to the per-source
// configuration.
type AutoOptions struct {
	Pages       int
	Concurrency int
	Days        int
}

// Auto runs every backfill method each source's profile defines: archive
// sections, NID sweeps, and date sweeps. A single source runs its methods
// sequentially; multiple sources run the archive phase interleaved through
// the scheduler while the sweeps proceed concurrently, all sharing one
// browser. Slow archive crawls therefore never block the sweeps.
func (s *Service) Auto(ctx context.Context, browser scheduler.BrowserProvider, opts AutoOptions, slugs ...string) (*Result, error) {
	sources, err := s.resolveSources(ctx, slugs)
	if err != nil {
		return nil, err
	}
	pages := opts.Pages
	if pages <= 0 {
		pages = 5
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	var archiveSlugs, nidSlugs, dateSlugs []string
	for _, src := range sources {
		profile := s.deps.Profiles.Get(src.Slug)
		if profile == nil {
			continue
		}
		if len(profile.ArchiveSections()) > 0 {
			archiveSlugs = append(archiveSlugs, src.Slug)
		}
		if len(profile.NIDSweeps) > 0 {
			nidSlugs = append(nidSlugs, src.Slug)
		}
		if profile.DateSweep != nil {
			dateSlugs = append(dateSlugs, src.Slug)
		}
	}
	if len(archiveSlugs)+len(nidSlugs)+len(dateSlugs) == 0 {
		s.logger.Warn("no backfill methods configured for any source")
		return &Result{}, nil
	}

	if len(sources) == 1 {
		return s.autoSequential(ctx, browser, sources[0], pages, concurrency, opts.Days)
	}

	// Sweeps run beside the archive phase, so they get a reduced share of
	// the browser.
	sweepConcurrency := max(1, min(concurrency, 3))

	total := &Result{}
	var mu sync.Mutex
	merge := func(r *Result) {
		mu.Lock()
		total.add(*r)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(archiveSlugs) > 0 {
		g.Go(func() error {
			r, err := s.Archive(gctx, browser, pages, archiveSlugs...)
			if err != nil {
				s.logger.Error("archive phase failed", slog.Any("error", err))
				return nil
			}
			merge(r)
			return nil
		})
	}
	for _, slug := range nidSlugs {
		slug := slug
		g.Go(func() error {
			r, err := s.NIDSweep(gctx, browser, sweepConcurrency, slug)
			if err != nil {
				s.logger.Error("nid sweep failed",
					slog.String("source", slug), slog.Any("error", err))
				return nil
			}
			merge(r)
			return nil
		})
	}
	for _, slug := range dateSlugs {
		slug := slug
		g.Go(func() error {
			r, err := s.DateSweep(gctx, browser, sweepConcurrency, opts.Days, slug)
			if err != nil {
				s.logger.Error("date sweep failed",
					slog.String("source", slug), slog.Any("error", err))
				return nil
			}
			merge(r)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("auto backfill complete",
		slog.Int("inserted", total.Inserted),
		slog.Int("skipped", total.Skipped),
		slog.Int("not_found", total.NotFound))
	return total, nil
}

func (s *Service) autoSequential(ctx context.Context, browser scheduler.BrowserProvider, src *entity.Source, pages, concurrency, days int) (*Result, error) {
	profile := s.deps.Profiles.Get(src.Slug)
	total := &Result{}

	if len(profile.ArchiveSections()) > 0 {
		r, err := s.Archive(ctx, browser, pages, src.Slug)
		if err != nil {
			return nil, err
		}
		total.add(*r)
	}
	if len(profile.NIDSweeps) > 0 {
		r, err := s.NIDSweep(ctx, browser, concurrency, src.Slug)
		if err != nil {
			return nil, err
		}
		total.add(*r)
	}
	if profile.DateSweep != nil {
		r, err := s.DateSweep(ctx, browser, concurrency, days, src.Slug)
		if err != nil {
			return nil, err
		}
		total.add(*r)
	}

	s.logger.Info("auto backfill complete",
		slog.Int("inserted", total.Inserted),
		slog.Int("skipped", total.Skipped),
		slog.Int("not_found", total.NotFound))
	return total, nil
}
