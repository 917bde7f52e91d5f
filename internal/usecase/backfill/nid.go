package backfill

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/observability/logging"
	"newswire/internal/observability/metrics"
	"newswire/internal/pkg/ratelimit"
	"newswire/internal/scheduler"
)

// nidBatchSize bounds how many IDs are in flight between abort checks.
const nidBatchSize = 50

// NIDSweep walks sequential article IDs for every configured sweep range.
// A sweep aborts once max_consecutive_404 IDs in a row come back dead, which
// marks the live edge of the ID space.
func (s *Service) NIDSweep(ctx context.Context, browser scheduler.BrowserProvider, concurrency int, slugs ...string) (*Result, error) {
	sources, err := s.resolveSources(ctx, slugs)
	if err != nil {
		return nil, err
	}

	total := &Result{}
	for _, src := range sources {
		profile := s.deps.Profiles.Get(src.Slug)
		if profile == nil || len(profile.NIDSweeps) == 0 {
			s.logger.Warn("no nid sweep configured, skipping",
				slog.String("source", src.Slug))
			continue
		}
		log := logging.WithSource(s.logger, src.Slug)

		existing, err := s.deps.Articles.AllURLs(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		dead, err := s.deps.DeadLinks.AllSuppressed(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		log.Info("nid sweep starting",
			slog.Int("stored_urls", len(existing)), slog.Int("dead_links", len(dead)))

		for _, sweep := range profile.NIDSweeps {
			result, err := s.runNIDSweep(ctx, browser, src, profile, sweep, existing, dead, concurrency, log)
			if err != nil {
				return nil, err
			}
			total.add(*result)
		}
	}
	s.logger.Info("nid sweep complete",
		slog.Int("inserted", total.Inserted),
		slog.Int("skipped", total.Skipped),
		slog.Int("not_found", total.NotFound))
	return total, nil
}

func (s *Service) runNIDSweep(ctx context.Context, browser scheduler.BrowserProvider, src *entity.Source, profile *config.SourceProfile, sweep config.NIDSweep, existing, dead map[string]bool, concurrency int, log *slog.Logger) (*Result, error) {
	max404 := sweep.MaxConsecutive404
	if max404 <= 0 {
		max404 = 50
	}
	log.Info("sweeping id range",
		slog.Int("start", sweep.Start), slog.Int("end", sweep.End))

	pageCtx, cancel, err := browser.NewContext()
	if err != nil {
		return nil, err
	}
	defer cancel()

	limiter := ratelimit.New(profile.RateLimit())
	state := &sweepState{existing: existing}
	consecutive404 := 0
	prefilterSkipped := 0

	for batchStart := sweep.Start; batchStart <= sweep.End; batchStart += nidBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchEnd := min(batchStart+nidBatchSize-1, sweep.End)

		// IDs already stored or suppressed never reach the browser.
		var toCheck []int
		for nid := batchStart; nid <= batchEnd; nid++ {
			url := nidURL(sweep.URLPattern, nid)
			if existing[url] || dead[url] {
				prefilterSkipped++
				continue
			}
			toCheck = append(toCheck, nid)
		}
		if len(toCheck) == 0 {
			continue
		}
		metrics.RecordDiscovery(src.Slug, "nid", len(toCheck))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, concurrency))
		for _, nid := range toCheck {
			nid := nid
			g.Go(func() error {
				state.mu.Lock()
				aborted := consecutive404 >= max404
				state.mu.Unlock()
				if aborted {
					return nil
				}
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}

				url := nidURL(sweep.URLPattern, nid)
				item := entity.Candidate{URL: url}
				opts := storeOpts{
					useCanonicalURL: true,
					fallbackTitle:   "Article " + strconv.Itoa(nid),
				}
				outcome := s.scrapeAndStore(gctx, pageCtx, src, profile, item, state, opts)
				state.mu.Lock()
				if outcome == storeFailed {
					// A page that exists but lacks a date still proves the
					// ID range is live; only dead pages advance the abort.
					consecutive404++
					dead[url] = true
				} else {
					consecutive404 = 0
				}
				state.mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		state.mu.Lock()
		aborted := consecutive404 >= max404
		state.mu.Unlock()
		if aborted {
			log.Info("consecutive miss threshold reached, stopping sweep",
				slog.Int("threshold", max404), slog.Int("at_nid", batchEnd))
			break
		}
	}

	state.mu.Lock()
	result := state.result
	state.mu.Unlock()
	result.Skipped += prefilterSkipped
	log.Info("id range done",
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
		slog.Int("not_found", result.NotFound))
	return &result, nil
}

func nidURL(pattern string, nid int) string {
	return strings.ReplaceAll(pattern, "{nid}", strconv.Itoa(nid))
}
