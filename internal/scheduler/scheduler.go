// Package scheduler interleaves article scraping across sources so workers
// never idle on per-source rate limits. Each source carries its own rate
// limiter and concurrency cap; workers pull from whichever source is ready
// next. An autoscaler grows and shrinks the pool from queue depth and recent
// error rate.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"newswire/internal/domain/entity"
	"newswire/internal/observability/metrics"
	"newswire/internal/pkg/ratelimit"
)

// Outcome is the result of processing one candidate.
type Outcome struct {
	Inserted  bool
	NoDate    bool
	Duplicate bool
	// ErrorKind is set on scrape failure, empty otherwise.
	ErrorKind entity.ScrapeErrorKind
}

// Processor handles one candidate end to end: scrape, dedup, persist.
// pageCtx is the browsing context to drive; fakes ignore it in tests.
type Processor interface {
	Process(ctx context.Context, source *entity.Source, item entity.Candidate, pageCtx context.Context) Outcome
}

// BrowserProvider hands out browsing contexts. Satisfied by browser.Pool.
type BrowserProvider interface {
	NewContext() (context.Context, context.CancelFunc, error)
}

// Config holds the worker pool knobs.
type Config struct {
	// InitialWorkers is the pool size at startup.
	InitialWorkers int

	// MaxWorkers is the hard cap the autoscaler never exceeds.
	MaxWorkers int

	// AutoscaleInterval is the time between autoscale checks.
	AutoscaleInterval time.Duration

	// ScaleUpStep is how many workers one scale-up adds.
	ScaleUpStep int

	// ErrorRateBackoff is the recent error rate that triggers a scale-down.
	ErrorRateBackoff float64
}

// DefaultConfig returns production scheduler settings.
func DefaultConfig() Config {
	return Config{
		InitialWorkers:    5,
		MaxWorkers:        25,
		AutoscaleInterval: 3 * time.Second,
		ScaleUpStep:       2,
		ErrorRateBackoff:  0.3,
	}
}

// discoveryPoll is how long a worker sleeps when every queue is empty but
// discovery is still producing.
const discoveryPoll = 50 * time.Millisecond

// sourceState is the per-source mutable state. Queue, counters, and active
// count are guarded by the scheduler mutex; the shared browsing context has
// its own lock because creating it talks to the browser.
type sourceState struct {
	source         *entity.Source
	limiter        *ratelimit.Limiter
	maxConcurrency int
	priority       int

	queue         []entity.Candidate
	active        int
	discoveryDone bool
	itemsScraped  int
	errors        int
	summary       *SourceSummary

	// Sources without a feed sit behind bot checks and need a fresh
	// browsing context per page; the rest share one lazily created context.
	needsFreshCtx bool
	ctxMu         sync.Mutex
	sharedCtx     context.Context
	sharedCancel  context.CancelFunc
}

type workerHandle struct {
	retire atomic.Bool
	done   chan struct{}
}

func (h *workerHandle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Scheduler feeds candidates to an autoscaled worker pool.
type Scheduler struct {
	cfg     Config
	browser BrowserProvider
	proc    Processor
	logger  *slog.Logger

	mu      sync.Mutex
	sources map[string]*sourceState
	workers []*workerHandle

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Scheduler. Sources are added with Register before Run.
func New(cfg Config, browser BrowserProvider, proc Processor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		browser: browser,
		proc:    proc,
		logger:  logger,
		sources: map[string]*sourceState{},
		stopCh:  make(chan struct{}),
	}
}

// Register adds a source to the schedule. rateLimit is the minimum interval
// between page loads for this source.
func (s *Scheduler) Register(source *entity.Source, rateLimit time.Duration, maxConcurrency, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[source.Slug] = &sourceState{
		source:         source,
		limiter:        ratelimit.New(rateLimit),
		maxConcurrency: maxConcurrency,
		priority:       priority,
		needsFreshCtx:  source.NeedsFreshContext(),
		summary:        newSourceSummary(),
	}
}

// Enqueue appends candidates to a source's FIFO queue. Discovery producers
// call this concurrently with Run.
func (s *Scheduler) Enqueue(slug string, items []entity.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sources[slug]
	if !ok {
		return
	}
	state.queue = append(state.queue, items...)
}

// MarkDiscoveryDone tells workers that no more candidates will arrive for
// this source. Once every registered source is done and drained, Run ends.
func (s *Scheduler) MarkDiscoveryDone(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.sources[slug]; ok {
		state.discoveryDone = true
	}
}

// Stop signals the pool to drain: in-flight items always complete, no new
// item is picked.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run drives the worker pool until every queue is drained and all discovery
// is marked done, then returns the per-source summary.
func (s *Scheduler) Run(ctx context.Context) *Summary {
	s.mu.Lock()
	for i := 0; i < s.cfg.InitialWorkers; i++ {
		s.spawnLocked(ctx)
	}
	s.mu.Unlock()
	s.logger.Info("worker pool started",
		slog.Int("workers", s.cfg.InitialWorkers),
		slog.Int("max_workers", s.cfg.MaxWorkers))

	autoscalerDone := make(chan struct{})
	go s.autoscale(ctx, autoscalerDone)

	// Wait for all workers, including any the autoscaler adds meanwhile.
	for {
		h := s.nextLiveWorker()
		if h == nil {
			break
		}
		<-h.done
	}

	s.Stop()
	<-autoscalerDone
	s.cleanup()
	return s.snapshotSummary()
}

func (s *Scheduler) nextLiveWorker() *workerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.workers {
		if !h.finished() {
			return h
		}
	}
	return nil
}

// spawnLocked starts one worker. Caller holds s.mu.
func (s *Scheduler) spawnLocked(ctx context.Context) {
	h := &workerHandle{done: make(chan struct{})}
	s.workers = append(s.workers, h)
	go s.runWorker(ctx, h)
}

func (s *Scheduler) runWorker(ctx context.Context, h *workerHandle) {
	defer close(h.done)
	for {
		if h.retire.Load() {
			return
		}
		select {
		case <-s.stopCh:
			return
		default:
		}

		state, item, ok := s.pickNext(ctx)
		if !ok {
			return
		}
		outcome := s.processItem(ctx, state, item)

		s.mu.Lock()
		state.active--
		state.itemsScraped++
		state.record(outcome)
		s.mu.Unlock()
	}
}

// pickNext returns the next candidate from any source that is ready:
// queue non-empty, below its concurrency cap, rate limiter cooled down.
// Ready sources are ordered by priority, then by items scraped so far, so
// high-priority sources win without starving the rest. Returns ok=false
// when all work is done or the run is stopping.
func (s *Scheduler) pickNext(ctx context.Context) (*sourceState, entity.Candidate, bool) {
	for {
		var sleepFor time.Duration
		havePick := false
		var pick *sourceState
		var item entity.Candidate

		s.mu.Lock()
		allDone := true
		haveCooldown := false
		var shortestCooldown time.Duration

		for _, state := range s.sources {
			if len(state.queue) > 0 {
				allDone = false
				if state.active >= state.maxConcurrency {
					continue
				}
				wait := state.limiter.TimeUntilReady()
				if wait <= 0 {
					if pick == nil || state.priority < pick.priority ||
						(state.priority == pick.priority && state.itemsScraped < pick.itemsScraped) {
						pick = state
					}
				} else if !haveCooldown || wait < shortestCooldown {
					shortestCooldown = wait
					haveCooldown = true
				}
			} else if !state.discoveryDone {
				allDone = false
			}
		}

		switch {
		case allDone:
			s.mu.Unlock()
			return nil, entity.Candidate{}, false
		case pick != nil:
			item = pick.queue[0]
			pick.queue = pick.queue[1:]
			pick.active++
			havePick = true
		case haveCooldown:
			sleepFor = shortestCooldown
		default:
			// Queues empty but discovery still running.
			sleepFor = discoveryPoll
		}
		s.mu.Unlock()

		if havePick {
			// Claim the rate limit slot outside the lock. Wait serializes
			// page loads per source even if two workers raced past the
			// readiness check.
			if err := pick.limiter.Wait(ctx); err != nil {
				s.mu.Lock()
				pick.active--
				pick.queue = append([]entity.Candidate{item}, pick.queue...)
				s.mu.Unlock()
				return nil, entity.Candidate{}, false
			}
			return pick, item, true
		}

		select {
		case <-time.After(sleepFor):
		case <-s.stopCh:
			return nil, entity.Candidate{}, false
		case <-ctx.Done():
			return nil, entity.Candidate{}, false
		}
	}
}

func (s *Scheduler) processItem(ctx context.Context, state *sourceState, item entity.Candidate) Outcome {
	pageCtx, cancel, err := s.pageContext(state)
	if err != nil {
		s.logger.Error("browsing context unavailable",
			slog.String("source", state.source.Slug),
			slog.Any("error", err))
		return Outcome{ErrorKind: entity.ScrapeErrUnknown}
	}
	if cancel != nil {
		defer cancel()
	}
	return s.proc.Process(ctx, state.source, item, pageCtx)
}

// pageContext returns the browsing context for one page load: fresh per item
// for gated sources, otherwise the source's lazily created shared context.
// The cancel func is non-nil only when the context is owned by this call.
func (s *Scheduler) pageContext(state *sourceState) (context.Context, context.CancelFunc, error) {
	if state.needsFreshCtx {
		return s.browser.NewContext()
	}
	state.ctxMu.Lock()
	defer state.ctxMu.Unlock()
	if state.sharedCtx == nil {
		ctx, cancel, err := s.browser.NewContext()
		if err != nil {
			return nil, nil, err
		}
		state.sharedCtx, state.sharedCancel = ctx, cancel
	}
	return state.sharedCtx, nil, nil
}

func (s *Scheduler) autoscale(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.AutoscaleInterval)
	defer ticker.Stop()

	var lastScraped, lastErrors int
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		queueDepth := 0
		totalScraped := 0
		totalErrors := 0
		for _, state := range s.sources {
			queueDepth += len(state.queue)
			totalScraped += state.itemsScraped
			totalErrors += state.errors
		}
		active := 0
		live := s.workers[:0]
		for _, h := range s.workers {
			if !h.finished() {
				live = append(live, h)
				if !h.retire.Load() {
					active++
				}
			}
		}
		s.workers = live

		recentTotal := totalScraped - lastScraped
		recentErrors := totalErrors - lastErrors
		lastScraped, lastErrors = totalScraped, totalErrors
		errorRate := float64(recentErrors) / float64(max(recentTotal, 1))

		switch {
		case errorRate >= s.cfg.ErrorRateBackoff && active > 1:
			// Retire the newest workers; each finishes its current item
			// and exits before picking another.
			target := max(1, active/2)
			retired := 0
			for i := len(s.workers) - 1; i >= 0 && active-retired > target; i-- {
				h := s.workers[i]
				if !h.finished() && !h.retire.Load() {
					h.retire.Store(true)
					retired++
				}
			}
			s.logger.Info("autoscale down",
				slog.Float64("error_rate", errorRate),
				slog.Int("target", target),
				slog.Int("retired", retired))
		case queueDepth > active*2 && active < s.cfg.MaxWorkers:
			add := min(s.cfg.ScaleUpStep, s.cfg.MaxWorkers-active)
			for i := 0; i < add; i++ {
				s.spawnLocked(ctx)
			}
			s.logger.Info("autoscale up",
				slog.Int("queue_depth", queueDepth),
				slog.Int("workers", active+add))
		}

		metrics.UpdateWorkerPool(active, queueDepth)
		s.mu.Unlock()
	}
}

// cleanup closes the shared browsing contexts created during the run.
func (s *Scheduler) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, state := range s.sources {
		state.ctxMu.Lock()
		if state.sharedCancel != nil {
			state.sharedCancel()
			state.sharedCtx, state.sharedCancel = nil, nil
		}
		state.ctxMu.Unlock()
	}
	metrics.UpdateWorkerPool(0, 0)
}
