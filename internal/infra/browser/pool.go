// Package browser manages the shared headless Chrome the scrapers drive.
// All page work goes through browsing contexts created here so that every
// context presents the same stable fingerprint to the target sites.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"newswire/internal/domain/entity"
)

// Config holds browser connection settings.
type Config struct {
	// WSURL is the CDP websocket endpoint of an already-running browser
	// (e.g. ws://localhost:3100). When empty a local headless Chrome is
	// launched instead.
	WSURL string

	// UserAgent is presented by every browsing context.
	UserAgent string

	// ProxyURL routes page traffic through a proxy (SOCKS5 or HTTP).
	// Only honored when launching a local browser; a remote endpoint
	// carries its own network configuration.
	ProxyURL string

	// ConnectTimeout bounds the startup probe.
	ConnectTimeout time.Duration
}

// DefaultConfig returns production browser settings.
func DefaultConfig() Config {
	return Config{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		ConnectTimeout: 15 * time.Second,
	}
}

// Pool owns one browser allocator and hands out isolated browsing contexts.
type Pool struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         Config
	logger      *slog.Logger

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
	nextID  int64
	closed  bool
}

// Connect establishes the browser allocator and verifies it with a probe
// navigation. An unreachable browser is a fatal condition for a run: the
// returned error wraps entity.ErrBrowserUnavailable and callers abort
// instead of reporting an empty run.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Pool, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.WSURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.WSURL)
		logger.Info("using remote browser endpoint", slog.String("ws_url", cfg.WSURL))
	} else {
		opts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(cfg.UserAgent),
		)
		if cfg.ProxyURL != "" {
			opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
		logger.Info("launching local headless browser")
	}

	pool := &Pool{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      logger,
		cancels:     map[int64]context.CancelFunc{},
	}

	// Startup probe. A browser that cannot load about:blank will not load
	// anything else either.
	probeCtx, probeCancel, err := pool.NewContext()
	if err != nil {
		allocCancel()
		return nil, fmt.Errorf("browser connect: %w: %v", entity.ErrBrowserUnavailable, err)
	}
	timeoutCtx, timeoutCancel := context.WithTimeout(probeCtx, cfg.ConnectTimeout)
	defer timeoutCancel()
	if err := chromedp.Run(timeoutCtx, chromedp.Navigate("about:blank")); err != nil {
		probeCancel()
		allocCancel()
		return nil, fmt.Errorf("browser connect: %w: %v", entity.ErrBrowserUnavailable, err)
	}
	probeCancel()

	logger.Info("browser pool ready")
	return pool, nil
}

// NewContext creates an isolated browsing context with the fixed
// fingerprint applied: user agent, 1920x1080 viewport, en-US locale,
// Asia/Colombo timezone. The returned cancel must be called when the
// context is done with.
func (p *Pool) NewContext() (context.Context, context.CancelFunc, error) {
	ctx, cancel := chromedp.NewContext(p.allocCtx)
	release, err := p.track(cancel)
	if err != nil {
		return nil, nil, fmt.Errorf("NewContext: %w", err)
	}

	if err := chromedp.Run(ctx,
		emulation.SetUserAgentOverride(p.cfg.UserAgent).WithAcceptLanguage("en-US"),
		emulation.SetDeviceMetricsOverride(1920, 1080, 1, false),
		emulation.SetTimezoneOverride("Asia/Colombo"),
	); err != nil {
		release()
		return nil, nil, fmt.Errorf("NewContext: fingerprint: %w", err)
	}
	return ctx, release, nil
}

// track registers a context cancel and returns a release func that forgets
// the slot before cancelling. Fresh-context sources create one context per
// page load, so spent cancels must not pile up for the life of the run.
func (p *Pool) track(cancel context.CancelFunc) (context.CancelFunc, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return nil, entity.ErrBrowserUnavailable
	}
	id := p.nextID
	p.nextID++
	p.cancels[id] = cancel
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.cancels, id)
		p.mu.Unlock()
		cancel()
	}, nil
}

// Close tears down every open browsing context and the allocator.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, cancel := range p.cancels {
		cancel()
		delete(p.cancels, id)
	}
	p.allocCancel()
	p.logger.Info("browser pool closed")
}
