// Package scraper drives a browsing context to extract article content and
// discover article links. It is pure with respect to the database and the
// dead-link registry: callers decide what to do with a classified failure.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/pkg/text"
)

const (
	navigateTimeout    = 30 * time.Second
	articleSettle      = 2 * time.Second
	listingSettle      = 3 * time.Second
	interstitialPolls  = 10
	interstitialPause  = 1 * time.Second
	minContentLen      = 100
	interstitialMarker = "just a moment"
)

// Scraper extracts articles and listing links from pages loaded in a
// caller-provided browsing context.
type Scraper struct {
	logger *slog.Logger
}

// New creates a Scraper.
func New(logger *slog.Logger) *Scraper {
	return &Scraper{logger: logger}
}

// ScrapeArticle loads one article page and extracts its fields. Failures are
// returned as *entity.ScrapeError with one of the closed set of kinds; any
// other error means the browsing context itself is broken.
func (s *Scraper) ScrapeArticle(browserCtx context.Context, url, feedHint string, profile *config.SourceProfile) (*entity.ScrapedArticle, error) {
	ctx, cancel := context.WithTimeout(browserCtx, navigateTimeout)
	defer cancel()

	if err := s.load(ctx, url, articleSettle); err != nil {
		return nil, err
	}

	expr, err := buildExtractExpr(profile)
	if err != nil {
		return nil, err
	}

	var finalURL string
	var res extractResult
	if err := chromedp.Run(ctx,
		chromedp.Location(&finalURL),
		chromedp.Evaluate(expr, &res),
	); err != nil {
		return nil, classifyRunError(ctx, url, err)
	}

	if utf8.RuneCountInString(res.Content) < minContentLen {
		return nil, &entity.ScrapeError{Kind: entity.ScrapeErrEmpty, URL: url}
	}

	publishedAt := text.ExtractDateWaterfall(res.DateStr, res.DateStr, url, res.BodyText, feedHint)

	content := text.Normalize(res.Content)
	title := text.Normalize(res.Title)
	author := cleanAuthor(text.Normalize(res.Author))

	if bylineAuthor, rest := stripByline(content); bylineAuthor != "" {
		if author == "" {
			author = bylineAuthor
		}
		content = rest
	}
	content = stripDatelines(content)

	return &entity.ScrapedArticle{
		Title:       title,
		Content:     content,
		Author:      author,
		PublishedAt: publishedAt,
		ImageURL:    res.ImageURL,
		Excerpt:     extractExcerpt(content),
		FinalURL:    finalURL,
	}, nil
}

// load navigates to the URL, waits for the page to settle, and rides out a
// bot-check interstitial if one appears. The HTTP status of the navigation
// classifies hard failures.
func (s *Scraper) load(ctx context.Context, url string, settle time.Duration) error {
	resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(url))
	if err != nil {
		return classifyRunError(ctx, url, err)
	}
	if resp != nil {
		if kind, ok := classifyStatus(resp.Status); ok {
			return &entity.ScrapeError{Kind: kind, URL: url}
		}
	}

	if err := chromedp.Run(ctx, chromedp.Sleep(settle)); err != nil {
		return classifyRunError(ctx, url, err)
	}

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return classifyRunError(ctx, url, err)
	}
	if !isInterstitial(title) {
		return nil
	}

	s.logger.Info("bot-check interstitial detected, waiting", slog.String("url", url))
	for i := 0; i < interstitialPolls; i++ {
		if err := chromedp.Run(ctx, chromedp.Sleep(interstitialPause), chromedp.Title(&title)); err != nil {
			return classifyRunError(ctx, url, err)
		}
		if !isInterstitial(title) {
			return nil
		}
	}
	return &entity.ScrapeError{Kind: entity.ScrapeErrCloudflare, URL: url}
}

func isInterstitial(title string) bool {
	return strings.Contains(strings.ToLower(title), interstitialMarker)
}

// classifyStatus maps an HTTP status to a scrape error kind. 404 and 5xx are
// dead-link material; everything else proceeds to extraction.
func classifyStatus(status int64) (entity.ScrapeErrorKind, bool) {
	switch {
	case status == 404:
		return entity.ScrapeErrNotFound, true
	case status >= 500:
		return entity.ScrapeErrServer, true
	default:
		return "", false
	}
}

// classifyRunError separates page timeouts from context teardown. A deadline
// on the per-page timeout is a scrape failure for this URL; a cancelled
// parent context propagates as-is so the caller can stop the run.
func classifyRunError(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.Canceled) {
		return &entity.ScrapeError{Kind: entity.ScrapeErrTimeout, URL: url}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &entity.ScrapeError{Kind: entity.ScrapeErrUnknown, URL: url}
}
