// Package discover finds article candidates before any browser work happens.
// The feed path runs over plain HTTP with reliability patterns; listing,
// archive, and sweep discovery drive the browser and live in the backfill
// usecase.
package discover

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"newswire/internal/domain/entity"
	"newswire/internal/resilience/circuitbreaker"
	"newswire/internal/resilience/retry"
)

// FeedFetcher discovers candidates from an RSS/Atom feed.
// It includes circuit breaker and retry logic for improved reliability.
type FeedFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	logger         *slog.Logger
}

// NewFeedFetcher creates a FeedFetcher with the given HTTP client.
func NewFeedFetcher(client *http.Client, logger *slog.Logger) *FeedFetcher {
	return &FeedFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		logger:         logger,
	}
}

// Fetch retrieves and parses a feed, returning one candidate per usable
// entry. Entries older than minYear are dropped: news feeds on these sites
// sometimes resurface years-old items after template changes.
func (f *FeedFetcher) Fetch(ctx context.Context, feedURL string, minYear int) ([]entity.Candidate, error) {
	var candidates []entity.Candidate

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL, minYear)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				f.logger.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		candidates = cbResult.([]entity.Candidate)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return candidates, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *FeedFetcher) doFetch(ctx context.Context, feedURL string, minYear int) ([]entity.Candidate, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "NewswireBot"
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]entity.Candidate, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := it.Link
		if link == "" {
			link = it.GUID
		}
		if link == "" {
			continue
		}

		published := it.PublishedParsed
		if published == nil {
			published = it.UpdatedParsed
		}
		if published != nil && published.Year() < minYear {
			continue
		}

		hint := it.Published
		if hint == "" {
			hint = it.Updated
		}

		candidates = append(candidates, entity.Candidate{
			URL:           link,
			Title:         it.Title,
			PublishedHint: hint,
			ImageURL:      feedItemImage(it),
		})
	}
	return candidates, nil
}

// feedItemImage pulls an image URL from the entry. These feeds rarely carry
// proper media elements; the usual place is an <img> inside the description
// HTML.
func feedItemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	desc := it.Description
	if desc == "" {
		desc = it.Content
	}
	if desc == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(desc))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	if !strings.HasPrefix(src, "http") {
		return ""
	}
	return src
}
