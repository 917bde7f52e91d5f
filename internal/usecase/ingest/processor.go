package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"newswire/internal/domain/entity"
	"newswire/internal/observability/metrics"
	"newswire/internal/pkg/text"
	"newswire/internal/scheduler"
)

// Process handles one candidate: scrape, dead-link bookkeeping, the no-date
// gate, and the title re-check plus insert under the persistence lock.
// It implements scheduler.Processor.
func (s *Service) Process(ctx context.Context, source *entity.Source, item entity.Candidate, pageCtx context.Context) scheduler.Outcome {
	start := time.Now()
	slug := source.Slug
	profile := s.deps.Profiles.Get(slug)

	scraped, err := s.deps.Scraper.ScrapeArticle(pageCtx, item.URL, item.PublishedHint, profile)
	if err != nil {
		return s.recordFailure(ctx, source, item, err, start)
	}

	// The URL works again; a past failure no longer counts against it.
	if err := s.deps.DeadLinks.Remove(ctx, item.URL); err != nil {
		s.logger.Warn("dead link remove failed",
			slog.String("url", item.URL), slog.Any("error", err))
	}

	title := scraped.Title
	if title == "" {
		title = text.Normalize(item.Title)
	}

	if scraped.PublishedAt == nil {
		s.logger.Warn("no publish date, skipped",
			slog.String("source", slug), slog.String("url", item.URL))
		metrics.RecordScrape(slug, metrics.ResultSkippedNoDate, time.Since(start))
		return scheduler.Outcome{NoDate: true}
	}

	article := s.buildArticle(source, item, scraped, title)

	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if key := titleKey(item.Title); key != "" && s.titles[slug][key] {
		metrics.RecordScrape(slug, metrics.ResultSkippedDuplicate, time.Since(start))
		return scheduler.Outcome{Duplicate: true}
	}

	_, inserted, err := s.deps.Articles.Insert(ctx, article)
	if err != nil {
		s.logger.Error("insert failed",
			slog.String("source", slug), slog.String("url", item.URL), slog.Any("error", err))
		metrics.RecordScrape(slug, metrics.ResultError, time.Since(start))
		return scheduler.Outcome{ErrorKind: entity.ScrapeErrUnknown}
	}
	if !inserted {
		metrics.RecordScrape(slug, metrics.ResultSkippedDuplicate, time.Since(start))
		return scheduler.Outcome{Duplicate: true}
	}

	if key := titleKey(item.Title); key != "" {
		if s.titles[slug] == nil {
			s.titles[slug] = map[string]bool{}
		}
		s.titles[slug][key] = true
	}
	if s.urls[slug] == nil {
		s.urls[slug] = map[string]bool{}
	}
	s.urls[slug][item.URL] = true

	s.logger.Info("article inserted",
		slog.String("source", slug),
		slog.String("title", truncate(title, 60)),
		slog.Int("content_len", len(scraped.Content)))
	metrics.RecordScrape(slug, metrics.ResultInserted, time.Since(start))
	return scheduler.Outcome{Inserted: true}
}

func (s *Service) recordFailure(ctx context.Context, source *entity.Source, item entity.Candidate, err error, start time.Time) scheduler.Outcome {
	slug := source.Slug
	var scrapeErr *entity.ScrapeError
	if !errors.As(err, &scrapeErr) {
		// Context teardown or a broken browsing context.
		s.logger.Error("scrape failed",
			slog.String("source", slug), slog.String("url", item.URL), slog.Any("error", err))
		metrics.RecordScrape(slug, metrics.ResultError, time.Since(start))
		return scheduler.Outcome{ErrorKind: entity.ScrapeErrUnknown}
	}

	s.logger.Warn("scrape failed",
		slog.String("source", slug),
		slog.String("url", item.URL),
		slog.String("kind", string(scrapeErr.Kind)))
	if recordErr := s.deps.DeadLinks.Record(ctx, source.ID, scrapeErr.URL, scrapeErr.Kind); recordErr != nil {
		s.logger.Warn("dead link record failed",
			slog.String("url", scrapeErr.URL), slog.Any("error", recordErr))
	} else {
		metrics.RecordDeadLink(slug, scrapeErr.Kind)
	}
	metrics.RecordScrapeError(slug, scrapeErr.Kind)
	metrics.RecordScrape(slug, metrics.ResultError, time.Since(start))
	return scheduler.Outcome{ErrorKind: scrapeErr.Kind}
}

func (s *Service) buildArticle(source *entity.Source, item entity.Candidate, scraped *entity.ScrapedArticle, title string) *entity.Article {
	language := source.Language
	if language == "" {
		language = text.DetectLanguage(scraped.Content)
	}
	imageURL := scraped.ImageURL
	if imageURL == "" {
		imageURL = item.ImageURL
	}
	return &entity.Article{
		SourceID:    source.ID,
		URL:         item.URL,
		Title:       title,
		Content:     scraped.Content,
		Excerpt:     optional(scraped.Excerpt),
		Author:      optional(scraped.Author),
		ImageURL:    optional(imageURL),
		Language:    language,
		PublishedAt: *scraped.PublishedAt,
		ScrapedAt:   time.Now(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
