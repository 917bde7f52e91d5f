package repository

import (
	"context"

	"newswire/internal/domain/entity"
)

// SourceArticleStats summarizes stored articles for one source.
type SourceArticleStats struct {
	SourceID     int64
	SourceName   string
	ArticleCount int64
	OldestAt     *string
	NewestAt     *string
}

type ArticleRepository interface {
	// Insert stores an article, ignoring URL conflicts.
	// Returns the new row ID and true when a row was inserted, or
	// (0, false) when the URL already existed.
	Insert(ctx context.Context, article *entity.Article) (int64, bool, error)
	// ExistingURLs returns the subset of urls already stored for the source.
	ExistingURLs(ctx context.Context, sourceID int64, urls []string) (map[string]bool, error)
	// AllURLs returns every stored URL for the source. Used to pre-filter
	// exhaustive ID sweeps before any page is loaded.
	AllURLs(ctx context.Context, sourceID int64) (map[string]bool, error)
	// RecentTitles returns normalized titles of articles published within
	// the trailing window of days, for title-level deduplication.
	RecentTitles(ctx context.Context, sourceID int64, days int) ([]string, error)
	// CountBySource returns per-source article statistics.
	CountBySource(ctx context.Context) ([]SourceArticleStats, error)
}
