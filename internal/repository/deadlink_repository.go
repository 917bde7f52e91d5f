package repository

import (
	"context"

	"newswire/internal/domain/entity"
)

// DeadLinkStats summarizes registered dead links for one source.
type DeadLinkStats struct {
	SourceID  int64
	Total     int64
	Permanent int64
	ByKind    map[entity.ScrapeErrorKind]int64
}

type DeadLinkRepository interface {
	// Record registers a failed URL, incrementing retry_count when the URL
	// is already known.
	Record(ctx context.Context, sourceID int64, url string, kind entity.ScrapeErrorKind) error
	// Remove clears a URL from the registry after a successful scrape.
	Remove(ctx context.Context, url string) error
	// SuppressedSubset returns the subset of urls currently suppressed by
	// the backoff schedule.
	SuppressedSubset(ctx context.Context, sourceID int64, urls []string) (map[string]bool, error)
	// AllSuppressed returns every currently suppressed URL for the source.
	AllSuppressed(ctx context.Context, sourceID int64) (map[string]bool, error)
	Stats(ctx context.Context, sourceID int64) (*DeadLinkStats, error)
}
