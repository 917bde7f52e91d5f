package entity

import (
	"fmt"
	"time"
)

// Source represents a news site registered for ingestion.
// The slug is the stable identifier that links the database row to the
// per-source extraction profile loaded from sources.yaml.
type Source struct {
	ID            int64
	Slug          string
	Name          string
	BaseURL       string
	FeedURL       string
	Language      string
	Priority      int
	RateLimitMS   int
	MaxConcurrent int
	Active        bool
	FreshContext  bool
	LastScrapedAt *time.Time
	CreatedAt     time.Time
}

// NeedsFreshContext reports whether every page load for this source should
// use an isolated browser context. Set explicitly via the fresh_context
// profile flag for sources behind per-session challenges. Sources without a
// feed are discovered by crawling listing pages and tend to sit behind
// interstitial challenges that poison a shared context, so they default to
// fresh contexts as well.
func (s *Source) NeedsFreshContext() bool {
	return s.FreshContext || s.FeedURL == ""
}

// Validate validates the Source entity fields.
func (s *Source) Validate() error {
	if s.Slug == "" {
		return &ValidationError{Field: "slug", Message: "must not be empty"}
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if s.BaseURL == "" {
		return &ValidationError{Field: "base_url", Message: "must not be empty"}
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("invalid max_concurrent for %s: %d (must be >= 1)", s.Slug, s.MaxConcurrent)
	}
	return nil
}
