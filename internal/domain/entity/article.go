// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, Source, and DeadLink,
// along with their validation rules and domain-specific errors.
package entity

import "time"

// Article represents a scraped news article in the system.
// It contains the article's content, extraction metadata, and the relationship
// to the source it was scraped from. Review fields (QA status, category,
// summary) are written by a downstream pipeline and are opaque to ingestion.
type Article struct {
	ID          int64
	SourceID    int64
	URL         string
	Title       string
	Content     string
	Excerpt     *string
	Author      *string
	ImageURL    *string
	Language    string
	PublishedAt time.Time
	ScrapedAt   time.Time
	CreatedAt   time.Time

	// Populated by the review pipeline, never by ingestion.
	QAStatus   *string
	QAScore    *int
	Category   *string
	Summary    *string
	ReviewedAt *time.Time
}

// Validate validates the Article entity fields required for insertion.
func (a *Article) Validate() error {
	if a.SourceID == 0 {
		return &ValidationError{Field: "source_id", Message: "must be set"}
	}
	if a.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if a.PublishedAt.IsZero() {
		return &ValidationError{Field: "published_at", Message: "must be set"}
	}
	return nil
}
