package entity

import (
	"fmt"
	"time"
)

// ScrapeErrorKind classifies a failed scrape. The set is closed: persistence
// and metrics only ever see these six values.
type ScrapeErrorKind string

const (
	ScrapeErrNotFound   ScrapeErrorKind = "404"
	ScrapeErrTimeout    ScrapeErrorKind = "timeout"
	ScrapeErrServer     ScrapeErrorKind = "500"
	ScrapeErrCloudflare ScrapeErrorKind = "cloudflare"
	ScrapeErrEmpty      ScrapeErrorKind = "empty"
	ScrapeErrUnknown    ScrapeErrorKind = "unknown"
)

// ScrapeError is the failure result of an article scrape.
type ScrapeError struct {
	Kind ScrapeErrorKind
	URL  string
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %s", e.URL, e.Kind)
}

// Candidate is a discovered article link that has not been scraped yet.
// PublishedHint carries the raw feed publication string, if any, used as the
// last tier of date extraction.
type Candidate struct {
	URL           string
	Title         string
	PublishedHint string
	ImageURL      string
}

// ScrapedArticle is the successful result of an article scrape.
// FinalURL is the canonical URL after redirects and is the key used for
// storage and deduplication.
type ScrapedArticle struct {
	Title       string
	Content     string
	Author      string
	PublishedAt *time.Time
	ImageURL    string
	Excerpt     string
	FinalURL    string
}
