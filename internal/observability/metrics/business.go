package metrics

import (
	"time"

	"newswire/internal/domain/entity"
)

// Scrape result labels for ScrapesTotal.
const (
	ResultInserted         = "inserted"
	ResultSkippedNoDate    = "skipped_no_date"
	ResultSkippedDuplicate = "skipped_duplicate"
	ResultError            = "error"
)

// RecordScrape records one processed candidate with its outcome and the time
// the page took.
func RecordScrape(source, result string, duration time.Duration) {
	ScrapesTotal.WithLabelValues(source, result).Inc()
	ScrapeDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordScrapeError records a scrape failure by kind.
func RecordScrapeError(source string, kind entity.ScrapeErrorKind) {
	ScrapeErrorsTotal.WithLabelValues(source, string(kind)).Inc()
}

// RecordDiscovery records discovered candidates for a source.
// Method is one of: feed, listing, archive, nid, date.
func RecordDiscovery(source, method string, count int) {
	if count <= 0 {
		return
	}
	CandidatesDiscoveredTotal.WithLabelValues(source, method).Add(float64(count))
}

// RecordDeadLink records a dead-link registry write.
func RecordDeadLink(source string, kind entity.ScrapeErrorKind) {
	DeadLinksRecordedTotal.WithLabelValues(source, string(kind)).Inc()
}

// UpdateWorkerPool updates the scheduler gauges. Called from the autoscaler
// on every tick.
func UpdateWorkerPool(active, queueDepth int) {
	WorkersActive.Set(float64(active))
	QueueDepth.Set(float64(queueDepth))
}

// UpdateArticlesTotal updates the total count of articles in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the total count of sources in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}
