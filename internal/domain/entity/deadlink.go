package entity

import "time"

// Dead link retry backoff schedule, indexed by retry_count.
// A link that has failed retryCount times is suppressed for the
// corresponding duration after its first failure. At MaxDeadLinkRetries
// the link is suppressed permanently.
var DeadLinkBackoff = []time.Duration{
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// MaxDeadLinkRetries is the retry count at which a dead link becomes
// permanently suppressed.
const MaxDeadLinkRetries = 3

// DeadLink records a URL that failed to scrape, together with the failure
// classification and how many times a retry has failed since.
type DeadLink struct {
	ID            int64
	SourceID      int64
	URL           string
	ErrorType     ScrapeErrorKind
	RetryCount    int
	FirstFailedAt time.Time
	LastCheckedAt time.Time
}

// Suppressed reports whether the link should be excluded from discovery at
// the given instant.
func (d *DeadLink) Suppressed(now time.Time) bool {
	if d.RetryCount >= MaxDeadLinkRetries {
		return true
	}
	idx := d.RetryCount
	if idx >= len(DeadLinkBackoff) {
		idx = len(DeadLinkBackoff) - 1
	}
	return now.Before(d.FirstFailedAt.Add(DeadLinkBackoff[idx]))
}
