package ingest

import (
	"regexp"
	"unicode/utf8"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
	"newswire/internal/pkg/text"
)

// skipURLRe rejects URLs that are never articles regardless of source:
// static assets, feed and print endpoints, taxonomy paths, and the section
// landing pages themselves.
var skipURLRe = regexp.MustCompile(`(?i)(\.(jpg|jpeg|png|gif|svg|webp|pdf)$` +
	`|/feed/?$` +
	`|/print/?$` +
	`|/wp-content/uploads/` +
	`|/(category|tag|author|page)/` +
	`|/(hot-news|news_archive|sports|entertainment-news)/?$` +
	`|/\?mode=(beauti|head))`)

// ShouldSkipURL reports whether the URL matches the global skip set.
func ShouldSkipURL(url string) bool {
	return skipURLRe.MatchString(url)
}

// minTitleKeyLen guards title dedup against short normalized titles, which
// collide too easily to be trusted as identity.
const minTitleKeyLen = 10

// titleKey returns the dedup key for a raw title, or "" when the title is
// too short to be used as one.
func titleKey(title string) string {
	norm := text.NormalizeTitle(title)
	if utf8.RuneCountInString(norm) <= minTitleKeyLen {
		return ""
	}
	return norm
}

// filterCandidates drops candidates that would be wasted page loads: already
// stored, dead-suppressed, recently seen titles, or skip-pattern URLs.
// Order is preserved; at most limit candidates are considered.
func filterCandidates(items []entity.Candidate, limit int, existing, dead, recentTitles map[string]bool, profile *config.SourceProfile) []entity.Candidate {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	filtered := make([]entity.Candidate, 0, len(items))
	for _, item := range items {
		if existing[item.URL] || dead[item.URL] {
			continue
		}
		if key := titleKey(item.Title); key != "" && recentTitles[key] {
			continue
		}
		if ShouldSkipURL(item.URL) {
			continue
		}
		if profile != nil && profile.SkipsURL(item.URL) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

// titleSet builds a dedup set from already-normalized titles, dropping keys
// below the length threshold.
func titleSet(normalized []string) map[string]bool {
	set := make(map[string]bool, len(normalized))
	for _, t := range normalized {
		if utf8.RuneCountInString(t) > minTitleKeyLen {
			set[t] = true
		}
	}
	return set
}
