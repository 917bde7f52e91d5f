// Package config loads per-source extraction profiles from sources.yaml.
// A profile carries the CSS selectors, URL patterns, and backfill settings
// for one news site. New sources are added by editing the YAML file; no code
// change is needed.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Selectors holds CSS selector cascades for each extracted field.
// Selectors are tried in order; the first matching element wins.
type Selectors struct {
	Title   []string `yaml:"title"`
	Content []string `yaml:"content"`
	Date    []string `yaml:"date"`
	Author  []string `yaml:"author"`
	Image   []string `yaml:"image"`
}

// Section describes one site section used for discovery and archive
// pagination. ArchivePattern contains a {page} placeholder.
type Section struct {
	ListingURL     string `yaml:"listing_url"`
	ArchivePattern string `yaml:"archive_pattern"`
	MaxPages       int    `yaml:"max_pages"`
	PageStart      int    `yaml:"page_start"`
	PageStep       int    `yaml:"page_step"`
}

// NIDSweep configures an exhaustive numeric-ID sweep. URLPattern contains a
// {nid} placeholder.
type NIDSweep struct {
	URLPattern        string `yaml:"url_pattern"`
	Start             int    `yaml:"start"`
	End               int    `yaml:"end"`
	MaxConsecutive404 int    `yaml:"max_consecutive_404"`
}

// DateSweep configures a calendar-based archive sweep. URLPattern contains a
// {date} placeholder formatted with DateFormat (Go reference layout).
type DateSweep struct {
	URLPattern string `yaml:"url_pattern"`
	DateFormat string `yaml:"date_format"`
	StartDate  string `yaml:"start_date"`
}

// Scheduling carries the per-source scheduler knobs.
type Scheduling struct {
	Priority       int `yaml:"priority"`
	RateLimitMS    int `yaml:"rate_limit_ms"`
	MaxConcurrency int `yaml:"max_concurrency"`
}

// SourceProfile is the full configuration for one source, keyed by slug.
type SourceProfile struct {
	Name               string             `yaml:"name"`
	BaseURL            string             `yaml:"base_url"`
	FeedURL            string             `yaml:"feed_url"`
	Language           string             `yaml:"language"`
	Selectors          *Selectors         `yaml:"selectors"`
	DateMetaTags       []string           `yaml:"date_meta_tags"`
	ArticleURLPatterns []string           `yaml:"article_url_patterns"`
	SkipURLPatterns    []string           `yaml:"skip_url_patterns"`
	Sections           map[string]Section `yaml:"sections"`
	NIDSweeps          []NIDSweep         `yaml:"nid_sweep"`
	DateSweep          *DateSweep         `yaml:"date_sweep"`
	Scheduling         Scheduling         `yaml:"scheduling"`
	MinFeedYear        int                `yaml:"min_feed_year"`
	FreshContext       bool               `yaml:"fresh_context"`

	slug     string
	skipRes  []*regexp.Regexp
	matchRes []*regexp.Regexp
}

// Sources is the immutable set of loaded profiles.
type Sources struct {
	profiles map[string]*SourceProfile
}

// Fallbacks applied when a profile omits a field.
var (
	defaultSelectors = Selectors{
		Title:   []string{"h1.article-title", "article h1", "h1"},
		Content: []string{"article .entry-content", ".article-body", ".article-content", "article"},
		Date:    []string{"time[datetime]", ".publish-date", ".article-date"},
		Author:  []string{".author-name", ".byline", `[rel="author"]`},
		Image:   []string{".article-image img", "article img"},
	}
	defaultDateMetaTags = []string{
		"article:published_time", "og:article:published_time",
		"datePublished", "publishedTime",
	}
)

const (
	defaultMaxPages       = 40
	defaultPageStart      = 1
	defaultPageStep       = 1
	defaultRateLimitMS    = 500
	defaultMaxConcurrency = 2
	defaultMinFeedYear    = 2025
)

// Load reads and validates sources.yaml from the given path.
// Regex patterns are compiled once here; the returned value is read-only.
func Load(path string) (*Sources, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return Parse(raw)
}

// Parse builds the profile set from raw YAML.
func Parse(raw []byte) (*Sources, error) {
	profiles := map[string]*SourceProfile{}
	if err := yaml.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}

	for slug, p := range profiles {
		if p == nil {
			return nil, fmt.Errorf("Parse: source %q has no body", slug)
		}
		p.slug = slug
		if p.Name == "" {
			return nil, fmt.Errorf("Parse: source %q: name is required", slug)
		}
		if p.BaseURL == "" {
			return nil, fmt.Errorf("Parse: source %q: base_url is required", slug)
		}
		if p.Selectors == nil {
			sel := defaultSelectors
			p.Selectors = &sel
		} else {
			// Per-field merge: a profile overrides only the cascades it names.
			if len(p.Selectors.Title) == 0 {
				p.Selectors.Title = defaultSelectors.Title
			}
			if len(p.Selectors.Content) == 0 {
				p.Selectors.Content = defaultSelectors.Content
			}
			if len(p.Selectors.Date) == 0 {
				p.Selectors.Date = defaultSelectors.Date
			}
			if len(p.Selectors.Author) == 0 {
				p.Selectors.Author = defaultSelectors.Author
			}
			if len(p.Selectors.Image) == 0 {
				p.Selectors.Image = defaultSelectors.Image
			}
		}
		if len(p.DateMetaTags) == 0 {
			p.DateMetaTags = defaultDateMetaTags
		}
		if p.Scheduling.RateLimitMS == 0 {
			p.Scheduling.RateLimitMS = defaultRateLimitMS
		}
		if p.Scheduling.MaxConcurrency == 0 {
			p.Scheduling.MaxConcurrency = defaultMaxConcurrency
		}
		if p.MinFeedYear == 0 {
			p.MinFeedYear = defaultMinFeedYear
		}
		for name, sec := range p.Sections {
			if sec.MaxPages == 0 {
				sec.MaxPages = defaultMaxPages
			}
			if sec.PageStart == 0 {
				sec.PageStart = defaultPageStart
			}
			if sec.PageStep == 0 {
				sec.PageStep = defaultPageStep
			}
			p.Sections[name] = sec
		}
		if p.DateSweep != nil {
			if p.DateSweep.DateFormat == "" {
				p.DateSweep.DateFormat = "2006-01-02"
			}
			if _, err := time.Parse("2006-01-02", p.DateSweep.StartDate); err != nil {
				return nil, fmt.Errorf("Parse: source %q: date_sweep.start_date: %w", slug, err)
			}
		}
		for _, pat := range p.SkipURLPatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("Parse: source %q: skip_url_patterns: %w", slug, err)
			}
			p.skipRes = append(p.skipRes, re)
		}
		for _, pat := range p.ArticleURLPatterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("Parse: source %q: article_url_patterns: %w", slug, err)
			}
			p.matchRes = append(p.matchRes, re)
		}
	}
	return &Sources{profiles: profiles}, nil
}

// Get returns the profile for a slug, or nil when unknown.
func (s *Sources) Get(slug string) *SourceProfile {
	return s.profiles[slug]
}

// Slugs returns all configured source slugs.
func (s *Sources) Slugs() []string {
	out := make([]string, 0, len(s.profiles))
	for slug := range s.profiles {
		out = append(out, slug)
	}
	return out
}

// Slug returns the profile's own slug.
func (p *SourceProfile) Slug() string { return p.slug }

// ListingURLs returns the listing pages used for discovery.
func (p *SourceProfile) ListingURLs() []string {
	var urls []string
	for _, sec := range p.Sections {
		if sec.ListingURL != "" {
			urls = append(urls, sec.ListingURL)
		}
	}
	return urls
}

// ArchiveSections returns the sections that define an archive pattern.
func (p *SourceProfile) ArchiveSections() map[string]Section {
	out := map[string]Section{}
	for name, sec := range p.Sections {
		if sec.ArchivePattern != "" {
			out[name] = sec
		}
	}
	return out
}

// SkipsURL reports whether the URL matches a source-level skip pattern.
func (p *SourceProfile) SkipsURL(url string) bool {
	for _, re := range p.skipRes {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// MatchesArticleURL reports whether the URL matches a configured article
// pattern. When no patterns are configured the structural heuristic in the
// listing extractor applies instead, and this returns false.
func (p *SourceProfile) MatchesArticleURL(url string) bool {
	for _, re := range p.matchRes {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// RateLimit returns the minimum interval between page loads.
func (p *SourceProfile) RateLimit() time.Duration {
	return time.Duration(p.Scheduling.RateLimitMS) * time.Millisecond
}
