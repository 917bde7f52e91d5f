package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/chromedp/chromedp"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
)

// extractLinksJS collects candidate article links from a listing page.
// Structural filters (same origin, path depth, taxonomy paths) run in the
// page so only plausible article URLs cross the CDP boundary.
const extractLinksJS = `(params) => {
    const anchors = Array.from(document.querySelectorAll('a[href]'));
    const articleLinks = [];
    const seen = new Set();

    for (const a of anchors) {
        let href = a.href;
        const text = a.textContent?.trim() || '';

        if (!href.startsWith(params.baseUrl) && !href.startsWith('/')) continue;
        if (text.length < 10 || text.length > 300) continue;
        if (seen.has(href)) continue;

        // Navigation, taxonomy, and media links.
        if (/\/(category|tag|page|author|wp-content|feed|login)\//i.test(href)) continue;
        if (/\.(jpg|jpeg|png|gif|svg|webp|pdf)$/i.test(href)) continue;

        // Fragments (#comments, #respond) never distinguish articles.
        href = href.split('#')[0];
        if (href.endsWith('/')) href = href.slice(0, -1);
        if (seen.has(href)) continue;

        // Article URL patterns match pathname + search so query-keyed URLs
        // like news.php?nid=123 work. Without patterns, require at least
        // three path segments; shallower paths are section pages.
        let matchedByPattern = false;
        if (params.articleUrlPatterns && params.articleUrlPatterns.length > 0) {
            try {
                const url = new URL(href);
                const fullPath = url.pathname + url.search;
                matchedByPattern = params.articleUrlPatterns.some(p => new RegExp(p).test(fullPath));
                if (!matchedByPattern) continue;
            } catch { continue; }
        }
        if (!matchedByPattern && !params.hasPatterns) {
            try {
                const url = new URL(href);
                const segments = url.pathname.split('/').filter(Boolean);
                if (segments.length < 3) continue;
            } catch { continue; }
        }

        // Generic link text.
        if (/^(වැඩි විස්තර|more|comments|\(\d+\)|read more)/i.test(text)) continue;

        if (seen.has(href)) continue;
        seen.add(href);
        articleLinks.push({ url: href, title: text });
    }
    return articleLinks;
}`

type listingParams struct {
	BaseURL            string   `json:"baseUrl"`
	ArticleURLPatterns []string `json:"articleUrlPatterns"`
	HasPatterns        bool     `json:"hasPatterns"`
}

type listingLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ExtractListingLinks loads a listing page and returns the article links it
// carries. The same navigation path as article scraping applies, including
// interstitial handling, with a longer settle since listing pages lazy-load.
func (s *Scraper) ExtractListingLinks(browserCtx context.Context, pageURL string, profile *config.SourceProfile) ([]entity.Candidate, error) {
	ctx, cancel := context.WithTimeout(browserCtx, navigateTimeout)
	defer cancel()

	if err := s.load(ctx, pageURL, listingSettle); err != nil {
		return nil, err
	}

	base, err := originOf(pageURL)
	if err != nil {
		return nil, err
	}
	params := listingParams{
		BaseURL:            base,
		ArticleURLPatterns: profile.ArticleURLPatterns,
		HasPatterns:        len(profile.ArticleURLPatterns) > 0,
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("ExtractListingLinks: %w", err)
	}

	var links []listingLink
	expr := fmt.Sprintf("(%s)(%s)", extractLinksJS, raw)
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &links)); err != nil {
		return nil, classifyRunError(ctx, pageURL, err)
	}

	candidates := make([]entity.Candidate, 0, len(links))
	for _, l := range links {
		if profile.SkipsURL(l.URL) {
			continue
		}
		candidates = append(candidates, entity.Candidate{URL: l.URL, Title: l.Title})
	}
	return candidates, nil
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("originOf: %w", err)
	}
	return u.Scheme + "://" + u.Host, nil
}
