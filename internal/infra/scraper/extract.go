package scraper

import (
	"encoding/json"
	"fmt"

	"newswire/internal/config"
)

// extractJS runs once per article page and pulls every field in a single
// round trip. Selector cascades and meta tag names come from the source
// profile; the script itself is source-agnostic.
const extractJS = `(params) => {
    const { sel, dateMetaTags, authorMetaTags } = params;

    function trySelectors(selectors) {
        for (const css of selectors) {
            if (css.startsWith('meta[')) {
                const el = document.querySelector(css);
                if (el?.content?.trim()) return el.content.trim();
                continue;
            }
            const el = document.querySelector(css);
            if (el && el.textContent && el.textContent.trim().length > 0) {
                return el.textContent.trim();
            }
        }
        return '';
    }

    function trySelectorsAttr(selectors, attr) {
        for (const css of selectors) {
            const el = document.querySelector(css);
            if (el) {
                const val = el.getAttribute(attr);
                if (val) return val.trim();
            }
        }
        return '';
    }

    const metas = {};
    document.querySelectorAll('meta').forEach((m) => {
        const name = m.getAttribute('property') || m.getAttribute('name') || '';
        const content = m.getAttribute('content') || '';
        if (name && content) metas[name] = content;
    });

    const title = trySelectors(sel.title) || metas['og:title'] || '';

    let author = '';
    for (const key of authorMetaTags) {
        if (metas[key]) { author = metas[key]; break; }
    }
    if (!author) author = trySelectors(sel.author);

    // Some sites embed the author in the first content paragraphs as
    // <p><em><strong>By Author</strong></em></p> with no dedicated markup.
    if (!author) {
        const contentEl = document.querySelector('.a-content, .article-body, .entry-content, article');
        if (contentEl) {
            const paras = contentEl.querySelectorAll('p');
            for (let i = 0; i < Math.min(paras.length, 5); i++) {
                const txt = paras[i].textContent?.trim();
                if (txt) {
                    const m = txt.match(/^By\s+([A-Z][A-Za-z. ]+?)(?:\s*$|\s+(?:Colombo|[A-Z]{2,}))/);
                    if (m) { author = m[1].trim(); break; }
                }
            }
        }
    }

    let dateStr = '';
    for (const key of dateMetaTags) {
        if (metas[key]) { dateStr = metas[key]; break; }
    }
    if (!dateStr) dateStr = trySelectorsAttr(sel.date, 'datetime');
    if (!dateStr) dateStr = trySelectors(sel.date);

    // Publish date rendered as a link with a hidden "Published :" span.
    if (!dateStr) {
        const pubLinks = document.querySelectorAll('a.text-decoration-none');
        for (const a of pubLinks) {
            const span = a.querySelector('span');
            if (span && /Published/i.test(span.textContent)) {
                dateStr = a.textContent.replace(/Published\s*:\s*/i, '').trim();
                break;
            }
        }
    }

    // Clone the element and strip scripts/nav/ad nodes before reading text
    // so the live DOM is untouched.
    function cleanTextContent(el) {
        const clone = el.cloneNode(true);
        clone.querySelectorAll('script, style, noscript, iframe, nav, header, footer, aside, .navbar, .navigation, .menu, .google-auto-placed, .adsbygoogle, [id*="google_ads"], [class*="social"], .share-buttons, .comments-section, .fotorama, figure figcaption').forEach(n => n.remove());
        return clone.textContent?.trim() || '';
    }

    let content = '';
    for (const css of sel.content) {
        const el = document.querySelector(css);
        if (el) {
            const cleaned = cleanTextContent(el);
            if (cleaned.length > 200) {
                content = cleaned;
                break;
            }
        }
    }
    if (!content) content = cleanTextContent(document.body) || '';

    const imageUrl = metas['og:image']
        || trySelectorsAttr(sel.image, 'src')
        || (document.querySelector('article img'))?.src
        || '';

    // Body snippet for the date fallback. Narrow to the article area first
    // so nav and ad text do not consume the char budget.
    const articleArea = document.querySelector('.news_body_areas, .news-content, article, main');
    const bodySource = articleArea || document.body;
    const bodyClone = bodySource.cloneNode(true);
    bodyClone.querySelectorAll('script, style, noscript, nav, header, footer, aside, .google-auto-placed, .adsbygoogle').forEach(n => n.remove());
    const bodyText = bodyClone.textContent?.trim().slice(0, 3000) || '';

    return { title, author, dateStr, content, imageUrl, bodyText };
}`

var authorMetaTags = []string{"author", "article:author"}

type selectorParams struct {
	Title   []string `json:"title"`
	Author  []string `json:"author"`
	Date    []string `json:"date"`
	Content []string `json:"content"`
	Image   []string `json:"image"`
}

type extractParams struct {
	Sel            selectorParams `json:"sel"`
	DateMetaTags   []string       `json:"dateMetaTags"`
	AuthorMetaTags []string       `json:"authorMetaTags"`
}

// extractResult mirrors the object returned by extractJS.
type extractResult struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	DateStr  string `json:"dateStr"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
	BodyText string `json:"bodyText"`
}

// buildExtractExpr binds a profile's selectors into a self-invoking
// extraction expression.
func buildExtractExpr(profile *config.SourceProfile) (string, error) {
	params := extractParams{
		Sel: selectorParams{
			Title:   profile.Selectors.Title,
			Author:  profile.Selectors.Author,
			Date:    profile.Selectors.Date,
			Content: profile.Selectors.Content,
			Image:   profile.Selectors.Image,
		},
		DateMetaTags:   profile.DateMetaTags,
		AuthorMetaTags: authorMetaTags,
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("buildExtractExpr: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", extractJS, raw), nil
}
