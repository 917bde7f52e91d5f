package scraper

import (
	"regexp"
	"strings"
)

// Byline and dateline boilerplate that wire services prepend to article
// bodies. Stripped after normalization so the stored content starts with the
// actual story.
var (
	// "By Author Name\n", "By Author Colombo, ...", "By D.G. Sugathapala".
	// The second group is the terminator: a newline is consumed with the
	// byline, a "Colombo"/all-caps continuation belongs to the story.
	bylineRe = regexp.MustCompile(`^By\s+([A-Za-z][A-Za-z. ]+?)(\s*\n|\s+Colombo|\s+[A-Z]{2,})`)

	// "Colombo, Feb. 13 (Daily Mirror) -" / "Colombo, 14th February (DailyMirror) -"
	datelineColomboRe = regexp.MustCompile(`(?i)^Colombo,?\s+.{0,60}?\((?:Daily\s?Mirror|DailyMirror|Mirror\s+Sports)\)\s*-?\s*`)

	// "Feb.14 (Mirror Sports) -" / "Feb.13 -" with no city prefix.
	datelineShortRe = regexp.MustCompile(`(?i)^(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s*\d{1,2}(?:st|nd|rd|th)?(?:\s*\((?:Daily\s?Mirror|DailyMirror|Mirror\s+Sports)\))?\s*-\s*`)

	// "COLOMBO (News 1st);" / "COLOMBO (News1st):"
	datelineNews1stRe = regexp.MustCompile(`(?i)^COLOMBO\s*\(News\s?1st\)\s*[;:–-]\s*`)

	authorPrefixRe   = regexp.MustCompile(`^[Bb]y\s+`)
	authorTrailingRe = regexp.MustCompile(`\s*\d{1,2}[-/]\d{1,2}[-/]\d{4}.*$`)

	excerptSkipRe = regexp.MustCompile(`(?i)^(By\s+[A-Z]|Photo\s*:|Pic\s*:|Image\s*:|Courtesy\s*:|Colombo,?\s|COLOMBO\s*\(|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s*\d)`)
)

const excerptMaxLen = 300

// cleanAuthor strips a "by " prefix and trailing date artifacts, e.g.
// "by Zulfick Farzan 14-02-2026 | 3:44 AM" becomes "Zulfick Farzan".
// Returns "" when nothing remains.
func cleanAuthor(author string) string {
	author = authorPrefixRe.ReplaceAllString(author, "")
	author = authorTrailingRe.ReplaceAllString(author, "")
	return strings.TrimSpace(author)
}

// stripByline removes a leading byline from content, returning the author
// name it carried and the remaining content.
func stripByline(content string) (author, rest string) {
	loc := bylineRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", content
	}
	author = strings.TrimSpace(content[loc[2]:loc[3]])
	terminator := content[loc[4]:loc[5]]
	if strings.Contains(terminator, "\n") {
		return author, content[loc[5]:]
	}
	// Terminator is part of the story text, cut before it.
	return author, content[loc[4]:]
}

// stripDatelines removes leading wire-service datelines.
func stripDatelines(content string) string {
	for _, re := range []*regexp.Regexp{datelineColomboRe, datelineShortRe, datelineNews1stRe} {
		if loc := re.FindStringIndex(content); loc != nil {
			content = content[loc[1]:]
		}
	}
	return content
}

// extractExcerpt picks the first meaningful paragraph: at least 40 chars and
// not a byline, photo credit, or dateline. Falls back to the content head.
func extractExcerpt(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "![") || strings.HasPrefix(trimmed, "---") {
			continue
		}
		if len([]rune(trimmed)) < 40 {
			continue
		}
		if excerptSkipRe.MatchString(trimmed) {
			continue
		}
		return truncateRunes(trimmed, excerptMaxLen)
	}
	return truncateRunes(content, excerptMaxLen)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
