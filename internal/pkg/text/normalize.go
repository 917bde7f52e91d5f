// Package text provides normalization, deduplication keys, language
// detection, and publication date extraction for scraped article content.
// Sinhala script needs special care: conjunct consonants depend on NFC
// composition and on the ZWJ/ZWNJ joiners, so both are preserved throughout.
package text

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Double-encoded UTF-8 artifacts (mojibake) seen in feed descriptions.
var mojibakeReplacer = strings.NewReplacer(
	"Ã¢â‚Â¬â„¢", "’", // right single quote
	"Ã¢â‚Â¬â€”", "—", // em dash
	"Ã¢â‚Â¬Â¦", "…", // ellipsis
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize cleans scraped text for storage.
//
// Steps, in order: NFC composition (required for Sinhala conjuncts),
// HTML entity decoding, mojibake repair, whitespace collapse.
// The function is idempotent.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = html.UnescapeString(s)
	s = mojibakeReplacer.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeTitle reduces a title to its deduplication key: NFC composed,
// lowercased, with everything except letters, digits, underscore, and the
// ZWJ/ZWNJ joiners removed. Stripping the joiners would corrupt Sinhala
// conjuncts, so they stay.
func NormalizeTitle(title string) string {
	title = strings.ToLower(norm.NFC.String(title))
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\u200C' || r == '\u200D' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
