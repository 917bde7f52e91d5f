package text

import "strings"

// Common Sinhala function words, used when the script ratio is inconclusive
// (e.g. short titles that are mostly Latin digits and names).
var sinhalaWords = map[string]bool{
	"සහ": true, "හා": true, "ඇති": true, "කළ": true, "බව": true,
	"මෙම": true, "ඒ": true, "අද": true, "එම": true, "නව": true,
}

// DetectLanguage reports "si" for Sinhala text and "en" otherwise.
//
// If more than 10% of the first 500 runes fall in the Sinhala Unicode block
// (U+0D80 to U+0DFF) the text is Sinhala. As a fallback, the first 50
// whitespace-separated tokens are checked against a small set of common
// Sinhala words.
func DetectLanguage(s string) string {
	runes := []rune(s)
	if len(runes) > 500 {
		runes = runes[:500]
	}
	if len(runes) == 0 {
		return "en"
	}

	sinhala := 0
	for _, r := range runes {
		if r >= 0x0D80 && r <= 0x0DFF {
			sinhala++
		}
	}
	if float64(sinhala)/float64(len(runes)) > 0.10 {
		return "si"
	}

	words := strings.Fields(s)
	if len(words) > 50 {
		words = words[:50]
	}
	for _, w := range words {
		if sinhalaWords[w] {
			return "si"
		}
	}
	return "en"
}
