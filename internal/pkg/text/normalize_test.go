package text

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"html entities", "AT&amp;T &amp; Google", "AT&T & Google"},
		{"numeric entity", "It&#8217;s done", "It’s done"},
		{"whitespace collapse", "  too \t many\n\nspaces  ", "too many spaces"},
		{"mojibake quote", "the countryÃ¢â‚Â¬â„¢s economy", "the country’s economy"},
		{"plain passthrough", "already clean", "already clean"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	input := "  AT&amp;T   said so  "
	once := Normalize(input)
	if twice := Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q != %q", twice, once)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips punctuation and spaces", "Article #123", "article123"},
		{"lowercases", "Sri Lanka Wins", "srilankawins"},
		{"keeps digits", "Budget 2026: What Changed", "budget2026whatchanged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitlePunctuationInsensitive(t *testing.T) {
	a := NormalizeTitle("Sri Lanka's Economy Shows Growth!")
	b := NormalizeTitle("Sri Lanka's Economy Shows Growth?")
	if a != b {
		t.Errorf("titles differing only in punctuation should collapse: %q != %q", a, b)
	}
}

func TestNormalizeTitlePreservesJoiners(t *testing.T) {
	// "ශ්‍රී" needs ZWJ (U+200D) to render as a conjunct. Losing it would
	// merge distinct Sinhala titles.
	withJoiner := "ශ්‍රී ලංකාව"
	got := NormalizeTitle(withJoiner)
	found := false
	for _, r := range got {
		if r == '\u200D' {
			found = true
		}
	}
	if !found {
		t.Errorf("NormalizeTitle(%q) = %q, ZWJ was stripped", withJoiner, got)
	}
}
