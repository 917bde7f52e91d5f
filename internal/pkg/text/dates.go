package text

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Publication timestamps without an explicit zone are interpreted in the
// publisher's local time.
var colomboTZ = time.FixedZone("Asia/Colombo", 5*3600+30*60)

const minPublishedYear = 2006

const (
	monthsLong  = `January|February|March|April|May|June|July|August|September|October|November|December`
	monthsShort = `Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec`
)

var (
	// "February 4, 2026 02:39 pm"
	patLong = regexp.MustCompile(`(?i)\b(` + monthsLong + `)\s+(\d{1,2}),?\s+(\d{4})\s+(\d{1,2}:\d{2}\s*(?:am|pm)?)`)
	// "February 4, 2026"
	patDateOnly = regexp.MustCompile(`(?i)\b(` + monthsLong + `)\s+(\d{1,2}),?\s+(\d{4})\b`)
	// "2026-02-04", "2026.02.04"
	patISO = regexp.MustCompile(`\b(\d{4})[-./](\d{2})[-./](\d{2})\b`)
	// "31 January 2025 11:24 am"
	patDMYLongTime = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthsLong + `|` + monthsShort + `)\s+(\d{4})\s+(\d{1,2}:\d{2}\s*(?:am|pm))`)
	// "4 February 2026", "05 Feb 2026"
	patDMYLong = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthsLong + `|` + monthsShort + `)\s+(\d{4})\b`)
	// "04/02/2026", "4-2-2026" (day first)
	patDMY = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	// "/2026/02/04/"
	patURL = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)
)

// Layouts tried by parseStrict, in order. The RFC 1123 variants cover feed
// pubDate strings.
var strictLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func validDate(t time.Time) bool {
	if t.Year() < minPublishedYear {
		return false
	}
	return !t.After(time.Now().In(t.Location()).Add(48 * time.Hour))
}

// parseStrict parses well-formed machine dates (meta tags, feed hints).
// Returns nil when nothing matches or the result falls outside the valid
// window. Zone-less results are placed in Asia/Colombo.
func parseStrict(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range strictLayouts {
		t, err := time.ParseInLocation(layout, s, colomboTZ)
		if err != nil {
			continue
		}
		if validDate(t) {
			return &t
		}
	}
	return nil
}

// makeDate builds a date from numeric components, rejecting impossible
// combinations (time.Date would silently normalize them).
func makeDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, colomboTZ)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	if !validDate(t) {
		return nil
	}
	return &t
}

// titleMonth canonicalizes a case-insensitively matched month name so that
// time.Parse accepts it.
func titleMonth(m string) string {
	if m == "" {
		return m
	}
	return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
}

func parseClock(dayPart, clock string) *time.Time {
	clock = strings.ToLower(strings.TrimSpace(clock))
	for _, layout := range []string{"3:04 pm", "3:04pm"} {
		t, err := time.ParseInLocation("2 January 2006 "+layout, dayPart+" "+clock, colomboTZ)
		if err == nil {
			if validDate(t) {
				return &t
			}
			return nil
		}
		t, err = time.ParseInLocation("2 Jan 2006 "+layout, dayPart+" "+clock, colomboTZ)
		if err == nil {
			if validDate(t) {
				return &t
			}
			return nil
		}
	}
	return nil
}

// ExtractDateFromText extracts a publication date from free text using a
// cascade of regular expressions, most specific first. The first pattern
// whose match parses to a valid date wins.
func ExtractDateFromText(s string) *time.Time {
	if m := patLong.FindStringSubmatch(s); m != nil {
		day := m[2] + " " + titleMonth(m[1]) + " " + m[3]
		if t := parseClock(day, m[4]); t != nil {
			return t
		}
	}
	if m := patDateOnly.FindStringSubmatch(s); m != nil {
		t, err := time.ParseInLocation("January 2, 2006", titleMonth(m[1])+" "+m[2]+", "+m[3], colomboTZ)
		if err == nil && validDate(t) {
			return &t
		}
	}
	if m := patISO.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t := makeDate(y, mo, d); t != nil {
			return t
		}
	}
	if m := patDMYLongTime.FindStringSubmatch(s); m != nil {
		day := m[1] + " " + titleMonth(m[2]) + " " + m[3]
		if t := parseClock(day, m[4]); t != nil {
			return t
		}
	}
	if m := patDMYLong.FindStringSubmatch(s); m != nil {
		for _, layout := range []string{"2 January 2006", "2 Jan 2006"} {
			t, err := time.ParseInLocation(layout, m[1]+" "+titleMonth(m[2])+" "+m[3], colomboTZ)
			if err == nil && validDate(t) {
				return &t
			}
		}
	}
	if m := patDMY.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if t := makeDate(y, mo, d); t != nil {
			return t
		}
	}
	return nil
}

// ExtractDateFromURL extracts a date from a /YYYY/MM/DD/ path segment.
func ExtractDateFromURL(url string) *time.Time {
	m := patURL.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return makeDate(y, mo, d)
}

// ExtractDateWaterfall resolves a publication date from the available
// signals, most trustworthy first:
//
//  1. meta tag value (strict machine formats)
//  2. date selector text (regex cascade)
//  3. URL path pattern
//  4. leading body text (regex cascade over the first 3000 runes)
//  5. feed publication hint (strict formats, including RFC 1123)
//
// Returns nil when every tier fails; callers treat that as a skip, never as
// a default date.
func ExtractDateWaterfall(metaDate, selectorDate, url, bodyText, feedHint string) *time.Time {
	if metaDate != "" {
		if t := parseStrict(metaDate); t != nil {
			return t
		}
	}
	if selectorDate != "" {
		if t := ExtractDateFromText(selectorDate); t != nil {
			return t
		}
	}
	if t := ExtractDateFromURL(url); t != nil {
		return t
	}
	if bodyText != "" {
		runes := []rune(bodyText)
		if len(runes) > 3000 {
			runes = runes[:3000]
		}
		if t := ExtractDateFromText(string(runes)); t != nil {
			return t
		}
	}
	if feedHint != "" {
		if t := parseStrict(feedHint); t != nil {
			return t
		}
	}
	return nil
}
