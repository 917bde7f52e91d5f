package text

import (
	"fmt"
	"testing"
	"time"
)

func TestExtractDateFromTextLongFormat(t *testing.T) {
	got := ExtractDateFromText("Published on February 4, 2026 02:39 pm by staff")
	if got == nil {
		t.Fatal("ExtractDateFromText() = nil")
	}
	if got.Year() != 2026 || got.Month() != time.February || got.Day() != 4 {
		t.Errorf("date = %v, want 2026-02-04", got)
	}
	if got.Hour() != 14 || got.Minute() != 39 {
		t.Errorf("time = %02d:%02d, want 14:39", got.Hour(), got.Minute())
	}
}

func TestExtractDateFromTextDMYWithTime(t *testing.T) {
	got := ExtractDateFromText("31 January 2025 11:24 am")
	if got == nil {
		t.Fatal("ExtractDateFromText() = nil")
	}
	if got.Day() != 31 || got.Month() != time.January || got.Year() != 2025 {
		t.Errorf("date = %v, want 2025-01-31", got)
	}
	if got.Hour() != 11 || got.Minute() != 24 {
		t.Errorf("time = %02d:%02d, want 11:24", got.Hour(), got.Minute())
	}
}

func TestExtractDateFromTextPatterns(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantY   int
		wantM   time.Month
		wantD   int
		wantNil bool
	}{
		{"month day year", "COLOMBO, February 4, 2026 - the cabinet", 2026, time.February, 4, false},
		{"iso dashes", "uploaded 2025-03-17 in politics", 2025, time.March, 17, false},
		{"iso dots", "2024.12.01 | local news", 2024, time.December, 1, false},
		{"day month year", "4 February 2026", 2026, time.February, 4, false},
		{"abbreviated month", "05 Feb 2026", 2026, time.February, 5, false},
		{"numeric dmy", "04/02/2026", 2026, time.February, 4, false},
		{"epoch rejected", "January 1, 1970", 0, 0, 0, true},
		{"pre-window year rejected", "March 3, 2001", 0, 0, 0, true},
		{"impossible day", "2025-02-31 update", 0, 0, 0, true},
		{"no date", "no temporal content here", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDateFromText(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ExtractDateFromText(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractDateFromText(%q) = nil", tt.input)
			}
			if got.Year() != tt.wantY || got.Month() != tt.wantM || got.Day() != tt.wantD {
				t.Errorf("ExtractDateFromText(%q) = %v, want %d-%02d-%02d",
					tt.input, got, tt.wantY, tt.wantM, tt.wantD)
			}
		})
	}
}

func TestExtractDateFromTextRejectsFuture(t *testing.T) {
	future := time.Now().AddDate(0, 3, 0)
	input := fmt.Sprintf("%s %d, %d", future.Month(), future.Day(), future.Year())
	if got := ExtractDateFromText(input); got != nil {
		t.Errorf("ExtractDateFromText(%q) = %v, want nil for far-future date", input, got)
	}
}

func TestExtractDateFromTextAcceptsNearFuture(t *testing.T) {
	// Publishers sometimes post-date by a few hours across the dateline.
	tomorrow := time.Now().Add(24 * time.Hour)
	input := fmt.Sprintf("%s %d, %d", tomorrow.Month(), tomorrow.Day(), tomorrow.Year())
	if got := ExtractDateFromText(input); got == nil {
		t.Errorf("ExtractDateFromText(%q) = nil, want date within 48h tolerance", input)
	}
}

func TestExtractDateFromURL(t *testing.T) {
	got := ExtractDateFromURL("https://example.lk/news/2026/02/04/cabinet-reshuffle")
	if got == nil {
		t.Fatal("ExtractDateFromURL() = nil")
	}
	if got.Year() != 2026 || got.Month() != time.February || got.Day() != 4 {
		t.Errorf("date = %v, want 2026-02-04", got)
	}
	if got := ExtractDateFromURL("https://example.lk/news/article-1234"); got != nil {
		t.Errorf("ExtractDateFromURL() = %v, want nil", got)
	}
}

func TestExtractDateWaterfallPrecedence(t *testing.T) {
	meta := "2026-02-04T09:15:00+05:30"
	selector := "February 1, 2026"

	got := ExtractDateWaterfall(meta, selector, "https://example.lk/a", "", "")
	if got == nil || got.Day() != 4 {
		t.Errorf("meta tier should win, got %v", got)
	}

	got = ExtractDateWaterfall("not a date", selector, "https://example.lk/a", "", "")
	if got == nil || got.Day() != 1 {
		t.Errorf("selector tier should win when meta fails, got %v", got)
	}

	got = ExtractDateWaterfall("", "", "https://example.lk/2026/01/20/story", "", "")
	if got == nil || got.Day() != 20 {
		t.Errorf("url tier should win, got %v", got)
	}

	got = ExtractDateWaterfall("", "", "https://example.lk/a", "COLOMBO, 15 January 2026 - text", "")
	if got == nil || got.Day() != 15 {
		t.Errorf("body tier should win, got %v", got)
	}

	got = ExtractDateWaterfall("", "", "https://example.lk/a", "", "Tue, 03 Feb 2026 10:00:00 +0530")
	if got == nil || got.Day() != 3 {
		t.Errorf("feed hint tier should win, got %v", got)
	}

	if got := ExtractDateWaterfall("", "", "https://example.lk/a", "", ""); got != nil {
		t.Errorf("empty waterfall = %v, want nil", got)
	}
}

func TestParseStrictZonelessDefaultsToColombo(t *testing.T) {
	got := parseStrict("2026-02-04")
	if got == nil {
		t.Fatal("parseStrict() = nil")
	}
	_, offset := got.Zone()
	if offset != 5*3600+30*60 {
		t.Errorf("zone offset = %d, want +05:30", offset)
	}
}
