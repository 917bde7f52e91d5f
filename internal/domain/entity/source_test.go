package entity

import "testing"

func TestSourceValidate(t *testing.T) {
	valid := Source{
		Slug:          "mirror-en",
		Name:          "Daily Mirror",
		BaseURL:       "https://www.dailymirror.lk",
		FeedURL:       "https://www.dailymirror.lk/rss",
		MaxConcurrent: 3,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid source: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Source)
	}{
		{"missing slug", func(s *Source) { s.Slug = "" }},
		{"missing name", func(s *Source) { s.Name = "" }},
		{"missing base url", func(s *Source) { s.BaseURL = "" }},
		{"zero concurrency", func(s *Source) { s.MaxConcurrent = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestSourceNeedsFreshContext(t *testing.T) {
	withFeed := Source{FeedURL: "https://example.lk/rss"}
	if withFeed.NeedsFreshContext() {
		t.Error("source with feed should share a browser context")
	}
	withoutFeed := Source{}
	if !withoutFeed.NeedsFreshContext() {
		t.Error("feedless source should get fresh browser contexts")
	}
	flagged := Source{FeedURL: "https://example.lk/rss", FreshContext: true}
	if !flagged.NeedsFreshContext() {
		t.Error("fresh_context flag should override feed-based sharing")
	}
}
