package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"newswire/internal/domain/entity"
)

func TestRecordScrape(t *testing.T) {
	tests := []struct {
		name   string
		source string
		result string
	}{
		{"inserted", "ada-derana-en", ResultInserted},
		{"skipped no date", "ada-derana-en", ResultSkippedNoDate},
		{"skipped duplicate", "mirror-en", ResultSkippedDuplicate},
		{"error", "newsfirst-si", ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(ScrapesTotal.WithLabelValues(tt.source, tt.result))
			RecordScrape(tt.source, tt.result, 2*time.Second)
			after := testutil.ToFloat64(ScrapesTotal.WithLabelValues(tt.source, tt.result))
			assert.Equal(t, before+1, after)
		})
	}
}

func TestRecordScrapeError(t *testing.T) {
	before := testutil.ToFloat64(ScrapeErrorsTotal.WithLabelValues("mirror-en", "timeout"))
	RecordScrapeError("mirror-en", entity.ScrapeErrTimeout)
	after := testutil.ToFloat64(ScrapeErrorsTotal.WithLabelValues("mirror-en", "timeout"))
	assert.Equal(t, before+1, after)
}

func TestRecordDiscoveryIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(CandidatesDiscoveredTotal.WithLabelValues("mirror-en", "feed"))
	RecordDiscovery("mirror-en", "feed", 0)
	RecordDiscovery("mirror-en", "feed", -3)
	after := testutil.ToFloat64(CandidatesDiscoveredTotal.WithLabelValues("mirror-en", "feed"))
	assert.Equal(t, before, after)

	RecordDiscovery("mirror-en", "feed", 25)
	assert.Equal(t, before+25, testutil.ToFloat64(CandidatesDiscoveredTotal.WithLabelValues("mirror-en", "feed")))
}

func TestUpdateWorkerPool(t *testing.T) {
	UpdateWorkerPool(7, 42)
	assert.Equal(t, 7.0, testutil.ToFloat64(WorkersActive))
	assert.Equal(t, 42.0, testutil.ToFloat64(QueueDepth))
}

func TestUpdateTotals(t *testing.T) {
	UpdateArticlesTotal(12000)
	UpdateSourcesTotal(4)
	assert.Equal(t, 12000.0, testutil.ToFloat64(ArticlesTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(SourcesTotal))
}
