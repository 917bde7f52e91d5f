package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswire/internal/config"
	"newswire/internal/domain/entity"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int64
		kind   entity.ScrapeErrorKind
		fatal  bool
	}{
		{200, "", false},
		{301, "", false},
		{403, "", false},
		{404, entity.ScrapeErrNotFound, true},
		{500, entity.ScrapeErrServer, true},
		{503, entity.ScrapeErrServer, true},
	}
	for _, tt := range tests {
		kind, fatal := classifyStatus(tt.status)
		assert.Equal(t, tt.fatal, fatal, "status %d", tt.status)
		assert.Equal(t, tt.kind, kind, "status %d", tt.status)
	}
}

func TestClassifyRunErrorTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := classifyRunError(ctx, "https://example.lk/news/1", context.DeadlineExceeded)
	var scrapeErr *entity.ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, entity.ScrapeErrTimeout, scrapeErr.Kind)
	assert.Equal(t, "https://example.lk/news/1", scrapeErr.URL)
}

func TestClassifyRunErrorParentCancelPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := classifyRunError(ctx, "https://example.lk/news/1", context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	var scrapeErr *entity.ScrapeError
	assert.False(t, errors.As(err, &scrapeErr))
}

func TestClassifyRunErrorUnknown(t *testing.T) {
	ctx := context.Background()
	err := classifyRunError(ctx, "https://example.lk/news/1", errors.New("net::ERR_CONNECTION_RESET"))
	var scrapeErr *entity.ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, entity.ScrapeErrUnknown, scrapeErr.Kind)
}

func TestIsInterstitial(t *testing.T) {
	assert.True(t, isInterstitial("Just a moment..."))
	assert.True(t, isInterstitial("JUST A MOMENT"))
	assert.False(t, isInterstitial("Cabinet approves proposal"))
	assert.False(t, isInterstitial(""))
}

func TestBuildExtractExprBindsProfileSelectors(t *testing.T) {
	sources, err := config.Parse([]byte(`
alpha-en:
  name: Alpha News
  base_url: https://alpha.lk
  selectors:
    title: ["h1.headline"]
    content: [".story-body"]
`))
	require.NoError(t, err)

	expr, err := buildExtractExpr(sources.Get("alpha-en"))
	require.NoError(t, err)
	assert.Contains(t, expr, `"h1.headline"`)
	assert.Contains(t, expr, `"article:published_time"`)
	assert.True(t, strings.HasPrefix(expr, "((params) =>"))
}

func TestOriginOf(t *testing.T) {
	origin, err := originOf("https://www.dailymirror.lk/breaking-news/page/2")
	require.NoError(t, err)
	assert.Equal(t, "https://www.dailymirror.lk", origin)
}
