package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswire/internal/domain/entity"
)

func TestDeadLinkRepoRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dead_links")).
		WithArgs(int64(1), "https://example.lk/gone", "404").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDeadLinkRepo(db)
	err = repo.Record(context.Background(), 1, "https://example.lk/gone", entity.ScrapeErrNotFound)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLinkRepoRemove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dead_links WHERE url = $1")).
		WithArgs("https://example.lk/back").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDeadLinkRepo(db)
	require.NoError(t, repo.Remove(context.Background(), "https://example.lk/back"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLinkRepoSuppressedSubset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT url FROM dead_links").
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://example.lk/gone"))

	repo := NewDeadLinkRepo(db)
	got, err := repo.SuppressedSubset(context.Background(), 1,
		[]string{"https://example.lk/gone", "https://example.lk/alive"})
	require.NoError(t, err)
	assert.True(t, got["https://example.lk/gone"])
	assert.False(t, got["https://example.lk/alive"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLinkRepoStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT error_type").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"error_type", "count", "permanent"}).
			AddRow("404", int64(10), int64(4)).
			AddRow("timeout", int64(3), int64(0)))

	repo := NewDeadLinkRepo(db)
	stats, err := repo.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(13), stats.Total)
	assert.Equal(t, int64(4), stats.Permanent)
	assert.Equal(t, int64(10), stats.ByKind[entity.ScrapeErrNotFound])
	assert.Equal(t, int64(3), stats.ByKind[entity.ScrapeErrTimeout])
	assert.NoError(t, mock.ExpectationsWereMet())
}
