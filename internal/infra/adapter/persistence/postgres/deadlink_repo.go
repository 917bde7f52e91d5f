package postgres

import (
	"context"
	"fmt"

	"newswire/internal/domain/entity"
	"newswire/internal/repository"

	"github.com/lib/pq"
)

type DeadLinkRepo struct{ db DBTX }

func NewDeadLinkRepo(db DBTX) repository.DeadLinkRepository {
	return &DeadLinkRepo{db: db}
}

// suppressedPredicate mirrors entity.DeadLinkBackoff: 7d after the first
// failure, 14d after the second, 30d after the third, permanent from the
// fourth on.
const suppressedPredicate = `
(retry_count >= 3
 OR (retry_count = 0 AND NOW() < first_failed_at + INTERVAL '7 days')
 OR (retry_count = 1 AND NOW() < first_failed_at + INTERVAL '14 days')
 OR (retry_count = 2 AND NOW() < first_failed_at + INTERVAL '30 days'))`

func (repo *DeadLinkRepo) Record(ctx context.Context, sourceID int64, url string, kind entity.ScrapeErrorKind) error {
	const query = `
INSERT INTO dead_links (source_id, url, error_type, retry_count, first_failed_at, last_checked_at)
VALUES ($1, $2, $3, 0, NOW(), NOW())
ON CONFLICT (url) DO UPDATE SET
       error_type      = EXCLUDED.error_type,
       last_checked_at = NOW(),
       retry_count     = dead_links.retry_count + 1`
	_, err := repo.db.ExecContext(ctx, query, sourceID, url, string(kind))
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (repo *DeadLinkRepo) Remove(ctx context.Context, url string) error {
	const query = `DELETE FROM dead_links WHERE url = $1`
	if _, err := repo.db.ExecContext(ctx, query, url); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	return nil
}

func (repo *DeadLinkRepo) SuppressedSubset(ctx context.Context, sourceID int64, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}
	query := `SELECT url FROM dead_links WHERE source_id = $1 AND url = ANY($2) AND ` + suppressedPredicate
	rows, err := repo.db.QueryContext(ctx, query, sourceID, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("SuppressedSubset: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(urls))
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("SuppressedSubset: Scan: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SuppressedSubset: rows.Err: %w", err)
	}
	return result, nil
}

func (repo *DeadLinkRepo) AllSuppressed(ctx context.Context, sourceID int64) (map[string]bool, error) {
	query := `SELECT url FROM dead_links WHERE source_id = $1 AND ` + suppressedPredicate
	rows, err := repo.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("AllSuppressed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, 256)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("AllSuppressed: Scan: %w", err)
		}
		result[url] = true
	}
	return result, rows.Err()
}

func (repo *DeadLinkRepo) Stats(ctx context.Context, sourceID int64) (*repository.DeadLinkStats, error) {
	const query = `
SELECT error_type, COUNT(*), COUNT(*) FILTER (WHERE retry_count >= 3)
FROM dead_links
WHERE source_id = $1
GROUP BY error_type`
	rows, err := repo.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &repository.DeadLinkStats{
		SourceID: sourceID,
		ByKind:   map[entity.ScrapeErrorKind]int64{},
	}
	for rows.Next() {
		var kind string
		var total, permanent int64
		if err := rows.Scan(&kind, &total, &permanent); err != nil {
			return nil, fmt.Errorf("Stats: Scan: %w", err)
		}
		stats.ByKind[entity.ScrapeErrorKind(kind)] = total
		stats.Total += total
		stats.Permanent += permanent
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Stats: rows.Err: %w", err)
	}
	return stats, nil
}
