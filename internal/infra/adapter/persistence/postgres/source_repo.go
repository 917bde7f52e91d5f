package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswire/internal/domain/entity"
	"newswire/internal/repository"
)

type SourceRepo struct{ db DBTX }

func NewSourceRepo(db DBTX) repository.SourceRepository {
	return &SourceRepo{db: db}
}

const sourceColumns = `id, slug, name, base_url, feed_url, language, priority,
       rate_limit_ms, max_concurrent, active, fresh_context, last_scraped_at, created_at`

func scanSource(scan func(dest ...any) error) (*entity.Source, error) {
	var source entity.Source
	err := scan(
		&source.ID, &source.Slug, &source.Name, &source.BaseURL, &source.FeedURL,
		&source.Language, &source.Priority, &source.RateLimitMS, &source.MaxConcurrent,
		&source.Active, &source.FreshContext, &source.LastScrapedAt, &source.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1 LIMIT 1`
	source, err := scanSource(repo.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) GetBySlug(ctx context.Context, slug string) (*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE slug = $1 LIMIT 1`
	source, err := scanSource(repo.db.QueryRowContext(ctx, query, slug).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetBySlug: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	return repo.list(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id ASC`, "List")
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return repo.list(ctx, `SELECT `+sourceColumns+` FROM sources WHERE active = TRUE ORDER BY priority ASC, id ASC`, "ListActive")
}

func (repo *SourceRepo) list(ctx context.Context, query, op string) ([]*entity.Source, error) {
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 16)
	for rows.Next() {
		source, err := scanSource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// Upsert syncs a source definition from sources.yaml, keyed by slug.
// last_scraped_at is owned by the run loop and never touched here.
func (repo *SourceRepo) Upsert(ctx context.Context, source *entity.Source) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	const query = `
INSERT INTO sources (slug, name, base_url, feed_url, language, priority, rate_limit_ms, max_concurrent, active, fresh_context)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (slug) DO UPDATE SET
       name           = EXCLUDED.name,
       base_url       = EXCLUDED.base_url,
       feed_url       = EXCLUDED.feed_url,
       language       = EXCLUDED.language,
       priority       = EXCLUDED.priority,
       rate_limit_ms  = EXCLUDED.rate_limit_ms,
       max_concurrent = EXCLUDED.max_concurrent,
       active         = EXCLUDED.active,
       fresh_context  = EXCLUDED.fresh_context,
       updated_at     = now()`
	_, err := repo.db.ExecContext(ctx, query,
		source.Slug, source.Name, source.BaseURL, source.FeedURL, source.Language,
		source.Priority, source.RateLimitMS, source.MaxConcurrent, source.Active, source.FreshContext,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *SourceRepo) TouchScrapedAt(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE sources SET last_scraped_at = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}
