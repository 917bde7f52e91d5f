package repository

import (
	"context"
	"time"

	"newswire/internal/domain/entity"
)

type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListActive(ctx context.Context) ([]*entity.Source, error)
	// Upsert inserts the source or updates its mutable fields, keyed by slug.
	// Used to sync sources.yaml into the database at startup.
	Upsert(ctx context.Context, source *entity.Source) error
	TouchScrapedAt(ctx context.Context, id int64, t time.Time) error
}
