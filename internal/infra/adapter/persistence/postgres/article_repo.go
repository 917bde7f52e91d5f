package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newswire/internal/domain/entity"
	"newswire/internal/pkg/text"
	"newswire/internal/repository"

	"github.com/lib/pq"
)

type ArticleRepo struct {
	db DBTX
}

func NewArticleRepo(db DBTX) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// Insert stores an article. URL conflicts are ignored at the database level
// so that concurrent workers racing on the same link cannot error out.
func (repo *ArticleRepo) Insert(ctx context.Context, article *entity.Article) (int64, bool, error) {
	if err := article.Validate(); err != nil {
		return 0, false, fmt.Errorf("Insert: %w", err)
	}
	const query = `
INSERT INTO articles
       (source_id, url, title, content, excerpt, author, image_url, language, published_at, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (url) DO NOTHING
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		article.SourceID, article.URL, article.Title, article.Content,
		article.Excerpt, article.Author, article.ImageURL, article.Language,
		article.PublishedAt, article.ScrapedAt,
	).Scan(&id)
	if err == sql.ErrNoRows {
		// Conflict: the URL is already stored.
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("Insert: %w", err)
	}
	return id, true, nil
}

// ExistingURLs returns the subset of urls already stored for the source.
// Batched with ANY to avoid one query per candidate.
func (repo *ArticleRepo) ExistingURLs(ctx context.Context, sourceID int64, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}
	const query = `SELECT url FROM articles WHERE source_id = $1 AND url = ANY($2)`
	rows, err := repo.db.QueryContext(ctx, query, sourceID, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistingURLs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(urls))
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistingURLs: Scan: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingURLs: rows.Err: %w", err)
	}
	return result, nil
}

func (repo *ArticleRepo) AllURLs(ctx context.Context, sourceID int64) (map[string]bool, error) {
	const query = `SELECT url FROM articles WHERE source_id = $1`
	rows, err := repo.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("AllURLs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, 1024)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("AllURLs: Scan: %w", err)
		}
		result[url] = true
	}
	return result, rows.Err()
}

// RecentTitles returns the normalized titles of articles stored within the
// trailing window. The window is on created_at, not published_at: backfills
// insert old articles every day, and a freshly stored article must shadow
// its title no matter when it was published. Normalization happens here so
// every caller compares with the same key.
func (repo *ArticleRepo) RecentTitles(ctx context.Context, sourceID int64, days int) ([]string, error) {
	const query = `
SELECT title
FROM articles
WHERE source_id = $1
  AND created_at >= NOW() - ($2 || ' days')::interval`
	rows, err := repo.db.QueryContext(ctx, query, sourceID, days)
	if err != nil {
		return nil, fmt.Errorf("RecentTitles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	titles := make([]string, 0, 256)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("RecentTitles: Scan: %w", err)
		}
		titles = append(titles, text.NormalizeTitle(title))
	}
	return titles, rows.Err()
}

func (repo *ArticleRepo) CountBySource(ctx context.Context) ([]repository.SourceArticleStats, error) {
	const query = `
SELECT s.id, s.name, COUNT(a.id),
       MIN(a.published_at)::text, MAX(a.published_at)::text
FROM sources s
LEFT JOIN articles a ON a.source_id = s.id
GROUP BY s.id, s.name
ORDER BY s.id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make([]repository.SourceArticleStats, 0, 16)
	for rows.Next() {
		var st repository.SourceArticleStats
		if err := rows.Scan(&st.SourceID, &st.SourceName, &st.ArticleCount, &st.OldestAt, &st.NewestAt); err != nil {
			return nil, fmt.Errorf("CountBySource: Scan: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
