package db

import (
	"database/sql"
)

// MigrateUp creates the schema. Every statement is idempotent so the worker
// can run it on each start without coordination.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id              SERIAL PRIMARY KEY,
    slug            TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    base_url        TEXT NOT NULL,
    feed_url        TEXT NOT NULL DEFAULT '',
    language        VARCHAR(10) NOT NULL DEFAULT 'si',
    priority        INTEGER NOT NULL DEFAULT 1,
    rate_limit_ms   INTEGER NOT NULL DEFAULT 1000,
    max_concurrent  INTEGER NOT NULL DEFAULT 2,
    active          BOOLEAN DEFAULT TRUE,
    fresh_context   BOOLEAN NOT NULL DEFAULT FALSE,
    last_scraped_at TIMESTAMPTZ,
    created_at      TIMESTAMPTZ DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id           SERIAL PRIMARY KEY,
    source_id    INTEGER NOT NULL REFERENCES sources(id),
    url          TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    excerpt      TEXT,
    author       TEXT,
    image_url    TEXT,
    language     VARCHAR(10) NOT NULL DEFAULT 'si',
    published_at TIMESTAMPTZ NOT NULL,
    scraped_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at   TIMESTAMPTZ DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    qa_status    VARCHAR(20),
    qa_score     INTEGER,
    category     TEXT,
    summary      TEXT,
    reviewed_at  TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS dead_links (
    id              SERIAL PRIMARY KEY,
    source_id       INTEGER NOT NULL REFERENCES sources(id),
    url             TEXT NOT NULL UNIQUE,
    error_type      VARCHAR(30) NOT NULL,
    retry_count     INTEGER NOT NULL DEFAULT 0,
    first_failed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_checked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at      TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Recency queries order by published_at on every dashboard.
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		// Dedup preloads scan all URLs and recent titles per source.
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(active) WHERE active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_dead_links_source_id ON dead_links(source_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back the schema in reverse dependency order.
// Use with caution: this deletes all data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS dead_links`,
		`DROP TABLE IF EXISTS articles`,
		`DROP TABLE IF EXISTS sources`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
