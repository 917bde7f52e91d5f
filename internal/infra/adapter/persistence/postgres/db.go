// Package postgres implements the repository interfaces over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
)

// DBTX is the database surface the repositories use. Both *sql.DB and
// circuitbreaker.DBCircuitBreaker satisfy it, so callers choose whether
// repository traffic goes through the breaker.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
