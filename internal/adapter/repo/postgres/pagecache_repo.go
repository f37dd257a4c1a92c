package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is a minimal subset of pgxpool used by the repo for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the page cache table. Rows with a NULL expires_at never expire.
const Schema = `
CREATE TABLE IF NOT EXISTS page_cache (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS page_cache_expires_at_idx ON page_cache (expires_at);
`

// PageCacheRepo implements the page cache on top of the page_cache table.
type PageCacheRepo struct {
	Pool PgxPool
	now  func() time.Time
}

// NewPageCacheRepo constructs a PageCacheRepo with the given pool.
func NewPageCacheRepo(p PgxPool) *PageCacheRepo { return &PageCacheRepo{Pool: p, now: time.Now} }

// EnsureSchema creates the table and index when missing.
func (r *PageCacheRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("op=page_cache.ensure_schema: %w", err)
	}
	return nil
}

// Get returns the cached body for key unless it has expired.
func (r *PageCacheRepo) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := r.span(ctx, "page_cache.Get", "SELECT")
	defer span.End()

	var body string
	err := r.Pool.QueryRow(ctx,
		`SELECT body FROM page_cache WHERE key=$1 AND (expires_at IS NULL OR expires_at > $2)`,
		key, r.now().UTC()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("op=page_cache.get: %w", err)
	}
	return body, true, nil
}

// Set upserts body under key. A non-positive ttl stores a row that never expires.
func (r *PageCacheRepo) Set(ctx context.Context, key, body string, ttl time.Duration) error {
	ctx, span := r.span(ctx, "page_cache.Set", "INSERT")
	defer span.End()

	var expires *time.Time
	if ttl > 0 {
		t := r.now().UTC().Add(ttl)
		expires = &t
	}
	q := `INSERT INTO page_cache (key, body, expires_at, created_at) VALUES ($1,$2,$3,$4)
ON CONFLICT (key) DO UPDATE SET body=EXCLUDED.body, expires_at=EXCLUDED.expires_at, created_at=EXCLUDED.created_at`
	if _, err := r.Pool.Exec(ctx, q, key, body, expires, r.now().UTC()); err != nil {
		span.RecordError(err)
		return fmt.Errorf("op=page_cache.set: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (r *PageCacheRepo) Purge(ctx context.Context) (int64, error) {
	ctx, span := r.span(ctx, "page_cache.Purge", "DELETE")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM page_cache WHERE expires_at IS NOT NULL AND expires_at <= $1`, r.now().UTC())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("op=page_cache.purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks connectivity with a trivial query.
func (r *PageCacheRepo) Ping(ctx context.Context) error {
	var one int
	if err := r.Pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("op=page_cache.ping: %w", err)
	}
	return nil
}

func (r *PageCacheRepo) span(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("repo.page_cache").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "page_cache"),
	)
	return ctx, span
}
