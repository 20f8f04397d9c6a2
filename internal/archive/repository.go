// Package archive records served renders in Postgres.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const maxRecentLimit = 200

type Record struct {
	RequestID string
	FEN       string
	Upscale   int
	Bytes     int
	CacheHit  bool
	Duration  time.Duration
	Source    string // "http", "cli"
	CreatedAt time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// Open connects to Postgres and pings it.
func Open(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS render_log (
    request_id  UUID PRIMARY KEY,
    fen         TEXT NOT NULL,
    upscale     INTEGER NOT NULL,
    png_bytes   INTEGER NOT NULL,
    cache_hit   BOOLEAN NOT NULL DEFAULT FALSE,
    duration_ms BIGINT NOT NULL,
    source      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save inserts rec; a repeated request id is ignored.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	// DB 미설정이면 기록하지 않음
	if r == nil || r.db == nil {
		return nil
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	q := `INSERT INTO render_log (
        request_id, fen, upscale, png_bytes, cache_hit, duration_ms, source, created_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
      ON CONFLICT (request_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q,
		rec.RequestID, rec.FEN, rec.Upscale, rec.Bytes, rec.CacheHit,
		rec.Duration.Milliseconds(), rec.Source, created,
	)
	return err
}

// Recent lists the newest records first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	limit = clampLimit(limit)
	rows, err := r.db.QueryContext(ctx, `SELECT request_id, fen, upscale, png_bytes, cache_hit, duration_ms, source, created_at
        FROM render_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var durMS int64
		if err := rows.Scan(&rec.RequestID, &rec.FEN, &rec.Upscale, &rec.Bytes, &rec.CacheHit, &durMS, &rec.Source, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}
