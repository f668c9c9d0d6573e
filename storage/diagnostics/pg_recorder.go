package diagnostics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRecorder persists diagnostic events in Postgres.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder connects and initializes schema.
func NewPGRecorder(ctx context.Context, dsn string) (*PGRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r := &PGRecorder{pool: pool}
	if err := r.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PGRecorder) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS todo_diagnostics (
  id TEXT PRIMARY KEY,
  op TEXT NOT NULL,
  kind TEXT NOT NULL,
  message TEXT,
  reference TEXT,
  at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS todo_diagnostics_at_idx ON todo_diagnostics (at DESC);
`
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init diagnostics schema: %w", err)
	}
	return nil
}

func (r *PGRecorder) Record(ctx context.Context, e Event) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO todo_diagnostics (id, op, kind, message, reference, at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
ON CONFLICT (id) DO NOTHING`, e.ID, e.Op, e.Kind, e.Message, e.Reference, e.At)
	if err != nil {
		return fmt.Errorf("insert diagnostic: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (r *PGRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, op, kind, COALESCE(message, ''), COALESCE(reference, ''), at
FROM todo_diagnostics ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Op, &e.Kind, &e.Message, &e.Reference, &e.At); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (r *PGRecorder) Close() {
	r.pool.Close()
}
