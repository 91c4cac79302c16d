package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Popie52/pinger/internal/model"
)

const createResultsTable = `
	CREATE TABLE IF NOT EXISTS ping_results (
		request_id   TEXT PRIMARY KEY,
		worker_id    INTEGER NOT NULL,
		method       TEXT NOT NULL,
		url          TEXT NOT NULL,
		status_code  INTEGER NOT NULL,
		error        TEXT,
		duration_ms  DOUBLE PRECISION NOT NULL,
		traced       BOOLEAN NOT NULL,
		traceparent  TEXT,
		finished_at  TIMESTAMPTZ NOT NULL
	)
`

type PostgresResultStore struct {
	db *sql.DB
}

// OpenPostgres connects, pings and makes sure the results table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresResultStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresResultStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{
		db: db,
	}
}

func (s *PostgresResultStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createResultsTable); err != nil {
		return fmt.Errorf("create ping_results: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) Save(ctx context.Context, res *model.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ping_results (
			request_id,
			worker_id,
			method,
			url,
			status_code,
			error,
			duration_ms,
			traced,
			traceparent,
			finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (request_id) DO NOTHING
	`,
		res.RequestID,
		res.WorkerID,
		res.Method,
		res.URL,
		res.StatusCode,
		nullString(res.Error),
		float64(res.Duration.Microseconds())/1000,
		res.Traced,
		nullString(res.TraceParent),
		res.FinishedAt,
	)

	return err
}

// Count is used by operators to eyeball progress; also handy in tests.
func (s *PostgresResultStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM ping_results`).Scan(&n)
	return n, err
}

func (s *PostgresResultStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
