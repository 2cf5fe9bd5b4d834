package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vgkit/vgdepth/pkg/types"
)

// PostgresStore implements Store on PostgreSQL. The schema mirrors the
// SQLite one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id BIGSERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		graph TEXT NOT NULL,
		mode TEXT NOT NULL,
		kind TEXT NOT NULL,
		self_exclusion TEXT NOT NULL,
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES runs(id),
		idx BIGINT NOT NULL,
		kind TEXT NOT NULL,
		label TEXT NOT NULL,
		path TEXT,
		start_offset BIGINT,
		end_offset BIGINT,
		node_id BIGINT,
		node_offset BIGINT,
		node_reverse BIGINT,
		coverage BIGINT,
		coverage_uniq BIGINT,
		coverage_sum BIGINT,
		mean_coverage DOUBLE PRECISION,
		unreachable BIGINT NOT NULL DEFAULT 0,
		UNIQUE(run_id, idx)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)`,
}

// NewPostgres connects to url and creates the schema.
func NewPostgres(url string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &PostgresStore{pool: pool}, nil
}

// AddRun stores a run record.
func (s *PostgresStore) AddRun(run *types.Run) (int64, error) {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (uid, graph, mode, kind, self_exclusion, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (uid) DO NOTHING
	`,
		run.UID,
		run.Graph,
		run.Mode,
		string(run.Kind),
		run.SelfExclusion,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	var id int64
	if err := s.pool.QueryRow(ctx, "SELECT id FROM runs WHERE uid = $1", run.UID).Scan(&id); err != nil {
		return 0, fmt.Errorf("looking up run: %w", err)
	}
	run.ID = id
	return id, nil
}

// AddResult stores a result row.
func (s *PostgresStore) AddResult(runID int64, r types.Result) error {
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO results (run_id, idx, kind, label, path, start_offset, end_offset,
			node_id, node_offset, node_reverse, coverage, coverage_uniq, coverage_sum, mean_coverage, unreachable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id, idx) DO NOTHING
	`, resultArgs(runID, r)...)
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// GetRuns retrieves all runs.
func (s *PostgresStore) GetRuns() ([]*types.Run, error) {
	rows, err := s.pool.Query(context.Background(), `
		SELECT id, uid, graph, mode, kind, self_exclusion, started_at
		FROM runs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetResults retrieves the results of a run.
func (s *PostgresStore) GetResults(runID int64) ([]types.Result, error) {
	rows, err := s.pool.Query(context.Background(), `
		SELECT `+resultColumns+`
		FROM results
		WHERE run_id = $1
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
