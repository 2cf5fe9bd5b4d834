package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vgkit/vgdepth/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver registered by modernc.org/sqlite.
const driverName = "sqlite"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps writes ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Initialize schema
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddRun stores a run record.
func (s *SQLiteStore) AddRun(run *types.Run) (int64, error) {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO runs (uid, graph, mode, kind, self_exclusion, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
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
	if err := s.db.QueryRow("SELECT id FROM runs WHERE uid = ?", run.UID).Scan(&id); err != nil {
		return 0, fmt.Errorf("looking up run: %w", err)
	}
	run.ID = id
	return id, nil
}

// AddResult stores a result row.
func (s *SQLiteStore) AddResult(runID int64, r types.Result) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO results (run_id, idx, kind, label, path, start_offset, end_offset,
			node_id, node_offset, node_reverse, coverage, coverage_uniq, coverage_sum, mean_coverage, unreachable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, resultArgs(runID, r)...)
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// GetRuns retrieves all runs.
func (s *SQLiteStore) GetRuns() ([]*types.Run, error) {
	rows, err := s.db.Query(`
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
func (s *SQLiteStore) GetResults(runID int64) ([]types.Result, error) {
	rows, err := s.db.Query(`
		SELECT `+resultColumns+`
		FROM results
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const resultColumns = `idx, kind, label, path, start_offset, end_offset, node_id, node_offset, node_reverse,
	coverage, coverage_uniq, coverage_sum, mean_coverage, unreachable`

// resultArgs flattens a result in INSERT column order.
func resultArgs(runID int64, r types.Result) []any {
	return []any{
		runID,
		r.Index,
		string(r.Kind),
		r.Label,
		r.Path,
		int64(r.Start),
		int64(r.End),
		int64(r.Node.Node),
		int64(r.Node.Offset),
		boolToInt(r.Node.IsReverse),
		int64(r.Coverage.TotalSteps),
		int64(r.Coverage.DistinctPaths),
		int64(r.Range.Sum),
		r.Range.Mean,
		boolToInt(r.Unreachable),
	}
}

// rowScanner is the subset of *sql.Rows and pgx.Rows used here.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRuns(rows rowScanner) ([]*types.Run, error) {
	var runs []*types.Run
	for rows.Next() {
		var run types.Run
		var kind, startedAt string
		if err := rows.Scan(&run.ID, &run.UID, &run.Graph, &run.Mode, &kind, &run.SelfExclusion, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Kind = types.ResultKind(kind)
		t, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing run start time: %w", err)
		}
		run.StartedAt = t
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func scanResults(rows rowScanner) ([]types.Result, error) {
	var results []types.Result
	for rows.Next() {
		var r types.Result
		var kind string
		var path sql.NullString
		var start, end, nodeID, nodeOffset, cov, uniq, sum int64
		var nodeReverse, unreachable int64

		err := rows.Scan(
			&r.Index,
			&kind,
			&r.Label,
			&path,
			&start,
			&end,
			&nodeID,
			&nodeOffset,
			&nodeReverse,
			&cov,
			&uniq,
			&sum,
			&r.Range.Mean,
			&unreachable,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}

		r.Kind = types.ResultKind(kind)
		r.Path = path.String
		r.Start, r.End = uint64(start), uint64(end)
		r.Node = types.GraphPosition{Node: types.NodeID(nodeID), Offset: uint64(nodeOffset), IsReverse: nodeReverse != 0}
		r.Coverage = types.NodeCoverage{TotalSteps: uint64(cov), DistinctPaths: uint64(uniq)}
		r.Range.Sum = uint64(sum)
		r.Unreachable = unreachable != 0
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
