package store

import (
	"database/sql"
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	RunsMerged       int
	ResultsMerged    int
	SourcesProcessed int
}

// Merge combines multiple depth databases into one.
// Runs are deduplicated by UID and results by (run, index), so merging the
// same source twice is a no-op.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	// Open/create destination database
	destDB, err := sql.Open(driverName, cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()
	destDB.SetMaxOpenConns(1)

	// Initialize schema on destination
	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}

	// Process each source database
	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.RunsMerged += sourceStats.RunsMerged
		stats.ResultsMerged += sourceStats.ResultsMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	// Open source database
	sourceDB, err := sql.Open(driverName, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	stats := &MergeStats{}

	// Start transaction for efficiency
	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	runIDs, runCount, err := mergeRuns(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging runs: %w", err)
	}
	stats.RunsMerged = runCount

	resultCount, err := mergeResults(tx, sourceDB, runIDs)
	if err != nil {
		return nil, fmt.Errorf("merging results: %w", err)
	}
	stats.ResultsMerged = resultCount

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stats, nil
}

// mergeRuns copies runs and returns the mapping from source to destination run IDs.
func mergeRuns(tx *sql.Tx, sourceDB *sql.DB) (map[int64]int64, int, error) {
	rows, err := sourceDB.Query("SELECT id, uid, graph, mode, kind, self_exclusion, started_at FROM runs")
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	insert, err := tx.Prepare(`
		INSERT OR IGNORE INTO runs (uid, graph, mode, kind, self_exclusion, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, 0, err
	}
	defer insert.Close()

	ids := make(map[int64]int64)
	count := 0
	for rows.Next() {
		var srcID int64
		var uid, graph, mode, kind, selfExclusion, startedAt string
		if err := rows.Scan(&srcID, &uid, &graph, &mode, &kind, &selfExclusion, &startedAt); err != nil {
			return nil, count, err
		}
		result, err := insert.Exec(uid, graph, mode, kind, selfExclusion, startedAt)
		if err != nil {
			return nil, count, err
		}
		if n, _ := result.RowsAffected(); n > 0 {
			count++
		}

		var destID int64
		if err := tx.QueryRow("SELECT id FROM runs WHERE uid = ?", uid).Scan(&destID); err != nil {
			return nil, count, err
		}
		ids[srcID] = destID
	}

	return ids, count, rows.Err()
}

func mergeResults(tx *sql.Tx, sourceDB *sql.DB, runIDs map[int64]int64) (int, error) {
	rows, err := sourceDB.Query("SELECT run_id, " + resultColumns + " FROM results")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO results (run_id, ` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for rows.Next() {
		vals := make([]any, 15)
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}

		srcRun, ok := vals[0].(int64)
		if !ok {
			return count, fmt.Errorf("unexpected run_id type %T", vals[0])
		}
		destRun, ok := runIDs[srcRun]
		if !ok {
			return count, fmt.Errorf("result references unknown run %d", srcRun)
		}
		vals[0] = destRun

		result, err := stmt.Exec(vals...)
		if err != nil {
			return count, err
		}
		if n, _ := result.RowsAffected(); n > 0 {
			count++
		}
	}

	return count, rows.Err()
}
