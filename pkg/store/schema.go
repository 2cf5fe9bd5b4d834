package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createRunsTable(db); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}

	if err := createResultsTable(db); err != nil {
		return fmt.Errorf("creating results table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Insert version if table is empty
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	return nil
}

func createRunsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			graph TEXT NOT NULL,
			mode TEXT NOT NULL,
			kind TEXT NOT NULL,
			self_exclusion TEXT NOT NULL,
			started_at TEXT NOT NULL
		)
	`)
	return err
}

func createResultsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			kind TEXT NOT NULL,
			label TEXT NOT NULL,
			path TEXT,
			start_offset INTEGER,
			end_offset INTEGER,
			node_id INTEGER,
			node_offset INTEGER,
			node_reverse INTEGER,
			coverage INTEGER,
			coverage_uniq INTEGER,
			coverage_sum INTEGER,
			mean_coverage REAL,
			unreachable INTEGER NOT NULL DEFAULT 0,
			UNIQUE(run_id, idx)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)
	`)
	return err
}
