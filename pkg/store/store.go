package store

import (
	"fmt"
	"strings"

	"github.com/vgkit/vgdepth/pkg/types"
)

// Store provides persistence for depth results.
// This interface abstracts the underlying storage implementation,
// allowing for different backends (SQLite, PostgreSQL, memory).
type Store interface {
	// AddRun records a run and returns its database ID. Runs are
	// deduplicated by UID.
	AddRun(run *types.Run) (int64, error)

	// AddResult stores a result row of a run (deduplicated by index).
	AddResult(runID int64, r types.Result) error

	// GetRuns retrieves all runs, oldest first.
	GetRuns() ([]*types.Run, error)

	// GetResults retrieves the results of one run ordered by index.
	GetResults(runID int64) ([]types.Result, error)

	// Close closes the database connection.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path, a postgres:// URL, or ":memory:".
	Path string
}

// New creates a new Store. ":memory:" selects MemoryStore, postgres URLs
// select PostgresStore, anything else is a SQLite file.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	switch {
	case cfg.Path == ":memory:":
		return NewMemory(), nil
	case IsPostgresURL(cfg.Path):
		return NewPostgres(cfg.Path)
	default:
		return NewSQLite(cfg.Path)
	}
}

// IsPostgresURL reports whether path names a PostgreSQL database.
func IsPostgresURL(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}
