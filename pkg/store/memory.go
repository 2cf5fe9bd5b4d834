package store

import (
	"sort"
	"sync"

	"github.com/vgkit/vgdepth/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    []*types.Run
	byUID   map[string]int64
	results map[int64]map[int]types.Result // run id -> index -> result
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		byUID:   make(map[string]int64),
		results: make(map[int64]map[int]types.Result),
	}
}

// AddRun stores a run record.
func (m *MemoryStore) AddRun(run *types.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, exists := m.byUID[run.UID]; exists {
		// Idempotent - already exists
		run.ID = id
		return id, nil
	}

	stored := *run
	stored.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, &stored)
	m.byUID[run.UID] = stored.ID
	m.results[stored.ID] = make(map[int]types.Result)
	run.ID = stored.ID
	return stored.ID, nil
}

// AddResult stores a result row.
func (m *MemoryStore) AddResult(runID int64, r types.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.results[runID]
	if !ok {
		rows = make(map[int]types.Result)
		m.results[runID] = rows
	}
	if _, exists := rows[r.Index]; exists {
		// Deduplicate - already exists
		return nil
	}
	rows[r.Index] = r
	return nil
}

// GetRuns retrieves all runs.
func (m *MemoryStore) GetRuns() ([]*types.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return copies to avoid external modifications
	runs := make([]*types.Run, len(m.runs))
	for i, r := range m.runs {
		c := *r
		runs[i] = &c
	}
	return runs, nil
}

// GetResults retrieves the results of a run ordered by index.
func (m *MemoryStore) GetResults(runID int64) ([]types.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.results[runID]
	out := make([]types.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Close closes the database connection.
// For in-memory store, this is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
