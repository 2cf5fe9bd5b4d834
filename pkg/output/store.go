package output

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vgkit/vgdepth/pkg/store"
	"github.com/vgkit/vgdepth/pkg/types"
)

// StoreSink persists rows into a result store as one run.
// The store is owned by the caller; Close does not close it.
type StoreSink struct {
	store store.Store
	run   types.Run
}

// NewStoreSink creates a sink that records run metadata on Begin.
// An empty UID is replaced by a fresh UUID, a zero StartedAt by the current time.
func NewStoreSink(s store.Store, run types.Run) *StoreSink {
	if run.UID == "" {
		run.UID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	return &StoreSink{store: s, run: run}
}

// Run returns the run metadata; ID is set once Begin has succeeded.
func (s *StoreSink) Run() types.Run {
	return s.run
}

// Begin records the run with its result kind.
func (s *StoreSink) Begin(kind types.ResultKind) error {
	s.run.Kind = kind
	if _, err := s.store.AddRun(&s.run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Write stores one row under the run.
func (s *StoreSink) Write(r types.Result) error {
	if s.run.ID == 0 {
		return fmt.Errorf("run %s not started", s.run.UID)
	}
	return s.store.AddResult(s.run.ID, r)
}

// Close is a no-op; the store is owned by the caller.
func (s *StoreSink) Close() error { return nil }
