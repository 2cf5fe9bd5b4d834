package query

import (
	"errors"
	"fmt"
)

// Ingestion errors. All of them abort a run; test with errors.Is.
var (
	// ErrReferenceNotFound marks a node id or path name absent from the graph.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrOutOfBounds marks an offset beyond a node or path.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrMalformedRecord marks a record that does not parse.
	ErrMalformedRecord = errors.New("malformed record")
)

// RecordError locates an ingestion error in its input.
type RecordError struct {
	Source string // flag value or file name the record came from
	Line   int    // 1-based; 0 for single records given on the command line
	Record string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %q: %v", e.Source, e.Line, e.Record, e.Err)
	}
	return fmt.Sprintf("%s: %q: %v", e.Source, e.Record, e.Err)
}

// Unwrap returns the underlying Err* value.
func (e *RecordError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMalformedRecord)
}
