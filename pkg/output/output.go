// Package output writes depth results. Every Sink here expects a single
// writer; wrap it with Synchronized before sharing it between workers.
package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/vgkit/vgdepth/pkg/types"
)

// Sink receives the header and rows of a run.
type Sink interface {
	// Begin is called once, before any row, with the kind of the batch.
	Begin(kind types.ResultKind) error
	// Write emits one row.
	Write(r types.Result) error
	// Close releases the sink. Rows are already on the writer by then.
	Close() error
}

// New returns the sink for a named format: "tsv" or "json".
func New(format string, w io.Writer) (Sink, error) {
	switch format {
	case "tsv", "":
		return NewTSV(w), nil
	case "json":
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// TSVSink writes the tab-separated format: one "#" header line, one row per
// result. Each row is flushed to the underlying writer as soon as it is
// written.
type TSVSink struct {
	w *bufio.Writer
}

// NewTSV creates a TSV sink.
func NewTSV(w io.Writer) *TSVSink {
	return &TSVSink{w: bufio.NewWriter(w)}
}

// Begin writes the header line for kind, if it has one.
func (s *TSVSink) Begin(kind types.ResultKind) error {
	header := types.Header(kind)
	if header == "" {
		return nil
	}
	if _, err := fmt.Fprintln(s.w, header); err != nil {
		return err
	}
	return s.w.Flush()
}

// Write writes and flushes one row.
func (s *TSVSink) Write(r types.Result) error {
	if _, err := s.w.WriteString(FormatTSV(r)); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close flushes anything left in the buffer.
func (s *TSVSink) Close() error {
	return s.w.Flush()
}

// FormatTSV renders a row including its trailing newline.
func FormatTSV(r types.Result) string {
	switch r.Kind {
	case types.KindPathRange:
		return fmt.Sprintf("%s\t%d\t%d\t%s\n", r.Path, r.Start, r.End, FormatMean(r.Range.Mean))
	default:
		return fmt.Sprintf("%s\t%d\t%d\n", r.Label, r.Coverage.TotalSteps, r.Coverage.DistinctPaths)
	}
}

// FormatMean prints a mean with six significant digits.
func FormatMean(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// JSONSink writes one JSON object per row (NDJSON). It writes no header.
type JSONSink struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSON creates an NDJSON sink.
func NewJSON(w io.Writer) *JSONSink {
	bw := bufio.NewWriter(w)
	return &JSONSink{w: bw, enc: json.NewEncoder(bw)}
}

// Begin is a no-op; NDJSON has no header.
func (s *JSONSink) Begin(types.ResultKind) error { return nil }

// Write encodes and flushes one row.
func (s *JSONSink) Write(r types.Result) error {
	if err := s.enc.Encode(r); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close flushes anything left in the buffer.
func (s *JSONSink) Close() error {
	return s.w.Flush()
}

// Synchronized serializes calls to the wrapped sink so each row is written
// whole before the next begins.
func Synchronized(s Sink) Sink {
	if _, ok := s.(*syncSink); ok {
		return s
	}
	return &syncSink{sink: s}
}

type syncSink struct {
	mu   sync.Mutex
	sink Sink
}

func (s *syncSink) Begin(kind types.ResultKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Begin(kind)
}

func (s *syncSink) Write(r types.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Write(r)
}

func (s *syncSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Close()
}

// Multi fans every call out to all sinks in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Begin(kind types.ResultKind) error {
	for _, s := range m {
		if err := s.Begin(kind); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) Write(r types.Result) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector keeps rows in memory. Useful for library callers and tests.
type Collector struct {
	Kind    types.ResultKind
	Results []types.Result
}

// Begin records the batch kind.
func (c *Collector) Begin(kind types.ResultKind) error {
	c.Kind = kind
	return nil
}

// Write appends r to Results.
func (c *Collector) Write(r types.Result) error {
	c.Results = append(c.Results, r)
	return nil
}

// Close is a no-op.
func (c *Collector) Close() error { return nil }
