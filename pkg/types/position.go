package types

import (
	"fmt"
	"strconv"
)

// NodeID identifies a node in the graph. Valid IDs start at 1.
type NodeID uint64

// PathHandle is an opaque reference to a path, resolved from a path name at ingestion.
type PathHandle uint64

// GraphPosition is a graph-local coordinate: an offset within one oriented node.
// Offset is checked against the node length at ingestion, not here.
type GraphPosition struct {
	Node      NodeID
	Offset    uint64
	IsReverse bool
}

// IsSentinel reports whether p is the zero position returned for unreachable path positions.
func (p GraphPosition) IsSentinel() bool {
	return p.Node == 0
}

// String renders the position as "node,offset,(+|-)".
func (p GraphPosition) String() string {
	return fmt.Sprintf("%d,%d,%s", p.Node, p.Offset, StrandSymbol(p.IsReverse))
}

// PathPosition is a path-local coordinate: an offset from the start of a path.
type PathPosition struct {
	Path      PathHandle
	Offset    uint64
	IsReverse bool
}

// PathRange is the half-open interval [Begin.Offset, End.Offset) on a single path.
type PathRange struct {
	Begin     PathPosition
	End       PathPosition
	IsReverse bool
	Label     string // source record, kept for diagnostics
}

// Path returns the path the range lies on.
func (r PathRange) Path() PathHandle {
	return r.Begin.Path
}

// Len is End - Start. Ranges accepted at ingestion always have Len() > 0.
func (r PathRange) Len() uint64 {
	if r.End.Offset < r.Begin.Offset {
		return 0
	}
	return r.End.Offset - r.Begin.Offset
}

// StrandSymbol returns "-" for reverse and "+" for forward.
func StrandSymbol(reverse bool) string {
	if reverse {
		return "-"
	}
	return "+"
}

// ParseStrand parses "+" or "-". "." is accepted as forward (BED convention).
func ParseStrand(s string) (reverse bool, err error) {
	switch s {
	case "+", ".":
		return false, nil
	case "-":
		return true, nil
	default:
		return false, fmt.Errorf("invalid strand %q (expected + or -)", s)
	}
}

// ParseOffset parses a non-negative decimal offset.
func ParseOffset(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return v, nil
}
