// Package coverage computes path depth for graph nodes and path intervals.
//
// All functions are pure reads of the graph and may run concurrently.
package coverage

import (
	"errors"
	"fmt"

	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/types"
)

// ErrEmptyRange is returned for ranges with End <= Begin.
var ErrEmptyRange = errors.New("empty range")

// SelfExclusion selects how steps of a range's own path are treated.
type SelfExclusion int

const (
	// ExcludeAll never counts a step of the range's own path.
	ExcludeAll SelfExclusion = iota
	// ExcludeFirst skips only the first own-path step met on each node
	// visit; later own-path steps on the same node are counted.
	ExcludeFirst
)

func (s SelfExclusion) String() string {
	switch s {
	case ExcludeAll:
		return "all"
	case ExcludeFirst:
		return "first"
	default:
		return fmt.Sprintf("SelfExclusion(%d)", int(s))
	}
}

// ParseSelfExclusion parses "all" or "first".
func ParseSelfExclusion(s string) (SelfExclusion, error) {
	switch s {
	case "all", "":
		return ExcludeAll, nil
	case "first":
		return ExcludeFirst, nil
	default:
		return ExcludeAll, fmt.Errorf("unknown self-exclusion policy %q (expected all or first)", s)
	}
}

// Node counts every step on the node regardless of orientation, and the
// number of distinct paths those steps belong to. Unknown nodes, including
// the sentinel node 0, have zero coverage.
func Node(g handlegraph.Graph, id types.NodeID) types.NodeCoverage {
	var cov types.NodeCoverage
	paths := make(map[types.PathHandle]struct{})

	g.ForEachStepOnHandle(g.GetHandle(id, false), func(s handlegraph.Step) bool {
		cov.TotalSteps++
		paths[g.PathOfStep(s)] = struct{}{}
		return true
	})

	cov.DistinctPaths = uint64(len(paths))
	return cov
}

// Range sums, over every step of the range's path overlapping
// [Begin.Offset, End.Offset), the number of steps on that step's node that
// belong to other paths. Mean divides the sum by the range length.
func Range(g handlegraph.Graph, r types.PathRange, policy SelfExclusion) (types.RangeCoverage, error) {
	start, end := r.Begin.Offset, r.End.Offset
	if end <= start {
		return types.RangeCoverage{}, fmt.Errorf("%s [%d, %d): %w", r.Label, start, end, ErrEmptyRange)
	}

	self := r.Path()
	var sum uint64
	VisitRange(g, r, func(s handlegraph.Step) {
		sum += otherSteps(g, g.HandleOfStep(s), self, policy)
	})

	return types.RangeCoverage{
		Sum:  sum,
		Mean: float64(sum) / float64(end-start),
	}, nil
}

// VisitRange calls fn, in path order, for each step of the range's path
// that overlaps [Begin.Offset, End.Offset).
func VisitRange(g handlegraph.Graph, r types.PathRange, fn func(handlegraph.Step)) {
	start, end := r.Begin.Offset, r.End.Offset
	var walked uint64
	pathEnd := g.PathEnd(r.Path())
	for s := g.PathBegin(r.Path()); s != pathEnd && walked < end; s = g.NextStep(s) {
		walked += g.GetLength(g.HandleOfStep(s))
		if walked > start {
			fn(s)
		}
	}
}

func otherSteps(g handlegraph.Graph, h handlegraph.Handle, self types.PathHandle, policy SelfExclusion) uint64 {
	var n uint64
	seen := false
	g.ForEachStepOnHandle(h, func(s handlegraph.Step) bool {
		if g.PathOfStep(s) == self {
			if policy == ExcludeAll || !seen {
				seen = true
				return true
			}
		}
		n++
		return true
	})
	return n
}
