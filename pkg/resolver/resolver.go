// Package resolver translates between path-local and graph-local coordinates.
package resolver

import (
	"errors"
	"fmt"

	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/types"
)

// ErrPositionUnreachable is returned when a path offset lies beyond the end
// of the path. It is not fatal: the accompanying position is the sentinel.
var ErrPositionUnreachable = errors.New("position outside of path")

// ToGraph walks the path from its first step and returns the graph position
// covering pos.Offset. The returned orientation is the orientation of the step.
func ToGraph(g handlegraph.Graph, pos types.PathPosition) (types.GraphPosition, error) {
	var walked uint64
	end := g.PathEnd(pos.Path)
	for s := g.PathBegin(pos.Path); s != end; s = g.NextStep(s) {
		h := g.HandleOfStep(s)
		length := g.GetLength(h)
		if walked+length > pos.Offset {
			return types.GraphPosition{
				Node:      g.GetID(h),
				Offset:    pos.Offset - walked,
				IsReverse: g.GetIsReverse(h),
			}, nil
		}
		walked += length
	}
	return types.GraphPosition{}, fmt.Errorf("%s:%d: %w", g.PathName(pos.Path), pos.Offset, ErrPositionUnreachable)
}

// OffsetOfStep returns the path offset at which target starts. target must
// be a step of path; anything else is a caller bug and panics.
func OffsetOfStep(g handlegraph.Graph, path types.PathHandle, target handlegraph.Step) uint64 {
	var walked uint64
	end := g.PathEnd(path)
	s := g.PathBegin(path)
	for ; s != target; s = g.NextStep(s) {
		if s == end {
			panic(fmt.Sprintf("resolver: step %+v is not on path %q", target, g.PathName(path)))
		}
		walked += g.GetLength(g.HandleOfStep(s))
	}
	if s == end {
		panic(fmt.Sprintf("resolver: step %+v is the end sentinel of path %q", target, g.PathName(path)))
	}
	return walked
}

// PathLength sums the lengths of every step of path.
func PathLength(g handlegraph.Graph, path types.PathHandle) uint64 {
	var total uint64
	end := g.PathEnd(path)
	for s := g.PathBegin(path); s != end; s = g.NextStep(s) {
		total += g.GetLength(g.HandleOfStep(s))
	}
	return total
}
