// Package handlegraph defines the read-only query interface the depth
// evaluators consume, and an in-memory implementation loaded from GFA.
package handlegraph

import "github.com/vgkit/vgdepth/pkg/types"

// Handle is an oriented reference to a node.
type Handle struct {
	ID      types.NodeID
	Reverse bool
}

// Flip returns the handle for the opposite orientation.
func (h Handle) Flip() Handle {
	return Handle{ID: h.ID, Reverse: !h.Reverse}
}

// Step is a single visit of a path to a node. Steps are compared with ==;
// the value returned by PathEnd is one past the last step.
type Step struct {
	Path types.PathHandle
	Rank uint64
}

// Graph is the capability set the depth core needs from a graph engine.
// Implementations must be safe for concurrent readers.
type Graph interface {
	// HasNode reports whether a node with this ID exists.
	HasNode(id types.NodeID) bool
	// HasPath reports whether a path with this name exists.
	HasPath(name string) bool

	GetHandle(id types.NodeID, reverse bool) Handle
	GetID(h Handle) types.NodeID
	GetIsReverse(h Handle) bool
	GetLength(h Handle) uint64
	GetSequence(h Handle) string

	// PathHandle resolves a path name. ok is false for unknown names.
	PathHandle(name string) (p types.PathHandle, ok bool)
	PathName(p types.PathHandle) string
	StepCount(p types.PathHandle) uint64

	PathBegin(p types.PathHandle) Step
	PathEnd(p types.PathHandle) Step
	PathBack(p types.PathHandle) Step
	NextStep(s Step) Step

	HandleOfStep(s Step) Handle
	PathOfStep(s Step) types.PathHandle

	// ForEachStepOnHandle calls fn for every step on the node of h, in
	// either orientation and on any path, until fn returns false.
	ForEachStepOnHandle(h Handle, fn func(Step) bool)
	// ForEachHandle calls fn with the forward handle of every node, in
	// ascending ID order, until fn returns false.
	ForEachHandle(fn func(Handle) bool)
	// ForEachPath calls fn for every path in insertion order until fn returns false.
	ForEachPath(fn func(types.PathHandle) bool)

	NodeCount() int
	PathCount() int
	MinNodeID() types.NodeID
	MaxNodeID() types.NodeID
}
