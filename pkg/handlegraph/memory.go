package handlegraph

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/vgkit/vgdepth/pkg/types"
)

type node struct {
	seq    string
	length uint64
	steps  []Step // reverse index: every step landing on this node
}

type path struct {
	name  string
	steps []Handle
}

// MemoryGraph is an immutable in-memory graph. It is safe for concurrent
// readers once returned by Builder.Build.
type MemoryGraph struct {
	nodes   map[types.NodeID]*node
	ids     []types.NodeID // ascending
	paths   []*path        // PathHandle is index+1
	byName  map[string]types.PathHandle
	edges   map[[2]Handle]struct{}
	edgeCnt int
}

var _ Graph = (*MemoryGraph)(nil)

// HasNode reports whether a node with id exists.
func (g *MemoryGraph) HasNode(id types.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasPath reports whether a path named name exists.
func (g *MemoryGraph) HasPath(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// GetHandle returns the handle of id in the given orientation.
func (g *MemoryGraph) GetHandle(id types.NodeID, reverse bool) Handle {
	return Handle{ID: id, Reverse: reverse}
}

// GetID returns the node id of h.
func (g *MemoryGraph) GetID(h Handle) types.NodeID { return h.ID }

// GetIsReverse reports whether h is the reverse orientation.
func (g *MemoryGraph) GetIsReverse(h Handle) bool { return h.Reverse }

// GetLength returns 0 for unknown nodes.
func (g *MemoryGraph) GetLength(h Handle) uint64 {
	if n, ok := g.nodes[h.ID]; ok {
		return n.length
	}
	return 0
}

// GetSequence returns the node sequence in the orientation of h. Nodes
// loaded without sequence (GFA "*" with an LN tag) yield "".
func (g *MemoryGraph) GetSequence(h Handle) string {
	n, ok := g.nodes[h.ID]
	if !ok {
		return ""
	}
	if h.Reverse {
		return reverseComplement(n.seq)
	}
	return n.seq
}

// PathHandle resolves a path name.
func (g *MemoryGraph) PathHandle(name string) (types.PathHandle, bool) {
	p, ok := g.byName[name]
	return p, ok
}

// PathName returns the name of p, or "" for an unknown path.
func (g *MemoryGraph) PathName(p types.PathHandle) string {
	if pp := g.path(p); pp != nil {
		return pp.name
	}
	return ""
}

// StepCount returns the number of steps on p.
func (g *MemoryGraph) StepCount(p types.PathHandle) uint64 {
	if pp := g.path(p); pp != nil {
		return uint64(len(pp.steps))
	}
	return 0
}

// PathBegin returns the first step of p.
func (g *MemoryGraph) PathBegin(p types.PathHandle) Step {
	return Step{Path: p, Rank: 0}
}

// PathEnd returns the past-the-end step of p.
func (g *MemoryGraph) PathEnd(p types.PathHandle) Step {
	return Step{Path: p, Rank: g.StepCount(p)}
}

// PathBack returns the last step, or PathEnd for an empty path.
func (g *MemoryGraph) PathBack(p types.PathHandle) Step {
	n := g.StepCount(p)
	if n == 0 {
		return g.PathEnd(p)
	}
	return Step{Path: p, Rank: n - 1}
}

// NextStep returns the step after s. It never advances past PathEnd.
func (g *MemoryGraph) NextStep(s Step) Step {
	if s.Rank >= g.StepCount(s.Path) {
		return g.PathEnd(s.Path)
	}
	return Step{Path: s.Path, Rank: s.Rank + 1}
}

// HandleOfStep returns the oriented node visited by s.
func (g *MemoryGraph) HandleOfStep(s Step) Handle {
	pp := g.path(s.Path)
	if pp == nil || s.Rank >= uint64(len(pp.steps)) {
		return Handle{}
	}
	return pp.steps[s.Rank]
}

// PathOfStep returns the path s belongs to.
func (g *MemoryGraph) PathOfStep(s Step) types.PathHandle { return s.Path }

// ForEachStepOnHandle calls fn for every step visiting the node of h, in
// either orientation, until fn returns false.
func (g *MemoryGraph) ForEachStepOnHandle(h Handle, fn func(Step) bool) {
	n, ok := g.nodes[h.ID]
	if !ok {
		return
	}
	for _, s := range n.steps {
		if !fn(s) {
			return
		}
	}
}

// ForEachHandle calls fn for each node in ascending id order until fn
// returns false.
func (g *MemoryGraph) ForEachHandle(fn func(Handle) bool) {
	for _, id := range g.ids {
		if !fn(Handle{ID: id}) {
			return
		}
	}
}

// ForEachPath calls fn for each path in load order until fn returns false.
func (g *MemoryGraph) ForEachPath(fn func(types.PathHandle) bool) {
	for i := range g.paths {
		if !fn(types.PathHandle(i + 1)) {
			return
		}
	}
}

// NodeCount returns the number of nodes.
func (g *MemoryGraph) NodeCount() int { return len(g.ids) }

// PathCount returns the number of paths.
func (g *MemoryGraph) PathCount() int { return len(g.paths) }

// MinNodeID returns the smallest node id, or 0 for an empty graph.
func (g *MemoryGraph) MinNodeID() types.NodeID {
	if len(g.ids) == 0 {
		return 0
	}
	return g.ids[0]
}

// MaxNodeID returns the largest node id, or 0 for an empty graph.
func (g *MemoryGraph) MaxNodeID() types.NodeID {
	if len(g.ids) == 0 {
		return 0
	}
	return g.ids[len(g.ids)-1]
}

// HasEdge reports whether the edge from -> to (or its reverse complement) exists.
func (g *MemoryGraph) HasEdge(from, to Handle) bool {
	_, ok := g.edges[canonicalEdge(from, to)]
	return ok
}

// EdgeCount returns the number of distinct edges.
func (g *MemoryGraph) EdgeCount() int { return g.edgeCnt }

func (g *MemoryGraph) path(p types.PathHandle) *path {
	if p == 0 || int(p) > len(g.paths) {
		return nil
	}
	return g.paths[p-1]
}

// Builder accumulates nodes, edges and paths and produces a MemoryGraph.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes  map[types.NodeID]*node
	paths  []*path
	byName map[string]types.PathHandle
	edges  map[[2]Handle]struct{}
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:  make(map[types.NodeID]*node),
		byName: make(map[string]types.PathHandle),
		edges:  make(map[[2]Handle]struct{}),
	}
}

// AddNode adds a node with the given sequence.
func (b *Builder) AddNode(id types.NodeID, seq string) error {
	return b.addNode(id, seq, uint64(len(seq)))
}

// AddNodeLength adds a node whose sequence is unknown but whose length is.
func (b *Builder) AddNodeLength(id types.NodeID, length uint64) error {
	return b.addNode(id, "", length)
}

func (b *Builder) addNode(id types.NodeID, seq string, length uint64) error {
	if id == 0 {
		return fmt.Errorf("node id must be >= 1")
	}
	if _, exists := b.nodes[id]; exists {
		return fmt.Errorf("duplicate node %d", id)
	}
	b.nodes[id] = &node{seq: seq, length: length}
	return nil
}

// AddEdge records an edge. Endpoints are checked in Build.
func (b *Builder) AddEdge(from, to Handle) {
	b.edges[canonicalEdge(from, to)] = struct{}{}
}

// AddPath appends a named path. Step nodes are checked in Build.
func (b *Builder) AddPath(name string, steps []Handle) (types.PathHandle, error) {
	if name == "" {
		return 0, fmt.Errorf("path name is required")
	}
	if _, exists := b.byName[name]; exists {
		return 0, fmt.Errorf("duplicate path %q", name)
	}
	b.paths = append(b.paths, &path{name: name, steps: append([]Handle(nil), steps...)})
	h := types.PathHandle(len(b.paths))
	b.byName[name] = h
	return h, nil
}

// Build validates references and builds the step index. The Builder must
// not be used afterwards.
func (b *Builder) Build() (*MemoryGraph, error) {
	for e := range b.edges {
		for _, h := range e {
			if _, ok := b.nodes[h.ID]; !ok {
				return nil, fmt.Errorf("edge references missing node %d", h.ID)
			}
		}
	}

	for i, p := range b.paths {
		ph := types.PathHandle(i + 1)
		for rank, h := range p.steps {
			n, ok := b.nodes[h.ID]
			if !ok {
				return nil, fmt.Errorf("path %q references missing node %d", p.name, h.ID)
			}
			n.steps = append(n.steps, Step{Path: ph, Rank: uint64(rank)})
		}
	}

	ids := make([]types.NodeID, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	g := &MemoryGraph{
		nodes:   b.nodes,
		ids:     ids,
		paths:   b.paths,
		byName:  b.byName,
		edges:   b.edges,
		edgeCnt: len(b.edges),
	}

	logrus.WithFields(logrus.Fields{
		"component": "handlegraph",
		"nodes":     g.NodeCount(),
		"edges":     g.EdgeCount(),
		"paths":     g.PathCount(),
	}).Debug("Graph built")

	return g, nil
}

// canonicalEdge maps an edge and its reverse complement to the same key.
func canonicalEdge(from, to Handle) [2]Handle {
	rf, rt := to.Flip(), from.Flip()
	if edgeLess(rf, rt, from, to) {
		return [2]Handle{rf, rt}
	}
	return [2]Handle{from, to}
}

func edgeLess(a1, a2, b1, b2 Handle) bool {
	if handleLess(a1, b1) {
		return true
	}
	if handleLess(b1, a1) {
		return false
	}
	return handleLess(a2, b2)
}

func handleLess(a, b Handle) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return !a.Reverse && b.Reverse
}

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

func reverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		c := complement[seq[len(seq)-1-i]]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return string(out)
}
