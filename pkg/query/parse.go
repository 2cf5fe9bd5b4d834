package query

import (
	"fmt"
	"strings"

	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/resolver"
	"github.com/vgkit/vgdepth/pkg/types"
)

// Parser parses records against one graph. Path lengths are computed once
// per path and reused by later records, so a Parser must not be shared
// between goroutines.
type Parser struct {
	graph   handlegraph.Graph
	lengths map[types.PathHandle]uint64
}

// NewParser creates a Parser for g.
func NewParser(g handlegraph.Graph) *Parser {
	return &Parser{graph: g, lengths: make(map[types.PathHandle]uint64)}
}

func (p *Parser) pathLength(h types.PathHandle) uint64 {
	if n, ok := p.lengths[h]; ok {
		return n
	}
	n := resolver.PathLength(p.graph, h)
	p.lengths[h] = n
	return n
}

// ParseGraphPosition parses a single graph position record.
func ParseGraphPosition(g handlegraph.Graph, record string) (types.GraphPosition, error) {
	return NewParser(g).GraphPosition(record)
}

// ParsePathPosition parses a single path position record.
func ParsePathPosition(g handlegraph.Graph, record string) (types.PathPosition, error) {
	return NewParser(g).PathPosition(record)
}

// ParseBEDRange parses a single BED record.
func ParseBEDRange(g handlegraph.Graph, record string) (types.PathRange, error) {
	return NewParser(g).BEDRange(record)
}

// WholePathRange returns the range covering all of the named path.
func WholePathRange(g handlegraph.Graph, name string) (types.PathRange, error) {
	return NewParser(g).WholePath(name)
}

// GraphPosition parses "node[,offset[,(+|-)]]". The node must exist and the
// offset must fall inside it.
func (p *Parser) GraphPosition(record string) (types.GraphPosition, error) {
	g := p.graph
	vals := strings.Split(strings.TrimSpace(record), ",")
	if len(vals) > 3 {
		return types.GraphPosition{}, malformed("graph position has %d fields, want at most 3", len(vals))
	}

	id, err := types.ParseOffset(vals[0])
	if err != nil || id == 0 {
		return types.GraphPosition{}, malformed("invalid node id %q", vals[0])
	}
	nid := types.NodeID(id)
	if !g.HasNode(nid) {
		return types.GraphPosition{}, fmt.Errorf("no node %d in graph: %w", nid, ErrReferenceNotFound)
	}

	pos := types.GraphPosition{Node: nid}
	if len(vals) >= 2 {
		if pos.Offset, err = types.ParseOffset(vals[1]); err != nil {
			return types.GraphPosition{}, malformed("%v", err)
		}
		if length := g.GetLength(g.GetHandle(nid, false)); pos.Offset >= length {
			return types.GraphPosition{}, fmt.Errorf("offset of %d lies beyond the end of node %d (length %d): %w",
				pos.Offset, nid, length, ErrOutOfBounds)
		}
	}
	if len(vals) == 3 {
		if pos.IsReverse, err = types.ParseStrand(vals[2]); err != nil {
			return types.GraphPosition{}, malformed("%v", err)
		}
	}
	return pos, nil
}

// PathPosition parses "path_name[,offset[,(+|-)]]". The path must exist and
// the offset must fall inside it.
func (p *Parser) PathPosition(record string) (types.PathPosition, error) {
	vals := strings.Split(strings.TrimSpace(record), ",")
	if len(vals) > 3 {
		return types.PathPosition{}, malformed("path position has %d fields, want at most 3", len(vals))
	}

	path, err := lookupPath(p.graph, vals[0])
	if err != nil {
		return types.PathPosition{}, err
	}

	pos := types.PathPosition{Path: path}
	if len(vals) >= 2 {
		if pos.Offset, err = types.ParseOffset(vals[1]); err != nil {
			return types.PathPosition{}, malformed("%v", err)
		}
	}
	if length := p.pathLength(path); pos.Offset >= length {
		return types.PathPosition{}, fmt.Errorf("offset of %d lies beyond the end of path %s (length %d): %w",
			pos.Offset, vals[0], length, ErrOutOfBounds)
	}
	if len(vals) == 3 {
		if pos.IsReverse, err = types.ParseStrand(vals[2]); err != nil {
			return types.PathPosition{}, malformed("%v", err)
		}
	}
	return pos, nil
}

// BEDRange parses "path_name[\tstart\tend[\tstrand]]". Without start and
// end the whole path is used. Records with four or five columns take the
// strand from the fourth column, BED6 and wider from the sixth.
func (p *Parser) BEDRange(record string) (types.PathRange, error) {
	record = strings.TrimRight(record, "\r\n")
	vals := strings.Split(record, "\t")
	if len(vals) == 2 {
		return types.PathRange{}, malformed("BED record has a start but no end")
	}

	path, err := lookupPath(p.graph, vals[0])
	if err != nil {
		return types.PathRange{}, err
	}
	length := p.pathLength(path)

	start, end := uint64(0), length
	if len(vals) >= 3 {
		if start, err = types.ParseOffset(vals[1]); err != nil {
			return types.PathRange{}, malformed("%v", err)
		}
		if end, err = types.ParseOffset(vals[2]); err != nil {
			return types.PathRange{}, malformed("%v", err)
		}
	}
	if end > length {
		return types.PathRange{}, fmt.Errorf("end of %d lies beyond the end of path %s (length %d): %w",
			end, vals[0], length, ErrOutOfBounds)
	}
	if start >= end {
		return types.PathRange{}, fmt.Errorf("empty range [%d, %d) on path %s: %w", start, end, vals[0], ErrOutOfBounds)
	}

	reverse := false
	switch {
	case len(vals) >= 6:
		reverse, err = types.ParseStrand(vals[5])
	case len(vals) >= 4:
		reverse, err = types.ParseStrand(vals[3])
	}
	if err != nil {
		return types.PathRange{}, malformed("%v", err)
	}

	return types.PathRange{
		Begin:     types.PathPosition{Path: path, Offset: start},
		End:       types.PathPosition{Path: path, Offset: end},
		IsReverse: reverse,
		Label:     record,
	}, nil
}

// WholePath returns the range covering all of the named path.
func (p *Parser) WholePath(name string) (types.PathRange, error) {
	return p.BEDRange(strings.TrimSpace(name))
}

func lookupPath(g handlegraph.Graph, name string) (types.PathHandle, error) {
	if name == "" {
		return 0, malformed("missing path name")
	}
	p, ok := g.PathHandle(name)
	if !ok {
		return 0, fmt.Errorf("ref path %s not found in graph: %w", name, ErrReferenceNotFound)
	}
	return p, nil
}
