// Package query turns raw query records into validated, typed queries.
//
// Ingestion is sequential and fail-fast: the first record that does not
// parse or does not match the graph aborts the whole batch, before any
// query is evaluated.
package query

import (
	"fmt"

	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/types"
)

// Query is one validated work item. It is one of GraphQuery, PathQuery or
// RangeQuery.
type Query interface {
	Kind() types.ResultKind
	isQuery()
}

// GraphQuery asks for the depth of the node under a graph position.
type GraphQuery struct {
	Pos types.GraphPosition
}

// PathQuery asks for the depth of the node under a path position.
type PathQuery struct {
	Pos types.PathPosition
}

// RangeQuery asks for the mean depth of a path interval.
type RangeQuery struct {
	Range types.PathRange
}

func (GraphQuery) Kind() types.ResultKind { return types.KindGraphPosition }
func (PathQuery) Kind() types.ResultKind  { return types.KindPathPosition }
func (RangeQuery) Kind() types.ResultKind { return types.KindPathRange }

func (GraphQuery) isQuery() {}
func (PathQuery) isQuery()  {}
func (RangeQuery) isQuery() {}

// Batch is the validated query list of one run. All queries share Kind.
type Batch struct {
	Mode    Mode
	Kind    types.ResultKind
	Queries []Query
}

// Len returns the number of queries.
func (b *Batch) Len() int {
	return len(b.Queries)
}

// ParseRecord parses one record of the given kind. Range records use the BED
// grammar, so a bare path name selects the whole path.
func ParseRecord(g handlegraph.Graph, kind types.ResultKind, record string) (Query, error) {
	return NewParser(g).Record(kind, record)
}

// Record parses one record of the given kind into a Query.
func (p *Parser) Record(kind types.ResultKind, record string) (Query, error) {
	switch kind {
	case types.KindGraphPosition:
		pos, err := p.GraphPosition(record)
		if err != nil {
			return nil, err
		}
		return GraphQuery{Pos: pos}, nil
	case types.KindPathPosition:
		pos, err := p.PathPosition(record)
		if err != nil {
			return nil, err
		}
		return PathQuery{Pos: pos}, nil
	case types.KindPathRange:
		r, err := p.BEDRange(record)
		if err != nil {
			return nil, err
		}
		return RangeQuery{Range: r}, nil
	default:
		return nil, fmt.Errorf("unknown query kind %q", kind)
	}
}
