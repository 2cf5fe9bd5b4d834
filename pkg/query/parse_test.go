package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/types"
)

const testGFA = "S\t1\tAC\n" +
	"S\t2\tGT\n" +
	"S\t3\tTT\n" +
	"P\tp1\t1+,2+,3+\t*\n" +
	"P\tp2\t2+\t*\n"

func loadGraph(t *testing.T) *handlegraph.MemoryGraph {
	t.Helper()
	g, err := handlegraph.ReadGFA(strings.NewReader(testGFA))
	require.NoError(t, err)
	return g
}

func TestParseGraphPosition(t *testing.T) {
	g := loadGraph(t)

	tests := []struct {
		record  string
		want    types.GraphPosition
		wantErr error
	}{
		{"2", types.GraphPosition{Node: 2}, nil},
		{"2,1", types.GraphPosition{Node: 2, Offset: 1}, nil},
		{"2,0,+", types.GraphPosition{Node: 2}, nil},
		{"3,1,-", types.GraphPosition{Node: 3, Offset: 1, IsReverse: true}, nil},
		{" 1,0,+ ", types.GraphPosition{Node: 1}, nil},
		{"4", types.GraphPosition{}, ErrReferenceNotFound},
		{"2,2", types.GraphPosition{}, ErrOutOfBounds},
		{"0", types.GraphPosition{}, ErrMalformedRecord},
		{"x", types.GraphPosition{}, ErrMalformedRecord},
		{"2,a", types.GraphPosition{}, ErrMalformedRecord},
		{"2,0,?", types.GraphPosition{}, ErrMalformedRecord},
		{"2,0,+,extra", types.GraphPosition{}, ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.record, func(t *testing.T) {
			got, err := ParseGraphPosition(g, tt.record)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePathPosition(t *testing.T) {
	g := loadGraph(t)
	p1, _ := g.PathHandle("p1")

	tests := []struct {
		record  string
		want    types.PathPosition
		wantErr error
	}{
		{"p1", types.PathPosition{Path: p1}, nil},
		{"p1,2", types.PathPosition{Path: p1, Offset: 2}, nil},
		{"p1,2,+", types.PathPosition{Path: p1, Offset: 2}, nil},
		{"p1,5,-", types.PathPosition{Path: p1, Offset: 5, IsReverse: true}, nil},
		{"chrZ,1", types.PathPosition{}, ErrReferenceNotFound},
		{"p1,6", types.PathPosition{}, ErrOutOfBounds},
		{",1", types.PathPosition{}, ErrMalformedRecord},
		{"p1,-1", types.PathPosition{}, ErrMalformedRecord},
		{"p1,1,x", types.PathPosition{}, ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.record, func(t *testing.T) {
			got, err := ParsePathPosition(g, tt.record)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBEDRange(t *testing.T) {
	g := loadGraph(t)
	p1, _ := g.PathHandle("p1")

	r, err := ParseBEDRange(g, "p1\t0\t2")
	require.NoError(t, err)
	assert.Equal(t, types.PathPosition{Path: p1, Offset: 0}, r.Begin)
	assert.Equal(t, types.PathPosition{Path: p1, Offset: 2}, r.End)
	assert.False(t, r.IsReverse)
	assert.Equal(t, "p1\t0\t2", r.Label)

	r, err = ParseBEDRange(g, "p1\t1\t5\t-")
	require.NoError(t, err)
	assert.True(t, r.IsReverse)
	assert.Equal(t, uint64(4), r.Len())

	r, err = ParseBEDRange(g, "p1\t1\t5\tfeature\t0\t-")
	require.NoError(t, err)
	assert.True(t, r.IsReverse, "BED6 strand column")

	r, err = ParseBEDRange(g, "p1\t1\t5\t-\t0")
	require.NoError(t, err)
	assert.True(t, r.IsReverse, "five columns read the strand from the fourth")

	r, err = ParseBEDRange(g, "p1\t1\t5\t+\t0\t-")
	require.NoError(t, err)
	assert.True(t, r.IsReverse, "six columns ignore the fourth")

	r, err = ParseBEDRange(g, "p1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Begin.Offset)
	assert.Equal(t, uint64(6), r.End.Offset)
}

func TestParseBEDRange_Errors(t *testing.T) {
	g := loadGraph(t)

	tests := []struct {
		record  string
		wantErr error
	}{
		{"chrQ\t0\t1", ErrReferenceNotFound},
		{"p1\t0", ErrMalformedRecord},
		{"p1\ta\t2", ErrMalformedRecord},
		{"p1\t0\tb", ErrMalformedRecord},
		{"p1\t0\t7", ErrOutOfBounds},
		{"p1\t3\t3", ErrOutOfBounds},
		{"p1\t4\t2", ErrOutOfBounds},
		{"p1\t0\t2\t*", ErrMalformedRecord},
		{"\t0\t2", ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.record, "\t", " "), func(t *testing.T) {
			_, err := ParseBEDRange(g, tt.record)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWholePathRange(t *testing.T) {
	g := loadGraph(t)

	r, err := WholePathRange(g, "p2\n")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Begin.Offset)
	assert.Equal(t, uint64(2), r.End.Offset)
	assert.Equal(t, "p2", r.Label)

	_, err = WholePathRange(g, "nope")
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestParseRecord(t *testing.T) {
	g := loadGraph(t)

	q, err := ParseRecord(g, types.KindGraphPosition, "2,1,-")
	require.NoError(t, err)
	assert.Equal(t, GraphQuery{Pos: types.GraphPosition{Node: 2, Offset: 1, IsReverse: true}}, q)

	q, err = ParseRecord(g, types.KindPathPosition, "p1,3")
	require.NoError(t, err)
	pq, ok := q.(PathQuery)
	require.True(t, ok)
	assert.Equal(t, uint64(3), pq.Pos.Offset)

	q, err = ParseRecord(g, types.KindPathRange, "p1")
	require.NoError(t, err)
	rq, ok := q.(RangeQuery)
	require.True(t, ok)
	assert.Equal(t, uint64(6), rq.Range.Len())

	_, err = ParseRecord(g, types.KindPathRange, "nope\t0\t1")
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	_, err = ParseRecord(g, types.ResultKind("other"), "1")
	assert.Error(t, err)
}
