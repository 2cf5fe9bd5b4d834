package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgkit/vgdepth/pkg/types"
)

func graphRow(index int, label string, total, uniq uint64) types.Result {
	return types.Result{
		Index:    index,
		Kind:     types.KindGraphPosition,
		Label:    label,
		Coverage: types.NodeCoverage{TotalSteps: total, DistinctPaths: uniq},
	}
}

func rangeRow(index int, path string, start, end uint64, mean float64) types.Result {
	return types.Result{
		Index: index,
		Kind:  types.KindPathRange,
		Path:  path,
		Start: start,
		End:   end,
		Range: types.RangeCoverage{Mean: mean},
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	s, err := New("tsv", &buf)
	require.NoError(t, err)
	assert.IsType(t, &TSVSink{}, s)

	s, err = New("", &buf)
	require.NoError(t, err)
	assert.IsType(t, &TSVSink{}, s)

	s, err = New("json", &buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONSink{}, s)

	_, err = New("xml", &buf)
	assert.Error(t, err)
}

func TestFormatTSV(t *testing.T) {
	tests := []struct {
		name string
		row  types.Result
		want string
	}{
		{"graph position", graphRow(0, "2,0,+", 2, 2), "2,0,+\t2\t2\n"},
		{"path position", types.Result{Kind: types.KindPathPosition, Label: "p1,3,+", Coverage: types.NodeCoverage{TotalSteps: 1, DistinctPaths: 1}}, "p1,3,+\t1\t1\n"},
		{"range half", rangeRow(0, "p1", 2, 4, 0.5), "p1\t2\t4\t0.5\n"},
		{"range zero", rangeRow(0, "p1", 0, 2, 0), "p1\t0\t2\t0\n"},
		{"range sixth", rangeRow(0, "p1", 0, 6, 1.0/6.0), "p1\t0\t6\t0.166667\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTSV(tt.row))
		})
	}
}

func TestFormatMean(t *testing.T) {
	assert.Equal(t, "1", FormatMean(1))
	assert.Equal(t, "2.5", FormatMean(2.5))
	assert.Equal(t, "0.333333", FormatMean(1.0/3.0))
	assert.Equal(t, "123457", FormatMean(123456.7))
}

func TestTSVSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSV(&buf)

	require.NoError(t, s.Begin(types.KindGraphPosition))
	require.NoError(t, s.Write(graphRow(0, "1,0,+", 1, 1)))
	require.NoError(t, s.Write(graphRow(1, "2,0,+", 2, 2)))

	want := "#graph_position\tcoverage\tcoverage_uniq\n1,0,+\t1\t1\n2,0,+\t2\t2\n"
	assert.Equal(t, want, buf.String())
	require.NoError(t, s.Close())
	assert.Equal(t, want, buf.String())
}

func TestTSVSink_RowsReachWriterImmediately(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSV(&buf)

	require.NoError(t, s.Begin(types.KindPathRange))
	assert.Equal(t, "#path\tstart\tend\tmean_coverage\n", buf.String())

	require.NoError(t, s.Write(rangeRow(0, "p1", 2, 4, 0.5)))
	assert.Equal(t, "#path\tstart\tend\tmean_coverage\np1\t2\t4\t0.5\n", buf.String())
}

func TestJSONSink_RowsReachWriterImmediately(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSON(&buf)

	require.NoError(t, s.Begin(types.KindGraphPosition))
	require.NoError(t, s.Write(graphRow(0, "1,0,+", 1, 1)))

	var got types.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1,0,+", got.Label)
}

func TestTSVSink_RangeHeader(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSV(&buf)

	require.NoError(t, s.Begin(types.KindPathRange))
	require.NoError(t, s.Write(rangeRow(0, "p1", 2, 4, 0.5)))
	require.NoError(t, s.Close())

	assert.Equal(t, "#path\tstart\tend\tmean_coverage\np1\t2\t4\t0.5\n", buf.String())
}

func TestTSVSink_UnknownKindHasNoHeader(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSV(&buf)

	require.NoError(t, s.Begin(types.ResultKind("other")))
	require.NoError(t, s.Close())
	assert.Empty(t, buf.String())
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSON(&buf)

	require.NoError(t, s.Begin(types.KindPathRange))
	require.NoError(t, s.Write(rangeRow(3, "p1", 2, 4, 0.5)))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, float64(3), got["index"])
	assert.Equal(t, "path_range", got["kind"])
	assert.Equal(t, "p1", got["path"])
	rc, ok := got["range_coverage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.5, rc["mean_coverage"])
}

func TestSynchronized_Idempotent(t *testing.T) {
	s := Synchronized(&Collector{})
	assert.Same(t, s, Synchronized(s))
}

func TestSynchronized_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	s := Synchronized(NewTSV(&buf))
	require.NoError(t, s.Begin(types.KindGraphPosition))

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Write(graphRow(i, "7,0,+", 3, 2)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, n+1)
	assert.Equal(t, "#graph_position\tcoverage\tcoverage_uniq", lines[0])
	for _, line := range lines[1:] {
		assert.Equal(t, "7,0,+\t3\t2", line)
	}
}

type failingSink struct {
	Collector
	closeErr error
	writeErr error
}

func (f *failingSink) Write(r types.Result) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.Collector.Write(r)
}

func (f *failingSink) Close() error { return f.closeErr }

func TestMulti(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	m := Multi(a, b)

	require.NoError(t, m.Begin(types.KindPathPosition))
	require.NoError(t, m.Write(graphRow(0, "p1,0,+", 1, 1)))
	require.NoError(t, m.Close())

	for _, c := range []*Collector{a, b} {
		assert.Equal(t, types.KindPathPosition, c.Kind)
		assert.Len(t, c.Results, 1)
	}
}

func TestMulti_Errors(t *testing.T) {
	errWrite := errors.New("write failed")
	errClose := errors.New("close failed")
	after := &Collector{}

	m := Multi(&failingSink{writeErr: errWrite, closeErr: errClose}, after)
	err := m.Write(graphRow(0, "1,0,+", 0, 0))
	assert.ErrorIs(t, err, errWrite)
	assert.Empty(t, after.Results)

	err = m.Close()
	assert.ErrorIs(t, err, errClose)
}

func TestCollector(t *testing.T) {
	c := &Collector{}
	require.NoError(t, c.Begin(types.KindGraphPosition))
	require.NoError(t, c.Write(graphRow(0, "1,0,+", 1, 1)))
	require.NoError(t, c.Write(graphRow(1, "2,0,+", 2, 2)))
	require.NoError(t, c.Close())

	assert.Equal(t, types.KindGraphPosition, c.Kind)
	require.Len(t, c.Results, 2)
	assert.Equal(t, "2,0,+", c.Results[1].Label)
}
