package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgkit/vgdepth/pkg/depth"
	"github.com/vgkit/vgdepth/pkg/handlegraph"
	"github.com/vgkit/vgdepth/pkg/types"
)

// nodes {1:"AC", 2:"GT", 3:"TT"}, p1 = [1+,2+,3+], p2 = [2+]
const testGFA = "S\t1\tAC\n" +
	"S\t2\tGT\n" +
	"S\t3\tTT\n" +
	"P\tp1\t1+,2+,3+\t*\n" +
	"P\tp2\t2+\t*\n"

func newExecutor(t *testing.T) *depth.Executor {
	t.Helper()
	g, err := handlegraph.ReadGFA(strings.NewReader(testGFA))
	require.NoError(t, err)
	return &depth.Executor{Graph: g, Threads: 2}
}

// serve runs a server over the given requests and returns the decoded responses.
func serve(t *testing.T, requests ...string) []Response {
	t.Helper()
	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	out := &bytes.Buffer{}

	srv := NewServer(newExecutor(t), in, out)
	require.NoError(t, srv.Run(context.Background()))

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServer_SendsReadyOnStart(t *testing.T) {
	in := strings.NewReader("")
	out := &bytes.Buffer{}

	srv := NewServer(newExecutor(t), in, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately to exit after ready

	_ = srv.Run(ctx)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ready", resp.Type)

	var ready ReadyData
	require.NoError(t, json.Unmarshal(resp.Data, &ready))
	assert.Equal(t, Version, ready.Version)
	assert.Equal(t, 3, ready.Nodes)
	assert.Equal(t, 2, ready.Paths)
}

func TestServer_GraphPosition(t *testing.T) {
	responses := serve(t, `{"type":"graph_position","payload":{"record":"2,0,+"}}`)
	require.Len(t, responses, 2) // ready + result

	resp := responses[1]
	assert.True(t, resp.Success)
	assert.Equal(t, "graph_position", resp.Type)

	var result types.Result
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "2,0,+", result.Label)
	assert.Equal(t, types.NodeCoverage{TotalSteps: 2, DistinctPaths: 2}, result.Coverage)
}

func TestServer_PathPosition(t *testing.T) {
	responses := serve(t, `{"type":"path_position","payload":{"record":"p1,3,+"}}`)
	require.Len(t, responses, 2)

	var result types.Result
	require.NoError(t, json.Unmarshal(responses[1].Data, &result))
	assert.Equal(t, "p1,3,+", result.Label)
	assert.Equal(t, uint64(2), result.Coverage.TotalSteps)
}

func TestServer_Range(t *testing.T) {
	responses := serve(t, `{"type":"range","payload":{"record":"p1\t2\t4"}}`)
	require.Len(t, responses, 2)

	var result types.Result
	require.NoError(t, json.Unmarshal(responses[1].Data, &result))
	assert.Equal(t, "p1", result.Path)
	assert.InDelta(t, 0.5, result.Range.Mean, 1e-9)
}

func TestServer_QueryErrorIsNotFatal(t *testing.T) {
	responses := serve(t,
		`{"type":"graph_position","payload":{"record":"42,0,+"}}`,
		`{"type":"graph_position","payload":{"record":"1"}}`,
	)
	require.Len(t, responses, 3)

	assert.False(t, responses[1].Success)
	assert.Equal(t, "graph_position", responses[1].Type)
	assert.Contains(t, responses[1].Error, "reference not found")

	assert.True(t, responses[2].Success)
}

func TestServer_BadPayload(t *testing.T) {
	responses := serve(t, `{"type":"range","payload":"not an object"}`)
	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Equal(t, "range", responses[1].Type)
}

func TestServer_Batch(t *testing.T) {
	responses := serve(t, `{"type":"batch","payload":{"kind":"graph_position","records":["1","2","3"]}}`)
	require.Len(t, responses, 2)
	require.True(t, responses[1].Success)

	var data BatchData
	require.NoError(t, json.Unmarshal(responses[1].Data, &data))
	require.Len(t, data.Results, 3)
	for i, r := range data.Results {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, uint64(2), data.Results[1].Coverage.TotalSteps)
}

func TestServer_BatchRejectsWholeBatchOnBadRecord(t *testing.T) {
	responses := serve(t, `{"type":"batch","payload":{"kind":"path_range","records":["p1","missing"]}}`)
	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Contains(t, responses[1].Error, "records[1]")
}

func TestServer_Stats(t *testing.T) {
	responses := serve(t,
		`{"type":"graph_position","payload":{"record":"1"}}`,
		`{"type":"batch","payload":{"kind":"graph_position","records":["1","2"]}}`,
		`{"type":"stats","payload":{}}`,
	)
	require.Len(t, responses, 4)

	var stats StatsData
	require.NoError(t, json.Unmarshal(responses[3].Data, &stats))
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 2, stats.Paths)
	assert.Equal(t, types.NodeID(1), stats.MinNodeID)
	assert.Equal(t, types.NodeID(3), stats.MaxNodeID)
	assert.Equal(t, int64(3), stats.Evaluated)
	assert.Equal(t, int64(0), stats.Unreachable)
}

func TestServer_GracefulShutdownOnContext(t *testing.T) {
	// Slow reader that blocks
	pr, pw := io.Pipe()
	out := &bytes.Buffer{}

	srv := NewServer(newExecutor(t), pr, out)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- srv.Run(ctx)
	}()

	// Wait for ready signal
	time.Sleep(100 * time.Millisecond)

	cancel()
	pw.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestServer_CloseCommand(t *testing.T) {
	responses := serve(t,
		`{"type":"close","payload":{}}`,
		`{"type":"stats","payload":{}}`,
	)
	require.Len(t, responses, 1) // Only ready signal
}

func TestServer_UnknownCommand(t *testing.T) {
	responses := serve(t, `{"type":"invalid","payload":{}}`)
	require.Len(t, responses, 2)

	assert.False(t, responses[1].Success)
	assert.Contains(t, responses[1].Error, "unknown request type")
}

func TestServer_MalformedJSON(t *testing.T) {
	responses := serve(t, `{invalid json}`)
	require.GreaterOrEqual(t, len(responses), 2)

	assert.False(t, responses[1].Success)
	assert.Equal(t, "decode", responses[1].Type)
}

// Responses must be written even when EOF arrives before the main loop
// picks up the pending request.
func TestServer_ResponseBeforeEOF(t *testing.T) {
	for i := range 10 {
		responses := serve(t, `{"type":"batch","payload":{"kind":"path_position","records":["p1","p2,1"]}}`)
		require.Len(t, responses, 2, "iteration %d", i)
		assert.True(t, responses[1].Success, "iteration %d", i)
		assert.Equal(t, "batch", responses[1].Type, "iteration %d", i)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestServer_LogsWriteFailures(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	in := strings.NewReader(`{"type":"stats"}` + "\n" + `{"type":"close"}` + "\n")
	srv := NewServer(newExecutor(t), in, brokenWriter{})
	srv.log = logger.WithField("component", "serve")

	require.NoError(t, srv.Run(context.Background()))

	var failures []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Writing response failed" {
			failures = append(failures, e)
		}
	}
	// ready and stats; close sends nothing
	require.Len(t, failures, 2)
	assert.EqualError(t, failures[0].Data[logrus.ErrorKey].(error), "broken pipe")
	assert.Equal(t, "ready", failures[0].Data["type"])
	assert.Equal(t, "stats", failures[1].Data["type"])
}
