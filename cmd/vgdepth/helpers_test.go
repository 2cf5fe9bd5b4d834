package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vgkit/vgdepth/pkg/query"
)

// nodes {1:"AC", 2:"GT", 3:"TT"}, p1 = [1+,2+,3+], p2 = [2+]
const testGFA = "H\tVN:Z:1.0\n" +
	"S\t1\tAC\n" +
	"S\t2\tGT\n" +
	"S\t3\tTT\n" +
	"L\t1\t+\t2\t+\t0M\n" +
	"L\t2\t+\t3\t+\t0M\n" +
	"P\tp1\t1+,2+,3+\t*\n" +
	"P\tp2\t2+\t*\n"

// writeFile writes content into the test's temp directory and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// resetDepthFlags restores the depth flag variables to their defaults
// and points --input at a fresh copy of the test graph.
func resetDepthFlags(t *testing.T) {
	t.Helper()
	depthInput = writeFile(t, "graph.gfa", testGFA)
	depthSource = query.Source{}
	depthThreads = 1
	depthFormat = "tsv"
	depthDB = ""
	depthSelfExclusion = "all"
	depthMetricsFile = ""
	t.Cleanup(func() {
		depthSource = query.Source{}
		depthDB = ""
		depthMetricsFile = ""
	})
}
