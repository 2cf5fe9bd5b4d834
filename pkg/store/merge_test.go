package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgkit/vgdepth/pkg/types"
)

func TestMerge_EmptySources(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{},
		DestPath:    filepath.Join(t.TempDir(), "dest.db"),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no source databases")
}

func TestMerge_NoDestination(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{"source.db"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "destination path is required")
}

func writeSource(t *testing.T, path, uid string, results ...types.Result) {
	t.Helper()
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	id, err := s.AddRun(testRun(uid))
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, s.AddResult(id, r))
	}
}

func TestMerge_MultipleSources(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "a.db")
	second := filepath.Join(tmpDir, "b.db")
	destPath := filepath.Join(tmpDir, "dest.db")

	results := testResults()
	writeSource(t, first, "run-a", results...)
	writeSource(t, second, "run-b", results[:1]...)

	stats, err := Merge(MergeConfig{
		SourcePaths: []string{first, second},
		DestPath:    destPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RunsMerged)
	assert.Equal(t, 4, stats.ResultsMerged)
	assert.Equal(t, 2, stats.SourcesProcessed)

	dest, err := NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	runs, err := dest.GetRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	got, err := dest.GetResults(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	got, err = dest.GetResults(runs[1].ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMerge_Deduplicates(t *testing.T) {
	tmpDir := t.TempDir()
	source := filepath.Join(tmpDir, "a.db")
	destPath := filepath.Join(tmpDir, "dest.db")
	writeSource(t, source, "run-a", testResults()...)

	_, err := Merge(MergeConfig{SourcePaths: []string{source}, DestPath: destPath})
	require.NoError(t, err)

	stats, err := Merge(MergeConfig{SourcePaths: []string{source}, DestPath: destPath})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RunsMerged)
	assert.Equal(t, 0, stats.ResultsMerged)
	assert.Equal(t, 1, stats.SourcesProcessed)

	dest, err := NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	runs, err := dest.GetRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got, err := dest.GetResults(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMerge_RemapsRunIDs(t *testing.T) {
	tmpDir := t.TempDir()
	destPath := filepath.Join(tmpDir, "dest.db")
	writeSource(t, destPath, "existing", testResults()[:1]...)

	source := filepath.Join(tmpDir, "a.db")
	writeSource(t, source, "incoming", testResults()...)

	stats, err := Merge(MergeConfig{SourcePaths: []string{source}, DestPath: destPath})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RunsMerged)
	assert.Equal(t, 3, stats.ResultsMerged)

	dest, err := NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	runs, err := dest.GetRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "incoming", runs[1].UID)

	existing, err := dest.GetResults(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, existing, 1)
	incoming, err := dest.GetResults(runs[1].ID)
	require.NoError(t, err)
	assert.Len(t, incoming, 3)
}

func TestMerge_MissingSourceTable(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Merge(MergeConfig{
		SourcePaths: []string{filepath.Join(tmpDir, "empty.db")},
		DestPath:    filepath.Join(tmpDir, "dest.db"),
	})
	assert.Error(t, err)
}
