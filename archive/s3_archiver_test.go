package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "iter1_results_10.0.0.1"), os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iter1_log_10.0.0.1.log"), []byte("x"), os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iter1_results_10.0.0.1", "results_sheet_1.txt"), []byte("x"), os.ModePerm))

	files, err := collectFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"iter1_log_10.0.0.1.log",
		"iter1_results_10.0.0.1/results_sheet_1.txt",
	}, files)
}

func TestCollectFilesEmptyDir(t *testing.T) {
	files, err := collectFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "run1/iter1_log.log", keyFor("run1", "iter1_log.log"))
	assert.Equal(t, "iter1_log.log", keyFor("", "iter1_log.log"))
}
