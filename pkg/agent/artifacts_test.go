package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanArtifacts(t *testing.T) {
	dataDir := t.TempDir()
	exportsDir := filepath.Join(dataDir, "exports")
	require.NoError(t, os.MkdirAll(exportsDir, 0o755))

	chartPath := filepath.Join(exportsDir, "chart_calories.png")
	require.NoError(t, os.WriteFile(chartPath, []byte("png"), 0o644))
	csvPath := filepath.Join(exportsDir, "food_log.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("csv"), 0o644))

	store := NewDirArtifactStore(dataDir)

	t.Run("resolves referenced files", func(t *testing.T) {
		text := "Here is your chart: exports/chart_calories.png and the log exports/food_log.csv"
		paths := scanArtifacts(text, store)
		assert.Equal(t, []string{chartPath, csvPath}, paths)
	})

	t.Run("normalizes backslash references", func(t *testing.T) {
		paths := scanArtifacts(`saved to exports\chart_calories.png`, store)
		assert.Equal(t, []string{chartPath}, paths)
	})

	t.Run("drops references to missing files", func(t *testing.T) {
		paths := scanArtifacts("see exports/missing.png", store)
		assert.Empty(t, paths)
	})

	t.Run("deduplicates repeated references", func(t *testing.T) {
		text := "exports/food_log.csv again exports/food_log.csv"
		paths := scanArtifacts(text, store)
		assert.Equal(t, []string{csvPath}, paths)
	})

	t.Run("ignores other paths and extensions", func(t *testing.T) {
		text := "see data/other.png and exports/script.sh"
		paths := scanArtifacts(text, store)
		assert.Empty(t, paths)
	})

	t.Run("nil store yields nothing", func(t *testing.T) {
		assert.Nil(t, scanArtifacts("exports/chart_calories.png", nil))
	})
}

func TestDirArtifactStoreResolve(t *testing.T) {
	dataDir := t.TempDir()
	exportsDir := filepath.Join(dataDir, "exports")
	require.NoError(t, os.MkdirAll(exportsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(exportsDir, "a.csv"), []byte("x"), 0o644))

	store := NewDirArtifactStore(dataDir)

	t.Run("resolves existing file", func(t *testing.T) {
		path, ok := store.Resolve("exports/a.csv")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(exportsDir, "a.csv"), path)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, ok := store.Resolve("exports/b.csv")
		assert.False(t, ok)
	})

	t.Run("rejects directories", func(t *testing.T) {
		_, ok := store.Resolve("exports")
		assert.False(t, ok)
	})
}
