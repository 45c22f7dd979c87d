package refresh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	assert.Equal(t, ModeFull, Parse("full"))
	assert.Equal(t, ModeSnapshot, Parse(" SNAPSHOT "))
	assert.Equal(t, ModeReadonly, Parse("readonly"))
	assert.Equal(t, ModeNone, Parse("none"))

	// unknown tokens fall back conservatively
	assert.Equal(t, ModeNone, Parse("definitely-not-a-mode"))
	assert.Equal(t, ModeNone, Parse(""))
}

func TestModePredicates(t *testing.T) {
	assert.False(t, ModeReadonly.AllowsFetch())
	assert.True(t, ModeNone.AllowsFetch())
	assert.True(t, ModeSnapshot.AllowsFetch())
	assert.True(t, ModeFull.AllowsFetch())

	assert.True(t, ModeNone.TrustsCache())
	assert.True(t, ModeReadonly.TrustsCache())
	assert.False(t, ModeSnapshot.TrustsCache())
	assert.False(t, ModeFull.TrustsCache())
}

func TestApplyCleanupMissingFileIsNotAnError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")

	mode := ApplyCleanup(ModeReadonly, missing, "", "")

	assert.Equal(t, ModeReadonly, mode)
	_, err := os.Stat(missing)
	assert.True(t, os.IsNotExist(err), "cleanup must not create the file")
}

func TestApplyCleanupSnapshotDeletesCacheOnly(t *testing.T) {
	dir := t.TempDir()
	cachePath := writeFile(t, dir, "cache.json")
	historyPath := writeFile(t, dir, "history.json")

	mode := ApplyCleanup(ModeSnapshot, cachePath, historyPath, "")

	assert.Equal(t, ModeSnapshot, mode)
	assert.NoFileExists(t, cachePath)
	assert.FileExists(t, historyPath)
}

func TestApplyCleanupFullDeletesEverything(t *testing.T) {
	dir := t.TempDir()
	cachePath := writeFile(t, dir, "cache.json")
	historyPath := writeFile(t, dir, "history.json")
	spotPath := writeFile(t, dir, "spot.json")

	mode := ApplyCleanup(ModeFull, cachePath, historyPath, spotPath)

	assert.Equal(t, ModeFull, mode)
	assert.NoFileExists(t, cachePath)
	assert.NoFileExists(t, historyPath)
	assert.NoFileExists(t, spotPath)
}

func TestApplyCleanupNoneTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	cachePath := writeFile(t, dir, "cache.json")

	ApplyCleanup(ModeNone, cachePath, "", "")

	assert.FileExists(t, cachePath)
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	return path
}
