package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathLayout(t *testing.T) {
	s := New("data")

	assert.Equal(t, filepath.Join("data", "cn", "cache", "margin", "m.json"), s.CachePath("cn", "margin", "m.json"))
	assert.Equal(t, filepath.Join("data", "cn", "history", "margin", "h.json"), s.HistoryPath("cn", "margin", "h.json"))
	assert.Equal(t, filepath.Join("data", "cn", "reports", "r.txt"), s.ReportPath("cn", "r.txt"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "blob.json")

	in := map[string]any{"symbol": "600519", "close": 1725.0}
	require.NoError(t, SaveJSON(path, in))

	var out map[string]any
	require.True(t, LoadJSON(path, &out))
	assert.Equal(t, "600519", out["symbol"])
	assert.Equal(t, 1725.0, out["close"])
}

func TestLoadMissIsNotAnError(t *testing.T) {
	var out map[string]any
	assert.False(t, LoadJSON(filepath.Join(t.TempDir(), "absent.json"), &out))
}

func TestLoadUnparseableIsAMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var out map[string]any
	assert.False(t, LoadJSON(path, &out))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.json")

	require.NoError(t, SaveJSON(path, map[string]int{"a": 1}))
	require.NoError(t, SaveJSON(path, map[string]int{"a": 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be renamed away")

	var out map[string]int
	require.True(t, LoadJSON(path, &out))
	assert.Equal(t, 2, out["a"])
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	assert.False(t, Exists(path))
	require.NoError(t, SaveJSON(path, 1))
	assert.True(t, Exists(path))
}
