package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
)

func TestLoadDRS(t *testing.T) {
	store := cache.New(t.TempDir())
	log := testLogger()

	t.Run("missing drop defaults yellow", func(t *testing.T) {
		assert.Equal(t, contracts.DRSYellow, LoadDRS(store, "cn", log))
	})

	t.Run("valid drop", func(t *testing.T) {
		path := store.CachePath("cn", "drs", "drs_signal.json")
		require.NoError(t, cache.SaveJSON(path, map[string]string{
			"asof": "2026-08-31", "signal": "RED",
		}))
		assert.Equal(t, contracts.DRSRed, LoadDRS(store, "cn", log))
	})

	t.Run("garbage signal defaults yellow", func(t *testing.T) {
		path := store.CachePath("cn", "drs", "drs_signal.json")
		require.NoError(t, cache.SaveJSON(path, map[string]string{
			"asof": "2026-08-31", "signal": "PURPLE",
		}))
		assert.Equal(t, contracts.DRSYellow, LoadDRS(store, "cn", log))
	})
}

func TestExecutionBand(t *testing.T) {
	date := "2026-08-31"
	band := func(chg any) string {
		blocks := map[string]contracts.FactBlock{}
		if chg != nil {
			blocks["turnover"] = okBlock("turnover", date, map[string]any{"turnover_chg_pct": chg})
		}
		return ExecutionBand(snapWith(date, blocks))
	}

	assert.Equal(t, "D1", band(5.0))
	assert.Equal(t, "D1", band(-10.0), "boundary stays D1")
	assert.Equal(t, "D2", band(-12.0))
	assert.Equal(t, "D3", band(-30.0))
	assert.Equal(t, "D2", band(nil), "missing turnover is a warning, not worst case")
}
