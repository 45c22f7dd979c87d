package factor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func blockWith(name string, fields map[string]any) contracts.FactBlock {
	b := contracts.NewBlock(name, "2026-08-31")
	for k, v := range fields {
		b.Fields[k] = v
	}
	return b
}

func snapWith(blocks ...contracts.FactBlock) *contracts.Snapshot {
	m := make(map[string]contracts.FactBlock, len(blocks))
	for _, b := range blocks {
		m[b.Name] = b
	}
	return &contracts.Snapshot{Market: "cn", TradeDate: "2026-08-31", Blocks: m}
}

func TestComputeAllFillsEverySlot(t *testing.T) {
	e := NewEngine(testLogger())
	snap := snapWith() // 전 블록 결손

	out := e.ComputeAll(snap)

	require.Len(t, out, 8)
	for name, res := range out {
		assert.Equal(t, 50.0, res.Score, name)
		assert.Equal(t, "NEUTRAL", res.Level, name)
		assert.False(t, res.Usable(), "missing blocks must degrade the slot, not zero it")
	}
	assert.Equal(t, out, snap.Factors)
}

func TestDegradedBlockDegradesOnlyItsSlot(t *testing.T) {
	e := NewEngine(testLogger())
	snap := snapWith(
		blockWith("index_core", map[string]any{
			"trend_state": "up", "ret_20d_pct": 4.0, "above_ma50": true,
			"structural_health": "PASS",
		}),
		contracts.NewDegradedBlock("turnover", "2026-08-31", contracts.StatusError,
			[]string{"turnover_chg_pct"}, "fetch_failed"),
	)

	out := e.ComputeAll(snap)

	assert.True(t, out["trend"].Usable())
	assert.False(t, out["volume"].Usable())
	assert.Equal(t, 50.0, out["volume"].Score)
}

func TestTrendScoring(t *testing.T) {
	f := &Trend{}

	up := f.Compute(snapWith(blockWith("index_core", map[string]any{
		"trend_state": "up", "ret_20d_pct": 4.0, "above_ma50": true,
		"structural_health": "PASS",
	})))
	// 50 + 20 (up) + 6 (ret20*1.5) + 10 (above ma50)
	assert.InDelta(t, 86.0, up.Score, 0.001)
	assert.Equal(t, "LOW", up.Level)
	assert.Equal(t, "up", up.Signal)

	fail := f.Compute(snapWith(blockWith("index_core", map[string]any{
		"trend_state": "up", "ret_20d_pct": 4.0, "above_ma50": true,
		"structural_health": "FAIL",
	})))
	assert.InDelta(t, 43.0, fail.Score, 0.001, "structural FAIL halves the score")
	assert.Equal(t, "structural_fail", fail.Signal)

	broken := f.Compute(snapWith(blockWith("index_core", map[string]any{
		"trend_state": "broken", "ret_20d_pct": -12.0, "above_ma50": false,
		"structural_health": "PASS",
	})))
	// 50 - 30 - 18, clamped at 2
	assert.InDelta(t, 2.0, broken.Score, 0.001)
	assert.Equal(t, "HIGH", broken.Level)
}

func TestVolumeScoring(t *testing.T) {
	f := &Volume{}

	res := f.Compute(snapWith(blockWith("turnover", map[string]any{
		"turnover_chg_pct": 20.0,
	})))
	assert.InDelta(t, 62.0, res.Score, 0.001)
	assert.Equal(t, "expansion", res.Signal)

	dry := f.Compute(snapWith(blockWith("turnover", map[string]any{
		"turnover_chg_pct": -30.0,
	})))
	assert.InDelta(t, 32.0, dry.Score, 0.001)
	assert.Equal(t, "contraction", dry.Signal)
	assert.Equal(t, "HIGH", dry.Level)
}

type panicFactor struct{}

func (p *panicFactor) Name() string { return "panicky" }
func (p *panicFactor) Compute(*contracts.Snapshot) contracts.FactorResult {
	panic("boom")
}

func TestFactorPanicIsIsolated(t *testing.T) {
	e := &Engine{
		factors: []Factor{&panicFactor{}, &Trend{}},
		logger:  testLogger(),
	}
	snap := snapWith(blockWith("index_core", map[string]any{
		"trend_state": "up", "structural_health": "PASS",
	}))

	out := e.ComputeAll(snap)

	require.Len(t, out, 2)
	assert.False(t, out["panicky"].Usable())
	assert.Equal(t, 50.0, out["panicky"].Score)
	assert.True(t, out["trend"].Usable(), "other slots keep computing")
}
