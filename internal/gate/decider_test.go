package gate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
)

func newTestDecider(t *testing.T, cooldownDays int) (*Decider, string) {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "gate_state.json")
	engine := LoadRules(filepath.Join(t.TempDir(), "*.yaml"), testLogger())
	return NewDecider(engine, statePath, cooldownDays, testLogger()), statePath
}

func okBlock(name, date string, fields map[string]any) contracts.FactBlock {
	b := contracts.NewBlock(name, date)
	for k, v := range fields {
		b.Fields[k] = v
	}
	return b
}

// healthySnapshot has every gate pillar present and passing.
func healthySnapshot(date string) *contracts.Snapshot {
	return &contracts.Snapshot{
		Market:    "cn",
		TradeDate: date,
		Blocks: map[string]contracts.FactBlock{
			"index_core": okBlock("index_core", date, map[string]any{
				"structural_health": "PASS",
				"trend_state":       "up",
			}),
			"breadth_plus": okBlock("breadth_plus", date, map[string]any{
				"pct_above_ma50":    60.0,
				"new_low_ratio_pct": 0.5,
			}),
			"market_sentiment": okBlock("market_sentiment", date, map[string]any{
				"adv_ratio": 0.7,
			}),
			"rotation_snapshot": okBlock("rotation_snapshot", date, map[string]any{
				"positive_sectors": 5.0,
				"sector_count":     8.0,
			}),
		},
	}
}

// damagedSnapshot has degraded breadth and sentiment plus a structural break.
func damagedSnapshot(date string) *contracts.Snapshot {
	snap := healthySnapshot(date)
	snap.Blocks["index_core"] = okBlock("index_core", date, map[string]any{
		"structural_health": "FAIL",
		"trend_state":       "broken",
	})
	snap.Blocks["breadth_plus"] = contracts.NewDegradedBlock(
		"breadth_plus", date, contracts.StatusMissing,
		[]string{"pct_above_ma50", "new_low_ratio_pct"}, "fetch_failed")
	snap.Blocks["market_sentiment"] = contracts.NewDegradedBlock(
		"market_sentiment", date, contracts.StatusError,
		[]string{"adv_ratio"}, "fetch_failed")
	return snap
}

func TestHealthyFreshRunIsNormal(t *testing.T) {
	d, statePath := newTestDecider(t, 3)

	block := d.Decide(healthySnapshot("2026-08-31"))

	assert.Equal(t, contracts.GateNormal, block.Level)
	assert.Empty(t, block.Discipline.Violations)
	assert.False(t, block.Discipline.ZigzagDetected)
	assert.Equal(t, SchemaVersion, block.Version)

	var state contracts.GateState
	require.True(t, cache.LoadJSON(statePath, &state))
	assert.Equal(t, contracts.GateNormal, state.Level)
	assert.Equal(t, "2026-08-31", state.LastChangedDate)
}

func TestDegradedPillarsEscalateToPlanB(t *testing.T) {
	d, _ := newTestDecider(t, 3)

	block := d.Decide(damagedSnapshot("2026-08-31"))

	assert.Equal(t, contracts.GatePlanB, block.Level)
	assert.Contains(t, block.Reasons, "breadth_missing")
	assert.Contains(t, block.Reasons, "participation_missing")
	assert.Contains(t, block.Reasons, "structural_health_fail")
}

func TestDegradationSkipsCooldown(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{
		Level:           contracts.GateNormal,
		LastChangedDate: "2026-08-30",
	}))
	d.now = func() time.Time { return mustDate("2026-08-31") }

	block := d.Decide(damagedSnapshot("2026-08-31"))

	assert.Equal(t, contracts.GatePlanB, block.Level, "worsening is never rate-limited")
	assert.Empty(t, block.Discipline.Violations)
}

func TestPlanBToNormalClampsToCaution(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	// legacy state file without last_changed_date
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{Level: contracts.GatePlanB}))

	block := d.Decide(healthySnapshot("2026-08-31"))

	assert.Equal(t, contracts.GateCaution, block.Level)
	assert.True(t, block.Discipline.ZigzagDetected)
	assert.Contains(t, block.Discipline.Violations, "forbidden_jump_planb_to_normal")
}

func TestFreezeRecoveryClampsToPlanB(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{Level: contracts.GateFreeze}))

	block := d.Decide(healthySnapshot("2026-08-31"))

	assert.Equal(t, contracts.GatePlanB, block.Level)
	assert.True(t, block.Discipline.ZigzagDetected)
	assert.Contains(t, block.Discipline.Violations, "forbidden_jump_freeze_recovery")
}

func TestCooldownGuardsNormalReentryOnly(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{
		Level:           contracts.GateCaution,
		LastChangedDate: "2026-08-30",
	}))
	d.now = func() time.Time { return mustDate("2026-08-31") }

	block := d.Decide(healthySnapshot("2026-08-31"))

	assert.Equal(t, contracts.GateCaution, block.Level, "one day into a 3-day cooldown")
	assert.True(t, block.Discipline.ZigzagDetected)
	assert.Contains(t, block.Discipline.Violations, "cooldown_active")
	assert.Contains(t, block.Reasons, "cooldown_hold")
}

func TestJumpClampRunsBeforeCooldown(t *testing.T) {
	// PlanB에서의 Normal 시도는 쿨다운이 아니라 점프 금지로 기록돼야 한다
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{
		Level:           contracts.GatePlanB,
		LastChangedDate: "2026-08-30",
	}))
	d.now = func() time.Time { return mustDate("2026-08-31") }

	block := d.Decide(healthySnapshot("2026-08-31"))

	assert.Equal(t, contracts.GateCaution, block.Level)
	assert.True(t, block.Discipline.ZigzagDetected)
	assert.Contains(t, block.Discipline.Violations, "forbidden_jump_planb_to_normal")
	assert.NotContains(t, block.Discipline.Violations, "cooldown_active")
	assert.Contains(t, block.Reasons, "enforced_gradual_recovery")
}

func TestOneStepRecoveryIgnoresCooldown(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{
		Level:           contracts.GatePlanB,
		LastChangedDate: "2026-08-30",
	}))
	d.now = func() time.Time { return mustDate("2026-08-31") }

	// raw가 Caution으로 나오는 스냅샷: 참여 약세 + 추세 flat
	snap := healthySnapshot("2026-08-31")
	snap.Blocks["market_sentiment"] = okBlock("market_sentiment", "2026-08-31", map[string]any{
		"adv_ratio": 0.3,
	})
	snap.Blocks["index_core"] = okBlock("index_core", "2026-08-31", map[string]any{
		"structural_health": "PASS",
		"trend_state":       "flat",
	})

	block := d.Decide(snap)

	assert.Equal(t, contracts.GateCaution, block.Level, "PlanB→Caution is allowed mid-cooldown")
	assert.NotContains(t, block.Discipline.Violations, "cooldown_active")
}

func TestHighRiskHoldsPlanB(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{
		Level:           contracts.GatePlanB,
		LastChangedDate: "2026-08-20",
	}))
	d.now = func() time.Time { return mustDate("2026-08-31") }

	snap := healthySnapshot("2026-08-31")
	snap.Prediction = &contracts.Prediction{FinalScore: 80, RiskLevel: contracts.RiskHigh}

	block := d.Decide(snap)

	assert.Equal(t, contracts.GatePlanB, block.Level)
	assert.Contains(t, block.Discipline.Violations, "high_risk_hold")
}

func TestWeakParticipationSoftReleased(t *testing.T) {
	d, _ := newTestDecider(t, 3)

	snap := healthySnapshot("2026-08-31")
	snap.Blocks["market_sentiment"] = okBlock("market_sentiment", "2026-08-31", map[string]any{
		"adv_ratio": 0.3,
	})

	block := d.Decide(snap)

	// 추세/구조/breadth가 모두 건강 → 참여 약세 단독으론 잠그지 않는다
	assert.Equal(t, contracts.GateNormal, block.Level)
	assert.Contains(t, block.Reasons, "participation_low_soft_released")

	p, ok := block.Signals["participation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, p["soft_release"])
	assert.Equal(t, map[string]any{
		"trend_in_force":    true,
		"structural_health": true,
		"breadth":           true,
	}, p["release_if"])
}

func TestWeakParticipationLocksWhenBreadthDamaged(t *testing.T) {
	d, _ := newTestDecider(t, 3)

	snap := healthySnapshot("2026-08-31")
	snap.Blocks["market_sentiment"] = okBlock("market_sentiment", "2026-08-31", map[string]any{
		"adv_ratio": 0.3,
	})
	snap.Blocks["breadth_plus"] = okBlock("breadth_plus", "2026-08-31", map[string]any{
		"pct_above_ma50":    25.0,
		"new_low_ratio_pct": 0.5,
	})

	block := d.Decide(snap)

	assert.Equal(t, contracts.GateCaution, block.Level)
	assert.Contains(t, block.Reasons, "participation_low")

	p, ok := block.Signals["participation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, p["soft_release"])
	assert.Equal(t, map[string]any{
		"trend_in_force":    true,
		"structural_health": true,
		"breadth":           false,
	}, p["release_if"])
}

func TestLastChangedDatePreservedWhileLevelHolds(t *testing.T) {
	d, statePath := newTestDecider(t, 3)

	d.Decide(healthySnapshot("2026-08-28"))
	d.Decide(healthySnapshot("2026-08-31"))

	var state contracts.GateState
	require.True(t, cache.LoadJSON(statePath, &state))
	assert.Equal(t, contracts.GateNormal, state.Level)
	assert.Equal(t, "2026-08-31", state.TradeDate)
	assert.Equal(t, "2026-08-28", state.LastChangedDate, "unchanged level keeps the original change date")
}

func TestInvalidPersistedStateIgnored(t *testing.T) {
	d, statePath := newTestDecider(t, 3)
	require.NoError(t, cache.SaveJSON(statePath, contracts.GateState{Level: "Bananas"}))

	block := d.Decide(healthySnapshot("2026-08-31"))

	assert.Equal(t, contracts.GateNormal, block.Level, "garbage state must not pin the gate")
}

func TestDeciderPanicDegradesToCaution(t *testing.T) {
	d, _ := newTestDecider(t, 3)
	d.engine = nil // forces a panic inside Decide

	snap := healthySnapshot("2026-08-31")
	block := d.Decide(snap)

	require.NotNil(t, block)
	assert.Equal(t, contracts.GateCaution, block.Level)
	assert.Same(t, block, snap.Gate)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
