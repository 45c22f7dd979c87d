package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/unirisk/backend/internal/contracts"
)

func modeSnap(date, trend string, pctAbove float64) *contracts.Snapshot {
	return snapWith(date, map[string]contracts.FactBlock{
		"index_core":       okBlock("index_core", date, map[string]any{"trend_state": trend}),
		"breadth_plus":     okBlock("breadth_plus", date, map[string]any{"pct_above_ma50": pctAbove}),
		"market_sentiment": okBlock("market_sentiment", date, map[string]any{"adv_ratio": 0.55}),
	})
}

func TestModeLadderFirstMatchWins(t *testing.T) {
	e := NewMarketModeEngine(testLogger())
	full := &contracts.AttackPermit{Mode: "FULL"}
	limited := &contracts.AttackPermit{Mode: "LIMITED"}

	cases := []struct {
		name   string
		snap   *contracts.Snapshot
		gate   string
		drs    string
		attack *contracts.AttackPermit
		want   string
	}{
		{"drs red tops everything", modeSnap("2026-08-31", "up", 60), contracts.GateNormal, contracts.DRSRed, full, "DEFENSE_HIGH"},
		{"freeze tops everything", modeSnap("2026-08-31", "up", 60), contracts.GateFreeze, contracts.DRSGreen, full, "DEFENSE_HIGH"},
		{"planb is defense", modeSnap("2026-08-31", "up", 60), contracts.GatePlanB, contracts.DRSGreen, full, "DEFENSE"},
		{"broken trend is defense", modeSnap("2026-08-31", "broken", 60), contracts.GateNormal, contracts.DRSGreen, full, "DEFENSE"},
		{"down trend repairs", modeSnap("2026-08-31", "down", 60), contracts.GateNormal, contracts.DRSGreen, nil, "REPAIR"},
		{"thin breadth repairs", modeSnap("2026-08-31", "flat", 35), contracts.GateNormal, contracts.DRSGreen, nil, "REPAIR"},
		{"limited window preps", modeSnap("2026-08-31", "up", 60), contracts.GateNormal, contracts.DRSGreen, limited, "ATTACK_PREP"},
		{"full window attacks", modeSnap("2026-08-31", "up", 60), contracts.GateNormal, contracts.DRSGreen, full, "ATTACK"},
		{"nothing triggers stable", modeSnap("2026-08-31", "up", 60), contracts.GateNormal, contracts.DRSGreen, nil, "STABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode := e.Classify(tc.snap, tc.gate, tc.drs, tc.attack)
			assert.Equal(t, tc.want, mode.Mode)
			assert.NotEmpty(t, mode.Reasons)
		})
	}
}

func TestModeRecordsInputs(t *testing.T) {
	e := NewMarketModeEngine(testLogger())

	mode := e.Classify(modeSnap("2026-08-31", "up", 60), contracts.GateNormal, contracts.DRSGreen, nil)

	assert.Equal(t, "2026-08-31", mode.Asof)
	assert.Equal(t, "up", mode.Inputs["trend_state"])
	assert.Equal(t, "NONE", mode.Inputs["attack_mode"])
	assert.Equal(t, 60.0, mode.Inputs["pct_above_ma50"])
}
