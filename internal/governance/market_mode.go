package governance

import (
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// MarketModeEngine classifies the regime for reporting only. It reads
// DRS, trend, breadth damage, participation and the attack window; it
// never feeds back into ActionHint/Gate/DRS.
type MarketModeEngine struct {
	logger *logger.Logger
}

func NewMarketModeEngine(log *logger.Logger) *MarketModeEngine {
	return &MarketModeEngine{logger: log.WithField("component", "market_mode")}
}

// Classify walks the ladder DEFENSE_HIGH > DEFENSE > REPAIR >
// ATTACK_PREP > ATTACK > STABLE; first match wins.
func (e *MarketModeEngine) Classify(snap *contracts.Snapshot, gateLevel, drs string, attack *contracts.AttackPermit) *contracts.MarketMode {
	trend, _ := snap.Block("index_core").Str("trend_state")
	pctAbove, pctOK := snap.Block("breadth_plus").Float("pct_above_ma50")
	advRatio, advOK := snap.Block("market_sentiment").Float("adv_ratio")

	attackMode := "NONE"
	if attack != nil {
		attackMode = attack.Mode
	}

	mode := &contracts.MarketMode{
		SchemaVersion: overlaySchemaVersion,
		Asof:          snap.TradeDate,
		Inputs: map[string]any{
			"drs":         drs,
			"gate":        gateLevel,
			"trend_state": trend,
			"attack_mode": attackMode,
		},
		Reasons: []string{},
	}
	if pctOK {
		mode.Inputs["pct_above_ma50"] = pctAbove
	}
	if advOK {
		mode.Inputs["adv_ratio"] = advRatio
	}

	switch {
	case drs == contracts.DRSRed || gateLevel == contracts.GateFreeze:
		mode.Mode, mode.Severity = "DEFENSE_HIGH", "critical"
		mode.Reasons = append(mode.Reasons, "hard_risk_signal")
	case gateLevel == contracts.GatePlanB || trend == "broken":
		mode.Mode, mode.Severity = "DEFENSE", "high"
		mode.Reasons = append(mode.Reasons, "defensive_gate_or_trend")
	case trend == "down" || (pctOK && pctAbove < 40):
		mode.Mode, mode.Severity = "REPAIR", "medium"
		mode.Reasons = append(mode.Reasons, "damaged_tape_repairing")
	case attackMode == "LIMITED":
		mode.Mode, mode.Severity = "ATTACK_PREP", "low"
		mode.Reasons = append(mode.Reasons, "partial_attack_window")
	case attackMode == "FULL":
		mode.Mode, mode.Severity = "ATTACK", "low"
		mode.Reasons = append(mode.Reasons, "full_attack_window")
	default:
		mode.Mode, mode.Severity = "STABLE", "low"
		mode.Reasons = append(mode.Reasons, "no_regime_trigger")
	}

	return mode
}
