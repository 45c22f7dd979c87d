package gate

import "github.com/wonny/unirisk/backend/internal/contracts"

// weakAdvRatio is the advancer share below which participation reads LOW.
const weakAdvRatio = 0.40

// BuildContext flattens snapshot facts into the nested map rules evaluate
// against. A pillar that cannot be derived is present with a nil value so
// rules can tell "missing" from "healthy" (exists vs eq).
func BuildContext(snap *contracts.Snapshot) map[string]any {
	gctx := map[string]any{}

	// structural pillar (benchmark index)
	idx := snap.Block("index_core")
	structural := map[string]any{"health": nil, "trend_state": nil}
	if !idx.Degraded() {
		if health, ok := idx.Str("structural_health"); ok {
			structural["health"] = health
		}
		if state, ok := idx.Str("trend_state"); ok {
			structural["trend_state"] = state
		}
	}
	gctx["structural_context"] = structural

	// breadth damage pillar
	breadth := snap.Block("breadth_plus")
	if breadth.Degraded() {
		gctx["breadth_damage"] = nil
	} else {
		pctAbove, _ := breadth.Float("pct_above_ma50")
		newLow, _ := breadth.Float("new_low_ratio_pct")
		gctx["breadth_damage"] = map[string]any{
			"pct_above_ma50":    pctAbove,
			"new_low_ratio_pct": newLow,
			"damaged":           pctAbove < 30 || newLow > 5,
		}
	}

	// participation pillar
	sentiment := snap.Block("market_sentiment")
	if adv, ok := sentiment.Float("adv_ratio"); ok && !sentiment.Degraded() {
		level := "OK"
		if adv < weakAdvRatio {
			level = "LOW"
		}
		gctx["participation"] = map[string]any{"adv_ratio": adv, "level": level}
	} else {
		gctx["participation"] = nil
	}

	// index/sector agreement pillar
	rotation := snap.Block("rotation_snapshot")
	if rotation.Degraded() || idx.Degraded() {
		gctx["index_sector_corr"] = nil
	} else {
		positive, _ := rotation.Float("positive_sectors")
		count, _ := rotation.Float("sector_count")
		share := 0.0
		if count > 0 {
			share = positive / count
		}
		indexUp := false
		if state, ok := idx.Str("trend_state"); ok {
			indexUp = state == "up"
		}
		gctx["index_sector_corr"] = map[string]any{
			"positive_share": share,
			"diverging":      indexUp && share < 0.3,
		}
	}

	// supporting facts for rule files
	gctx["margin"] = blockFields(snap.Block("margin"))
	gctx["derivatives"] = map[string]any{
		"basis_state": strOrNil(snap.Block("futures_basis"), "basis_state"),
		"risk_state":  strOrNil(snap.Block("options_risk"), "risk_state"),
	}
	gctx["global"] = blockFields(snap.Block("global_lead"))

	if snap.Prediction != nil {
		gctx["prediction"] = map[string]any{
			"final_score": snap.Prediction.FinalScore,
			"risk_level":  snap.Prediction.RiskLevel,
		}
	} else {
		gctx["prediction"] = nil
	}

	return gctx
}

func blockFields(b contracts.FactBlock) any {
	if b.Degraded() || b.Empty() {
		return nil
	}
	return b.Fields
}

func strOrNil(b contracts.FactBlock, key string) any {
	if b.Degraded() {
		return nil
	}
	if s, ok := b.Str(key); ok {
		return s
	}
	return nil
}
