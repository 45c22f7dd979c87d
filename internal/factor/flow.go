package factor

import "github.com/wonny/unirisk/backend/internal/contracts"

// Leverage scores margin balance momentum. Expanding leverage into an
// uptrend is constructive; fast deleveraging is the risk signature.
type Leverage struct{}

func (f *Leverage) Name() string { return "leverage" }

func (f *Leverage) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	block := snap.Block("margin")
	if res, ok := fromBlock(f.Name(), block); !ok {
		return res
	}

	trend, trendOK := block.Float("trend_10d")
	acc, accOK := block.Float("acc_3d")
	if !trendOK && !accOK {
		return degraded(f.Name(), contracts.StatusPartial, "margin_derived_unavailable")
	}

	score := 50.0
	signal := "stable"
	if trendOK {
		// trend_10d 단위는 亿元
		score += clampRange(trend/30, -15, 15)
	}
	if accOK {
		score += clampRange(acc/20, -10, 10)
		if acc < -100 {
			signal = "deleveraging"
		} else if acc > 100 {
			signal = "releveraging"
		}
	}

	return result(f.Name(), score, signal, map[string]any{
		"trend_10d": trend,
		"acc_3d":    acc,
	})
}

// Flow scores ETF basket flow bias plus the northbound proxy pressure.
type Flow struct{}

func (f *Flow) Name() string { return "flow" }

func (f *Flow) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	etf := snap.Block("etf_flow")
	north := snap.Block("north_proxy")

	if (etf.Degraded() || etf.Empty()) && (north.Degraded() || north.Empty()) {
		return degraded(f.Name(), contracts.StatusMissing, "flow_inputs_unavailable")
	}

	score := 50.0
	signal := "neutral"

	if bias, ok := etf.Str("inflow_bias"); ok {
		switch bias {
		case "inflow":
			score += 12
			signal = "etf_inflow"
		case "outflow":
			score -= 12
			signal = "etf_outflow"
		}
	}

	if state, ok := north.Str("pressure_state"); ok {
		switch state {
		case "inflow":
			score += 10
		case "outflow":
			score -= 10
		case "heavy_outflow":
			score -= 20
			signal = "north_heavy_outflow"
		}
	}

	details := map[string]any{}
	if etf.Degraded() {
		details["etf_status"] = string(etf.Status)
	}
	if north.Degraded() {
		details["north_status"] = string(north.Status)
	}

	return result(f.Name(), score, signal, details)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
