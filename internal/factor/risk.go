package factor

import "github.com/wonny/unirisk/backend/internal/contracts"

// Sentiment scores the day's advance/decline internals.
type Sentiment struct{}

func (f *Sentiment) Name() string { return "sentiment" }

func (f *Sentiment) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	block := snap.Block("market_sentiment")
	if res, ok := fromBlock(f.Name(), block); !ok {
		return res
	}

	advRatio, ok := block.Float("adv_ratio")
	if !ok {
		return degraded(f.Name(), contracts.StatusPartial, "adv_ratio_unavailable")
	}

	// adv_ratio 0.5가 중립
	score := advRatio * 100

	signal := "balanced"
	if net, ok := block.Float("limit_up_net"); ok {
		switch {
		case net <= -20:
			score -= 15
			signal = "limit_down_wave"
		case net >= 40:
			score += 8
			signal = "limit_up_wave"
		}
	}

	return result(f.Name(), score, signal, map[string]any{
		"adv_ratio": advRatio,
	})
}

// Breadth scores universe participation from the warehouse stats.
type Breadth struct{}

func (f *Breadth) Name() string { return "breadth" }

func (f *Breadth) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	block := snap.Block("breadth_plus")
	if res, ok := fromBlock(f.Name(), block); !ok {
		return res
	}

	pctAbove, ok := block.Float("pct_above_ma50")
	if !ok {
		return degraded(f.Name(), contracts.StatusPartial, "pct_above_ma50_unavailable")
	}

	score := pctAbove
	signal := "normal"

	if newLow, ok := block.Float("new_low_ratio_pct"); ok && newLow > 3 {
		score -= newLow * 3
		signal = "new_low_expansion"
	}
	if top20, ok := block.Float("top20_ratio"); ok && top20 > 0.20 {
		score -= 10
		signal = "concentration"
	}

	return result(f.Name(), score, signal, map[string]any{
		"pct_above_ma50": pctAbove,
	})
}

// Derivatives scores futures basis plus the volatility proxy together.
type Derivatives struct{}

func (f *Derivatives) Name() string { return "derivatives" }

func (f *Derivatives) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	fut := snap.Block("futures_basis")
	opt := snap.Block("options_risk")

	if (fut.Degraded() || fut.Empty()) && (opt.Degraded() || opt.Empty()) {
		return degraded(f.Name(), contracts.StatusMissing, "derivative_inputs_unavailable")
	}

	score := 50.0
	signal := "calm"

	if state, ok := fut.Str("basis_state"); ok {
		switch state {
		case "deep_discount":
			score -= 20
			signal = "futures_discount"
		case "discount":
			score -= 8
		case "premium":
			score += 8
		}
	}

	if state, ok := opt.Str("risk_state"); ok {
		switch state {
		case "stressed":
			score -= 20
			signal = "vol_spike"
		case "elevated":
			score -= 10
		}
	}

	return result(f.Name(), score, signal, nil)
}

// GlobalRisk scores the overnight global lead.
type GlobalRisk struct{}

func (f *GlobalRisk) Name() string { return "global" }

func (f *GlobalRisk) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	block := snap.Block("global_lead")
	if res, ok := fromBlock(f.Name(), block); !ok {
		return res
	}

	score, ok := block.Float("lead_score")
	if !ok {
		return degraded(f.Name(), contracts.StatusPartial, "lead_score_unavailable")
	}

	signal := "neutral"
	if riskOff, ok := block.Bool("risk_off"); ok && riskOff {
		signal = "risk_off"
	}

	return result(f.Name(), score, signal, map[string]any{
		"lead_score": score,
	})
}
