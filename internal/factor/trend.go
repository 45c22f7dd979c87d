package factor

import "github.com/wonny/unirisk/backend/internal/contracts"

// Trend scores the benchmark index's structural position.
type Trend struct{}

func (f *Trend) Name() string { return "trend" }

func (f *Trend) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	block := snap.Block("index_core")
	if res, ok := fromBlock(f.Name(), block); !ok {
		return res
	}

	score := 50.0
	state, _ := block.Str("trend_state")
	switch state {
	case "up":
		score += 20
	case "down":
		score -= 15
	case "broken":
		score -= 30
	}

	if ret20, ok := block.Float("ret_20d_pct"); ok {
		score += ret20 * 1.5
	}
	if above, ok := block.Bool("above_ma50"); ok && above {
		score += 10
	}

	signal := state
	if health, _ := block.Str("structural_health"); health == "FAIL" {
		score = clamp(score) * 0.5 // 구조 훼손 시 상단을 절반으로 제한
		signal = "structural_fail"
	}

	return result(f.Name(), score, signal, map[string]any{
		"trend_state": state,
	})
}

// Volume scores turnover expansion/contraction against its 5-day baseline.
type Volume struct{}

func (f *Volume) Name() string { return "volume" }

func (f *Volume) Compute(snap *contracts.Snapshot) contracts.FactorResult {
	block := snap.Block("turnover")
	if res, ok := fromBlock(f.Name(), block); !ok {
		return res
	}

	chg, ok := block.Float("turnover_chg_pct")
	if !ok {
		return degraded(f.Name(), contracts.StatusPartial, "turnover_chg_unavailable")
	}

	// 거래대금 확대는 완만한 가점, 급감은 감점
	score := 50 + chg*0.6
	signal := "steady"
	switch {
	case chg > 15:
		signal = "expansion"
	case chg < -15:
		signal = "contraction"
	}

	return result(f.Name(), score, signal, map[string]any{
		"turnover_chg_pct": chg,
	})
}
