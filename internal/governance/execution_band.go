package governance

import "github.com/wonny/unirisk/backend/internal/contracts"

// ExecutionBand grades execution friction from turnover contraction:
// D1 normal, D2 thinning, D3 severe (D3 vetoes sector rotation).
func ExecutionBand(snap *contracts.Snapshot) string {
	chg, ok := snap.Block("turnover").Float("turnover_chg_pct")
	if !ok {
		// 거래대금 결손이면 가장 나쁜 등급이 아니라 중간 등급 — 결손은 경고지 증거가 아니다
		return "D2"
	}
	switch {
	case chg < -25:
		return "D3"
	case chg < -10:
		return "D2"
	default:
		return "D1"
	}
}
