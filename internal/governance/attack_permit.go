// Package governance holds the stateless overlay layers computed fresh
// every run from Gate/DRS/snapshot. Overlays narrow and explain; they
// never override the gate.
package governance

import (
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

const overlaySchemaVersion = "overlay.v2"

// Attack permission cutoffs. 네 지표 전부 충족해야 FULL.
const (
	attackAdvRatioMin     = 0.68
	attackTop20RatioMax   = 0.12
	attackPctAboveMA50Min = 55.0
	attackNewLowPctMax    = 1.2
)

// AttackPermitBuilder grants NONE/LIMITED/FULL attack permission from
// breadth, concentration and participation evidence.
type AttackPermitBuilder struct {
	logger *logger.Logger
}

func NewAttackPermitBuilder(log *logger.Logger) *AttackPermitBuilder {
	return &AttackPermitBuilder{logger: log.WithField("component", "attack_permit")}
}

// Build evaluates the cutoffs. Gate=Freeze is an unconditional NONE
// regardless of evidence; missing inputs degrade the grant, never
// escalate it, and are recorded as warnings — never fabricated as zero.
func (b *AttackPermitBuilder) Build(snap *contracts.Snapshot, gateLevel string) *contracts.AttackPermit {
	permit := &contracts.AttackPermit{
		SchemaVersion: overlaySchemaVersion,
		Asof:          snap.TradeDate,
		Permit:        "NO",
		Mode:          "NONE",
		Allowed:       []string{},
		Constraints:   []string{},
		Evidence:      map[string]any{"gate": gateLevel},
		Warnings:      []string{},
	}

	if gateLevel == contracts.GateFreeze {
		permit.Label = "frozen"
		permit.Constraints = append(permit.Constraints, "gate_freeze")
		return permit
	}

	sentiment := snap.Block("market_sentiment")
	breadth := snap.Block("breadth_plus")

	passes, checked := 0, 0

	check := func(name string, value float64, ok bool, pass bool) {
		if !ok {
			permit.Warnings = append(permit.Warnings, name+"_missing")
			return
		}
		permit.Evidence[name] = value
		checked++
		if pass {
			passes++
		} else {
			permit.Constraints = append(permit.Constraints, name+"_below_cutoff")
		}
	}

	advRatio, advOK := sentiment.Float("adv_ratio")
	check("adv_ratio", advRatio, advOK && !sentiment.Degraded(), advRatio >= attackAdvRatioMin)

	top20, topOK := breadth.Float("top20_ratio")
	check("top20_ratio", top20, topOK, top20 <= attackTop20RatioMax)

	pctAbove, pctOK := breadth.Float("pct_above_ma50")
	check("pct_above_ma50", pctAbove, pctOK, pctAbove >= attackPctAboveMA50Min)

	newLow, lowOK := breadth.Float("new_low_ratio_pct")
	check("new_low_ratio_pct", newLow, lowOK, newLow <= attackNewLowPctMax)

	missing := 4 - checked

	switch {
	case checked == 4 && passes == 4:
		permit.Permit, permit.Mode, permit.Label = "YES", "FULL", "full_attack_window"
		permit.Allowed = []string{"new_positions", "size_up"}
	case missing == 0 && passes >= 3:
		permit.Permit, permit.Mode, permit.Label = "YES", "LIMITED", "partial_attack_window"
		permit.Allowed = []string{"new_positions"}
	case missing > 0 && passes == checked && checked >= 2:
		// 결손은 등급을 낮추되, 확인된 지표가 전부 통과면 LIMITED까지는 허용
		permit.Permit, permit.Mode, permit.Label = "YES", "LIMITED", "degraded_evidence"
		permit.Allowed = []string{"new_positions"}
	default:
		permit.Label = "no_window"
	}

	return permit
}
