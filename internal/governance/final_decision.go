package governance

import (
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// FinalDecisionLayer reconciles DRS, Gate and overlays into one action
// hint with strict priority DRS > Gate > overlays. Overlays only ever
// become notes; they cannot move the code.
type FinalDecisionLayer struct {
	logger *logger.Logger
}

func NewFinalDecisionLayer(log *logger.Logger) *FinalDecisionLayer {
	return &FinalDecisionLayer{logger: log.WithField("component", "final_decision")}
}

// Build maps (drs, gate) to an action code A/N/D.
func (l *FinalDecisionLayer) Build(gateLevel, drs, executionBand string, attack *contracts.AttackPermit, sector *contracts.SectorPermit) *contracts.FinalDecision {
	dec := &contracts.FinalDecision{
		SchemaVersion: overlaySchemaVersion,
		Gate:          gateLevel,
		DRS:           drs,
		ExecutionBand: executionBand,
		Notes:         map[string]any{},
	}

	switch {
	case drs == contracts.DRSRed:
		// 하드 비토 — 어떤 오버레이도 뒤집을 수 없다
		dec.ActionHintCode = "D"
		dec.Veto = "drs_red"
	case gateLevel == contracts.GateFreeze || gateLevel == contracts.GatePlanB:
		dec.ActionHintCode = "D"
	case gateLevel == contracts.GateCaution:
		dec.ActionHintCode = "N"
	default:
		dec.ActionHintCode = "A"
	}

	if attack != nil {
		dec.Notes["attack_permit"] = map[string]any{"permit": attack.Permit, "mode": attack.Mode}
	}
	if sector != nil {
		dec.Notes["sector_permit"] = map[string]any{"permit": sector.Permit, "mode": sector.Mode}
	}

	l.logger.WithFields(map[string]interface{}{
		"code": dec.ActionHintCode,
		"gate": gateLevel,
		"drs":  drs,
	}).Info("final decision")

	return dec
}
