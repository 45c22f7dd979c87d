package gate

import (
	"fmt"
	"time"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// SchemaVersion tags persisted state and decision payloads.
const SchemaVersion = "gate.v2"

// Decider is the stateful half of the gate: it applies the rule pass,
// the built-in pillar discipline, and the anti-zigzag recovery limits
// against the persisted prior state.
//
// 원칙: 악화는 즉시, 회복은 한 단계씩 + 쿨다운.
type Decider struct {
	engine       *RuleEngine
	statePath    string
	cooldownDays int
	logger       *logger.Logger

	now func() time.Time
}

// NewDecider wires the decider. statePath is the single authoritative
// gate state file.
func NewDecider(engine *RuleEngine, statePath string, cooldownDays int, log *logger.Logger) *Decider {
	if cooldownDays < 1 {
		cooldownDays = 1
	}
	return &Decider{
		engine:       engine,
		statePath:    statePath,
		cooldownDays: cooldownDays,
		logger:       log.WithField("component", "gate_decider"),
		now:          time.Now,
	}
}

// Decide runs one full decision cycle for the snapshot and persists the
// resulting state. It never returns nil and never panics across the
// boundary: any internal failure degrades to a conservative Caution.
func (d *Decider) Decide(snap *contracts.Snapshot) (block *contracts.GateBlock) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("panic", fmt.Sprint(r)).Error("🚨 gate decision panicked, degrading to Caution")
			block = &contracts.GateBlock{
				Level:      contracts.GateCaution,
				Reasons:    []string{fmt.Sprintf("decider_panic: %v", r)},
				Signals:    map[string]any{},
				Discipline: contracts.GateDiscipline{Violations: []string{}, CooldownDays: d.cooldownDays},
				Version:    SchemaVersion,
			}
			snap.Gate = block
		}
	}()

	gctx := BuildContext(snap)
	prior, hasPrior := d.loadState()

	pass := d.engine.Apply(contracts.GateNormal, gctx)
	level, reasons := pass.Level, pass.Reasons

	// built-in pillar discipline, independent of rule files
	level, reasons = applyPillarGuards(gctx, level, reasons)

	discipline := contracts.GateDiscipline{
		Violations:   []string{},
		CooldownDays: d.cooldownDays,
	}

	if hasPrior {
		level, discipline, reasons = d.applyRecoveryLimits(prior, level, discipline, reasons, snap)
	}

	block = &contracts.GateBlock{
		Level:         level,
		Reasons:       reasons,
		Signals:       gctx,
		Discipline:    discipline,
		ForbidActions: pass.Forbid,
		RuleEvidence:  pass.Evidence,
		LoadErrors:    d.engine.LoadErrors(),
		Version:       SchemaVersion,
	}

	d.persistState(prior, hasPrior, level, snap.TradeDate)
	snap.Gate = block

	d.logger.WithFields(map[string]interface{}{
		"trade_date": snap.TradeDate,
		"level":      level,
		"reasons":    len(reasons),
		"zigzag":     discipline.ZigzagDetected,
	}).Info("gate decided")

	return block
}

// applyPillarGuards enforces the missing-pillar and structural-health
// discipline that rule files must not be able to disable.
func applyPillarGuards(gctx map[string]any, level string, reasons []string) (string, []string) {
	if v, ok := gctx["breadth_damage"]; ok && v == nil {
		level = contracts.MaxGate(level, contracts.GateCaution)
		reasons = appendUnique(reasons, "breadth_missing")
	}
	if v, ok := gctx["participation"]; ok && v == nil {
		level = contracts.MaxGate(level, contracts.GateCaution)
		reasons = appendUnique(reasons, "participation_missing")
	}
	if v, ok := gctx["index_sector_corr"]; ok && v == nil {
		level = contracts.MaxGate(level, contracts.GateCaution)
		reasons = appendUnique(reasons, "index_sector_corr_missing")
	}

	if health, ok := lookupPath(gctx, "structural_context.health"); ok {
		if s, sok := health.(string); sok && s == "FAIL" {
			level = contracts.MaxGate(level, contracts.GatePlanB)
			reasons = appendUnique(reasons, "structural_health_fail")
		}
	}

	level, reasons = applyParticipationRelease(gctx, level, reasons)

	return level, reasons
}

// applyParticipationRelease handles participation=LOW. 단독으로는 게이트를
// 잠그지 않는다: 추세/구조/breadth가 모두 건강하면 soft release, 증거만 기록.
func applyParticipationRelease(gctx map[string]any, level string, reasons []string) (string, []string) {
	p, ok := gctx["participation"].(map[string]any)
	if !ok || p["level"] != "LOW" {
		return level, reasons
	}

	trendOK := pathEquals(gctx, "structural_context.trend_state", "up")
	healthOK := pathEquals(gctx, "structural_context.health", "PASS")
	breadthOK := false
	if bd, bok := gctx["breadth_damage"].(map[string]any); bok {
		breadthOK = bd["damaged"] == false
	}

	released := trendOK && healthOK && breadthOK
	p["soft_release"] = released
	p["release_if"] = map[string]any{
		"trend_in_force":    trendOK,
		"structural_health": healthOK,
		"breadth":           breadthOK,
	}

	if released {
		reasons = appendUnique(reasons, "participation_low_soft_released")
		return level, reasons
	}
	level = contracts.MaxGate(level, contracts.GateCaution)
	reasons = appendUnique(reasons, "participation_low")
	return level, reasons
}

func pathEquals(gctx map[string]any, path, want string) bool {
	v, ok := lookupPath(gctx, path)
	if !ok {
		return false
	}
	s, sok := v.(string)
	return sok && s == want
}

// applyRecoveryLimits rate-limits improvement against the prior state.
// Degradation always passes through untouched. Order matters: the HIGH-risk
// hold and the jump clamps run first, then the calendar cooldown guards
// Normal re-entry only — 한 단계 회복(PlanB→Caution)은 즉시 허용.
func (d *Decider) applyRecoveryLimits(prior contracts.GateState, raw string, disc contracts.GateDiscipline, reasons []string, snap *contracts.Snapshot) (string, contracts.GateDiscipline, []string) {
	priorRank, rawRank := contracts.GateRank(prior.Level), contracts.GateRank(raw)
	if priorRank < 0 || rawRank >= priorRank {
		return raw, disc, reasons
	}

	// hold: 예측 리스크가 HIGH인 동안 PlanB/Freeze에서 풀지 않는다
	if priorRank >= contracts.GateRank(contracts.GatePlanB) &&
		snap.Prediction != nil && snap.Prediction.RiskLevel == contracts.RiskHigh {
		disc.Violations = append(disc.Violations, "high_risk_hold")
		reasons = appendUnique(reasons, "high_risk_hold")
		return prior.Level, disc, reasons
	}

	level := raw
	switch {
	case prior.Level == contracts.GatePlanB && raw == contracts.GateNormal:
		disc.ZigzagDetected = true
		disc.Violations = append(disc.Violations, "forbidden_jump_planb_to_normal")
		reasons = appendUnique(reasons, "enforced_gradual_recovery")
		level = contracts.GateCaution
	case prior.Level == contracts.GateFreeze && rawRank < contracts.GateRank(contracts.GatePlanB):
		disc.ZigzagDetected = true
		disc.Violations = append(disc.Violations, "forbidden_jump_freeze_recovery")
		reasons = appendUnique(reasons, "enforced_gradual_recovery")
		level = contracts.GatePlanB
	}

	// calendar cooldown: 마지막 변경 후 N일이 지나기 전엔 Normal 재진입 금지
	if level == contracts.GateNormal &&
		prior.LastChangedDate != "" && d.daysSince(prior.LastChangedDate) < d.cooldownDays {
		disc.ZigzagDetected = true
		disc.Violations = append(disc.Violations, "cooldown_active")
		reasons = appendUnique(reasons, "cooldown_hold")
		level = contracts.GateCaution
	}

	return level, disc, reasons
}

func (d *Decider) daysSince(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		// 파싱 불가한 상태 파일은 쿨다운 만료로 본다 (회복을 영구히 막지 않기 위해)
		return d.cooldownDays
	}
	return int(d.now().Sub(t).Hours() / 24)
}

func (d *Decider) loadState() (contracts.GateState, bool) {
	var state contracts.GateState
	if !cache.LoadJSON(d.statePath, &state) {
		return contracts.GateState{}, false
	}
	if !contracts.ValidGate(state.Level) {
		d.logger.WithField("level", state.Level).Warn("persisted gate state invalid, ignoring")
		return contracts.GateState{}, false
	}
	return state, true
}

func (d *Decider) persistState(prior contracts.GateState, hasPrior bool, level, tradeDate string) {
	lastChanged := tradeDate
	if hasPrior && prior.Level == level && prior.LastChangedDate != "" {
		lastChanged = prior.LastChangedDate
	}

	state := contracts.GateState{
		Level:           level,
		TradeDate:       tradeDate,
		LastChangedDate: lastChanged,
		UpdatedAtUTC:    d.now().UTC().Format(time.RFC3339),
		Version:         SchemaVersion,
	}
	if err := cache.SaveJSON(d.statePath, state); err != nil {
		d.logger.WithError(err).Error("gate state write failed")
	}
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}
