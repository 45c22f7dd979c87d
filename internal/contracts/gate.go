package contracts

// Gate levels, strictly ordered by severity.
// ⭐ SSOT: 게이트 레벨 순서는 여기서만 정의
const (
	GateNormal  = "Normal"
	GateCaution = "Caution"
	GatePlanB   = "PlanB"
	GateFreeze  = "Freeze"
)

var gateRank = map[string]int{
	GateNormal:  0,
	GateCaution: 1,
	GatePlanB:   2,
	GateFreeze:  3,
}

// GateRank returns the severity rank of a level (-1 for unknown).
func GateRank(level string) int {
	if r, ok := gateRank[level]; ok {
		return r
	}
	return -1
}

// MaxGate returns the more severe of two levels. Unknown levels never win.
func MaxGate(a, b string) string {
	ra, rb := GateRank(a), GateRank(b)
	if ra < 0 {
		return b
	}
	if rb < 0 {
		return a
	}
	if ra >= rb {
		return a
	}
	return b
}

// ValidGate reports whether level is one of the four allowed levels.
func ValidGate(level string) bool {
	return GateRank(level) >= 0
}

// GateState is the single authoritative persisted Gate record.
// GateDecider만 갱신한다; 매 사이클 시작 시 읽어 anti-zigzag를 강제
type GateState struct {
	Level           string `json:"level"`
	TradeDate       string `json:"trade_date"`
	LastChangedDate string `json:"last_changed_date"`
	UpdatedAtUTC    string `json:"updated_at_utc"`
	Version         string `json:"version"`
}

// GateDiscipline records the anti-zigzag audit for one decision cycle.
type GateDiscipline struct {
	ZigzagDetected bool     `json:"zigzag_detected"`
	Violations     []string `json:"violations"`
	CooldownDays   int      `json:"cooldown_days"`
}

// RuleEvidence is one fired rule's contribution to the audit trail.
type RuleEvidence struct {
	RuleID string         `json:"rule_id"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// GateBlock is the decision payload appended to the snapshot (append-only).
type GateBlock struct {
	Level         string         `json:"level"`
	Reasons       []string       `json:"reasons"`
	Signals       map[string]any `json:"signals"`
	Discipline    GateDiscipline `json:"discipline"`
	ForbidActions []string       `json:"forbid_actions,omitempty"`
	RuleEvidence  []RuleEvidence `json:"rule_evidence,omitempty"`
	LoadErrors    []string       `json:"load_errors,omitempty"`
	Version       string         `json:"version"`
}
