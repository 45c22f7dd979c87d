package contracts

// Governance payloads are pure derived records keyed by asof date.
// 권위 있는 상태로 저장하지 않는다 — 매 실행마다 Gate/DRS/snapshot에서 재계산

// DRS signal colors (upstream fact, computed outside this system).
const (
	DRSGreen  = "GREEN"
	DRSYellow = "YELLOW"
	DRSOrange = "ORANGE"
	DRSRed    = "RED"
)

// AttackPermit grants explicit attack permission notes; it can restrict but
// never expand what Gate/DRS already permit.
type AttackPermit struct {
	SchemaVersion string         `json:"schema_version"`
	Asof          string         `json:"asof"`
	Permit        string         `json:"permit"` // YES / NO
	Mode          string         `json:"mode"`   // NONE / LIMITED / FULL
	Label         string         `json:"label"`
	Allowed       []string       `json:"allowed"`
	Constraints   []string       `json:"constraints"`
	Evidence      map[string]any `json:"evidence"`
	Warnings      []string       `json:"warnings"`
}

// RotationRow is one sector row in the rotation snapshot.
type RotationRow struct {
	Sector string  `json:"sector"`
	Score  float64 `json:"score"`
	State  string  `json:"state"` // ENTRY / HOLDING / EXIT
}

// SectorPermit is the per-sector rotation participation layer.
type SectorPermit struct {
	SchemaVersion string         `json:"schema_version"`
	Asof          string         `json:"asof"`
	Permit        string         `json:"permit"` // YES / NO
	Mode          string         `json:"mode"`   // OFF / SELECTIVE
	Label         string         `json:"label"`
	Candidates    []RotationRow  `json:"candidates"`
	ExitFirst     []RotationRow  `json:"exit_first"`
	Constraints   []string       `json:"constraints"`
	Evidence      map[string]any `json:"evidence"`
	Warnings      []string       `json:"warnings"`
}

// FinalDecision reconciles Gate / DRS / overlays with strict priority
// DRS > Gate > overlays. Overlays are notes only.
type FinalDecision struct {
	SchemaVersion  string         `json:"schema_version"`
	ActionHintCode string         `json:"actionhint_code"` // A / N / D
	Veto           string         `json:"veto,omitempty"`
	Gate           string         `json:"gate"`
	DRS            string         `json:"drs"`
	ExecutionBand  string         `json:"execution_band"`
	Notes          map[string]any `json:"notes"`
}

// MarketMode is the read-only regime label for reporting.
type MarketMode struct {
	SchemaVersion string         `json:"schema_version"`
	Asof          string         `json:"asof"`
	Mode          string         `json:"mode"` // DEFENSE_HIGH/DEFENSE/REPAIR/ATTACK_PREP/ATTACK/STABLE
	Severity      string         `json:"severity"`
	Inputs        map[string]any `json:"inputs"`
	Reasons       []string       `json:"reasons"`
}

// GovernanceSet bundles the overlays attached to one snapshot.
type GovernanceSet struct {
	DRSSignal     string         `json:"drs_signal,omitempty"`
	AttackPermit  *AttackPermit  `json:"attack_permit,omitempty"`
	SectorPermit  *SectorPermit  `json:"sector_permit,omitempty"`
	MarketMode    *MarketMode    `json:"market_mode,omitempty"`
	FinalDecision *FinalDecision `json:"final_decision,omitempty"`
}
