package contracts

// Snapshot is the complete set of fact blocks for one trade date.
//
// SnapshotBuilder가 한 번 생성하면 Blocks는 불변으로 취급한다.
// 이후 단계(팩터/예측/게이트/거버넌스)는 별도 필드에 append-only로만 붙인다.
type Snapshot struct {
	Market    string               `json:"market"`
	TradeDate string               `json:"trade_date"`
	Blocks    map[string]FactBlock `json:"blocks"`
	Warnings  []string             `json:"warnings"`

	// Derived stages (append-only; nil until the owning stage runs)
	Factors    map[string]FactorResult `json:"factors,omitempty"`
	Prediction *Prediction             `json:"prediction,omitempty"`
	Gate       *GateBlock              `json:"gate,omitempty"`
	Governance *GovernanceSet          `json:"governance,omitempty"`
}

// Block returns the named fact block. Absent families come back as an empty
// MISSING block so downstream code never needs key-existence handling.
func (s *Snapshot) Block(name string) FactBlock {
	if s == nil || s.Blocks == nil {
		return NewDegradedBlock(name, "", StatusMissing, nil, "snapshot_nil")
	}
	if b, ok := s.Blocks[name]; ok {
		return b
	}
	return NewDegradedBlock(name, s.TradeDate, StatusMissing, nil, "family_absent")
}

// HasBlock reports whether the family was produced with any real content.
func (s *Snapshot) HasBlock(name string) bool {
	if s == nil || s.Blocks == nil {
		return false
	}
	b, ok := s.Blocks[name]
	return ok && !b.Empty()
}

// Factor returns a factor result if the factor stage produced one.
func (s *Snapshot) Factor(name string) (FactorResult, bool) {
	if s == nil || s.Factors == nil {
		return FactorResult{}, false
	}
	f, ok := s.Factors[name]
	return f, ok
}
