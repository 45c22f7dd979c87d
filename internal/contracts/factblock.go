package contracts

// DataStatus describes how trustworthy a fact block is.
// ⭐ SSOT: 데이터 상태 표기는 이 타입으로만 — silent zero 블록 금지
type DataStatus string

const (
	StatusOK      DataStatus = "OK"
	StatusPartial DataStatus = "PARTIAL"
	StatusMissing DataStatus = "MISSING"
	StatusError   DataStatus = "ERROR"
)

// FactBlock is the unit every DataSource returns.
//
// Invariants:
//   - never nil: fetch failure produces a MISSING/ERROR block, never a panic
//   - schema parity: a degraded block carries exactly the same field keys as a
//     healthy one, values nil, so consumers can diff schemas
//   - JSON-serializable: this is what gets cached on disk
type FactBlock struct {
	Name      string         `json:"name"`
	TradeDate string         `json:"trade_date"`
	Status    DataStatus     `json:"data_status"`
	Warnings  []string       `json:"warnings"`
	Fields    map[string]any `json:"fields"`
}

// NewBlock creates a healthy block skeleton for a source.
func NewBlock(name, tradeDate string) FactBlock {
	return FactBlock{
		Name:      name,
		TradeDate: tradeDate,
		Status:    StatusOK,
		Warnings:  []string{},
		Fields:    map[string]any{},
	}
}

// NewDegradedBlock creates a schema-parity block for a failed fetch.
// schema의 모든 키를 nil로 채운다 — "시장이 보합이었다"와 구분 가능해야 함
func NewDegradedBlock(name, tradeDate string, status DataStatus, schema []string, warnings ...string) FactBlock {
	b := FactBlock{
		Name:      name,
		TradeDate: tradeDate,
		Status:    status,
		Warnings:  append([]string{}, warnings...),
		Fields:    make(map[string]any, len(schema)),
	}
	for _, key := range schema {
		b.Fields[key] = nil
	}
	return b
}

// Degraded reports whether consumers should exclude this block from scoring.
func (b FactBlock) Degraded() bool {
	return b.Status != StatusOK
}

// Empty reports whether the block carries no fields at all (forced default).
func (b FactBlock) Empty() bool {
	return len(b.Fields) == 0
}

// Float reads a numeric field. Returns false when absent, nil or non-numeric.
func (b FactBlock) Float(key string) (float64, bool) {
	v, ok := b.Fields[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Str reads a string field.
func (b FactBlock) Str(key string) (string, bool) {
	v, ok := b.Fields[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool reads a boolean field.
func (b FactBlock) Bool(key string) (bool, bool) {
	v, ok := b.Fields[key]
	if !ok || v == nil {
		return false, false
	}
	f, ok := v.(bool)
	return f, ok
}

// FieldKeys returns the sorted-free key set, for schema parity checks in tests.
func (b FactBlock) FieldKeys() []string {
	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		keys = append(keys, k)
	}
	return keys
}

// AddWarning appends a warning to the audit trail.
func (b *FactBlock) AddWarning(w string) {
	b.Warnings = append(b.Warnings, w)
}
