package contracts

// FactorResult is the output of one factor computation over a snapshot slice.
// 생성한 팩터가 단독 소유; PredictionEngine / report는 읽기 전용으로만 소비
type FactorResult struct {
	Name    string         `json:"name"`
	Score   float64        `json:"score"` // 0..100, higher = more constructive
	Level   string         `json:"level"` // LOW / NEUTRAL / HIGH (factor-specific meaning)
	Signal  string         `json:"signal"`
	Details map[string]any `json:"details"`
	Raw     map[string]any `json:"raw,omitempty"`
}

// DataStatus reads the data_status recorded in Details (StatusOK when absent,
// which keeps hand-built factors in tests usable).
func (f FactorResult) DataStatus() DataStatus {
	if f.Details == nil {
		return StatusOK
	}
	v, ok := f.Details["data_status"]
	if !ok {
		return StatusOK
	}
	switch s := v.(type) {
	case string:
		return DataStatus(s)
	case DataStatus:
		return s
	}
	return StatusOK
}

// Usable reports whether PredictionEngine may include this factor.
func (f FactorResult) Usable() bool {
	return f.DataStatus() == StatusOK
}

// DetailFloat reads a numeric detail field.
func (f FactorResult) DetailFloat(key string) (float64, bool) {
	if f.Details == nil {
		return 0, false
	}
	return asFloat(f.Details[key])
}

// DetailStr reads a string detail field.
func (f FactorResult) DetailStr(key string) (string, bool) {
	if f.Details == nil {
		return "", false
	}
	s, ok := f.Details[key].(string)
	return s, ok
}
