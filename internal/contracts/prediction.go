package contracts

// Risk levels produced by PredictionEngine.
// 점수는 "상승 우호도", 레벨은 "역방향 리스크" — 의미가 반전됨에 주의
const (
	RiskLow     = "LOW"
	RiskNeutral = "NEUTRAL"
	RiskHigh    = "HIGH"
)

// PredictionEvidence is the byte-for-byte verifiable audit trail of one
// aggregation pass.
type PredictionEvidence struct {
	Used              []string           `json:"used"`
	MissingFactors    []string           `json:"missing_factors"`
	DegradedFactors   []string           `json:"degraded_factors"`
	RawWeights        map[string]float64 `json:"raw_weights"`
	NormalizedWeights map[string]float64 `json:"normalized_weights"`
	Contributions     map[string]float64 `json:"contributions"`
	Reason            string             `json:"reason,omitempty"`
}

// Prediction is the aggregated market score for one trade date.
type Prediction struct {
	FinalScore float64            `json:"final_score"`
	RiskLevel  string             `json:"risk_level"`
	Evidence   PredictionEvidence `json:"evidence"`
}
