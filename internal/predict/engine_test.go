package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

func testEngine(slots map[string]float64) *Engine {
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
	return NewEngine(&config.Weights{Slots: slots}, log)
}

func usable(name string, score float64) contracts.FactorResult {
	return contracts.FactorResult{
		Name: name, Score: score, Level: "NEUTRAL", Signal: "test",
		Details: map[string]any{"data_status": "OK"},
	}
}

func degraded(name string) contracts.FactorResult {
	return contracts.FactorResult{
		Name: name, Score: 50, Level: "NEUTRAL", Signal: "no_data",
		Details: map[string]any{"data_status": "MISSING"},
	}
}

func TestPredictRenormalizesOverUsedSlotsOnly(t *testing.T) {
	e := testEngine(map[string]float64{"trend": 3, "breadth": 2, "flow": 5})

	// flow is missing entirely: denominator must be 3+2, not 10
	pred := e.Predict(map[string]contracts.FactorResult{
		"trend":   usable("trend", 80),
		"breadth": usable("breadth", 40),
	})

	want := (80*3.0 + 40*2.0) / 5.0
	assert.InDelta(t, want, pred.FinalScore, 1e-9)
	assert.ElementsMatch(t, []string{"trend", "breadth"}, pred.Evidence.Used)
	assert.Equal(t, []string{"flow"}, pred.Evidence.MissingFactors)

	// evidence is byte-for-byte verifiable
	assert.InDelta(t, 0.6, pred.Evidence.NormalizedWeights["trend"], 1e-9)
	assert.InDelta(t, 48.0, pred.Evidence.Contributions["trend"], 1e-9)
	assert.Equal(t, 3.0, pred.Evidence.RawWeights["trend"])
}

func TestPredictExcludesDegradedSlots(t *testing.T) {
	e := testEngine(map[string]float64{"trend": 1, "breadth": 1})

	pred := e.Predict(map[string]contracts.FactorResult{
		"trend":   usable("trend", 70),
		"breadth": degraded("breadth"),
	})

	assert.InDelta(t, 70.0, pred.FinalScore, 1e-9)
	assert.Equal(t, []string{"breadth"}, pred.Evidence.DegradedFactors)
}

func TestPredictEmptyFactorsReturnsNeutral(t *testing.T) {
	e := testEngine(map[string]float64{"trend": 1, "breadth": 1})

	pred := e.Predict(map[string]contracts.FactorResult{})

	assert.Equal(t, 50.0, pred.FinalScore)
	assert.Equal(t, contracts.RiskNeutral, pred.RiskLevel)
	assert.Equal(t, "NO_EFFECTIVE_FACTORS", pred.Evidence.Reason)
	require.Len(t, pred.Evidence.MissingFactors, 2)
	assert.Empty(t, pred.Evidence.Used)
}

func TestPredictAllDegradedReturnsNeutral(t *testing.T) {
	e := testEngine(map[string]float64{"trend": 2})

	pred := e.Predict(map[string]contracts.FactorResult{"trend": degraded("trend")})

	assert.Equal(t, 50.0, pred.FinalScore)
	assert.Equal(t, "NO_EFFECTIVE_FACTORS", pred.Evidence.Reason)
}

func TestRiskLevelThresholds(t *testing.T) {
	e := testEngine(map[string]float64{"trend": 1})

	cases := []struct {
		score float64
		level string
	}{
		{80, contracts.RiskLow},
		{66, contracts.RiskLow},
		{65.9, contracts.RiskNeutral},
		{33.1, contracts.RiskNeutral},
		{33, contracts.RiskHigh},
		{10, contracts.RiskHigh},
	}
	for _, tc := range cases {
		pred := e.Predict(map[string]contracts.FactorResult{"trend": usable("trend", tc.score)})
		assert.Equal(t, tc.level, pred.RiskLevel, "score %.1f", tc.score)
	}
}
