// Package predict aggregates factor results into one market score with
// a strict exclude-and-renormalize policy for unusable slots.
package predict

import (
	"sort"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// NeutralScore is returned when no factor slot is usable.
const NeutralScore = 50.0

// Engine holds the configured weight slots.
type Engine struct {
	weights map[string]float64
	logger  *logger.Logger
}

// NewEngine creates a prediction engine from the loaded weights config.
func NewEngine(w *config.Weights, log *logger.Logger) *Engine {
	return &Engine{
		weights: w.Slots,
		logger:  log.WithField("component", "prediction_engine"),
	}
}

// Predict computes the weighted score over usable slots only.
//
// 핵심 불변식: 분모는 전체 가중치 합이 아니라 *사용된* 슬롯의 합.
// 전체 합으로 나누면 데이터 결손 시 점수가 조용히 깎인다.
func (e *Engine) Predict(factors map[string]contracts.FactorResult) contracts.Prediction {
	ev := contracts.PredictionEvidence{
		Used:              []string{},
		MissingFactors:    []string{},
		DegradedFactors:   []string{},
		RawWeights:        map[string]float64{},
		NormalizedWeights: map[string]float64{},
		Contributions:     map[string]float64{},
	}

	slots := make([]string, 0, len(e.weights))
	for name := range e.weights {
		slots = append(slots, name)
	}
	sort.Strings(slots)

	weightedSum, usedWeight := 0.0, 0.0
	for _, name := range slots {
		w := e.weights[name]
		ev.RawWeights[name] = w

		f, ok := factors[name]
		if !ok {
			ev.MissingFactors = append(ev.MissingFactors, name)
			continue
		}
		if !f.Usable() {
			ev.DegradedFactors = append(ev.DegradedFactors, name)
			continue
		}

		ev.Used = append(ev.Used, name)
		weightedSum += f.Score * w
		usedWeight += w
	}

	if usedWeight == 0 {
		ev.Reason = "NO_EFFECTIVE_FACTORS"
		e.logger.Warn("⚠️ no usable factor slots, returning neutral")
		return contracts.Prediction{
			FinalScore: NeutralScore,
			RiskLevel:  contracts.RiskNeutral,
			Evidence:   ev,
		}
	}

	for _, name := range ev.Used {
		norm := e.weights[name] / usedWeight
		ev.NormalizedWeights[name] = norm
		ev.Contributions[name] = factors[name].Score * norm
	}

	final := weightedSum / usedWeight

	e.logger.WithFields(map[string]interface{}{
		"final_score": final,
		"used":        len(ev.Used),
		"missing":     len(ev.MissingFactors),
		"degraded":    len(ev.DegradedFactors),
	}).Info("prediction computed")

	return contracts.Prediction{
		FinalScore: final,
		RiskLevel:  riskLevel(final),
		Evidence:   ev,
	}
}

// riskLevel inverts the constructive score into adverse-move risk.
func riskLevel(score float64) string {
	switch {
	case score >= 66:
		return contracts.RiskLow
	case score <= 33:
		return contracts.RiskHigh
	default:
		return contracts.RiskNeutral
	}
}
