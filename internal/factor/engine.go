// Package factor derives pure, read-only risk/trend factors from an
// assembled snapshot. Factors never fetch and never mutate blocks.
package factor

import (
	"fmt"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// Factor computes one result from a snapshot slice.
type Factor interface {
	Name() string
	Compute(snap *contracts.Snapshot) contracts.FactorResult
}

// Engine runs every registered factor. A factor that panics yields a
// degraded result for its slot only.
type Engine struct {
	factors []Factor
	logger  *logger.Logger
}

// NewEngine creates a factor engine with the standard factor set.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		factors: []Factor{
			&Trend{}, &Volume{}, &Leverage{}, &Flow{},
			&Sentiment{}, &Breadth{}, &Derivatives{}, &GlobalRisk{},
		},
		logger: log.WithField("component", "factor_engine"),
	}
}

// ComputeAll attaches results to snap.Factors and returns them.
func (e *Engine) ComputeAll(snap *contracts.Snapshot) map[string]contracts.FactorResult {
	out := make(map[string]contracts.FactorResult, len(e.factors))
	for _, f := range e.factors {
		out[f.Name()] = e.computeOne(f, snap)
	}
	snap.Factors = out
	return out
}

func (e *Engine) computeOne(f Factor, snap *contracts.Snapshot) (res contracts.FactorResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(map[string]interface{}{
				"factor": f.Name(),
				"panic":  fmt.Sprint(r),
			}).Error("factor panicked, slot degraded")
			res = degraded(f.Name(), contracts.StatusError, fmt.Sprintf("panic: %v", r))
		}
	}()
	return f.Compute(snap)
}

// degraded is the conservative fallback result for an unusable slot.
func degraded(name string, status contracts.DataStatus, reason string) contracts.FactorResult {
	return contracts.FactorResult{
		Name:   name,
		Score:  50,
		Level:  "NEUTRAL",
		Signal: "no_data",
		Details: map[string]any{
			"data_status": string(status),
			"reason":      reason,
		},
	}
}

// fromBlock guards the common "block must be healthy" precondition.
func fromBlock(name string, block contracts.FactBlock) (contracts.FactorResult, bool) {
	if block.Degraded() || block.Empty() {
		status := block.Status
		if block.Empty() {
			status = contracts.StatusMissing
		}
		return degraded(name, status, "block_degraded:"+block.Name), false
	}
	return contracts.FactorResult{}, true
}

// clamp bounds a score to 0..100.
func clamp(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// levelOf maps a constructive score to the coarse factor level.
func levelOf(score float64) string {
	switch {
	case score >= 66:
		return "LOW"
	case score <= 33:
		return "HIGH"
	default:
		return "NEUTRAL"
	}
}

func result(name string, score float64, signal string, details map[string]any) contracts.FactorResult {
	score = clamp(score)
	if details == nil {
		details = map[string]any{}
	}
	details["data_status"] = string(contracts.StatusOK)
	return contracts.FactorResult{
		Name:    name,
		Score:   score,
		Level:   levelOf(score),
		Signal:  signal,
		Details: details,
	}
}
