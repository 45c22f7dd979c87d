package cn

import (
	"context"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var turnoverSchema = []string{
	"turnover_total", "turnover_sh", "turnover_sz",
	"turnover_5d_avg", "turnover_chg_pct",
}

const turnoverHistoryWindow = 40

// Turnover tracks total two-exchange turnover (亿元) and its 5-day baseline.
type Turnover struct {
	datasource.Base
	spot *SpotOnce
}

func NewTurnover(store *cache.Store, market string, spot *SpotOnce, log *logger.Logger) *Turnover {
	return &Turnover{
		Base: datasource.NewBase("turnover", market, store, log, turnoverSchema),
		spot: spot,
	}
}

func (s *Turnover) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	spot, err := s.spot.Get(ctx, eff)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}

	history := datasource.MergeHistory(
		datasource.LoadHistory(s.HistoryFile()),
		[]datasource.SeriesPoint{{
			Date:   tradeDate,
			Values: map[string]float64{"turnover_total": spot.TurnoverTotal},
		}},
		turnoverHistoryWindow,
	)
	if err := datasource.SaveHistory(s.HistoryFile(), history); err != nil {
		s.Logger().WithError(err).Warn("turnover history write failed")
	}

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["turnover_total"] = spot.TurnoverTotal
	block.Fields["turnover_sh"] = spot.TurnoverSH
	block.Fields["turnover_sz"] = spot.TurnoverSZ

	if avg, ok := datasource.MeanLast(history, "turnover_total", 5); ok && avg > 0 {
		block.Fields["turnover_5d_avg"] = avg
		block.Fields["turnover_chg_pct"] = 100 * (spot.TurnoverTotal - avg) / avg
	} else {
		block.Fields["turnover_5d_avg"] = nil
		block.Fields["turnover_chg_pct"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("turnover_baseline_insufficient_history")
	}

	return s.Finalize(block)
}
