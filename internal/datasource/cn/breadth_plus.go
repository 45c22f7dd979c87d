package cn

import (
	"context"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/provider/dbp"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var breadthSchema = []string{
	"universe", "above_ma50", "pct_above_ma50",
	"new_low_50d", "new_low_ratio_pct",
	"adv_decl_ratio", "top20_ratio",
}

// BreadthPlus computes universe participation from the local warehouse:
// share above MA50, 50-day new lows, and turnover concentration.
type BreadthPlus struct {
	datasource.Base
	provider *dbp.Provider
}

func NewBreadthPlus(store *cache.Store, market string, provider *dbp.Provider, log *logger.Logger) *BreadthPlus {
	return &BreadthPlus{
		Base:     datasource.NewBase("breadth_plus", market, store, log, breadthSchema),
		provider: provider,
	}
}

func (s *BreadthPlus) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	if s.provider == nil {
		return s.Degraded(tradeDate, contracts.StatusMissing, "warehouse_disabled")
	}

	stats, err := s.provider.FetchBreadth(ctx, tradeDate)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["universe"] = float64(stats.Universe)
	block.Fields["above_ma50"] = float64(stats.AboveMA50)
	block.Fields["pct_above_ma50"] = stats.PctAboveMA50
	block.Fields["new_low_50d"] = float64(stats.NewLow50d)
	block.Fields["new_low_ratio_pct"] = stats.NewLowRatio
	block.Fields["adv_decl_ratio"] = stats.AdvDeclRatio

	if share, err := s.provider.FetchTopTurnoverShare(ctx, tradeDate, 20); err != nil {
		block.Fields["top20_ratio"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("top20_ratio_unavailable: " + err.Error())
	} else {
		block.Fields["top20_ratio"] = share
	}

	return s.Finalize(block)
}
