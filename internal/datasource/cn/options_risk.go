package cn

import (
	"context"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/provider/yf"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var optionsRiskSchema = []string{
	"vol_symbol", "vol_close",
	"vol_chg_5d_pct", "vol_chg_20d_pct", "risk_state",
}

// OptionsRisk tracks an implied-volatility proxy series. Rising vol into
// a falling tape is the classic pre-stress signature.
type OptionsRisk struct {
	datasource.Base
	series *yf.SeriesStore
	symbol string
}

func NewOptionsRisk(store *cache.Store, market string, series *yf.SeriesStore, symbol string, log *logger.Logger) *OptionsRisk {
	return &OptionsRisk{
		Base:   datasource.NewBase("options_risk", market, store, log, optionsRiskSchema),
		series: series,
		symbol: symbol,
	}
}

func (s *OptionsRisk) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	bars, err := s.series.Get(ctx, s.symbol, 40)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}

	cl := closes(bars)
	last := cl[len(cl)-1]

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["vol_symbol"] = s.symbol
	block.Fields["vol_close"] = last

	chg5, ok5 := retPct(cl, 5)
	chg20, ok20 := retPct(cl, 20)
	if ok5 {
		block.Fields["vol_chg_5d_pct"] = chg5
	} else {
		block.Fields["vol_chg_5d_pct"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("vol_chg_5d_insufficient_history")
	}
	if ok20 {
		block.Fields["vol_chg_20d_pct"] = chg20
	} else {
		block.Fields["vol_chg_20d_pct"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("vol_chg_20d_insufficient_history")
	}

	state := "calm"
	if ok5 {
		switch {
		case chg5 > 20:
			state = "stressed"
		case chg5 > 8:
			state = "elevated"
		}
	} else {
		state = "unknown"
	}
	block.Fields["risk_state"] = state

	return s.Finalize(block)
}
