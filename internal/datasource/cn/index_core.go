package cn

import (
	"context"
	"fmt"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/provider/yf"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var indexCoreSchema = []string{
	"symbol", "close", "ma20", "ma50",
	"ret_5d_pct", "ret_20d_pct",
	"above_ma50", "trend_state", "structural_health",
}

// IndexCore tracks the benchmark index: closes, moving averages and the
// structural-health verdict the gate consumes.
type IndexCore struct {
	datasource.Base
	series *yf.SeriesStore
	symbol string
}

// NewIndexCore wires the benchmark-index source. symbol is the first entry
// of the index_core list (e.g. 000300.SS).
func NewIndexCore(store *cache.Store, market string, series *yf.SeriesStore, symbol string, log *logger.Logger) *IndexCore {
	return &IndexCore{
		Base:   datasource.NewBase("index_core", market, store, log, indexCoreSchema),
		series: series,
		symbol: symbol,
	}
}

func (s *IndexCore) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	bars, err := s.series.Get(ctx, s.symbol, 120)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}
	if len(bars) < 51 {
		return s.FetchFailed(tradeDate, fmt.Errorf("need 51 bars for ma50, got %d", len(bars)))
	}

	cl := closes(bars)
	last := cl[len(cl)-1]
	ma20, _ := sma(cl, 20)
	ma50, _ := sma(cl, 50)
	ret5, _ := retPct(cl, 5)
	ret20, _ := retPct(cl, 20)

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["symbol"] = s.symbol
	block.Fields["close"] = last
	block.Fields["ma20"] = ma20
	block.Fields["ma50"] = ma50
	block.Fields["ret_5d_pct"] = ret5
	block.Fields["ret_20d_pct"] = ret20
	block.Fields["above_ma50"] = last > ma50
	block.Fields["trend_state"] = trendState(last, ma20, ma50, ret20)
	block.Fields["structural_health"] = structuralHealth(last, ma50, ret20)

	if bars[len(bars)-1].Date != tradeDate {
		block.Status = contracts.StatusPartial
		block.AddWarning("last_bar_stale: " + bars[len(bars)-1].Date)
	}

	return s.Finalize(block)
}

// trendState classifies the index trend: up, down, or broken (price lost
// both moving averages while the 20d return is clearly negative).
func trendState(close, ma20, ma50, ret20 float64) string {
	switch {
	case close < ma20 && close < ma50 && ret20 < -5:
		return "broken"
	case close > ma20 && close > ma50:
		return "up"
	case close < ma50:
		return "down"
	default:
		return "flat"
	}
}

func structuralHealth(close, ma50, ret20 float64) string {
	if close < ma50 && ret20 < -8 {
		return "FAIL"
	}
	return "PASS"
}
