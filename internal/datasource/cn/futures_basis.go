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

var futuresBasisSchema = []string{
	"futures_symbol", "index_symbol",
	"futures_close", "index_close",
	"basis_pct", "basis_state",
}

// FuturesBasis compares the index future against spot. A deep discount
// is the derivatives desk voting against the cash market.
type FuturesBasis struct {
	datasource.Base
	series     *yf.SeriesStore
	futSymbol  string
	idxSymbol  string
}

func NewFuturesBasis(store *cache.Store, market string, series *yf.SeriesStore, futSymbol, idxSymbol string, log *logger.Logger) *FuturesBasis {
	return &FuturesBasis{
		Base:      datasource.NewBase("futures_basis", market, store, log, futuresBasisSchema),
		series:    series,
		futSymbol: futSymbol,
		idxSymbol: idxSymbol,
	}
}

func (s *FuturesBasis) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	futBars, err := s.series.Get(ctx, s.futSymbol, 10)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}
	idxBars, err := s.series.Get(ctx, s.idxSymbol, 10)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}

	fut := futBars[len(futBars)-1].Close
	idx := idxBars[len(idxBars)-1].Close
	if idx == 0 {
		return s.FetchFailed(tradeDate, fmt.Errorf("index close is zero"))
	}

	basis := 100 * (fut - idx) / idx

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["futures_symbol"] = s.futSymbol
	block.Fields["index_symbol"] = s.idxSymbol
	block.Fields["futures_close"] = fut
	block.Fields["index_close"] = idx
	block.Fields["basis_pct"] = basis
	block.Fields["basis_state"] = basisState(basis)

	return s.Finalize(block)
}

func basisState(basisPct float64) string {
	switch {
	case basisPct < -1.0:
		return "deep_discount"
	case basisPct < -0.3:
		return "discount"
	case basisPct > 0.3:
		return "premium"
	default:
		return "flat"
	}
}
