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

var northProxySchema = []string{
	"proxy_symbols", "proxy_ret_5d_pct", "proxy_ret_20d_pct", "pressure_state",
}

// NorthProxy approximates northbound appetite from offshore A-share ETF
// proxies, since the direct northbound flow feed was discontinued.
type NorthProxy struct {
	datasource.Base
	series  *yf.SeriesStore
	symbols []string
}

func NewNorthProxy(store *cache.Store, market string, series *yf.SeriesStore, symbols []string, log *logger.Logger) *NorthProxy {
	return &NorthProxy{
		Base:    datasource.NewBase("north_proxy", market, store, log, northProxySchema),
		series:  series,
		symbols: symbols,
	}
}

func (s *NorthProxy) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	if len(s.symbols) == 0 {
		return s.Degraded(tradeDate, contracts.StatusMissing, "no_proxy_symbols_configured")
	}

	var sum5, sum20 float64
	used := 0
	var warnings []string
	for _, sym := range s.symbols {
		bars, err := s.series.Get(ctx, sym, 40)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("proxy_fetch_failed:%s", sym))
			continue
		}
		cl := closes(bars)
		r5, ok5 := retPct(cl, 5)
		r20, ok20 := retPct(cl, 20)
		if !ok5 || !ok20 {
			warnings = append(warnings, fmt.Sprintf("proxy_short_history:%s", sym))
			continue
		}
		sum5 += r5
		sum20 += r20
		used++
	}

	if used == 0 {
		return s.Degraded(tradeDate, contracts.StatusMissing, append(warnings, "all_proxies_unavailable")...)
	}

	avg5 := sum5 / float64(used)
	avg20 := sum20 / float64(used)

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["proxy_symbols"] = s.symbols
	block.Fields["proxy_ret_5d_pct"] = avg5
	block.Fields["proxy_ret_20d_pct"] = avg20
	block.Fields["pressure_state"] = pressureState(avg5, avg20)

	for _, w := range warnings {
		block.Status = contracts.StatusPartial
		block.AddWarning(w)
	}

	return s.Finalize(block)
}

func pressureState(ret5, ret20 float64) string {
	switch {
	case ret5 < -3 && ret20 < -5:
		return "heavy_outflow"
	case ret5 < -1.5:
		return "outflow"
	case ret5 > 1.5:
		return "inflow"
	default:
		return "neutral"
	}
}
