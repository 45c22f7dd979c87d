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

var globalLeadSchema = []string{
	"lead_symbols", "avg_ret_1d_pct", "avg_ret_5d_pct",
	"lead_score", "risk_off",
}

// GlobalLead scores the overnight lead from global indices. A-shares open
// after the US close, so this is the first input of the day.
type GlobalLead struct {
	datasource.Base
	series  *yf.SeriesStore
	symbols []string
}

func NewGlobalLead(store *cache.Store, market string, series *yf.SeriesStore, symbols []string, log *logger.Logger) *GlobalLead {
	return &GlobalLead{
		Base:    datasource.NewBase("global_lead", market, store, log, globalLeadSchema),
		series:  series,
		symbols: symbols,
	}
}

func (s *GlobalLead) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
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
		return s.Degraded(tradeDate, contracts.StatusMissing, "no_lead_symbols_configured")
	}

	var sum1, sum5 float64
	used := 0
	var warnings []string
	for _, sym := range s.symbols {
		bars, err := s.series.Get(ctx, sym, 15)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("lead_fetch_failed:%s", sym))
			continue
		}
		cl := closes(bars)
		r1, ok1 := retPct(cl, 1)
		r5, ok5 := retPct(cl, 5)
		if !ok1 || !ok5 {
			warnings = append(warnings, fmt.Sprintf("lead_short_history:%s", sym))
			continue
		}
		sum1 += r1
		sum5 += r5
		used++
	}

	if used == 0 {
		return s.Degraded(tradeDate, contracts.StatusMissing, append(warnings, "all_leads_unavailable")...)
	}

	avg1 := sum1 / float64(used)
	avg5 := sum5 / float64(used)

	// 0..100, 50이 중립. 1일 수익률에 더 큰 비중
	score := 50 + avg1*10 + avg5*3
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["lead_symbols"] = s.symbols
	block.Fields["avg_ret_1d_pct"] = avg1
	block.Fields["avg_ret_5d_pct"] = avg5
	block.Fields["lead_score"] = score
	block.Fields["risk_off"] = avg1 < -1.5

	for _, w := range warnings {
		block.Status = contracts.StatusPartial
		block.AddWarning(w)
	}

	return s.Finalize(block)
}
