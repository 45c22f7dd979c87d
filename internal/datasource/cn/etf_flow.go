package cn

import (
	"context"
	"fmt"
	"sort"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/provider/em"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var etfFlowSchema = []string{
	"etf_turnover_total", "avg_change_pct",
	"top_symbol", "top_turnover", "inflow_bias",
}

// ETFFlow watches the broad-market ETF basket's turnover as a proxy for
// institutional flow appetite.
type ETFFlow struct {
	datasource.Base
	client *em.Client
	secIDs []string
}

func NewETFFlow(store *cache.Store, market string, client *em.Client, secIDs []string, log *logger.Logger) *ETFFlow {
	return &ETFFlow{
		Base:   datasource.NewBase("etf_flow", market, store, log, etfFlowSchema),
		client: client,
		secIDs: secIDs,
	}
}

func (s *ETFFlow) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	rows, err := s.client.FetchETFFlows(ctx, s.secIDs)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}
	if len(rows) == 0 {
		return s.FetchFailed(tradeDate, fmt.Errorf("no etf rows"))
	}

	total, changeSum := 0.0, 0.0
	for _, r := range rows {
		total += r.Turnover
		changeSum += r.ChangePct
	}
	avgChange := changeSum / float64(len(rows))

	sort.Slice(rows, func(i, j int) bool { return rows[i].Turnover > rows[j].Turnover })
	top := rows[0]

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["etf_turnover_total"] = total
	block.Fields["avg_change_pct"] = avgChange
	block.Fields["top_symbol"] = top.Symbol
	block.Fields["top_turnover"] = top.Turnover
	block.Fields["inflow_bias"] = inflowBias(avgChange)

	return s.Finalize(block)
}

// inflowBias is a coarse hint only; ETF spot data cannot distinguish
// creations from secondary turnover.
func inflowBias(avgChange float64) string {
	switch {
	case avgChange > 0.5:
		return "inflow"
	case avgChange < -0.5:
		return "outflow"
	default:
		return "neutral"
	}
}
