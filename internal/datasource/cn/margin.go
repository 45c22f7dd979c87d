package cn

import (
	"context"
	"fmt"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/provider/em"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var marginSchema = []string{
	"rz_balance", "rq_balance", "total", "rz_buy",
	"total_chg", "rz_share_pct",
	"trend_10d", "acc_3d",
}

const marginHistoryWindow = 60

// Margin tracks exchange-wide RZRQ balances (亿元) plus the 10-day trend
// and 3-day acceleration the leverage factor reads.
type Margin struct {
	datasource.Base
	client *em.Client
}

func NewMargin(store *cache.Store, market string, client *em.Client, log *logger.Logger) *Margin {
	return &Margin{
		Base:   datasource.NewBase("margin", market, store, log, marginSchema),
		client: client,
	}
}

func (s *Margin) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
	eff := s.Cleanup(mode, tradeDate)

	if eff.TrustsCache() {
		if block, ok := s.LoadCached(tradeDate); ok {
			return block
		}
		if !eff.AllowsFetch() {
			return s.CacheMiss(tradeDate)
		}
	}

	apiFellBack := false
	rows, err := s.client.FetchMarginSeries(ctx, 30)
	if err != nil {
		// 리포트 API가 죽어도 공시 페이지 스크랩으로 한 번 더 시도
		s.Logger().WithError(err).Warn("margin report api failed, scraping html fallback")
		rows, err = s.client.FetchMarginSeriesHTML(ctx, 30)
		if err != nil {
			return s.FetchFailed(tradeDate, err)
		}
		apiFellBack = true
	}
	if len(rows) == 0 {
		return s.FetchFailed(tradeDate, fmt.Errorf("empty margin series"))
	}

	incoming := make([]datasource.SeriesPoint, 0, len(rows))
	for _, r := range rows {
		incoming = append(incoming, datasource.SeriesPoint{
			Date: r.Date,
			Values: map[string]float64{
				"rz_balance": r.RzBalance,
				"rq_balance": r.RqBalance,
				"total":      r.Total,
				"rz_buy":     r.RzBuy,
				"total_chg":  r.TotalChg,
				"rz_share":   r.RzRatio,
			},
		})
	}

	history := datasource.MergeHistory(datasource.LoadHistory(s.HistoryFile()), incoming, marginHistoryWindow)
	if err := datasource.SaveHistory(s.HistoryFile(), history); err != nil {
		s.Logger().WithError(err).Warn("margin history write failed")
	}

	latest := rows[len(rows)-1]
	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["rz_balance"] = latest.RzBalance
	block.Fields["rq_balance"] = latest.RqBalance
	block.Fields["total"] = latest.Total
	block.Fields["rz_buy"] = latest.RzBuy
	block.Fields["total_chg"] = latest.TotalChg
	block.Fields["rz_share_pct"] = latest.RzRatio

	if trend, ok := datasource.DeltaOver(history, "total", 10); ok {
		block.Fields["trend_10d"] = trend
	} else {
		block.Fields["trend_10d"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("trend_10d_insufficient_history")
	}
	if acc, ok := datasource.SumLast(history, "total_chg", 3); ok {
		block.Fields["acc_3d"] = acc
	} else {
		block.Fields["acc_3d"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("acc_3d_insufficient_history")
	}

	if latest.Date != tradeDate {
		block.AddWarning(fmt.Sprintf("latest_margin_date_stale: %s", latest.Date))
	}
	if apiFellBack {
		block.AddWarning("margin_api_failed_html_fallback")
	}

	return s.Finalize(block)
}
