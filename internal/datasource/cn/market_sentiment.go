package cn

import (
	"context"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var sentimentSchema = []string{
	"adv", "dec", "flat", "limit_up", "limit_down",
	"adv_ratio", "limit_up_net",
}

// MarketSentiment summarizes the day's advance/decline and limit boards
// from the shared spot fetch.
type MarketSentiment struct {
	datasource.Base
	spot *SpotOnce
}

func NewMarketSentiment(store *cache.Store, market string, spot *SpotOnce, log *logger.Logger) *MarketSentiment {
	return &MarketSentiment{
		Base: datasource.NewBase("market_sentiment", market, store, log, sentimentSchema),
		spot: spot,
	}
}

func (s *MarketSentiment) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
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

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["adv"] = float64(spot.Adv)
	block.Fields["dec"] = float64(spot.Dec)
	block.Fields["flat"] = float64(spot.Flat)
	block.Fields["limit_up"] = float64(spot.LimitUp)
	block.Fields["limit_down"] = float64(spot.LimitDown)
	block.Fields["limit_up_net"] = float64(spot.LimitUp - spot.LimitDown)

	total := spot.Adv + spot.Dec + spot.Flat
	if total > 0 {
		block.Fields["adv_ratio"] = float64(spot.Adv) / float64(total)
	} else {
		block.Fields["adv_ratio"] = nil
		block.Status = contracts.StatusPartial
		block.AddWarning("adv_ratio_unavailable: zero universe")
	}

	return s.Finalize(block)
}
