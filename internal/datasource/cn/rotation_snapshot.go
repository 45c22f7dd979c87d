package cn

import (
	"context"
	"fmt"
	"sort"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/provider/dbp"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var rotationSchema = []string{
	"rows", "top_sector", "positive_sectors", "sector_count",
}

// RotationSnapshot ranks sector indices by 20-day momentum and tags each
// as ENTRY / HOLDING / EXIT for the sector permit layer.
type RotationSnapshot struct {
	datasource.Base
	provider *dbp.Provider
}

func NewRotationSnapshot(store *cache.Store, market string, provider *dbp.Provider, log *logger.Logger) *RotationSnapshot {
	return &RotationSnapshot{
		Base:     datasource.NewBase("rotation_snapshot", market, store, log, rotationSchema),
		provider: provider,
	}
}

func (s *RotationSnapshot) BuildBlock(ctx context.Context, tradeDate string, mode refresh.Mode) contracts.FactBlock {
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

	closes, err := s.provider.FetchSectorCloses(ctx, tradeDate, 40)
	if err != nil {
		return s.FetchFailed(tradeDate, err)
	}

	bySector := make(map[string][]float64)
	for _, c := range closes {
		bySector[c.Sector] = append(bySector[c.Sector], c.Close)
	}

	rows := make([]contracts.RotationRow, 0, len(bySector))
	positive := 0
	for sector, cl := range bySector {
		mom, ok := retPct(cl, 20)
		if !ok {
			s.Logger().WithField("sector", sector).Warn("sector history too short, skipped")
			continue
		}
		if mom > 0 {
			positive++
		}
		rows = append(rows, contracts.RotationRow{Sector: sector, Score: mom})
	}
	if len(rows) == 0 {
		return s.FetchFailed(tradeDate, fmt.Errorf("no sector has 20d history"))
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	for i := range rows {
		rows[i].State = rotationState(i, len(rows), rows[i].Score)
	}

	block := contracts.NewBlock(s.Name(), tradeDate)
	block.Fields["rows"] = rows
	block.Fields["top_sector"] = rows[0].Sector
	block.Fields["positive_sectors"] = float64(positive)
	block.Fields["sector_count"] = float64(len(rows))

	return s.Finalize(block)
}

// rotationState: top quartile with positive momentum enters, bottom
// quartile or negative momentum exits, the middle holds.
func rotationState(rank, total int, score float64) string {
	if score <= 0 || rank >= total*3/4 {
		return "EXIT"
	}
	if rank < total/4 {
		return "ENTRY"
	}
	return "HOLDING"
}
