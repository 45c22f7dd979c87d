package datasource

import (
	"fmt"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// Base carries the plumbing every source repeats: cache paths, refresh
// cleanup, degraded-block construction, unit normalization.
type Base struct {
	name   string
	market string
	store  *cache.Store
	logger *logger.Logger
	schema []string
}

// NewBase wires the shared plumbing for one fact family. schema is the
// full field-key set of a healthy block; degraded blocks mirror it.
func NewBase(name, market string, store *cache.Store, log *logger.Logger, schema []string) Base {
	return Base{
		name:   name,
		market: market,
		store:  store,
		logger: log.WithField("source", name),
		schema: schema,
	}
}

// Name returns the fact-family name.
func (b *Base) Name() string { return b.name }

// Logger returns the source-scoped logger.
func (b *Base) Logger() *logger.Logger { return b.logger }

// Schema returns the healthy-block field keys.
func (b *Base) Schema() []string { return b.schema }

// CacheFile returns the per-date cache path for this family.
func (b *Base) CacheFile(tradeDate string) string {
	return b.store.CachePath(b.market, b.name, fmt.Sprintf("%s_%s.json", b.name, tradeDate))
}

// HistoryFile returns the rolling-window history path for this family.
func (b *Base) HistoryFile() string {
	return b.store.HistoryPath(b.market, b.name, b.name+"_history.json")
}

// Cleanup runs the shared refresh invalidation for one build call.
func (b *Base) Cleanup(mode refresh.Mode, tradeDate string) refresh.Mode {
	historyPath := ""
	if mode == refresh.ModeFull {
		historyPath = b.HistoryFile()
	}
	return refresh.ApplyCleanup(mode, b.CacheFile(tradeDate), historyPath, "")
}

// LoadCached returns the cached block for a date if present and shaped
// like one of ours.
func (b *Base) LoadCached(tradeDate string) (contracts.FactBlock, bool) {
	var block contracts.FactBlock
	if !cache.LoadJSON(b.CacheFile(tradeDate), &block) {
		return contracts.FactBlock{}, false
	}
	if block.Name != b.name || block.Fields == nil {
		return contracts.FactBlock{}, false
	}
	return block, true
}

// Degraded builds the schema-parity fallback block for a failed fetch.
func (b *Base) Degraded(tradeDate string, status contracts.DataStatus, warnings ...string) contracts.FactBlock {
	return contracts.NewDegradedBlock(b.name, tradeDate, status, b.schema, warnings...)
}

// CacheMiss is the readonly-mode terminal: no fetch, degraded MISSING block.
func (b *Base) CacheMiss(tradeDate string) contracts.FactBlock {
	return b.Degraded(tradeDate, contracts.StatusMissing, "cache_miss_readonly")
}

// Finalize normalizes units, validates the convention, and writes the block
// through to cache. 블록은 캐시에 기록된 것과 반환된 것이 항상 동일
func (b *Base) Finalize(block contracts.FactBlock) contracts.FactBlock {
	for _, w := range contracts.NormalizeUnits(block.Fields) {
		block.AddWarning(w)
	}
	for _, v := range contracts.ValidateUnits(block.Fields) {
		block.AddWarning(v)
		b.logger.WithField("violation", v).Warn("unit convention violation")
	}

	if err := cache.SaveJSON(b.CacheFile(block.TradeDate), block); err != nil {
		b.logger.WithError(err).Warn("cache write failed, returning uncached block")
	}
	return block
}

// FetchFailed logs the provider error and returns the degraded block.
func (b *Base) FetchFailed(tradeDate string, err error) contracts.FactBlock {
	b.logger.WithError(err).WithField("trade_date", tradeDate).Error("provider fetch failed")
	return b.Degraded(tradeDate, contracts.StatusError, "fetch_failed: "+err.Error())
}
