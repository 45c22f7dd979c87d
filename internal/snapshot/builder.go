// Package snapshot assembles one trade date's fact blocks from all
// registered sources.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// RequiredFamilies is the fixed top-level schema of a snapshot. Absent
// families are force-populated so downstream code never key-checks.
var RequiredFamilies = []string{
	"index_core", "turnover", "margin", "market_sentiment",
	"breadth_plus", "etf_flow", "futures_basis", "options_risk",
	"north_proxy", "rotation_snapshot", "global_lead",
}

// Builder orchestrates all sources for one trade date.
// ⭐ SSOT: 스냅샷 조립은 여기서만 — 소스 하나의 실패가 전체를 멈추지 않는다
type Builder struct {
	market   string
	sources  []datasource.Source
	required []string
	logger   *logger.Logger
}

// NewBuilder creates a snapshot builder over the registered sources.
func NewBuilder(market string, sources []datasource.Source, log *logger.Logger) *Builder {
	return &Builder{
		market:   market,
		sources:  sources,
		required: RequiredFamilies,
		logger:   log.WithField("component", "snapshot_builder"),
	}
}

// Build invokes every source with the same (tradeDate, mode) and returns
// the assembled snapshot. Never returns nil.
func (b *Builder) Build(ctx context.Context, tradeDate string, mode refresh.Mode) *contracts.Snapshot {
	started := time.Now()

	snap := &contracts.Snapshot{
		Market:    b.market,
		TradeDate: tradeDate,
		Blocks:    make(map[string]contracts.FactBlock, len(b.sources)),
		Warnings:  []string{},
	}

	for _, src := range b.sources {
		block := b.buildOne(ctx, src, tradeDate, mode)
		snap.Blocks[src.Name()] = block
		if block.Degraded() {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s:%s", src.Name(), block.Status))
		}
	}

	// schema force-population
	for _, name := range b.required {
		if _, ok := snap.Blocks[name]; !ok {
			snap.Blocks[name] = contracts.NewDegradedBlock(name, tradeDate, contracts.StatusMissing, nil, "source_not_registered")
			snap.Warnings = append(snap.Warnings, name+":not_registered")
		}
	}

	b.logger.WithFields(map[string]interface{}{
		"trade_date": tradeDate,
		"mode":       string(mode),
		"families":   len(snap.Blocks),
		"degraded":   len(snap.Warnings),
		"duration":   time.Since(started),
	}).Info("snapshot assembled")

	return snap
}

// buildOne isolates a single source call: a panic inside one source
// degrades that family only.
func (b *Builder) buildOne(ctx context.Context, src datasource.Source, tradeDate string, mode refresh.Mode) (block contracts.FactBlock) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(map[string]interface{}{
				"source": src.Name(),
				"panic":  fmt.Sprint(r),
			}).Error("🚨 source panicked, family degraded")
			block = contracts.NewDegradedBlock(src.Name(), tradeDate, contracts.StatusError, nil, fmt.Sprintf("panic: %v", r))
		}
	}()

	return src.BuildBlock(ctx, tradeDate, mode)
}
