// Package pipeline wires the daily batch: snapshot assembly, factors,
// prediction, gate decision, governance overlays and the report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/datasource"
	"github.com/wonny/unirisk/backend/internal/datasource/cn"
	"github.com/wonny/unirisk/backend/internal/factor"
	"github.com/wonny/unirisk/backend/internal/gate"
	"github.com/wonny/unirisk/backend/internal/governance"
	"github.com/wonny/unirisk/backend/internal/predict"
	"github.com/wonny/unirisk/backend/internal/provider/dbp"
	"github.com/wonny/unirisk/backend/internal/provider/em"
	"github.com/wonny/unirisk/backend/internal/provider/yf"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/internal/report"
	"github.com/wonny/unirisk/backend/internal/snapshot"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/database"
	"github.com/wonny/unirisk/backend/pkg/logger"
	"github.com/wonny/unirisk/backend/pkg/redis"
)

// Pipeline owns the long-lived pieces; per-run state (series store, spot
// memo) is created inside Run so repeated runs in one process stay clean.
type Pipeline struct {
	cfg     *config.Config
	store   *cache.Store
	symbols *config.Symbols
	methods map[string]yf.FetchMethod
	logger  *logger.Logger

	emClient  *em.Client
	yfClient  *yf.Client
	warehouse *dbp.Provider

	factors *factor.Engine
	predict *predict.Engine
	decider *gate.Decider

	attack *governance.AttackPermitBuilder
	sector *governance.SectorPermitBuilder
	final  *governance.FinalDecisionLayer
	mode   *governance.MarketModeEngine
	report *report.Writer
}

// New builds the pipeline. Configuration problems abort here; data
// problems later only degrade.
func New(cfg *config.Config, db *database.DB, log *logger.Logger) (*Pipeline, error) {
	symbols, err := config.LoadSymbols(cfg.SymbolsFile)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	weights, err := config.LoadWeights(cfg.WeightsFile)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	methods, err := yf.ResolveMethods(symbols.Methods)
	if err != nil {
		return nil, fmt.Errorf("resolve fetch methods: %w", err)
	}

	store := cache.New(cfg.DataDir)

	var warehouse *dbp.Provider
	if db != nil {
		warehouse = dbp.New(db, cfg.Database.QueryTimeout, log)
	}

	rules := gate.LoadRules(cfg.RulesGlob, log)

	emClient := em.New(cfg, log)
	yfClient := yf.New(cfg, log)

	// 분산 레이트 리밋은 선택적: Redis가 없으면 로컬 제한만 적용
	if cfg.Redis.Enabled {
		if rdb, err := redis.New(cfg); err != nil {
			log.WithError(err).Warn("redis unavailable, provider rate limits are local only")
		} else {
			limiter := redis.NewRateLimiter(rdb, "unirisk")
			emClient.WithRateLimiter(limiter)
			yfClient.WithRateLimiter(limiter)
		}
	}

	return &Pipeline{
		cfg:       cfg,
		store:     store,
		symbols:   symbols,
		methods:   methods,
		logger:    log.WithField("component", "pipeline"),
		emClient:  emClient,
		yfClient:  yfClient,
		warehouse: warehouse,
		factors:   factor.NewEngine(log),
		predict:   predict.NewEngine(weights, log),
		decider:   gate.NewDecider(rules, cfg.Gate.StatePath, cfg.Gate.CooldownDays, log),
		attack:    governance.NewAttackPermitBuilder(log),
		sector:    governance.NewSectorPermitBuilder(log),
		final:     governance.NewFinalDecisionLayer(log),
		mode:      governance.NewMarketModeEngine(log),
		report:    report.NewWriter(store, cfg.Market, log),
	}, nil
}

// Sources builds the per-run source set over fresh run-scoped stores.
func (p *Pipeline) Sources() []datasource.Source {
	market := p.cfg.Market
	series := yf.NewSeriesStore(p.yfClient, p.methods)
	spot := cn.NewSpotOnce(p.emClient, p.store, market, p.cfg.EastMoney.CacheTTL, p.logger)

	indexSymbol := ""
	if len(p.symbols.IndexCore) > 0 {
		indexSymbol = p.symbols.IndexCore[0]
	}
	futSymbol, optSymbol := first(p.symbols.FuturesBasis), first(p.symbols.OptionsRisk)

	return []datasource.Source{
		cn.NewIndexCore(p.store, market, series, indexSymbol, p.logger),
		cn.NewTurnover(p.store, market, spot, p.logger),
		cn.NewMargin(p.store, market, p.emClient, p.logger),
		cn.NewMarketSentiment(p.store, market, spot, p.logger),
		cn.NewBreadthPlus(p.store, market, p.warehouse, p.logger),
		cn.NewETFFlow(p.store, market, p.emClient, p.symbols.EtfFlow, p.logger),
		cn.NewFuturesBasis(p.store, market, series, futSymbol, indexSymbol, p.logger),
		cn.NewOptionsRisk(p.store, market, series, optSymbol, p.logger),
		cn.NewNorthProxy(p.store, market, series, p.symbols.NorthProxy, p.logger),
		cn.NewRotationSnapshot(p.store, market, p.warehouse, p.logger),
		cn.NewGlobalLead(p.store, market, series, p.symbols.GlobalLead, p.logger),
	}
}

// Run executes one daily cycle and returns the fully annotated snapshot.
func (p *Pipeline) Run(ctx context.Context, tradeDate string, mode refresh.Mode) (*contracts.Snapshot, error) {
	started := time.Now()
	p.logger.WithFields(map[string]interface{}{
		"trade_date": tradeDate,
		"mode":       string(mode),
	}).Info("daily run started")

	builder := snapshot.NewBuilder(p.cfg.Market, p.Sources(), p.logger)
	snap := builder.Build(ctx, tradeDate, mode)

	factors := p.factors.ComputeAll(snap)
	pred := p.predict.Predict(factors)
	snap.Prediction = &pred

	gateBlock := p.decider.Decide(snap)

	drs := governance.LoadDRS(p.store, p.cfg.Market, p.logger)
	band := governance.ExecutionBand(snap)

	attack := p.attack.Build(snap, gateBlock.Level)
	sector := p.sector.Build(snap, gateBlock.Level, band)
	final := p.final.Build(gateBlock.Level, drs, band, attack, sector)
	marketMode := p.mode.Classify(snap, gateBlock.Level, drs, attack)

	snap.Governance = &contracts.GovernanceSet{
		DRSSignal:     drs,
		AttackPermit:  attack,
		SectorPermit:  sector,
		MarketMode:    marketMode,
		FinalDecision: final,
	}

	if _, err := p.report.Write(snap); err != nil {
		p.logger.WithError(err).Error("report write failed")
	}

	p.logger.WithFields(map[string]interface{}{
		"trade_date": tradeDate,
		"gate":       gateBlock.Level,
		"action":     final.ActionHintCode,
		"duration":   time.Since(started),
	}).Info("daily run finished")

	return snap, nil
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
