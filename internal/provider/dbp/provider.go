// Package dbp is the local-warehouse provider: breadth and sector
// aggregates computed from the daily bars table in Postgres.
package dbp

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/unirisk/backend/pkg/database"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// Provider reads pre-loaded daily bars from the warehouse.
// 모든 쿼리는 per-query deadline을 가진다
type Provider struct {
	db           *database.DB
	queryTimeout time.Duration
	logger       *logger.Logger
}

// New creates a warehouse provider.
func New(db *database.DB, queryTimeout time.Duration, log *logger.Logger) *Provider {
	return &Provider{
		db:           db,
		queryTimeout: queryTimeout,
		logger:       log.WithField("provider", "warehouse"),
	}
}

// BreadthStats is the universe-wide participation snapshot for one day.
type BreadthStats struct {
	TradeDate     string  `json:"trade_date"`
	Universe      int     `json:"universe"`
	AboveMA50     int     `json:"above_ma50"`
	PctAboveMA50  float64 `json:"pct_above_ma50"` // 0..100
	NewLow50d     int     `json:"new_low_50d"`
	NewLowRatio   float64 `json:"new_low_ratio_pct"` // 0..100
	MedianRet20d  float64 `json:"median_ret_20d_pct"`
	AdvDeclRatio  float64 `json:"adv_decl_ratio"` // 0..1
}

// FetchBreadth computes the breadth snapshot for a trade date from the
// daily_bars table. Requires at least 50 prior sessions loaded.
func (p *Provider) FetchBreadth(ctx context.Context, tradeDate string) (*BreadthStats, error) {
	qctx, cancel := database.QueryContext(ctx, p.queryTimeout)
	defer cancel()

	const q = `
		WITH latest AS (
			SELECT symbol, close,
			       AVG(close) OVER w50          AS ma50,
			       MIN(low)   OVER w50          AS low50,
			       row_number() OVER (PARTITION BY symbol ORDER BY trade_date DESC) AS rn
			FROM daily_bars
			WHERE trade_date <= $1
			WINDOW w50 AS (PARTITION BY symbol ORDER BY trade_date
			               ROWS BETWEEN 49 PRECEDING AND CURRENT ROW)
		)
		SELECT count(*)                                            AS universe,
		       count(*) FILTER (WHERE close > ma50)                AS above_ma50,
		       count(*) FILTER (WHERE close <= low50)              AS new_low_50d
		FROM latest
		WHERE rn = 1`

	var stats BreadthStats
	stats.TradeDate = tradeDate
	row := p.db.Pool.QueryRow(qctx, q, tradeDate)
	if err := row.Scan(&stats.Universe, &stats.AboveMA50, &stats.NewLow50d); err != nil {
		return nil, fmt.Errorf("fetch breadth %s: %w", tradeDate, err)
	}
	if stats.Universe == 0 {
		return nil, fmt.Errorf("fetch breadth %s: empty universe", tradeDate)
	}

	stats.PctAboveMA50 = 100 * float64(stats.AboveMA50) / float64(stats.Universe)
	stats.NewLowRatio = 100 * float64(stats.NewLow50d) / float64(stats.Universe)

	adv, err := p.fetchAdvancers(qctx, tradeDate)
	if err != nil {
		p.logger.WithError(err).Warn("advancer ratio unavailable, breadth partial")
	} else {
		stats.AdvDeclRatio = adv
	}

	return &stats, nil
}

func (p *Provider) fetchAdvancers(ctx context.Context, tradeDate string) (float64, error) {
	const q = `
		WITH ranked AS (
			SELECT symbol, close,
			       lag(close) OVER (PARTITION BY symbol ORDER BY trade_date) AS prev_close,
			       row_number() OVER (PARTITION BY symbol ORDER BY trade_date DESC) AS rn
			FROM daily_bars
			WHERE trade_date <= $1
		)
		SELECT count(*) FILTER (WHERE close > prev_close), count(*)
		FROM ranked
		WHERE rn = 1 AND prev_close IS NOT NULL`

	var adv, total int
	if err := p.db.Pool.QueryRow(ctx, q, tradeDate).Scan(&adv, &total); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, fmt.Errorf("no previous session")
	}
	return float64(adv) / float64(total), nil
}

// SectorClose is one sector index close.
type SectorClose struct {
	Sector    string  `json:"sector"`
	TradeDate string  `json:"trade_date"`
	Close     float64 `json:"close"`
}

// FetchSectorCloses returns closes for all sector indices over the
// lookback window, newest last per sector.
func (p *Provider) FetchSectorCloses(ctx context.Context, tradeDate string, lookbackDays int) ([]SectorClose, error) {
	qctx, cancel := database.QueryContext(ctx, p.queryTimeout)
	defer cancel()

	const q = `
		SELECT sector, trade_date::text, close
		FROM sector_daily
		WHERE trade_date <= $1
		  AND trade_date > $1::date - $2::int
		ORDER BY sector, trade_date`

	rows, err := p.db.Pool.Query(qctx, q, tradeDate, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch sector closes %s: %w", tradeDate, err)
	}
	defer rows.Close()

	var out []SectorClose
	for rows.Next() {
		var sc SectorClose
		if err := rows.Scan(&sc.Sector, &sc.TradeDate, &sc.Close); err != nil {
			return nil, fmt.Errorf("scan sector close: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch sector closes %s: %w", tradeDate, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fetch sector closes %s: no rows", tradeDate)
	}
	return out, nil
}

// FetchTopTurnoverShare returns the share of total turnover taken by the
// top N names on a trade date, as a 0..1 ratio.
func (p *Provider) FetchTopTurnoverShare(ctx context.Context, tradeDate string, topN int) (float64, error) {
	qctx, cancel := database.QueryContext(ctx, p.queryTimeout)
	defer cancel()

	const q = `
		WITH day AS (
			SELECT amount FROM daily_bars WHERE trade_date = $1
		)
		SELECT COALESCE(
			(SELECT sum(amount) FROM (SELECT amount FROM day ORDER BY amount DESC LIMIT $2) top)
			/ NULLIF((SELECT sum(amount) FROM day), 0), 0)`

	var share float64
	if err := p.db.Pool.QueryRow(qctx, q, tradeDate, topN).Scan(&share); err != nil {
		return 0, fmt.Errorf("fetch top turnover share %s: %w", tradeDate, err)
	}
	return share, nil
}
