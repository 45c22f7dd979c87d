// Package cn holds the A-share fact-family sources. Every source follows
// the same build shape: refresh cleanup → cache read → provider fetch →
// history merge → derived fields → finalize (normalize units, cache write).
package cn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/provider/em"
	"github.com/wonny/unirisk/backend/internal/provider/yf"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// SpotOnce fetches the EastMoney market spot at most once per run and
// keeps a short-TTL disk copy so intra-day reruns don't hammer the API.
//
// Run-scoped by construction: 모듈 전역 refreshed 플래그 대신
// 파이프라인이 실행마다 새로 만들어 주입한다.
type SpotOnce struct {
	mu       sync.Mutex
	client   *em.Client
	diskPath string
	ttl      time.Duration
	logger   *logger.Logger

	done bool
	spot *em.MarketSpot
	err  error
}

type spotEnvelope struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Spot      *em.MarketSpot `json:"spot"`
}

// NewSpotOnce creates a run-scoped spot fetcher.
func NewSpotOnce(client *em.Client, store *cache.Store, market string, ttl time.Duration, log *logger.Logger) *SpotOnce {
	return &SpotOnce{
		client:   client,
		diskPath: store.CachePath(market, "em_spot", "spot.json"),
		ttl:      ttl,
		logger:   log.WithField("source", "em_spot"),
	}
}

// Path returns the disk cache location, so full-refresh cleanup can target it.
func (s *SpotOnce) Path() string { return s.diskPath }

// Get returns the market spot for this run. Mode readonly never hits the
// network; mode full ignores the disk copy.
func (s *SpotOnce) Get(ctx context.Context, mode refresh.Mode) (*em.MarketSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return s.spot, s.err
	}

	if mode != refresh.ModeFull {
		var env spotEnvelope
		if cache.LoadJSON(s.diskPath, &env) && env.Spot != nil && time.Since(env.FetchedAt) < s.ttl {
			s.done, s.spot = true, env.Spot
			return s.spot, nil
		}
	}

	if !mode.AllowsFetch() {
		s.done, s.err = true, fmt.Errorf("spot cache miss in readonly mode")
		return nil, s.err
	}

	spot, err := s.client.FetchMarketSpot(ctx)
	s.done, s.spot, s.err = true, spot, err
	if err != nil {
		return nil, err
	}

	if werr := cache.SaveJSON(s.diskPath, spotEnvelope{FetchedAt: time.Now(), Spot: spot}); werr != nil {
		s.logger.WithError(werr).Warn("spot cache write failed")
	}
	return spot, nil
}

// ---------------- bar math ----------------

func closes(bars []yf.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// sma returns the simple moving average of the newest n values.
func sma(vals []float64, n int) (float64, bool) {
	if n <= 0 || len(vals) < n {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals[len(vals)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// retPct returns the percent change over the newest n steps.
func retPct(vals []float64, n int) (float64, bool) {
	if n <= 0 || len(vals) < n+1 {
		return 0, false
	}
	base := vals[len(vals)-1-n]
	if base == 0 {
		return 0, false
	}
	return 100 * (vals[len(vals)-1] - base) / base, true
}
