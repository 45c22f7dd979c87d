// Package yf is the Yahoo Finance provider for daily OHLCV series
// (global indices, futures, FX-listed proxies).
package yf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/httputil"
	"github.com/wonny/unirisk/backend/pkg/logger"
	"github.com/wonny/unirisk/backend/pkg/redis"
)

// FetchMethod selects the request shaping for a symbol class.
// The set is closed: resolving an unknown token fails at config load,
// not at fetch time.
type FetchMethod int

const (
	MethodDefault FetchMethod = iota
	MethodIndex
	MethodEquity
	MethodFuture
	MethodCrypto
)

var methodByToken = map[string]FetchMethod{
	"default": MethodDefault,
	"index":   MethodIndex,
	"equity":  MethodEquity,
	"future":  MethodFuture,
	"crypto":  MethodCrypto,
}

// ParseFetchMethod resolves a config token to a FetchMethod.
func ParseFetchMethod(token string) (FetchMethod, error) {
	m, ok := methodByToken[token]
	if !ok {
		return MethodDefault, fmt.Errorf("unknown fetch method %q", token)
	}
	return m, nil
}

func (m FetchMethod) String() string {
	switch m {
	case MethodIndex:
		return "index"
	case MethodEquity:
		return "equity"
	case MethodFuture:
		return "future"
	case MethodCrypto:
		return "crypto"
	default:
		return "default"
	}
}

// interval returns the chart interval for the method. Crypto trades
// continuously so daily bars need no session alignment.
func (m FetchMethod) interval() string {
	return "1d"
}

// Bar is one daily OHLCV bar.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD, exchange local
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Client is the Yahoo chart API client.
// ⭐ SSOT: Yahoo 호출은 이 클라이언트를 통해서만
type Client struct {
	http    *httputil.Client
	baseURL string
	limiter *rate.Limiter
	logger  *logger.Logger
}

// New creates a Yahoo client with a local token-bucket limiter.
func New(cfg *config.Config, log *logger.Logger) *Client {
	perSec := cfg.Yahoo.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	return &Client{
		http:    httputil.NewWithTimeout(cfg, log, cfg.Yahoo.Timeout),
		baseURL: cfg.Yahoo.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		logger:  log.WithField("provider", "yahoo"),
	}
}

// WithHTTP replaces the underlying HTTP client (tests use httptest servers).
func (c *Client) WithHTTP(h *httputil.Client, baseURL string) *Client {
	c.http = h
	c.baseURL = baseURL
	return c
}

// WithRateLimiter layers the shared Yahoo rate limit on top of the local
// token bucket (the Redis window coordinates across processes).
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter) *Client {
	c.http.WithRateLimiter(limiter, redis.YahooRateLimit)
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily pulls daily bars for one symbol over a lookback window.
// Bars with a nil close (halted sessions) are dropped.
func (c *Client) FetchDaily(ctx context.Context, symbol string, method FetchMethod, lookbackDays int) ([]Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	q := url.Values{}
	q.Set("range", rangeToken(lookbackDays))
	q.Set("interval", method.interval())
	q.Set("events", "history")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", symbol, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("fetch %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("fetch %s: empty chart result", symbol)
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bars = append(bars, Bar{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   deref(quote.Open, i),
			High:   deref(quote.High, i),
			Low:    deref(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: deref(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s: no usable bars", symbol)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"method": method.String(),
		"bars":   len(bars),
	}).Debug("Yahoo series fetched")

	return bars, nil
}

func rangeToken(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}
