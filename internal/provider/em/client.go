// Package em is the EastMoney provider: datacenter report API for margin
// series, push2 quote API for market breadth/turnover/ETF spot.
package em

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/httputil"
	"github.com/wonny/unirisk/backend/pkg/logger"
	"github.com/wonny/unirisk/backend/pkg/redis"
)

// Client is the EastMoney HTTP client.
// ⭐ SSOT: EastMoney 호출은 이 클라이언트를 통해서만
type Client struct {
	http       *httputil.Client
	baseURL    string
	pushURL    string
	marginHTML string
	logger     *logger.Logger
}

// New creates an EastMoney client with the configured timeout.
func New(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		http:    httputil.NewWithTimeout(cfg, log, cfg.EastMoney.Timeout),
		baseURL: cfg.EastMoney.BaseURL,
		pushURL: cfg.EastMoney.PushURL,
		logger:  log.WithField("provider", "eastmoney"),
	}
}

// WithHTTP replaces the underlying HTTP client (tests use httptest servers).
func (c *Client) WithHTTP(h *httputil.Client, baseURL, pushURL string) *Client {
	c.http = h
	c.baseURL = baseURL
	c.pushURL = pushURL
	return c
}

// WithRateLimiter applies the shared EastMoney rate limit to every call.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter) *Client {
	c.http.WithRateLimiter(limiter, redis.EastMoneyRateLimit)
	return c
}

// MarginRow is one day of exchange-wide margin balances, in 亿元.
type MarginRow struct {
	Date      string  `json:"date"`
	RzBalance float64 `json:"rz_balance"`
	RqBalance float64 `json:"rq_balance"`
	Total     float64 `json:"total"`
	RzBuy     float64 `json:"rz_buy"`
	TotalChg  float64 `json:"total_chg"`
	RzRatio   float64 `json:"rz_ratio"`
}

type reportResponse struct {
	Result *struct {
		Data []map[string]any `json:"data"`
	} `json:"result"`
}

// FetchMarginSeries pulls the last N days of RZRQ balances from the
// datacenter report API (RPTA_RZRQ_LSDB), oldest first.
func (c *Client) FetchMarginSeries(ctx context.Context, days int) ([]MarginRow, error) {
	q := url.Values{}
	q.Set("reportName", "RPTA_RZRQ_LSDB")
	q.Set("columns", "ALL")
	q.Set("sortColumns", "DIM_DATE")
	q.Set("sortTypes", "-1")
	q.Set("pageNumber", "1")
	q.Set("pageSize", strconv.Itoa(days))
	q.Set("source", "WEB")
	q.Set("_", strconv.FormatInt(time.Now().UnixMilli(), 10))

	reqURL := fmt.Sprintf("%s/api/data/v1/get?%s", c.baseURL, q.Encode())

	var parsed reportResponse
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return nil, fmt.Errorf("fetch margin series: %w", err)
	}
	if parsed.Result == nil || len(parsed.Result.Data) == 0 {
		return nil, fmt.Errorf("fetch margin series: empty result")
	}

	rows := make([]MarginRow, 0, len(parsed.Result.Data))
	for _, r := range parsed.Result.Data {
		date := strField(r, "DIM_DATE")
		if len(date) >= 10 {
			date = date[:10]
		}
		if date == "" {
			continue
		}
		rows = append(rows, MarginRow{
			Date:      date,
			RzBalance: toE8(r["TOTAL_RZYE"]),
			RqBalance: toE8(r["TOTAL_RQYE"]),
			Total:     toE8(r["TOTAL_RZRQYE"]),
			RzBuy:     toE8(r["TOTAL_RZMRE"]),
			TotalChg:  toE8(r["TOTAL_RZRQYECZ"]),
			RzRatio:   numField(r, "TOTAL_RZYEZB"),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// MarketSpot is the exchange-wide breadth/turnover snapshot from push2.
type MarketSpot struct {
	Adv           int     `json:"adv"`
	Dec           int     `json:"dec"`
	Flat          int     `json:"flat"`
	LimitUp       int     `json:"limit_up"`
	LimitDown     int     `json:"limit_down"`
	TurnoverSH    float64 `json:"turnover_sh"` // 亿元
	TurnoverSZ    float64 `json:"turnover_sz"`
	TurnoverTotal float64 `json:"turnover_total"`
}

// FetchMarketSpot pulls the A-share market internals (adv/dec counts,
// limit boards, total turnover) in a single push2 call.
func (c *Client) FetchMarketSpot(ctx context.Context) (*MarketSpot, error) {
	reqURL := fmt.Sprintf("%s/api/qt/ulist.np/get?fltt=2&fields=f104,f105,f106,f107,f108,f6&secids=1.000001,0.399001", c.pushURL)

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch market spot: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read market spot: %w", err)
	}

	var parsed struct {
		Data *struct {
			Diff []map[string]json.Number `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse market spot: %w", err)
	}
	if parsed.Data == nil || len(parsed.Data.Diff) == 0 {
		return nil, fmt.Errorf("parse market spot: empty diff")
	}

	spot := &MarketSpot{}
	for _, row := range parsed.Data.Diff {
		spot.Adv += intNum(row["f104"])
		spot.Dec += intNum(row["f105"])
		spot.Flat += intNum(row["f106"])
		spot.LimitUp += intNum(row["f107"])
		spot.LimitDown += intNum(row["f108"])
		turnover := floatNum(row["f6"]) / 1e8
		spot.TurnoverTotal += turnover
		if spot.TurnoverSH == 0 {
			spot.TurnoverSH = turnover
		} else {
			spot.TurnoverSZ = turnover
		}
	}
	return spot, nil
}

// ETFFlowRow is one ETF's daily turnover/premium snapshot.
type ETFFlowRow struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Turnover   float64 `json:"turnover"` // 亿元
	ChangePct  float64 `json:"change_pct"`
	PremiumPct float64 `json:"premium_pct"`
}

// FetchETFFlows pulls spot rows for the configured broad-market ETF basket.
func (c *Client) FetchETFFlows(ctx context.Context, secIDs []string) ([]ETFFlowRow, error) {
	if len(secIDs) == 0 {
		return nil, fmt.Errorf("fetch etf flows: no symbols configured")
	}

	q := url.Values{}
	q.Set("fltt", "2")
	q.Set("fields", "f12,f14,f3,f6,f18")
	q.Set("secids", joinComma(secIDs))

	reqURL := fmt.Sprintf("%s/api/qt/ulist.np/get?%s", c.pushURL, q.Encode())

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch etf flows: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read etf flows: %w", err)
	}

	var parsed struct {
		Data *struct {
			Diff []map[string]any `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse etf flows: %w", err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("parse etf flows: empty data")
	}

	rows := make([]ETFFlowRow, 0, len(parsed.Data.Diff))
	for _, r := range parsed.Data.Diff {
		rows = append(rows, ETFFlowRow{
			Symbol:    strField(r, "f12"),
			Name:      strField(r, "f14"),
			ChangePct: numField(r, "f3"),
			Turnover:  numField(r, "f6") / 1e8,
		})
	}
	return rows, nil
}

// ---------------- internal ----------------

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// toE8 converts raw 元 values to 亿元.
func toE8(v any) float64 {
	f, ok := anyFloat(v)
	if !ok {
		return 0
	}
	return f / 1e8
}

func strField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func numField(m map[string]any, key string) float64 {
	f, _ := anyFloat(m[key])
	return f
}

func anyFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func intNum(n json.Number) int {
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return int(i)
}

func floatNum(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
