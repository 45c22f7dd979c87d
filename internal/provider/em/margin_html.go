package em

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 리포트 API가 막혔을 때 쓰는 공시 페이지 (표 구조는 수년째 동일)
const marginHTMLURL = "https://data.eastmoney.com/rzrq/zong.html"

var marginDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FetchMarginSeriesHTML scrapes the printed RZRQ summary table as a
// fallback for the report API. Values on the page are in 元; rows come
// back oldest first in 亿元, matching FetchMarginSeries.
func (c *Client) FetchMarginSeriesHTML(ctx context.Context, days int) ([]MarginRow, error) {
	resp, err := c.http.Get(ctx, c.htmlURL())
	if err != nil {
		return nil, fmt.Errorf("margin html fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("margin html read: %w", err)
	}

	rows, err := parseMarginHTML(string(body))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("margin html: no data rows")
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	if len(rows) > days {
		rows = rows[len(rows)-days:]
	}

	// 페이지에는 증감 컬럼이 없어서 직접 계산한다
	for i := 1; i < len(rows); i++ {
		rows[i].TotalChg = rows[i].Total - rows[i-1].Total
	}

	c.logger.WithField("rows", len(rows)).Debug("margin series scraped from html")
	return rows, nil
}

func (c *Client) htmlURL() string {
	if c.marginHTML != "" {
		return c.marginHTML
	}
	return marginHTMLURL
}

// WithMarginHTMLURL overrides the scrape target (tests use httptest servers).
func (c *Client) WithMarginHTMLURL(u string) *Client {
	c.marginHTML = u
	return c
}

func parseMarginHTML(html string) ([]MarginRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("margin html parse: %w", err)
	}

	parseNum := func(s string) float64 {
		s = strings.TrimSpace(s)
		s = strings.ReplaceAll(s, ",", "")
		if s == "" || s == "-" {
			return 0
		}
		n, _ := strconv.ParseFloat(s, 64)
		return n
	}

	var rows []MarginRow
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		date := strings.TrimSpace(cells.Eq(0).Text())
		if !marginDateRe.MatchString(date) {
			return
		}

		rz := parseNum(cells.Eq(1).Text()) / 1e8
		rq := parseNum(cells.Eq(2).Text()) / 1e8
		total := parseNum(cells.Eq(3).Text()) / 1e8
		rzBuy := parseNum(cells.Eq(4).Text()) / 1e8
		if total == 0 {
			return
		}

		rows = append(rows, MarginRow{
			Date:      date,
			RzBalance: rz,
			RqBalance: rq,
			Total:     total,
			RzBuy:     rzBuy,
			RzRatio:   rz / total * 100,
		})
	})

	return rows, nil
}
