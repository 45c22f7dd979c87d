package em

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marginTableHTML = `
<html><body>
<table class="tab1">
  <tr><th>日期</th><th>融资余额</th><th>融券余额</th><th>两融余额</th><th>融资买入</th></tr>
  <tr><td>2026-08-31</td><td>1,513,000,000,000</td><td>70,000,000,000</td><td>1,583,000,000,000</td><td>90,000,000,000</td></tr>
  <tr><td>2026-08-28</td><td>1,510,000,000,000</td><td>70,000,000,000</td><td>1,580,000,000,000</td><td>88,000,000,000</td></tr>
  <tr><td>合计</td><td>-</td><td>-</td><td>-</td><td>-</td></tr>
</table>
</body></html>`

func TestParseMarginHTML(t *testing.T) {
	rows, err := parseMarginHTML(marginTableHTML)
	require.NoError(t, err)
	require.Len(t, rows, 2, "summary row without a date is skipped")

	// page order is newest first; FetchMarginSeriesHTML sorts, the parser does not
	assert.Equal(t, "2026-08-31", rows[0].Date)
	assert.InDelta(t, 15130.0, rows[0].RzBalance, 0.01, "元 converted to 亿元")
	assert.InDelta(t, 15830.0, rows[0].Total, 0.01)
	assert.InDelta(t, 900.0, rows[0].RzBuy, 0.01)
	assert.InDelta(t, 15130.0/15830.0*100, rows[0].RzRatio, 0.01)
}

func TestParseMarginHTMLNoTable(t *testing.T) {
	rows, err := parseMarginHTML("<html><body><p>maintenance</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
