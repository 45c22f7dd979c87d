package datasource

import (
	"sort"

	"github.com/wonny/unirisk/backend/internal/cache"
)

// SeriesPoint is one dated row of a fact-family history series.
type SeriesPoint struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// MergeHistory unions two series by date key, last write wins on duplicate
// dates, sorted ascending, truncated to the newest window entries.
func MergeHistory(existing, incoming []SeriesPoint, window int) []SeriesPoint {
	byDate := make(map[string]SeriesPoint, len(existing)+len(incoming))
	for _, p := range existing {
		byDate[p.Date] = p
	}
	for _, p := range incoming {
		byDate[p.Date] = p
	}

	merged := make([]SeriesPoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })

	if window > 0 && len(merged) > window {
		merged = merged[len(merged)-window:]
	}
	return merged
}

// LoadHistory reads a history series; absent file is an empty series.
func LoadHistory(path string) []SeriesPoint {
	var series []SeriesPoint
	if !cache.LoadJSON(path, &series) {
		return nil
	}
	return series
}

// SaveHistory persists a series atomically.
func SaveHistory(path string, series []SeriesPoint) error {
	return cache.SaveJSON(path, series)
}

// LastValue returns the newest value of a key in the series.
func LastValue(series []SeriesPoint, key string) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if v, ok := series[i].Values[key]; ok {
			return v, true
		}
	}
	return 0, false
}

// DeltaOver returns newest minus the value n points back (trend delta).
// Needs at least n+1 points carrying the key.
func DeltaOver(series []SeriesPoint, key string, n int) (float64, bool) {
	vals := collect(series, key)
	if len(vals) < n+1 {
		return 0, false
	}
	return vals[len(vals)-1] - vals[len(vals)-1-n], true
}

// SumLast returns the sum of the newest n values of key.
func SumLast(series []SeriesPoint, key string, n int) (float64, bool) {
	vals := collect(series, key)
	if len(vals) < n {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals[len(vals)-n:] {
		sum += v
	}
	return sum, true
}

// MeanLast returns the mean of the newest n values of key.
func MeanLast(series []SeriesPoint, key string, n int) (float64, bool) {
	sum, ok := SumLast(series, key, n)
	if !ok {
		return 0, false
	}
	return sum / float64(n), true
}

// PctChangeOver returns the percent change of key over n points (0..100 scale).
func PctChangeOver(series []SeriesPoint, key string, n int) (float64, bool) {
	vals := collect(series, key)
	if len(vals) < n+1 {
		return 0, false
	}
	base := vals[len(vals)-1-n]
	if base == 0 {
		return 0, false
	}
	return 100 * (vals[len(vals)-1] - base) / base, true
}

func collect(series []SeriesPoint, key string) []float64 {
	out := make([]float64, 0, len(series))
	for _, p := range series {
		if v, ok := p.Values[key]; ok {
			out = append(out, v)
		}
	}
	return out
}
