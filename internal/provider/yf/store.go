package yf

import (
	"context"
	"fmt"
	"sync"
)

// SeriesStore memoizes symbol series for the lifetime of one pipeline
// run. It is constructed per run and passed down explicitly; nothing in
// the pipeline holds series state between runs.
type SeriesStore struct {
	mu      sync.Mutex
	client  *Client
	methods map[string]FetchMethod
	series  map[string][]Bar
}

// NewSeriesStore creates a run-scoped store. methods maps symbol to its
// resolved FetchMethod; symbols without an entry use MethodDefault.
func NewSeriesStore(client *Client, methods map[string]FetchMethod) *SeriesStore {
	if methods == nil {
		methods = map[string]FetchMethod{}
	}
	return &SeriesStore{
		client:  client,
		methods: methods,
		series:  make(map[string][]Bar),
	}
}

// ResolveMethods parses a symbol→token table, failing on the first
// unknown token so misconfiguration surfaces at startup.
func ResolveMethods(tokens map[string]string) (map[string]FetchMethod, error) {
	out := make(map[string]FetchMethod, len(tokens))
	for symbol, token := range tokens {
		m, err := ParseFetchMethod(token)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", symbol, err)
		}
		out[symbol] = m
	}
	return out, nil
}

// Get returns the daily series for symbol, fetching at most once per run.
func (s *SeriesStore) Get(ctx context.Context, symbol string, lookbackDays int) ([]Bar, error) {
	s.mu.Lock()
	if bars, ok := s.series[symbol]; ok {
		s.mu.Unlock()
		return bars, nil
	}
	method := s.methods[symbol]
	s.mu.Unlock()

	bars, err := s.client.FetchDaily(ctx, symbol, method, lookbackDays)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.series[symbol] = bars
	s.mu.Unlock()
	return bars, nil
}

// Put seeds the store with a pre-loaded series (cache replay, tests).
func (s *SeriesStore) Put(symbol string, bars []Bar) {
	s.mu.Lock()
	s.series[symbol] = bars
	s.mu.Unlock()
}

// Has reports whether a series is already resident.
func (s *SeriesStore) Has(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.series[symbol]
	return ok
}
