package yf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFetchMethod(t *testing.T) {
	cases := map[string]FetchMethod{
		"default": MethodDefault,
		"index":   MethodIndex,
		"equity":  MethodEquity,
		"future":  MethodFuture,
		"crypto":  MethodCrypto,
	}
	for token, want := range cases {
		got, err := ParseFetchMethod(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got)
	}
}

func TestParseFetchMethodFailsFast(t *testing.T) {
	_, err := ParseFetchMethod("getattr")
	assert.Error(t, err)
}

func TestResolveMethods(t *testing.T) {
	methods, err := ResolveMethods(map[string]string{
		"000300.SS": "index",
		"IF=F":      "future",
	})
	require.NoError(t, err)
	assert.Equal(t, MethodIndex, methods["000300.SS"])
	assert.Equal(t, MethodFuture, methods["IF=F"])
}

func TestResolveMethodsRejectsUnknownToken(t *testing.T) {
	_, err := ResolveMethods(map[string]string{"^GSPC": "telepathy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "^GSPC")
}

func TestSeriesStoreMemoizesPerRun(t *testing.T) {
	// a nil client would panic on fetch, so a hit proves memoization
	store := NewSeriesStore(nil, nil)
	bars := []Bar{{Date: "2026-08-29", Close: 3980.5}, {Date: "2026-08-31", Close: 4001.2}}
	store.Put("000300.SS", bars)

	require.True(t, store.Has("000300.SS"))
	got, err := store.Get(context.Background(), "000300.SS", 120)
	require.NoError(t, err)
	assert.Equal(t, bars, got)

	assert.False(t, store.Has("^GSPC"))
}
