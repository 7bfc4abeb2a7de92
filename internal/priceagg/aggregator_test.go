package priceagg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/clock"
)

func newSpotPriceServer(t *testing.T, price float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"price": price, "timestamp": time.Now().Unix()})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFailingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFallback() FallbackQuote {
	return FallbackQuote{Price: 3320.45, Change: 12.30, ChangePct: 0.37, Ask: 3320.95, Bid: 3319.95, High24h: 3335.80, Low24h: 3298.10}
}

func TestAggregator_FirstProviderSucceeds(t *testing.T) {
	t.Parallel()

	srv := newSpotPriceServer(t, 3321.50)
	p := NewProvider("primary", "primary feed", srv.URL, "", 1, ContractSpotPrice, time.Second)

	agg := New([]*Provider{p}, testFallback(), time.Minute, clock.New(), zap.NewNop())
	quote, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3321.50, quote.Price)
	assert.Equal(t, "primary", quote.Source)
}

func TestAggregator_FallsThroughToSecondProvider(t *testing.T) {
	t.Parallel()

	bad := newFailingServer(t, http.StatusTooManyRequests)
	good := newSpotPriceServer(t, 3322.0)

	p1 := NewProvider("primary", "", bad.URL, "", 1, ContractSpotPrice, time.Second)
	p2 := NewProvider("secondary", "", good.URL, "", 2, ContractSpotPrice, time.Second)

	agg := New([]*Provider{p1, p2}, testFallback(), time.Minute, clock.New(), zap.NewNop())
	quote, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "secondary", quote.Source)
}

func TestAggregator_RejectsOutOfRangePrice(t *testing.T) {
	t.Parallel()

	tooLow := newSpotPriceServer(t, 50.0)
	p := NewProvider("bad-range", "", tooLow.URL, "", 1, ContractSpotPrice, time.Second)

	agg := New([]*Provider{p}, testFallback(), time.Minute, clock.New(), zap.NewNop())
	quote, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StaleSourceMarker, quote.Source)
	assert.Equal(t, testFallback().Price, quote.Price)
}

func TestAggregator_UsesInternalCacheWithinTTL(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"price": 3325.0})
	}))
	t.Cleanup(srv.Close)

	p := NewProvider("primary", "", srv.URL, "", 1, ContractSpotPrice, time.Second)
	agg := New([]*Provider{p}, testFallback(), time.Hour, clock.New(), zap.NewNop())

	_, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	_, err = agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call should be served from the internal cache")
}

func TestAggregator_StaleCacheUsedWhenAllProvidersFail(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Now())
	srv := newSpotPriceServer(t, 3330.0)
	p := NewProvider("primary", "", srv.URL, "", 1, ContractSpotPrice, time.Second)

	agg := New([]*Provider{p}, testFallback(), time.Millisecond, fc, zap.NewNop())
	first, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3330.0, first.Price)

	fc.Advance(time.Second)
	srv.Close()

	second, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3330.0, second.Price)
	assert.Equal(t, StaleSourceMarker, second.Source)
}

func TestAggregator_ForceRefreshBypassesCache(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"price": 3326.0 + float64(calls)})
	}))
	t.Cleanup(srv.Close)

	p := NewProvider("primary", "", srv.URL, "", 1, ContractSpotPrice, time.Second)
	agg := New([]*Provider{p}, testFallback(), time.Hour, clock.New(), zap.NewNop())

	first, err := agg.Current(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3327.0, first.Price)

	second, err := agg.Current(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 3328.0, second.Price, "useCache=false must re-query providers despite a fresh cache entry")
	assert.Equal(t, 2, calls)
}

func TestAggregator_PanicsWithNoProviders(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		New(nil, testFallback(), time.Minute, clock.New(), zap.NewNop())
	})
}
