package priceagg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/clock"
)

func TestForexAggregator_UnsupportedPairRejected(t *testing.T) {
	t.Parallel()
	fc := clock.NewFake(time.Now())
	f := NewForexAggregator(nil, fc, zap.NewNop())

	_, err := f.Quote(context.Background(), "XXX/YYY")
	require.Error(t, err)
}

func TestForexAggregator_FallsBackToDemoQuoteWithoutProvider(t *testing.T) {
	t.Parallel()
	fc := clock.NewFake(time.Now())
	f := NewForexAggregator(nil, fc, zap.NewNop())

	q, err := f.Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, "demo_data", q.Source)
	assert.InDelta(t, 1.0856, q.Price, 0.0001)
}

func TestForexAggregator_UsesConfiguredProvider(t *testing.T) {
	t.Parallel()
	fc := clock.NewFake(time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price": 1.09}`))
	}))
	defer srv.Close()

	provider := NewProvider("primary", "", srv.URL, "", 1, ContractSpotPrice, time.Second)
	f := NewForexAggregator(map[string]*Provider{"EUR/USD": provider}, fc, zap.NewNop())

	q, err := f.Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, "primary", q.Source)
	assert.InDelta(t, 1.09, q.Price, 0.0001)
}

func TestForexAggregator_CachesWithinTTL(t *testing.T) {
	t.Parallel()
	fc := clock.NewFake(time.Now())
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"price": 1.09}`))
	}))
	defer srv.Close()

	provider := NewProvider("primary", "", srv.URL, "", 1, ContractSpotPrice, time.Second)
	f := NewForexAggregator(map[string]*Provider{"EUR/USD": provider}, fc, zap.NewNop())

	_, err := f.Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	_, err = f.Quote(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
