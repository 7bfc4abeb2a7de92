package priceagg

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/metrics"
	"github.com/goldnightmare/goldservice/types"
)

// StaleSourceMarker replaces Source when the aggregator falls back to a
// previously cached quote because every provider failed, and is also the
// Source of the literal fallback quote; the original provider name is not
// kept (matches the original's Arabic "couldn't fetch now" marker string).
const StaleSourceMarker = "تعذر جلب السعر الآن، سيتم استخدام آخر سعر محفوظ"

// FallbackQuote is the last-resort literal quote used when every provider
// fails and no cached quote survives.
type FallbackQuote struct {
	Price, Change, ChangePct, Ask, Bid, High24h, Low24h float64
}

// Aggregator queries providers in priority order, validates the result, and
// falls back to a stale cached quote or a literal placeholder when every
// provider fails — PriceAggregator from spec §4.1.
type Aggregator struct {
	providers []*Provider
	fallback  FallbackQuote
	clock     clock.Clock
	logger    *zap.Logger
	metrics   *metrics.Collector

	mu          sync.Mutex
	cachedQuote *types.PriceQuote
	cachedAt    time.Time
	cacheTTL    time.Duration
}

// New builds an Aggregator sorted by ascending Priority. It panics on an
// empty provider list — at least one gold-price provider is a required
// startup invariant (spec §6.6), matching the original's "must be configured"
// check.
func New(providers []*Provider, fallback FallbackQuote, cacheTTL time.Duration, clk clock.Clock, logger *zap.Logger) *Aggregator {
	if len(providers) == 0 {
		panic("priceagg: at least one provider must be configured")
	}
	sorted := make([]*Provider, len(providers))
	copy(sorted, providers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}

	return &Aggregator{
		providers: sorted,
		fallback:  fallback,
		clock:     clk,
		logger:    logger.With(zap.String("component", "priceagg")),
		cacheTTL:  cacheTTL,
	}
}

// SetMetrics attaches a collector used to record provider fallbacks. Optional;
// a nil collector (the zero value) leaves recording disabled.
func (a *Aggregator) SetMetrics(c *metrics.Collector) {
	a.metrics = c
}

// Current returns the live price. When useCache is true it consults the
// internal cache first; when false it always re-queries the provider chain
// (a caller-requested "force refresh"), though a successful result still
// refreshes the cache for subsequent cached callers. Either way, a failed
// provider chain still falls back to the stale cache, then the literal
// fallback quote.
func (a *Aggregator) Current(ctx context.Context, useCache bool) (*types.PriceQuote, error) {
	if useCache {
		if q, ok := a.freshCached(); ok {
			return q, nil
		}
	}

	for _, p := range a.providers {
		quote, err := a.tryProvider(ctx, p)
		if err != nil {
			a.logger.Warn("provider failed", zap.String("provider", p.Name), zap.Error(err))
			a.recordFallback("gold", "provider_error")
			continue
		}
		if !validate(quote) {
			a.logger.Warn("provider returned invalid price data", zap.String("provider", p.Name))
			a.recordFallback("gold", "invalid_data")
			continue
		}
		a.store(quote)
		return quote, nil
	}

	if stale, ok := a.staleCached(); ok {
		a.logger.Warn("all providers failed, serving stale cached quote")
		a.recordFallback("gold", "stale_cache")
		degraded := *stale
		degraded.Source = StaleSourceMarker
		return &degraded, nil
	}

	a.logger.Warn("all providers failed and no cache available, using fallback quote")
	a.recordFallback("gold", "literal_fallback")
	fb := &types.PriceQuote{
		Price:      a.fallback.Price,
		Change:     a.fallback.Change,
		ChangePct:  a.fallback.ChangePct,
		Ask:        a.fallback.Ask,
		Bid:        a.fallback.Bid,
		High24h:    a.fallback.High24h,
		Low24h:     a.fallback.Low24h,
		Source:     StaleSourceMarker,
		ObservedAt: a.clock.Now(),
	}
	a.store(fb)
	return fb, nil
}

func (a *Aggregator) recordFallback(instrument, reason string) {
	if a.metrics != nil {
		a.metrics.RecordPriceProviderFallback(instrument, reason)
	}
}

func (a *Aggregator) tryProvider(ctx context.Context, p *Provider) (*types.PriceQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	body, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return parse(p.Name, p.Contract, body)
}

// validate enforces the range invariant (1000 <= price <= 5000) and rejects
// NaN in price, change, change_pct, ask and bid, per spec §3.
func validate(q *types.PriceQuote) bool {
	if q == nil {
		return false
	}
	if math.IsNaN(q.Price) || q.Price <= 0 {
		return false
	}
	if q.Price < 1000 || q.Price > 5000 {
		return false
	}
	if math.IsNaN(q.Change) || math.IsNaN(q.ChangePct) || math.IsNaN(q.Ask) || math.IsNaN(q.Bid) {
		return false
	}
	return true
}

func (a *Aggregator) freshCached() (*types.PriceQuote, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cachedQuote == nil {
		return nil, false
	}
	if a.clock.Now().Sub(a.cachedAt) >= a.cacheTTL {
		return nil, false
	}
	q := *a.cachedQuote
	return &q, true
}

func (a *Aggregator) staleCached() (*types.PriceQuote, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cachedQuote == nil {
		return nil, false
	}
	q := *a.cachedQuote
	return &q, true
}

func (a *Aggregator) store(q *types.PriceQuote) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cachedQuote = q
	a.cachedAt = a.clock.Now()
}
