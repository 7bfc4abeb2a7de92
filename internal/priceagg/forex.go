package priceagg

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/metrics"
	"github.com/goldnightmare/goldservice/types"
)

// ForexPairInfo is one entry in the closed forex-pair catalog (spec §6.2):
// an Arabic display name plus the upstream provider's own symbol for the
// pair (Yahoo-style "EURUSD=X" in the original).
type ForexPairInfo struct {
	NameAr string
	Symbol string
}

// ForexCatalog is the closed set of supported forex pairs, grounded on
// original_source/gold_bot/forex_price.py's CURRENCY_PAIRS/CURRENCY_NAMES_AR.
var ForexCatalog = map[string]ForexPairInfo{
	"EUR/USD": {NameAr: "اليورو/دولار", Symbol: "EURUSD=X"},
	"GBP/USD": {NameAr: "الباوند/دولار", Symbol: "GBPUSD=X"},
	"USD/JPY": {NameAr: "الدولار/ين", Symbol: "USDJPY=X"},
	"AUD/USD": {NameAr: "الأسترالي/دولار", Symbol: "AUDUSD=X"},
	"USD/CAD": {NameAr: "الدولار/كندي", Symbol: "USDCAD=X"},
	"USD/CHF": {NameAr: "الدولار/فرنك", Symbol: "USDCHF=X"},
	"NZD/USD": {NameAr: "النيوزلندي/دولار", Symbol: "NZDUSD=X"},
}

// SupportedForexPair reports whether pair is in the closed catalog.
func SupportedForexPair(pair string) bool {
	_, ok := ForexCatalog[pair]
	return ok
}

// forexDemoPrices is the literal placeholder table used when a pair has no
// live provider configured or the provider call fails, ported from
// ForexPriceManager._get_demo_price.
var forexDemoPrices = map[string]FallbackQuote{
	"EUR/USD": {Price: 1.0856, Change: 0.0012, High24h: 1.0875, Low24h: 1.0834},
	"GBP/USD": {Price: 1.2645, Change: -0.0023, High24h: 1.2678, Low24h: 1.2612},
	"USD/JPY": {Price: 154.32, Change: 0.45, High24h: 154.89, Low24h: 153.76},
	"AUD/USD": {Price: 0.6789, Change: 0.0034, High24h: 0.6812, Low24h: 0.6745},
	"USD/CAD": {Price: 1.3456, Change: -0.0012, High24h: 1.3478, Low24h: 1.3423},
	"USD/CHF": {Price: 0.8923, Change: 0.0008, High24h: 0.8945, Low24h: 0.8901},
	"NZD/USD": {Price: 0.6234, Change: -0.0015, High24h: 0.6256, Low24h: 0.6212},
}

func demoForexQuote(pair string, now time.Time) *types.PriceQuote {
	d, ok := forexDemoPrices[pair]
	if !ok {
		d = forexDemoPrices["EUR/USD"]
	}
	changePct := 0.0
	if d.Price != 0 {
		changePct = d.Change / d.Price * 100
	}
	return &types.PriceQuote{
		Price:      d.Price,
		Change:     d.Change,
		ChangePct:  changePct,
		Ask:        d.Price + 0.0001,
		Bid:        d.Price - 0.0001,
		High24h:    d.High24h,
		Low24h:     d.Low24h,
		Source:     "demo_data",
		ObservedAt: now,
	}
}

// ForexAggregator serves per-pair quotes from an optional provider per pair,
// a 5-minute in-process cache (matching the original's cache_duration), and
// the demo-price table as a final fallback. Providers are optional: a nil
// or missing provider for a pair falls straight to the demo quote, since
// forex coverage is explicitly best-effort in this service (gold is the
// primary instrument).
type ForexAggregator struct {
	providers map[string]*Provider
	clock     clock.Clock
	logger    *zap.Logger
	cacheTTL  time.Duration
	metrics   *metrics.Collector

	mu    sync.Mutex
	cache map[string]cachedForexQuote
}

type cachedForexQuote struct {
	quote *types.PriceQuote
	at    time.Time
}

// NewForexAggregator builds a ForexAggregator. providers maps catalog pair
// names (e.g. "EUR/USD") to an optional configured Provider.
func NewForexAggregator(providers map[string]*Provider, clk clock.Clock, logger *zap.Logger) *ForexAggregator {
	return &ForexAggregator{
		providers: providers,
		clock:     clk,
		logger:    logger.With(zap.String("component", "forex_priceagg")),
		cacheTTL:  5 * time.Minute,
		cache:     make(map[string]cachedForexQuote),
	}
}

// SetMetrics attaches a collector used to record provider fallbacks. Optional;
// a nil collector (the zero value) leaves recording disabled.
func (f *ForexAggregator) SetMetrics(c *metrics.Collector) {
	f.metrics = c
}

// Quote returns the current quote for pair, or an error if pair is not in
// the supported catalog.
func (f *ForexAggregator) Quote(ctx context.Context, pair string) (*types.PriceQuote, error) {
	if !SupportedForexPair(pair) {
		return nil, &UnsupportedPairError{Pair: pair}
	}

	f.mu.Lock()
	if cached, ok := f.cache[pair]; ok && f.clock.Now().Sub(cached.at) < f.cacheTTL {
		f.mu.Unlock()
		q := *cached.quote
		return &q, nil
	}
	f.mu.Unlock()

	var quote *types.PriceQuote
	if p, ok := f.providers[pair]; ok && p != nil {
		fetched, err := f.tryProvider(ctx, p)
		if err != nil {
			f.logger.Warn("forex provider failed, serving demo quote", zap.String("pair", pair), zap.Error(err))
			f.recordFallback(pair, "provider_error")
			quote = demoForexQuote(pair, f.clock.Now())
		} else {
			quote = fetched
		}
	} else {
		f.recordFallback(pair, "no_provider_configured")
		quote = demoForexQuote(pair, f.clock.Now())
	}

	f.mu.Lock()
	f.cache[pair] = cachedForexQuote{quote: quote, at: f.clock.Now()}
	f.mu.Unlock()

	out := *quote
	return &out, nil
}

func (f *ForexAggregator) recordFallback(instrument, reason string) {
	if f.metrics != nil {
		f.metrics.RecordPriceProviderFallback(instrument, reason)
	}
}

func (f *ForexAggregator) tryProvider(ctx context.Context, p *Provider) (*types.PriceQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	body, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := parse(p.Name, p.Contract, body)
	if err != nil {
		return nil, err
	}
	if quote.Price <= 0 {
		return nil, &FetchError{Provider: p.Name, Message: "non-positive forex price"}
	}
	return quote, nil
}

// UnsupportedPairError is returned by Quote for a pair outside the catalog.
type UnsupportedPairError struct {
	Pair string
}

func (e *UnsupportedPairError) Error() string {
	return "priceagg: unsupported forex pair " + e.Pair
}
