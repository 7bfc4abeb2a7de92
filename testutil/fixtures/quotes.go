// Package fixtures provides sample types.User, types.PriceQuote and
// types.Analysis values for tests.
package fixtures

import (
	"time"

	"github.com/goldnightmare/goldservice/types"
)

// GoldQuote returns a valid in-range gold spot quote (spec's 1000-5000 band).
func GoldQuote() types.PriceQuote {
	return types.PriceQuote{
		Price:      3321.50,
		Change:     12.30,
		ChangePct:  0.37,
		Ask:        3321.95,
		Bid:        3321.05,
		High24h:    3335.80,
		Low24h:     3298.10,
		Source:     "primary",
		ObservedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

// StaleGoldQuote returns GoldQuote marked with the stale-cache source
// marker, as Aggregator.Current degrades to when every provider fails.
func StaleGoldQuote() types.PriceQuote {
	q := GoldQuote()
	q.Source = "تعذر جلب السعر الآن، سيتم استخدام آخر سعر محفوظ"
	return q
}

// ForexQuote returns a sample EUR/USD quote matching the catalog's demo
// price table shape.
func ForexQuote() types.PriceQuote {
	return types.PriceQuote{
		Price:      1.0856,
		Change:     0.0012,
		ChangePct:  0.1106,
		Ask:        1.0857,
		Bid:        1.0855,
		High24h:    1.0875,
		Low24h:     1.0834,
		Source:     "demo_data",
		ObservedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

// Analysis returns a sample completed analysis for kind.
func Analysis(kind types.AnalysisKind, content string) types.Analysis {
	price := GoldQuote().Price
	return types.Analysis{
		ID:            "analysis-001",
		UserID:        1,
		Kind:          kind,
		Content:       content,
		PriceSnapshot: &price,
		ModelTag:      "claude-3-5-sonnet-latest",
		ProcessingMs:  850,
		CreatedAt:     time.Date(2026, 1, 15, 12, 0, 5, 0, time.UTC),
	}
}
