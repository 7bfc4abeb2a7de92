package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goldnightmare/goldservice/types"
)

// PriceKey is the single slot PriceAggregator caches its latest quote under.
const PriceKey = "gold_price:latest"

// GetPrice returns the cached quote, or ErrCacheMiss.
func (c *Cache) GetPrice(ctx context.Context) (*types.PriceQuote, error) {
	var q types.PriceQuote
	if err := c.GetJSON(ctx, PriceKey, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// SetPrice caches q under PriceKey for ttl.
func (c *Cache) SetPrice(ctx context.Context, q *types.PriceQuote, ttl time.Duration) error {
	return c.SetJSON(ctx, PriceKey, q, ttl)
}

// AnalysisKey is "analysis:{user}:{kind}:{fingerprint}" per the data model's
// fingerprint-based analysis cache.
func AnalysisKey(userID int64, kind, fingerprint string) string {
	return fmt.Sprintf("analysis:%d:%s:%s", userID, kind, fingerprint)
}

// GetAnalysis returns the cached analysis payload for the given key.
func (c *Cache) GetAnalysis(ctx context.Context, key string) (*types.Analysis, error) {
	var a types.Analysis
	if err := c.GetJSON(ctx, key, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetAnalysis caches a under key for ttl.
func (c *Cache) SetAnalysis(ctx context.Context, key string, a *types.Analysis, ttl time.Duration) error {
	return c.SetJSON(ctx, key, a, ttl)
}

// SessionKey is the admin bearer-token session slot, "user:session:{id}".
func SessionKey(id string) string {
	return fmt.Sprintf("user:session:%s", id)
}

// GetSession returns the session payload for id.
func (c *Cache) GetSession(ctx context.Context, id string, dest any) error {
	return c.GetJSON(ctx, SessionKey(id), dest)
}

// SetSession caches a session payload for id with ttl.
func (c *Cache) SetSession(ctx context.Context, id string, payload any, ttl time.Duration) error {
	return c.SetJSON(ctx, SessionKey(id), payload, ttl)
}
