// Package types holds the shared data-transfer objects passed between
// components: User, PriceQuote, Analysis, AnalysisLog and DailySummary, per
// the data model in this service's design. Each entity is owned by its
// creating component; other components receive copies, never references
// they can mutate out from under the owner.
package types

import "time"

// Tier is a subscription class determining daily analysis quota and feature
// set (basic/premium/vip, authoritative table in auth.Limits).
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// Status is a user's activation status.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusBlocked   Status = "blocked"
	StatusSuspended Status = "suspended"
)

// AnalysisKind is the requested analysis template.
type AnalysisKind string

const (
	KindQuick    AnalysisKind = "quick"
	KindDetailed AnalysisKind = "detailed"
	KindChart    AnalysisKind = "chart"
	KindNews     AnalysisKind = "news"
	KindForecast AnalysisKind = "forecast"
)

// ValidKind reports whether k is one of the five recognized analysis kinds.
func ValidKind(k AnalysisKind) bool {
	switch k {
	case KindQuick, KindDetailed, KindChart, KindNews, KindForecast:
		return true
	default:
		return false
	}
}

// User is the account entity. PasswordHash stores "salt:digest" with a
// per-record random salt of at least 16 bytes. DailyDate/DailyCount form the
// lazy-reset daily counter pair: a reader MUST treat DailyCount as zero
// whenever DailyDate does not equal today.
type User struct {
	UserID            int64      `json:"user_id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	DisplayName       string     `json:"display_name"`
	Tier              Tier       `json:"tier"`
	Status            Status     `json:"status"`
	TotalAnalyses     int64      `json:"total_analyses"`
	DailyDate         string     `json:"daily_date"`
	DailyCount        int        `json:"daily_count"`
	SubscriptionStart time.Time  `json:"subscription_start"`
	SubscriptionEnd   *time.Time `json:"subscription_end,omitempty"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PublicProjection is the subset of User surfaced on registration/login
// responses — never the password hash.
type PublicProjection struct {
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	Tier           Tier   `json:"tier"`
	RemainingToday int    `json:"remaining_today"`
}

// PriceQuote is a range-validated spot-price snapshot produced by
// PriceAggregator. 1000 <= Price <= 5000 for gold; NaN is never valid.
type PriceQuote struct {
	Price      float64   `json:"price"`
	Change     float64   `json:"change"`
	ChangePct  float64   `json:"change_pct"`
	Ask        float64   `json:"ask"`
	Bid        float64   `json:"bid"`
	High24h    float64   `json:"high_24h"`
	Low24h     float64   `json:"low_24h"`
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
}

// Analysis is the natural-language output of AnalysisPipeline, cached by
// fingerprint under key "analysis:{user}:{kind}:{fingerprint}".
type Analysis struct {
	ID            string       `json:"id"`
	UserID        int64        `json:"user_id"`
	Kind          AnalysisKind `json:"kind"`
	Content       string       `json:"content"`
	PriceSnapshot *float64     `json:"price_snapshot,omitempty"`
	ModelTag      string       `json:"model_tag"`
	ProcessingMs  int64        `json:"processing_ms"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AnalysisLog is an append-only record of one analysis attempt, success or
// failure, written by AuditRecorder.
type AnalysisLog struct {
	UserID       int64        `json:"user_id"`
	Kind         AnalysisKind `json:"kind"`
	Success      bool         `json:"success"`
	ProcessingMs int64        `json:"processing_ms"`
	Error        string       `json:"error,omitempty"`
	UserTier     Tier         `json:"user_tier"`
	PriceAtReq   *float64     `json:"price_at_request,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// DailySummary is keyed by (UserID, Date); its counters and running mean are
// upserted incrementally by AuditRecorder as AnalysisLogs arrive.
type DailySummary struct {
	UserID       int64          `json:"user_id"`
	Date         string         `json:"date"`
	Total        int64          `json:"total"`
	Successful   int64          `json:"successful"`
	Failed       int64          `json:"failed"`
	ByKind       map[string]int64 `json:"by_kind"`
	MeanProcessMs float64       `json:"mean_processing_ms"`
}
