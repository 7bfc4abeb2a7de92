package store

import "time"

// UserModel is the GORM row backing types.User.
type UserModel struct {
	UserID            int64      `gorm:"column:user_id;primaryKey"`
	Email             string     `gorm:"column:email;uniqueIndex"`
	PasswordHash      string     `gorm:"column:password_hash"`
	DisplayName       string     `gorm:"column:display_name"`
	Tier              string     `gorm:"column:tier;index:idx_status_tier,priority:2"`
	Status            string     `gorm:"column:status;index:idx_status_tier,priority:1"`
	TotalAnalyses     int64      `gorm:"column:total_analyses"`
	DailyDate         string     `gorm:"column:daily_date"`
	DailyCount        int        `gorm:"column:daily_count"`
	SubscriptionStart time.Time  `gorm:"column:subscription_start"`
	SubscriptionEnd   *time.Time `gorm:"column:subscription_end"`
	LastSeen          *time.Time `gorm:"column:last_seen"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (UserModel) TableName() string { return "users" }

// AnalysisLogModel backs types.AnalysisLog.
type AnalysisLogModel struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       int64     `gorm:"column:user_id;index:idx_user_created,priority:1"`
	Kind         string    `gorm:"column:kind"`
	Success      bool      `gorm:"column:success"`
	ProcessingMs int64     `gorm:"column:processing_ms"`
	Error        string    `gorm:"column:error"`
	UserTier     string    `gorm:"column:user_tier"`
	PriceAtReq   *float64  `gorm:"column:price_at_request"`
	CreatedAt    time.Time `gorm:"column:created_at;index:idx_user_created,priority:2,sort:desc"`
}

func (AnalysisLogModel) TableName() string { return "analysis_logs" }

// DailySummaryModel backs types.DailySummary, keyed by (UserID, Date).
type DailySummaryModel struct {
	UserID        int64  `gorm:"column:user_id;uniqueIndex:idx_user_date,priority:1"`
	Date          string `gorm:"column:date;uniqueIndex:idx_user_date,priority:2"`
	Total         int64  `gorm:"column:total"`
	Successful    int64  `gorm:"column:successful"`
	Failed        int64  `gorm:"column:failed"`
	ByKindJSON    string `gorm:"column:by_kind_json"`
	MeanProcessMs float64 `gorm:"column:mean_processing_ms"`
}

func (DailySummaryModel) TableName() string { return "daily_summaries" }

// AdminUserModel backs the single admin account used by the JWT login flow.
type AdminUserModel struct {
	Username     string    `gorm:"column:username;primaryKey"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (AdminUserModel) TableName() string { return "admin_users" }

// GoldPriceModel is an optional audit trail of observed quotes, written
// opportunistically (spec §3: "never persisted except opportunistically in
// audit logs").
type GoldPriceModel struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Price      float64   `gorm:"column:price"`
	Change     float64   `gorm:"column:change"`
	ChangePct  float64   `gorm:"column:change_pct"`
	Source     string    `gorm:"column:source"`
	ObservedAt time.Time `gorm:"column:observed_at;index"`
}

func (GoldPriceModel) TableName() string { return "gold_prices" }
