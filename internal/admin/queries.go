// Package admin implements AdminQueries: a stateless read façade over Store
// for the admin dashboard, plus the two user-mutating admin operations
// (toggleStatus, updateTier — the latter delegated to auth.Engine so the
// quota-reset invariant lives in one place). Grounded on
// original_source/gold_bot/admin_manager.py's AdminManager
// (get_all_users/get_user_details/get_dashboard_stats/toggle_user_status),
// ported from its Mongo aggregation-by-Python-loop style to GORM queries.
package admin

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/auth"
	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

// Queries is AdminQueries.
type Queries struct {
	store  *store.Store
	auth   *auth.Engine
	clock  clock.Clock
	logger *zap.Logger
}

// New builds a Queries façade.
func New(st *store.Store, authEngine *auth.Engine, clk clock.Clock, logger *zap.Logger) *Queries {
	return &Queries{store: st, auth: authEngine, clock: clk, logger: logger.With(zap.String("component", "admin"))}
}

// UserRow is one entry in the paginated user listing, with today's request
// count joined in from DailySummary.
type UserRow struct {
	types.User
	TodayCount int64 `json:"today_count"`
}

// UserPage is a paginated listUsers result.
type UserPage struct {
	Users      []UserRow `json:"users"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

// ListUsers returns a page of users with today's per-user analysis count.
func (q *Queries) ListUsers(ctx context.Context, page, perPage int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	skip := (page - 1) * perPage

	rows, err := q.store.Users.Find(map[string]any{}).Sort("user_id", false).Skip(skip).Limit(perPage).All(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل قائمة المستخدمين").WithCause(err)
	}

	total, err := q.store.Users.CountDocuments(ctx, map[string]any{})
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل قائمة المستخدمين").WithCause(err)
	}

	today := q.clock.Today()
	out := make([]UserRow, 0, len(rows))
	for _, m := range rows {
		summary, err := q.store.DailySummaries.FindOne(ctx, map[string]any{"user_id": m.UserID, "date": today})
		todayCount := int64(0)
		if err == nil {
			todayCount = summary.Total
		} else if err != store.ErrNoDocuments {
			q.logger.Warn("failed to load today's summary", zap.Int64("user_id", m.UserID), zap.Error(err))
		}
		out = append(out, UserRow{User: modelToUser(&m), TodayCount: todayCount})
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &UserPage{Users: out, Total: total, Page: page, PerPage: perPage, TotalPages: totalPages}, nil
}

// UserDetail is userDetail(user_id)'s result.
type UserDetail struct {
	User            types.User              `json:"user"`
	TotalRequests30d int64                  `json:"total_requests_30d"`
	Successful30d   int64                   `json:"successful_analyses"`
	Failed30d       int64                   `json:"failed_analyses"`
	SuccessRate     float64                 `json:"success_rate"`
	AvgResponseMs   float64                 `json:"avg_response_time_ms"`
	ByKind          map[string]int64        `json:"analysis_breakdown"`
	RecentLogs      []types.AnalysisLog     `json:"recent_logs"`
	DailySummaries  []types.DailySummary    `json:"daily_summaries"`
}

// UserDetail returns the full record + 30-day log slice + 7-day summary
// slice + per-kind breakdown + avg response time.
func (q *Queries) UserDetail(ctx context.Context, userID int64) (*UserDetail, error) {
	m, err := q.store.Users.FindOne(ctx, map[string]any{"user_id": userID})
	if err != nil {
		if err == store.ErrNoDocuments {
			return nil, apperr.New(apperr.ErrNotFound, "المستخدم غير موجود")
		}
		return nil, apperr.New(apperr.ErrStoreFailure, "store lookup failed").WithCause(err)
	}

	thirtyDaysAgo := q.clock.Now().AddDate(0, 0, -30)
	logs, err := q.store.AnalysisLogs.Find(map[string]any{"user_id": userID}).Sort("created_at", true).Limit(200).All(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل سجل التحليلات").WithCause(err)
	}

	var recentLogModels []store.AnalysisLogModel
	byKind := map[string]int64{}
	var successCount, failCount int64
	var totalMs int64
	for _, l := range logs {
		if l.CreatedAt.Before(thirtyDaysAgo) {
			continue
		}
		if l.Success {
			successCount++
		} else {
			failCount++
		}
		byKind[l.Kind]++
		totalMs += l.ProcessingMs
		if len(recentLogModels) < 20 {
			recentLogModels = append(recentLogModels, l)
		}
	}
	total30d := successCount + failCount
	var successRate, avgMs float64
	if total30d > 0 {
		successRate = float64(successCount) / float64(total30d) * 100
		avgMs = float64(totalMs) / float64(total30d)
	}

	sevenDaysAgo := q.clock.Now().AddDate(0, 0, -7).UTC().Format("2006-01-02")
	summaryModels, err := q.store.DailySummaries.Find(map[string]any{"user_id": userID}).Sort("date", true).Limit(7).All(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل الملخصات اليومية").WithCause(err)
	}

	recentLogs := make([]types.AnalysisLog, 0, len(recentLogModels))
	for _, l := range recentLogModels {
		recentLogs = append(recentLogs, logModelToType(l))
	}
	dailySummaries := make([]types.DailySummary, 0, len(summaryModels))
	for _, s := range summaryModels {
		if s.Date < sevenDaysAgo {
			continue
		}
		dailySummaries = append(dailySummaries, summaryModelToType(s))
	}

	return &UserDetail{
		User:             modelToUser(m),
		TotalRequests30d: total30d,
		Successful30d:    successCount,
		Failed30d:        failCount,
		SuccessRate:      successRate,
		AvgResponseMs:    avgMs,
		ByKind:           byKind,
		RecentLogs:       recentLogs,
		DailySummaries:   dailySummaries,
	}, nil
}

// LogPage is a paginated listLogs result, descending by created_at.
type LogPage struct {
	Logs       []types.AnalysisLog `json:"logs"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`
}

// ListLogs returns a page of AnalysisLogs, optionally filtered by userID
// (pass 0 for no filter).
func (q *Queries) ListLogs(ctx context.Context, page, perPage int, userID int64) (*LogPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	filter := map[string]any{}
	if userID != 0 {
		filter["user_id"] = userID
	}
	skip := (page - 1) * perPage

	rows, err := q.store.AnalysisLogs.Find(filter).Sort("created_at", true).Skip(skip).Limit(perPage).All(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل سجل التحليلات").WithCause(err)
	}
	total, err := q.store.AnalysisLogs.CountDocuments(ctx, filter)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل سجل التحليلات").WithCause(err)
	}

	logs := make([]types.AnalysisLog, 0, len(rows))
	for _, l := range rows {
		logs = append(logs, logModelToType(l))
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &LogPage{Logs: logs, Total: total, Page: page, PerPage: perPage, TotalPages: totalPages}, nil
}

// Dashboard is dashboard()'s result.
type Dashboard struct {
	TotalUsers          int64             `json:"total_users"`
	BasicUsers          int64             `json:"basic_users"`
	PremiumUsers        int64             `json:"premium_users"`
	VIPUsers            int64             `json:"vip_users"`
	AnalysesToday       int64             `json:"analyses_today"`
	AnalysesYesterday   int64             `json:"analyses_yesterday"`
	AnalysesChangePct   float64           `json:"analyses_change_percent"`
	SuccessRate7d       float64           `json:"success_rate_7d"`
	AvgResponseMs7d     float64           `json:"avg_response_time_7d_ms"`
	RecentActivity      []types.AnalysisLog `json:"recent_activity"`
	LastUpdated         time.Time         `json:"last_updated"`
}

// Dashboard computes totals, tier breakdown, today-vs-yesterday delta,
// 7-day success rate and mean latency, and the 20 most recent log entries.
func (q *Queries) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := q.clock.Today()
	totals, err := q.store.Aggregate(ctx, today)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل إحصائيات اللوحة").WithCause(err)
	}

	yesterday := q.clock.Now().AddDate(0, 0, -1).UTC().Format("2006-01-02")
	yesterdayTotals, err := q.store.Aggregate(ctx, yesterday)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل إحصائيات اللوحة").WithCause(err)
	}

	var changePct float64
	if yesterdayTotals.AnalysesToday > 0 {
		changePct = float64(totals.AnalysesToday-yesterdayTotals.AnalysesToday) / float64(yesterdayTotals.AnalysesToday) * 100
	}

	sevenDaysAgo := q.clock.Now().AddDate(0, 0, -7)
	weekLogs, err := q.store.AnalysisLogs.Find(map[string]any{}).All(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل إحصائيات اللوحة").WithCause(err)
	}
	var successCount, sampleCount int64
	var totalMs int64
	for _, l := range weekLogs {
		if l.CreatedAt.Before(sevenDaysAgo) {
			continue
		}
		sampleCount++
		totalMs += l.ProcessingMs
		if l.Success {
			successCount++
		}
	}
	var successRate, avgMs float64
	if sampleCount > 0 {
		successRate = float64(successCount) / float64(sampleCount) * 100
		avgMs = float64(totalMs) / float64(sampleCount)
	}

	recent, err := q.store.AnalysisLogs.Find(map[string]any{}).Sort("created_at", true).Limit(20).All(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "تعذر تحميل إحصائيات اللوحة").WithCause(err)
	}
	recentActivity := make([]types.AnalysisLog, 0, len(recent))
	for _, l := range recent {
		recentActivity = append(recentActivity, logModelToType(l))
	}

	return &Dashboard{
		TotalUsers: totals.TotalUsers, BasicUsers: totals.BasicUsers,
		PremiumUsers: totals.PremiumUsers, VIPUsers: totals.VIPUsers,
		AnalysesToday: totals.AnalysesToday, AnalysesYesterday: yesterdayTotals.AnalysesToday,
		AnalysesChangePct: changePct, SuccessRate7d: successRate, AvgResponseMs7d: avgMs,
		RecentActivity: recentActivity, LastUpdated: q.clock.Now(),
	}, nil
}

// ToggleStatus flips active<->inactive; transitions out of blocked/suspended
// are rejected, matching the original's "cannot toggle" guard.
func (q *Queries) ToggleStatus(ctx context.Context, userID int64, adminID string) (types.Status, error) {
	m, err := q.store.Users.FindOne(ctx, map[string]any{"user_id": userID})
	if err != nil {
		if err == store.ErrNoDocuments {
			return "", apperr.New(apperr.ErrNotFound, "المستخدم غير موجود")
		}
		return "", apperr.New(apperr.ErrStoreFailure, "store lookup failed").WithCause(err)
	}

	var newStatus types.Status
	switch types.Status(m.Status) {
	case types.StatusActive:
		newStatus = types.StatusInactive
	case types.StatusInactive:
		newStatus = types.StatusActive
	default:
		return "", apperr.New(apperr.ErrValidation, "لا يمكن تغيير حالة مستخدم محظور أو موقوف")
	}

	if err := q.store.Users.UpdateOne(ctx, map[string]any{"user_id": userID}, map[string]any{
		"status": string(newStatus), "updated_at": q.clock.Now(),
	}); err != nil {
		return "", apperr.New(apperr.ErrStoreFailure, "فشل تحديث حالة المستخدم").WithCause(err)
	}

	q.logger.Info("admin toggled user status", zap.Int64("user_id", userID), zap.String("admin_id", adminID), zap.String("new_status", string(newStatus)))
	return newStatus, nil
}

func modelToUser(m *store.UserModel) types.User {
	return types.User{
		UserID: m.UserID, Email: m.Email, DisplayName: m.DisplayName,
		Tier: types.Tier(m.Tier), Status: types.Status(m.Status),
		TotalAnalyses: m.TotalAnalyses, DailyDate: m.DailyDate, DailyCount: m.DailyCount,
		SubscriptionStart: m.SubscriptionStart, SubscriptionEnd: m.SubscriptionEnd,
		LastSeen: m.LastSeen, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func logModelToType(l store.AnalysisLogModel) types.AnalysisLog {
	return types.AnalysisLog{
		UserID: l.UserID, Kind: types.AnalysisKind(l.Kind), Success: l.Success,
		ProcessingMs: l.ProcessingMs, Error: l.Error, UserTier: types.Tier(l.UserTier),
		PriceAtReq: l.PriceAtReq, CreatedAt: l.CreatedAt,
	}
}

func summaryModelToType(s store.DailySummaryModel) types.DailySummary {
	byKind := map[string]int64{}
	if s.ByKindJSON != "" {
		_ = json.Unmarshal([]byte(s.ByKindJSON), &byKind)
	}
	return types.DailySummary{
		UserID: s.UserID, Date: s.Date, Total: s.Total, Successful: s.Successful,
		Failed: s.Failed, ByKind: byKind, MeanProcessMs: s.MeanProcessMs,
	}
}
