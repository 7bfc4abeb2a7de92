package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

// Register creates a new account: validates email and password strength,
// rejects duplicate emails, assigns the next monotonic user id, and sets
// tier=basic / status=active. Returns the public projection only — never the
// password hash.
func (e *Engine) Register(ctx context.Context, email, password, displayName string) (*types.PublicProjection, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if !validateEmail(email) {
		return nil, apperr.New(apperr.ErrValidation, "البريد الإلكتروني غير صحيح")
	}
	if _, err := e.store.Users.FindOne(ctx, map[string]any{"email": email}); err == nil {
		return nil, apperr.New(apperr.ErrValidation, "البريد الإلكتروني مُسجل مسبقاً")
	} else if err != store.ErrNoDocuments {
		return nil, apperr.New(apperr.ErrStoreFailure, "store lookup failed").WithCause(err)
	}
	if verr := validatePassword(password); verr != nil {
		return nil, verr
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperr.New(apperr.ErrInternal, "تعذر إنشاء الحساب").WithCause(err)
	}

	userID, err := e.nextUserID(ctx)
	if err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "store lookup failed").WithCause(err)
	}

	now := e.clock.Now()
	model := &store.UserModel{
		UserID:            userID,
		Email:             email,
		PasswordHash:      hash,
		DisplayName:       displayName,
		Tier:              string(types.TierBasic),
		Status:            string(types.StatusActive),
		SubscriptionStart: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.store.Users.InsertOne(ctx, model); err != nil {
		return nil, apperr.New(apperr.ErrStoreFailure, "حدث خطأ في التسجيل، يرجى المحاولة مرة أخرى").WithCause(err)
	}

	e.logger.Info("user registered", zap.Int64("user_id", userID), zap.String("email", email))

	return &types.PublicProjection{
		UserID:         userID,
		Email:          email,
		Tier:           types.TierBasic,
		RemainingToday: dailyLimit(types.TierBasic),
	}, nil
}

// Login verifies credentials, rejects inactive accounts, and updates
// last_seen.
func (e *Engine) Login(ctx context.Context, email, password string) (*types.PublicProjection, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	m, err := e.store.Users.FindOne(ctx, map[string]any{"email": email})
	if err != nil {
		if err == store.ErrNoDocuments {
			return nil, apperr.New(apperr.ErrAuthFailure, "البريد الإلكتروني غير مُسجل")
		}
		return nil, apperr.New(apperr.ErrStoreFailure, "store lookup failed").WithCause(err)
	}

	if !verifyPassword(password, m.PasswordHash) {
		return nil, apperr.New(apperr.ErrAuthFailure, "كلمة المرور غير صحيحة")
	}
	if types.Status(m.Status) != types.StatusActive {
		return nil, apperr.New(apperr.ErrForbidden, "الحساب غير مفعل، تواصل مع الإدارة")
	}

	now := e.clock.Now()
	if err := e.store.Users.UpdateOne(ctx, map[string]any{"user_id": m.UserID}, map[string]any{"last_seen": now}); err != nil {
		e.logger.Warn("failed to persist last_seen", zap.Int64("user_id", m.UserID), zap.Error(err))
	}

	u := modelToUser(m)
	return &types.PublicProjection{
		UserID:         u.UserID,
		Email:          u.Email,
		Tier:           u.Tier,
		RemainingToday: remainingToday(u, e.clock.Today()),
	}, nil
}

// CanAnalyze reports whether userID may run another analysis today, and how
// many remain. It does not mutate state — RecordAnalysis does that.
func (e *Engine) CanAnalyze(ctx context.Context, userID int64) (ok bool, remaining int, err error) {
	u, err := e.getUser(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if u.Status != types.StatusActive {
		return false, 0, apperr.New(apperr.ErrForbidden, "الحساب غير مفعل")
	}

	remaining = remainingToday(u, e.clock.Today())
	if remaining == 0 {
		limit := dailyLimit(u.Tier)
		if limit == 1 {
			return false, 0, apperr.New(apperr.ErrQuotaExhausted, "تم استنفاد التحليل المجاني اليوم. ترقية الاشتراك للمزيد")
		}
		return false, 0, apperr.New(apperr.ErrQuotaExhausted, "تم استنفاد حد التحليلات اليومية")
	}
	return true, remaining, nil
}

// RecordAnalysis increments the caller's daily and lifetime counters. The
// read-modify-write is serialized per user (spec §5's linearisability
// requirement): two concurrent analyses from the same user cannot both
// succeed when the tier limit is one.
func (e *Engine) RecordAnalysis(ctx context.Context, userID int64) error {
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := e.getUser(ctx, userID)
	if err != nil {
		return err
	}

	today := e.clock.Today()
	dailyCount := u.DailyCount
	if u.DailyDate != today {
		dailyCount = 0
	}

	limit := dailyLimit(u.Tier)
	if limit >= 0 && dailyCount >= limit {
		return apperr.New(apperr.ErrQuotaExhausted, "تم استنفاد حد التحليلات اليومية")
	}

	update := map[string]any{
		"daily_date":     today,
		"daily_count":    dailyCount + 1,
		"total_analyses": u.TotalAnalyses + 1,
		"updated_at":     e.clock.Now(),
	}
	if err := e.store.Users.UpdateOne(ctx, map[string]any{"user_id": userID}, update); err != nil {
		return apperr.New(apperr.ErrStoreFailure, "failed to persist analysis count").WithCause(err)
	}
	return nil
}

// UpdateTier is the admin operation that changes a user's subscription tier,
// resetting their daily counter so the new limit takes effect immediately
// (spec §8 property 5).
func (e *Engine) UpdateTier(ctx context.Context, userID int64, newTier types.Tier, adminID string) error {
	if _, ok := Limits[newTier]; !ok {
		return apperr.New(apperr.ErrValidation, "نوع اشتراك غير صحيح")
	}

	if _, err := e.getUser(ctx, userID); err != nil {
		return err
	}

	now := e.clock.Now()
	end := now.AddDate(1, 0, 0)
	update := map[string]any{
		"tier":               string(newTier),
		"subscription_start": now,
		"subscription_end":   end,
		"daily_date":         e.clock.Today(),
		"daily_count":        0,
		"updated_at":         now,
	}
	if err := e.store.Users.UpdateOne(ctx, map[string]any{"user_id": userID}, update); err != nil {
		return apperr.New(apperr.ErrStoreFailure, "فشل في تحديث قاعدة البيانات").WithCause(err)
	}

	e.logger.Info("admin updated user tier",
		zap.Int64("user_id", userID), zap.String("new_tier", string(newTier)), zap.String("admin_id", adminID))
	return nil
}

// UserTier returns userID's current tier, for callers (AnalysisPipeline's
// audit logging) that need it without the full public projection.
func (e *Engine) UserTier(ctx context.Context, userID int64) (types.Tier, error) {
	u, err := e.getUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Tier, nil
}

// GetUserProjection returns the public projection for userID, used by the
// `/auth/user/{user_id}` endpoint — never the password hash.
func (e *Engine) GetUserProjection(ctx context.Context, userID int64) (*types.PublicProjection, error) {
	u, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &types.PublicProjection{
		UserID:         u.UserID,
		Email:          u.Email,
		Tier:           u.Tier,
		RemainingToday: remainingToday(u, e.clock.Today()),
	}, nil
}

// Stats is the supplemented auth_stats()-equivalent surfaced on the admin
// dashboard (original_source's AuthManager.get_auth_stats).
type Stats struct {
	TotalUsers            int64
	ActiveUsers           int64
	BasicUsers            int64
	PremiumUsers          int64
	VIPUsers              int64
	RecentRegistrations7d int64
}

// GetStats computes the tier distribution and 7-day registration count.
func (e *Engine) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error

	if s.TotalUsers, err = e.store.Users.CountDocuments(ctx, map[string]any{}); err != nil {
		return s, err
	}
	if s.ActiveUsers, err = e.store.Users.CountDocuments(ctx, map[string]any{"status": string(types.StatusActive)}); err != nil {
		return s, err
	}
	if s.BasicUsers, err = e.store.Users.CountDocuments(ctx, map[string]any{"tier": string(types.TierBasic)}); err != nil {
		return s, err
	}
	if s.PremiumUsers, err = e.store.Users.CountDocuments(ctx, map[string]any{"tier": string(types.TierPremium)}); err != nil {
		return s, err
	}
	if s.VIPUsers, err = e.store.Users.CountDocuments(ctx, map[string]any{"tier": string(types.TierVIP)}); err != nil {
		return s, err
	}

	weekAgo := e.clock.Now().Add(-7 * 24 * time.Hour)
	rows, err := e.store.Users.Find(map[string]any{}).All(ctx)
	if err != nil {
		return s, err
	}
	for _, row := range rows {
		if row.CreatedAt.After(weekAgo) {
			s.RecentRegistrations7d++
		}
	}

	return s, nil
}
