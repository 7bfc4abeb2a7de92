// Package auth implements AuthEngine: registration, login, the per-tier
// daily-quota gate, and admin tier changes. Grounded on
// original_source/gold_bot/auth_manager.py (AuthManager), ported from its
// Mongo-backed async methods onto the synchronous Store facade, with an
// explicit persist step after every mutation rather than the original's
// implicit in-place dataclass mutation.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

// Limits is the authoritative tier table (spec §3). -1 means unlimited.
var Limits = map[types.Tier]int{
	types.TierBasic:   1,
	types.TierPremium: 5,
	types.TierVIP:     -1,
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var hasLetter = regexp.MustCompile(`[A-Za-z]`)
var hasDigit = regexp.MustCompile(`[0-9]`)

// Engine is AuthEngine. It serializes the read-modify-write quota section
// per user via one mutex per user id (kept in a sync.Map), satisfying the linearisability
// requirement in spec §5 without a single global lock.
type Engine struct {
	store  *store.Store
	clock  clock.Clock
	logger *zap.Logger

	userLocks sync.Map // int64 -> *sync.Mutex
}

// New builds an Engine.
func New(st *store.Store, clk clock.Clock, logger *zap.Logger) *Engine {
	return &Engine{store: st, clock: clk, logger: logger.With(zap.String("component", "auth"))}
}

func (e *Engine) lockFor(userID int64) *sync.Mutex {
	v, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltHex := hex.EncodeToString(salt)
	digest := sha256.Sum256([]byte(password + saltHex))
	return fmt.Sprintf("%s:%s", saltHex, hex.EncodeToString(digest[:])), nil
}

func verifyPassword(password, hashed string) bool {
	parts := splitOnce(hashed, ':')
	if parts == nil {
		return false
	}
	salt, want := parts[0], parts[1]
	digest := sha256.Sum256([]byte(password + salt))
	got := hex.EncodeToString(digest[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func splitOnce(s string, sep byte) []string {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return []string{s[:i], s[i+1:]}
		}
	}
	return nil
}

func validateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validatePassword enforces the minimum strength rule: at least 6
// characters, containing a letter and a digit.
func validatePassword(password string) *apperr.Error {
	if len(password) < 6 {
		return apperr.New(apperr.ErrValidation, "كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	if !hasLetter.MatchString(password) {
		return apperr.New(apperr.ErrValidation, "كلمة المرور يجب أن تحتوي على حروف")
	}
	if !hasDigit.MatchString(password) {
		return apperr.New(apperr.ErrValidation, "كلمة المرور يجب أن تحتوي على أرقام")
	}
	return nil
}

// dailyLimit returns the tier's daily analysis limit.
func dailyLimit(tier types.Tier) int {
	if l, ok := Limits[tier]; ok {
		return l
	}
	return 0
}

// remainingToday computes remaining_today per spec §4.3's lazy-reset rule.
func remainingToday(u *types.User, today string) int {
	limit := dailyLimit(u.Tier)
	if limit < 0 {
		return -1
	}
	count := u.DailyCount
	if u.DailyDate != today {
		count = 0
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func modelToUser(m *store.UserModel) *types.User {
	return &types.User{
		UserID:            m.UserID,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		DisplayName:       m.DisplayName,
		Tier:              types.Tier(m.Tier),
		Status:            types.Status(m.Status),
		TotalAnalyses:     m.TotalAnalyses,
		DailyDate:         m.DailyDate,
		DailyCount:        m.DailyCount,
		SubscriptionStart: m.SubscriptionStart,
		SubscriptionEnd:   m.SubscriptionEnd,
		LastSeen:          m.LastSeen,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (e *Engine) getUser(ctx context.Context, userID int64) (*types.User, error) {
	m, err := e.store.Users.FindOne(ctx, map[string]any{"user_id": userID})
	if err != nil {
		if err == store.ErrNoDocuments {
			return nil, apperr.New(apperr.ErrNotFound, "المستخدم غير موجود")
		}
		return nil, apperr.New(apperr.ErrStoreFailure, "store lookup failed").WithCause(err)
	}
	return modelToUser(m), nil
}

// nextUserID returns the next monotonic user id, starting at 1000 (spec §3).
func (e *Engine) nextUserID(ctx context.Context) (int64, error) {
	rows, err := e.store.Users.Find(map[string]any{}).Sort("user_id", true).Limit(1).All(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 1000, nil
	}
	return rows[0].UserID + 1, nil
}
