package fixtures

import (
	"time"

	"github.com/goldnightmare/goldservice/types"
)

// BasicUser returns a fresh, active basic-tier user with no analyses used
// today.
func BasicUser() types.User {
	return types.User{
		UserID:            1,
		Email:             "basic@example.com",
		PasswordHash:      "salt0123456789abcdef:deadbeef",
		DisplayName:       "Basic User",
		Tier:              types.TierBasic,
		Status:            types.StatusActive,
		TotalAnalyses:     3,
		DailyDate:         "2026-01-15",
		DailyCount:        0,
		SubscriptionStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// PremiumUser returns an active premium-tier user near its daily quota.
func PremiumUser() types.User {
	u := BasicUser()
	u.UserID = 2
	u.Email = "premium@example.com"
	u.DisplayName = "Premium User"
	u.Tier = types.TierPremium
	u.DailyCount = 4
	return u
}

// VIPUser returns an active VIP-tier user (unlimited daily quota).
func VIPUser() types.User {
	u := BasicUser()
	u.UserID = 3
	u.Email = "vip@example.com"
	u.DisplayName = "VIP User"
	u.Tier = types.TierVIP
	u.DailyCount = 40
	return u
}

// BlockedUser returns a user whose Status forbids login/analysis.
func BlockedUser() types.User {
	u := BasicUser()
	u.UserID = 4
	u.Email = "blocked@example.com"
	u.Status = types.StatusBlocked
	return u
}

// QuotaExhaustedUser returns a basic-tier user who has used today's single
// allotted analysis already (spec's Limits[basic] == 1).
func QuotaExhaustedUser() types.User {
	u := BasicUser()
	u.UserID = 5
	u.Email = "exhausted@example.com"
	u.DailyCount = 1
	return u
}

// StaleDateUser returns a user whose DailyDate is not today, exercising the
// lazy daily-counter reset invariant: readers must treat DailyCount as zero
// whenever DailyDate != clock.Today().
func StaleDateUser() types.User {
	u := BasicUser()
	u.UserID = 6
	u.Email = "staledate@example.com"
	u.DailyDate = "2026-01-10"
	u.DailyCount = 1
	return u
}
