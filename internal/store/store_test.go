package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.StoreConfig{Driver: "sqlite", Name: "file:" + t.Name() + "?mode=memory&cache=shared"}
	s, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertAndFindOne(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := &UserModel{UserID: 1000, Email: "ahmed@test.com", Tier: "basic", Status: "active", SubscriptionStart: time.Now()}
	require.NoError(t, s.Users.InsertOne(ctx, u))

	got, err := s.Users.FindOne(ctx, map[string]any{"email": "ahmed@test.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.UserID)

	_, err = s.Users.FindOne(ctx, map[string]any{"email": "nobody@test.com"})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestStore_UpdateOneAndCount(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users.InsertOne(ctx, &UserModel{UserID: 1001, Email: "u1@test.com", Tier: "basic", Status: "active"}))
	require.NoError(t, s.Users.InsertOne(ctx, &UserModel{UserID: 1002, Email: "u2@test.com", Tier: "premium", Status: "active"}))

	require.NoError(t, s.Users.UpdateOne(ctx, map[string]any{"user_id": int64(1001)}, map[string]any{"tier": "premium"}))

	count, err := s.Users.CountDocuments(ctx, map[string]any{"tier": "premium"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = s.Users.UpdateOne(ctx, map[string]any{"user_id": int64(9999)}, map[string]any{"tier": "vip"})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestStore_FindSortSkipLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AnalysisLogs.InsertOne(ctx, &AnalysisLogModel{
			UserID:    1000,
			Kind:      "quick",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rows, err := s.AnalysisLogs.Find(map[string]any{"user_id": int64(1000)}).
		Sort("created_at", true).Skip(1).Limit(2).All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
}

func TestStore_RequiredIndicesCreated(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u1 := &UserModel{UserID: 2000, Email: "dup@test.com", Tier: "basic", Status: "active"}
	u2 := &UserModel{UserID: 2001, Email: "dup@test.com", Tier: "basic", Status: "active"}
	require.NoError(t, s.Users.InsertOne(ctx, u1))
	assert.Error(t, s.Users.InsertOne(ctx, u2), "email uniqueness must be enforced")
}

func TestStore_Aggregate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users.InsertOne(ctx, &UserModel{UserID: 3000, Email: "a@test.com", Tier: "basic", Status: "active"}))
	require.NoError(t, s.Users.InsertOne(ctx, &UserModel{UserID: 3001, Email: "b@test.com", Tier: "vip", Status: "active"}))
	require.NoError(t, s.AnalysisLogs.InsertOne(ctx, &AnalysisLogModel{UserID: 3000, Success: true, CreatedAt: time.Now()}))

	totals, err := s.Aggregate(ctx, time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.TotalUsers)
	assert.Equal(t, int64(1), totals.VIPUsers)
	assert.Equal(t, int64(1), totals.AnalysesToday)
}
