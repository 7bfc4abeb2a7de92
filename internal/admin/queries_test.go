package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/audit"
	"github.com/goldnightmare/goldservice/internal/auth"
	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/config"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

func newHarness(t *testing.T) (*Queries, *store.Store, *auth.Engine, *clock.Fake) {
	t.Helper()
	st, err := store.Open(config.StoreConfig{Driver: "sqlite", Name: "file:" + t.Name() + "?mode=memory&cache=shared"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	fc := clock.NewFake(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	authEngine := auth.New(st, fc, zap.NewNop())
	q := New(st, authEngine, fc, zap.NewNop())
	return q, st, authEngine, fc
}

func TestQueries_ListUsersIncludesTodayCount(t *testing.T) {
	t.Parallel()
	q, st, authEngine, fc := newHarness(t)
	ctx := context.Background()

	proj, err := authEngine.Register(ctx, "alice@test.com", "Pw123456", "")
	require.NoError(t, err)

	rec := audit.New(st, fc, 0, zap.NewNop())
	rec.Enqueue(audit.Entry{Log: types.AnalysisLog{UserID: proj.UserID, Kind: types.KindQuick, Success: true, ProcessingMs: 50, CreatedAt: fc.Now()}})
	rec.Close()

	page, err := q.ListUsers(ctx, 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, proj.UserID, page.Users[0].UserID)
	assert.Equal(t, int64(1), page.Users[0].TodayCount)
	assert.Equal(t, int64(1), page.Total)
}

func TestQueries_ListUsersPagination(t *testing.T) {
	t.Parallel()
	q, _, authEngine, _ := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := authEngine.Register(ctx, emailFor(i), "Pw123456", "")
		require.NoError(t, err)
	}

	page1, err := q.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1.Users, 2)
	assert.Equal(t, int64(5), page1.Total)
	assert.Equal(t, 3, page1.TotalPages)

	page3, err := q.ListUsers(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3.Users, 1)
}

func emailFor(i int) string {
	letters := "abcdef"
	return string(letters[i]) + "@test.com"
}

func TestQueries_UserDetailAggregatesLogsAndSummaries(t *testing.T) {
	t.Parallel()
	q, st, authEngine, fc := newHarness(t)
	ctx := context.Background()

	proj, err := authEngine.Register(ctx, "bob@test.com", "Pw123456", "")
	require.NoError(t, err)

	rec := audit.New(st, fc, 0, zap.NewNop())
	rec.Enqueue(audit.Entry{Log: types.AnalysisLog{UserID: proj.UserID, Kind: types.KindQuick, Success: true, ProcessingMs: 100, CreatedAt: fc.Now()}})
	rec.Enqueue(audit.Entry{Log: types.AnalysisLog{UserID: proj.UserID, Kind: types.KindDetailed, Success: false, Error: "timeout", ProcessingMs: 200, CreatedAt: fc.Now()}})
	rec.Close()

	detail, err := q.UserDetail(ctx, proj.UserID)
	require.NoError(t, err)
	assert.Equal(t, proj.UserID, detail.User.UserID)
	assert.Equal(t, int64(2), detail.TotalRequests30d)
	assert.Equal(t, int64(1), detail.Successful30d)
	assert.Equal(t, int64(1), detail.Failed30d)
	assert.InDelta(t, 50.0, detail.SuccessRate, 0.001)
	assert.Len(t, detail.RecentLogs, 2)
	require.Len(t, detail.DailySummaries, 1)
	assert.Equal(t, int64(2), detail.DailySummaries[0].Total)
}

func TestQueries_UserDetailUnknownUser(t *testing.T) {
	t.Parallel()
	q, _, _, _ := newHarness(t)

	_, err := q.UserDetail(context.Background(), 999999)
	require.Error(t, err)
}

func TestQueries_ListLogsFiltersByUser(t *testing.T) {
	t.Parallel()
	q, st, authEngine, fc := newHarness(t)
	ctx := context.Background()

	u1, err := authEngine.Register(ctx, "u1@test.com", "Pw123456", "")
	require.NoError(t, err)
	u2, err := authEngine.Register(ctx, "u2@test.com", "Pw123456", "")
	require.NoError(t, err)

	rec := audit.New(st, fc, 0, zap.NewNop())
	rec.Enqueue(audit.Entry{Log: types.AnalysisLog{UserID: u1.UserID, Kind: types.KindQuick, Success: true, CreatedAt: fc.Now()}})
	rec.Enqueue(audit.Entry{Log: types.AnalysisLog{UserID: u2.UserID, Kind: types.KindQuick, Success: true, CreatedAt: fc.Now()}})
	rec.Close()

	page, err := q.ListLogs(ctx, 1, 50, u1.UserID)
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, u1.UserID, page.Logs[0].UserID)

	all, err := q.ListLogs(ctx, 1, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all.Logs, 2)
}

func TestQueries_DashboardComputesTotalsAndDelta(t *testing.T) {
	t.Parallel()
	q, st, authEngine, fc := newHarness(t)
	ctx := context.Background()

	proj, err := authEngine.Register(ctx, "carol@test.com", "Pw123456", "")
	require.NoError(t, err)

	rec := audit.New(st, fc, 0, zap.NewNop())
	rec.Enqueue(audit.Entry{Log: types.AnalysisLog{UserID: proj.UserID, Kind: types.KindQuick, Success: true, ProcessingMs: 80, CreatedAt: fc.Now()}})
	rec.Close()

	dash, err := q.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.TotalUsers)
	assert.Equal(t, int64(1), dash.BasicUsers)
	assert.Equal(t, int64(1), dash.AnalysesToday)
	assert.Equal(t, int64(0), dash.AnalysesYesterday)
	assert.Len(t, dash.RecentActivity, 1)
}

func TestQueries_ToggleStatusFlipsActiveInactive(t *testing.T) {
	t.Parallel()
	q, _, authEngine, _ := newHarness(t)
	ctx := context.Background()

	proj, err := authEngine.Register(ctx, "dave@test.com", "Pw123456", "")
	require.NoError(t, err)

	newStatus, err := q.ToggleStatus(ctx, proj.UserID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInactive, newStatus)

	newStatus, err = q.ToggleStatus(ctx, proj.UserID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, newStatus)
}

func TestQueries_ToggleStatusRejectsUnknownUser(t *testing.T) {
	t.Parallel()
	q, _, _, _ := newHarness(t)

	_, err := q.ToggleStatus(context.Background(), 999999, "admin-1")
	require.Error(t, err)
}
