package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/config"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

func newTestEngine(t *testing.T) (*Engine, *clock.Fake) {
	t.Helper()
	st, err := store.Open(config.StoreConfig{Driver: "sqlite", Name: "file:" + t.Name() + "?mode=memory&cache=shared"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	fc := clock.NewFake(time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	return New(st, fc, zap.NewNop()), fc
}

func TestEngine_RegisterThenLogin(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	proj, err := e.Register(ctx, "Ahmed@Test.com", "Pw123456", "Ahmed")
	require.NoError(t, err)
	assert.Equal(t, "ahmed@test.com", proj.Email)
	assert.Equal(t, types.TierBasic, proj.Tier)
	assert.Equal(t, 1000, int(proj.UserID))

	login, err := e.Login(ctx, "ahmed@test.com", "Pw123456")
	require.NoError(t, err)
	assert.Equal(t, proj.UserID, login.UserID)
}

func TestEngine_RegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Register(ctx, "dup@test.com", "Pw123456", "")
	require.NoError(t, err)

	_, err = e.Register(ctx, "dup@test.com", "Pw654321", "")
	require.Error(t, err)
	assert.Equal(t, apperr.ErrValidation, apperr.Code(err))
}

func TestEngine_RegisterRejectsWeakPassword(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Register(ctx, "weak@test.com", "abc", "")
	require.Error(t, err)
	assert.Equal(t, apperr.ErrValidation, apperr.Code(err))
}

func TestEngine_LoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Register(ctx, "u@test.com", "Pw123456", "")
	require.NoError(t, err)

	_, err = e.Login(ctx, "u@test.com", "WrongPw1")
	require.Error(t, err)
	assert.Equal(t, apperr.ErrAuthFailure, apperr.Code(err))
}

func TestEngine_BasicTierExhaustionAndAdminUpgrade(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	proj, err := e.Register(ctx, "ahmed@test.com", "Pw123456", "")
	require.NoError(t, err)

	ok, remaining, err := e.CanAnalyze(ctx, proj.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	require.NoError(t, e.RecordAnalysis(ctx, proj.UserID))

	_, _, err = e.CanAnalyze(ctx, proj.UserID)
	require.Error(t, err)
	assert.Equal(t, apperr.ErrQuotaExhausted, apperr.Code(err))

	require.NoError(t, e.UpdateTier(ctx, proj.UserID, types.TierPremium, "admin"))

	ok, remaining, err = e.CanAnalyze(ctx, proj.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, remaining)
}

func TestEngine_DailyCounterLazyResetAcrossDay(t *testing.T) {
	t.Parallel()
	e, fc := newTestEngine(t)
	ctx := context.Background()

	proj, err := e.Register(ctx, "roll@test.com", "Pw123456", "")
	require.NoError(t, err)
	require.NoError(t, e.RecordAnalysis(ctx, proj.UserID))

	_, _, err = e.CanAnalyze(ctx, proj.UserID)
	require.Error(t, err)

	fc.Advance(25 * time.Hour)

	ok, remaining, err := e.CanAnalyze(ctx, proj.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
}

func TestEngine_VIPTierIsUnlimited(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	proj, err := e.Register(ctx, "vip@test.com", "Pw123456", "")
	require.NoError(t, err)
	require.NoError(t, e.UpdateTier(ctx, proj.UserID, types.TierVIP, "admin"))

	for i := 0; i < 10; i++ {
		ok, remaining, err := e.CanAnalyze(ctx, proj.UserID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, -1, remaining)
		require.NoError(t, e.RecordAnalysis(ctx, proj.UserID))
	}
}

func TestEngine_RecordAnalysisIsLinearisableUnderConcurrency(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	proj, err := e.Register(ctx, "race@test.com", "Pw123456", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	successes := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if ok, _, err := e.CanAnalyze(ctx, proj.UserID); err == nil && ok {
				if err := e.RecordAnalysis(ctx, proj.UserID); err == nil {
					successes[idx] = true
				}
			}
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	assert.LessOrEqual(t, count, 1, "basic tier limit is 1; at most one concurrent analysis may succeed")
}
