package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/config"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(config.StoreConfig{Driver: "sqlite", Name: "file:" + t.Name() + "?mode=memory&cache=shared"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func waitForSummary(t *testing.T, st *store.Store, userID int64, date string, wantTotal int64) *store.DailySummaryModel {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m, err := st.DailySummaries.FindOne(context.Background(), map[string]any{"user_id": userID, "date": date})
		if err == nil && m.Total >= wantTotal {
			return m
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("summary for user %d/%s did not reach total=%d in time", userID, date, wantTotal)
	return nil
}

func TestRecorder_WritesLogAndSummary(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	fc := clock.NewFake(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	r := New(st, fc, 0, zap.NewNop())
	defer r.Close()

	r.Enqueue(Entry{Log: types.AnalysisLog{UserID: 1001, Kind: types.KindQuick, Success: true, ProcessingMs: 120, CreatedAt: fc.Now()}})
	r.Close()

	logs, err := st.AnalysisLogs.Find(map[string]any{"user_id": int64(1001)}).All(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)

	summary, err := st.DailySummaries.FindOne(context.Background(), map[string]any{"user_id": int64(1001), "date": "2026-07-31"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Total)
	assert.Equal(t, int64(1), summary.Successful)
	assert.Equal(t, float64(120), summary.MeanProcessMs)
}

func TestRecorder_RunningMeanUpdatesAcrossEntries(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	fc := clock.NewFake(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	r := New(st, fc, 0, zap.NewNop())

	r.Enqueue(Entry{Log: types.AnalysisLog{UserID: 2002, Kind: types.KindQuick, Success: true, ProcessingMs: 100, CreatedAt: fc.Now()}})
	r.Enqueue(Entry{Log: types.AnalysisLog{UserID: 2002, Kind: types.KindDetailed, Success: false, ProcessingMs: 300, CreatedAt: fc.Now()}})
	r.Close()

	summary, err := st.DailySummaries.FindOne(context.Background(), map[string]any{"user_id": int64(2002), "date": "2026-07-31"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Successful)
	assert.Equal(t, int64(1), summary.Failed)
	assert.InDelta(t, 200.0, summary.MeanProcessMs, 0.001)
}

func TestRecorder_EnqueueNeverBlocksOnFullQueue(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	fc := clock.NewFake(time.Now())
	r := New(st, fc, 1, zap.NewNop())
	defer r.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			r.Enqueue(Entry{Log: types.AnalysisLog{UserID: int64(3000 + i), Kind: types.KindQuick, CreatedAt: fc.Now()}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked under load")
	}
}
