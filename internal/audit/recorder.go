// Package audit implements AuditRecorder: a single background worker
// consuming an unbounded in-process queue, writing AnalysisLog rows and
// upserting DailySummary running aggregates. Grounded on
// llm/tools/audit.go's DefaultAuditLogger (async queue + worker, queue-full
// drop policy), generalized from its multi-backend tool-call-event shape
// down to this service's single Store backend and analysis-attempt entries,
// and adding the spec's drop-after-10-consecutive-failures policy the
// teacher's logger doesn't have.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

const maxConsecutiveFailures = 10

// Entry is one item enqueued for the background worker.
type Entry struct {
	Log types.AnalysisLog
}

// Recorder owns the queue and its single consumer goroutine.
type Recorder struct {
	store  *store.Store
	clock  clock.Clock
	logger *zap.Logger

	queue chan Entry
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once

	mu                 sync.Mutex
	consecutiveFailures int
	dropping            bool
}

// New builds a Recorder and starts its consumer goroutine. queueSize bounds
// memory use only — the queue is otherwise treated as unbounded per spec
// §4.5 ("one background worker... consumes an unbounded internal queue");
// a full queue drops the newest entry with a warning rather than blocking
// the caller, since producers (the pipeline) must never stall on audit I/O.
func New(st *store.Store, clk clock.Clock, queueSize int, logger *zap.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 10000
	}
	r := &Recorder{
		store:  st,
		clock:  clk,
		logger: logger.With(zap.String("component", "audit")),
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.consume()
	return r
}

// Enqueue appends an entry for asynchronous processing. Never blocks.
func (r *Recorder) Enqueue(e Entry) {
	select {
	case r.queue <- e:
	default:
		r.logger.Warn("audit queue full, dropping entry", zap.Int64("user_id", e.Log.UserID))
	}
}

// Close stops accepting new work and waits for the queue to drain. Calling
// it more than once is safe.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.queue) })
	r.wg.Wait()
}

func (r *Recorder) consume() {
	defer r.wg.Done()
	for e := range r.queue {
		r.process(e)
	}
}

func (r *Recorder) process(e Entry) {
	r.mu.Lock()
	if r.dropping {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.writeLog(ctx, e.Log); err != nil {
		r.recordFailure(err)
		return
	}
	if err := r.upsertSummary(ctx, e.Log); err != nil {
		r.recordFailure(err)
		return
	}
	r.recordSuccess()
}

func (r *Recorder) recordFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consecutiveFailures++
	r.logger.Error("audit persist failed", zap.Error(err), zap.Int("consecutive_failures", r.consecutiveFailures))
	if r.consecutiveFailures >= maxConsecutiveFailures {
		r.dropping = true
		r.logger.Warn("audit recorder dropping entries after repeated backend failures", zap.Int("threshold", maxConsecutiveFailures))
	}
}

func (r *Recorder) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consecutiveFailures = 0
	r.dropping = false
}

func (r *Recorder) writeLog(ctx context.Context, l types.AnalysisLog) error {
	model := &store.AnalysisLogModel{
		UserID: l.UserID, Kind: string(l.Kind), Success: l.Success,
		ProcessingMs: l.ProcessingMs, Error: l.Error, UserTier: string(l.UserTier),
		PriceAtReq: l.PriceAtReq, CreatedAt: l.CreatedAt,
	}
	return r.store.AnalysisLogs.InsertOne(ctx, model)
}

// upsertSummary keys by (user_id, UTC date of the log's CreatedAt) and updates the running mean
// and counters per spec §4.5.
func (r *Recorder) upsertSummary(ctx context.Context, l types.AnalysisLog) error {
	date := l.CreatedAt.UTC().Format("2006-01-02")

	existing, err := r.store.DailySummaries.FindOne(ctx, map[string]any{"user_id": l.UserID, "date": date})
	if err != nil && err != store.ErrNoDocuments {
		return err
	}

	var model store.DailySummaryModel
	byKind := map[string]int64{}
	if existing != nil {
		model = *existing
		if model.ByKindJSON != "" {
			_ = json.Unmarshal([]byte(model.ByKindJSON), &byKind)
		}
	} else {
		model = store.DailySummaryModel{UserID: l.UserID, Date: date}
	}

	model.Total++
	if l.Success {
		model.Successful++
	} else {
		model.Failed++
	}
	byKind[string(l.Kind)]++

	newTotal := float64(model.Total)
	model.MeanProcessMs = model.MeanProcessMs + (float64(l.ProcessingMs)-model.MeanProcessMs)/newTotal

	encoded, err := json.Marshal(byKind)
	if err != nil {
		return err
	}
	model.ByKindJSON = string(encoded)

	if existing != nil {
		return r.store.DailySummaries.UpdateOne(ctx, map[string]any{"user_id": l.UserID, "date": date}, map[string]any{
			"total": model.Total, "successful": model.Successful, "failed": model.Failed,
			"by_kind_json": model.ByKindJSON, "mean_processing_ms": model.MeanProcessMs,
		})
	}
	return r.store.DailySummaries.InsertOne(ctx, &model)
}
