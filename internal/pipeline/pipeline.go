// Package pipeline implements AnalysisPipeline: the single "produce an
// analysis" operation that strings together AuthEngine, PriceAggregator,
// the prompt Composer, LLMClient, Cache and AuditRecorder. Grounded on
// original_source/gold_bot/handlers.py's _perform_analysis (permission
// check, price fetch, generate-analysis, record-analysis, save-analysis
// call order), generalized from its Telegram-callback shape into a
// transport-agnostic operation HTTPEdge can call directly.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/audit"
	"github.com/goldnightmare/goldservice/internal/auth"
	"github.com/goldnightmare/goldservice/internal/cache"
	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/llmclient"
	"github.com/goldnightmare/goldservice/internal/priceagg"
	"github.com/goldnightmare/goldservice/internal/prompt"
	"github.com/goldnightmare/goldservice/types"
)

// Config controls LLM call parameters and cache TTLs.
type Config struct {
	Model           string
	MaxTokens       int
	Temperature     float64
	AnalysisCacheTTL time.Duration
}

// DefaultConfig mirrors the original service's defaults.
func DefaultConfig() Config {
	return Config{Model: "claude-3-5-sonnet-latest", MaxTokens: 4000, Temperature: 0.7, AnalysisCacheTTL: 30 * time.Minute}
}

// Pipeline is AnalysisPipeline.
type Pipeline struct {
	auth      *auth.Engine
	prices    *priceagg.Aggregator
	composer  *prompt.Composer
	llm       *llmclient.Client
	cache     *cache.Cache
	auditor   *audit.Recorder
	clock     clock.Clock
	cfg       Config
	logger    *zap.Logger
}

// New builds a Pipeline wiring every upstream component.
func New(authEngine *auth.Engine, prices *priceagg.Aggregator, composer *prompt.Composer, llm *llmclient.Client, c *cache.Cache, auditor *audit.Recorder, clk clock.Clock, cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		auth: authEngine, prices: prices, composer: composer, llm: llm,
		cache: c, auditor: auditor, clock: clk, cfg: cfg,
		logger: logger.With(zap.String("component", "pipeline")),
	}
}

// Result is what Analyze returns to HTTPEdge.
type Result struct {
	Analysis       *types.Analysis
	RemainingToday int
	Cached         bool
}

// Analyze runs the full "produce analysis" operation for kind, per spec §4.4.
func (p *Pipeline) Analyze(ctx context.Context, userID int64, kind types.AnalysisKind, additionalContext string) (*Result, error) {
	if !types.ValidKind(kind) {
		return nil, apperr.New(apperr.ErrValidation, "نوع التحليل غير صحيح")
	}

	ok, remaining, err := p.auth.CanAnalyze(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.ErrQuotaExhausted, "تم استنفاد حد التحليلات اليومية")
	}

	userTier, err := p.auth.UserTier(ctx, userID)
	if err != nil {
		return nil, err
	}

	var quote *types.PriceQuote
	if prompt.PriceRequired(kind) {
		quote, err = p.prices.Current(ctx, true)
		if err != nil {
			return nil, apperr.New(apperr.ErrUpstreamUnavailable, "تعذر جلب سعر الذهب").WithCause(err).WithRetryable(true)
		}
	}

	marketContext := prompt.BuildContext(quote)
	fp := fingerprint(kind, prompt.Fingerprint(marketContext, additionalContext))
	cacheKey := cache.AnalysisKey(userID, string(kind), fp)

	if cached, err := p.cache.GetAnalysis(ctx, cacheKey); err == nil {
		p.logger.Info("serving cached analysis", zap.Int64("user_id", userID), zap.String("kind", string(kind)))
		return &Result{Analysis: cached, RemainingToday: remaining, Cached: true}, nil
	} else if !cache.IsCacheMiss(err) {
		p.logger.Warn("cache read failed, proceeding to generate", zap.Error(err))
	}

	start := p.clock.Now()
	text, genErr := p.composer.Compose(kind, marketContext, additionalContext)
	if genErr != nil {
		return nil, apperr.New(apperr.ErrInternal, "تعذر بناء طلب التحليل").WithCause(genErr)
	}

	sessionID := fmt.Sprintf("analysis_%d_%d", userID, p.clock.Now().Unix())
	resp, llmErr := p.llm.Generate(ctx, llmclient.Request{
		Model:       p.cfg.Model,
		System:      p.composer.System(),
		UserMessage: text,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		SessionID:   sessionID,
	})
	processingMs := p.clock.Now().Sub(start).Milliseconds()

	if llmErr != nil {
		p.auditor.Enqueue(audit.Entry{
			Log: types.AnalysisLog{
				UserID: userID, Kind: kind, Success: false,
				ProcessingMs: processingMs, Error: llmErr.Error(), UserTier: userTier,
				PriceAtReq: priceSnapshot(quote), CreatedAt: p.clock.Now(),
			},
		})
		return nil, llmErr
	}

	analysis := &types.Analysis{
		ID:            fmt.Sprintf("%d-%s-%s", userID, kind, fp),
		UserID:        userID,
		Kind:          kind,
		Content:       resp.Content,
		PriceSnapshot: priceSnapshot(quote),
		ModelTag:      p.cfg.Model,
		ProcessingMs:  processingMs,
		CreatedAt:     p.clock.Now(),
	}

	if err := p.cache.SetAnalysis(ctx, cacheKey, analysis, p.cfg.AnalysisCacheTTL); err != nil {
		p.logger.Warn("failed to cache analysis", zap.Error(err))
	}

	if err := p.auth.RecordAnalysis(ctx, userID); err != nil {
		// The per-user linearisable recheck (spec §5) lost the race or the
		// quota was otherwise exhausted between CanAnalyze and here. The LLM
		// call already happened, but the quota invariant still wins: this
		// request must not be reported as a successful analysis.
		p.logger.Warn("record-analysis denied after generation, discarding result",
			zap.Int64("user_id", userID), zap.Error(err))
		p.auditor.Enqueue(audit.Entry{
			Log: types.AnalysisLog{
				UserID: userID, Kind: kind, Success: false,
				ProcessingMs: processingMs, Error: err.Error(), UserTier: userTier,
				PriceAtReq: priceSnapshot(quote), CreatedAt: p.clock.Now(),
			},
		})
		return nil, err
	}

	p.auditor.Enqueue(audit.Entry{
		Log: types.AnalysisLog{
			UserID: userID, Kind: kind, Success: true,
			ProcessingMs: processingMs, UserTier: userTier,
			PriceAtReq: priceSnapshot(quote), CreatedAt: p.clock.Now(),
		},
	})

	newRemaining := remaining
	if newRemaining > 0 {
		newRemaining--
	}
	return &Result{Analysis: analysis, RemainingToday: newRemaining, Cached: false}, nil
}

// fingerprint composes md5(kind + ":" + context)[:16], per spec §3/§4.4.
func fingerprint(kind types.AnalysisKind, context string) string {
	sum := md5.Sum([]byte(string(kind) + ":" + context))
	return hex.EncodeToString(sum[:])[:16]
}

func priceSnapshot(q *types.PriceQuote) *float64 {
	if q == nil {
		return nil
	}
	price := q.Price
	return &price
}
