package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/metrics"
	"github.com/goldnightmare/goldservice/internal/pipeline"
	"github.com/goldnightmare/goldservice/internal/priceagg"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

// PublicHandlers serves the unauthenticated surface: health, price quotes,
// the static catalogs, and the three analysis-request endpoints.
type PublicHandlers struct {
	gold      *priceagg.Aggregator
	forex     *priceagg.ForexAggregator
	pipe      *pipeline.Pipeline
	st        *store.Store
	collector *metrics.Collector
	startedAt time.Time
	logger    *zap.Logger
}

// NewPublicHandlers builds PublicHandlers.
func NewPublicHandlers(gold *priceagg.Aggregator, forex *priceagg.ForexAggregator, pipe *pipeline.Pipeline, st *store.Store, collector *metrics.Collector, logger *zap.Logger) *PublicHandlers {
	return &PublicHandlers{gold: gold, forex: forex, pipe: pipe, st: st, collector: collector, startedAt: time.Now().UTC(), logger: logger.With(zap.String("component", "httpapi.public"))}
}

// runAnalysis calls the pipeline and records the analysis/quota metrics
// around it, regardless of which HTTP endpoint triggered it.
func (h *PublicHandlers) runAnalysis(w http.ResponseWriter, r *http.Request, userID int64, kind types.AnalysisKind, extra string) {
	start := time.Now()
	result, err := h.pipe.Analyze(r.Context(), userID, kind, extra)
	if err != nil {
		if apperr.Code(err) == apperr.ErrQuotaExhausted {
			h.collector.RecordQuotaRejection(string(kind))
		}
		h.collector.RecordAnalysis(string(kind), "failure", false, time.Since(start))
		WriteError(w, err, h.logger)
		return
	}
	h.collector.RecordAnalysis(string(kind), "success", result.Cached, time.Since(start))
	WriteSuccess(w, analysisResultPayload(result))
}

// HandleHealth serves GET /health.
func (h *PublicHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"api_running": true,
		"timestamp":   time.Now().UTC(),
	})
}

// HandleGoldPrice serves GET /gold-price. ?refresh=true bypasses the
// aggregator's internal cache and forces a fresh provider query.
func (h *PublicHandlers) HandleGoldPrice(w http.ResponseWriter, r *http.Request) {
	useCache := r.URL.Query().Get("refresh") == ""
	q, err := h.gold.Current(r.Context(), useCache)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{
		"price":           q,
		"formatted_text":  formatGoldText(q),
	})
}

func formatGoldText(q *types.PriceQuote) string {
	sign := "+"
	if q.Change < 0 {
		sign = ""
	}
	return fmt.Sprintf("سعر الذهب الحالي: %.2f$ (%s%.2f%%) — المصدر: %s", q.Price, sign, q.ChangePct, q.Source)
}

// HandleForexPrice serves GET /forex-price/{pair}. The path pair segment
// uses "-" in place of "/" (e.g. "EUR-USD") since "/" cannot appear inside
// a single ServeMux path segment; normalizePair maps it back to "EUR/USD".
func (h *PublicHandlers) HandleForexPrice(w http.ResponseWriter, r *http.Request) {
	pair := normalizePair(r.PathValue("pair"))
	q, err := h.forex.Quote(r.Context(), pair)
	if err != nil {
		WriteError(w, apperr.New(apperr.ErrNotFound, "زوج العملة غير مدعوم"), h.logger)
		return
	}
	info := priceagg.ForexCatalog[pair]
	WriteSuccess(w, map[string]any{"pair": pair, "name_ar": info.NameAr, "price": q})
}

// HandleForexPairs serves GET /forex-pairs.
func (h *PublicHandlers) HandleForexPairs(w http.ResponseWriter, r *http.Request) {
	type pairInfo struct {
		Pair   string `json:"pair"`
		NameAr string `json:"name_ar"`
	}
	out := make([]pairInfo, 0, len(priceagg.ForexCatalog))
	for pair, info := range priceagg.ForexCatalog {
		out = append(out, pairInfo{Pair: pair, NameAr: info.NameAr})
	}
	WriteSuccess(w, out)
}

func normalizePair(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '-' {
			out = append(out, '/')
			continue
		}
		out = append(out, raw[i])
	}
	return string(out)
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	AnalysisType      string `json:"analysis_type"`
	UserQuestion      string `json:"user_question,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
	UserID            int64  `json:"user_id"`
}

// HandleAnalyze serves POST /analyze.
func (h *PublicHandlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	if req.UserID == 0 {
		WriteError(w, apperr.New(apperr.ErrValidation, "user_id مطلوب"), h.logger)
		return
	}

	extra := req.AdditionalContext
	if req.UserQuestion != "" {
		if extra != "" {
			extra = req.UserQuestion + "\n" + extra
		} else {
			extra = req.UserQuestion
		}
	}

	h.runAnalysis(w, r, req.UserID, types.AnalysisKind(req.AnalysisType), extra)
}

// AnalyzeForexRequest is the body of POST /analyze-forex.
type AnalyzeForexRequest struct {
	Pair              string `json:"pair"`
	AnalysisType      string `json:"analysis_type,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
	UserID            int64  `json:"user_id"`
}

// HandleAnalyzeForex serves POST /analyze-forex.
func (h *PublicHandlers) HandleAnalyzeForex(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeForexRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	if !priceagg.SupportedForexPair(req.Pair) {
		WriteError(w, apperr.New(apperr.ErrNotFound, "زوج العملة غير مدعوم"), h.logger)
		return
	}
	kind := types.KindQuick
	if req.AnalysisType != "" {
		kind = types.AnalysisKind(req.AnalysisType)
	}

	extra := "زوج العملة: " + req.Pair
	if req.AdditionalContext != "" {
		extra += "\n" + req.AdditionalContext
	}

	h.runAnalysis(w, r, req.UserID, kind, extra)
}

// AnalyzeChartRequest is the body of POST /analyze-chart.
type AnalyzeChartRequest struct {
	ImageData     string `json:"image_data"`
	CurrencyPair  string `json:"currency_pair"`
	Timeframe     string `json:"timeframe"`
	AnalysisNotes string `json:"analysis_notes,omitempty"`
	UserID        int64  `json:"user_id"`
}

// HandleAnalyzeChart serves POST /analyze-chart. Image bytes are not sent
// to the LLM in this service — the spec's LLM provider interface (§6.4) is
// text-only — so the chart request is folded into the textual context the
// same way the original bot composes its chart-analysis prompt.
func (h *PublicHandlers) HandleAnalyzeChart(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeChartRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ImageData == "" {
		WriteError(w, apperr.New(apperr.ErrValidation, "بيانات الصورة مطلوبة"), h.logger)
		return
	}

	extra := fmt.Sprintf("زوج/أداة: %s | الإطار الزمني: %s", req.CurrencyPair, req.Timeframe)
	if req.AnalysisNotes != "" {
		extra += "\n" + req.AnalysisNotes
	}

	h.runAnalysis(w, r, req.UserID, types.KindChart, extra)
}

func analysisResultPayload(result *pipeline.Result) map[string]any {
	return map[string]any{
		"analysis":        result.Analysis,
		"remaining_today": result.RemainingToday,
		"cached":          result.Cached,
	}
}

// HandleAnalysisTypes serves GET /analysis-types — the static catalog of
// the five recognized analysis kinds.
func (h *PublicHandlers) HandleAnalysisTypes(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, []string{
		string(types.KindQuick), string(types.KindDetailed), string(types.KindChart),
		string(types.KindNews), string(types.KindForecast),
	})
}

// HandleAPIStatus serves GET /api-status — a best-effort snapshot of the
// upstream dependencies, never failing the request itself.
func (h *PublicHandlers) HandleAPIStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
	}
	if _, err := h.gold.Current(r.Context(), true); err != nil {
		status["gold_price_provider"] = "degraded"
	} else {
		status["gold_price_provider"] = "ok"
	}
	if err := h.st.Ping(r.Context()); err != nil {
		status["store"] = "degraded"
	} else {
		status["store"] = "ok"
	}
	WriteSuccess(w, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil {
		err := apperr.New(apperr.ErrValidation, "جسم الطلب فارغ")
		WriteError(w, err, logger)
		return err
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		apiErr := apperr.New(apperr.ErrValidation, "جسم الطلب غير صالح").WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}
