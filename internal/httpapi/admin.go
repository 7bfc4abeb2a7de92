package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/admin"
	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/auth"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/types"
)

// AdminHandlers serves the /admin surface: the dashboard, paginated user
// and log listings, and the two user-mutating operations.
type AdminHandlers struct {
	queries *admin.Queries
	engine  *auth.Engine
	auth    *AdminAuth
	st      *store.Store
	logger  *zap.Logger
}

// NewAdminHandlers builds AdminHandlers.
func NewAdminHandlers(queries *admin.Queries, engine *auth.Engine, adminAuth *AdminAuth, st *store.Store, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{queries: queries, engine: engine, auth: adminAuth, st: st, logger: logger.With(zap.String("component", "httpapi.admin"))}
}

// AdminLoginRequest is the body of POST /admin/login.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin serves POST /admin/login.
func (h *AdminHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{"token": token})
}

// HandleDashboard serves GET /admin/dashboard.
func (h *AdminHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.queries.Dashboard(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, dash)
}

// HandleListUsers serves GET /admin/users?page=&per_page=.
func (h *AdminHandlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingParams(r)
	out, err := h.queries.ListUsers(r.Context(), page, perPage)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, out)
}

// HandleUserDetail serves GET /admin/users/{id}.
func (h *AdminHandlers) HandleUserDetail(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathUserID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	detail, err := h.queries.UserDetail(r.Context(), userID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, detail)
}

// ToggleStatusRequest is the body of POST /admin/users/toggle-status.
type ToggleStatusRequest struct {
	UserID int64 `json:"user_id"`
}

// HandleToggleStatus serves POST /admin/users/toggle-status.
func (h *AdminHandlers) HandleToggleStatus(w http.ResponseWriter, r *http.Request) {
	var req ToggleStatusRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	newStatus, err := h.queries.ToggleStatus(r.Context(), req.UserID, AdminUsername(r.Context()))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{"user_id": req.UserID, "status": newStatus})
}

// UpdateTierRequest is the body of POST /admin/users/update-tier.
type UpdateTierRequest struct {
	UserID int64  `json:"user_id"`
	Tier   string `json:"tier"`
}

// HandleUpdateTier serves POST /admin/users/update-tier.
func (h *AdminHandlers) HandleUpdateTier(w http.ResponseWriter, r *http.Request) {
	var req UpdateTierRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	if err := h.engine.UpdateTier(r.Context(), req.UserID, types.Tier(req.Tier), AdminUsername(r.Context())); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{"user_id": req.UserID, "tier": req.Tier})
}

// HandleAnalysisLogs serves GET /admin/analysis-logs?page=&per_page=&user_id=.
func (h *AdminHandlers) HandleAnalysisLogs(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingParams(r)
	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteError(w, apperr.New(apperr.ErrValidation, "معرّف المستخدم غير صالح"), h.logger)
			return
		}
		userID = parsed
	}
	out, err := h.queries.ListLogs(r.Context(), page, perPage, userID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, out)
}

// HandleSystemStatus serves GET /admin/system-status.
func (h *AdminHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{}
	if err := h.st.Ping(r.Context()); err != nil {
		status["store"] = "degraded"
	} else {
		status["store"] = "ok"
	}
	WriteSuccess(w, status)
}

func pagingParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 50
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			perPage = v
		}
	}
	return page, perPage
}
