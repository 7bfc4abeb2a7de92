package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/auth"
)

// AuthHandlers serves the account surface: register/login, the public user
// projection, and the permission-check endpoint.
type AuthHandlers struct {
	engine *auth.Engine
	logger *zap.Logger
}

// NewAuthHandlers builds AuthHandlers.
func NewAuthHandlers(engine *auth.Engine, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{engine: engine, logger: logger.With(zap.String("component", "httpapi.auth"))}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// HandleRegister serves POST /auth/register.
func (h *AuthHandlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	proj, err := h.engine.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, proj)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin serves POST /auth/login.
func (h *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req, h.logger); err != nil {
		return
	}
	proj, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, proj)
}

// HandleGetUser serves GET /auth/user/{user_id}.
func (h *AuthHandlers) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathUserID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	proj, err := h.engine.GetUserProjection(r.Context(), userID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, proj)
}

// HandleCheckAnalysisPermission serves
// GET /auth/check-analysis-permission/{user_id}.
func (h *AuthHandlers) HandleCheckAnalysisPermission(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathUserID(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	can, remaining, err := h.engine.CanAnalyze(r.Context(), userID)
	if err != nil {
		// A quota/auth-taxonomy error still answers the question the
		// endpoint promises rather than failing the request — the caller
		// asked "can I analyze", and "no, because X" is an answer.
		if appErr, ok := apperr.As(err); ok {
			WriteSuccess(w, map[string]any{
				"can_analyze":       false,
				"message":           appErr.Message,
				"remaining_analyses": 0,
			})
			return
		}
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]any{
		"can_analyze":        can,
		"message":            "",
		"remaining_analyses": remaining,
	})
}

func parsePathUserID(r *http.Request) (int64, error) {
	raw := r.PathValue("user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.ErrValidation, "معرّف المستخدم غير صالح")
	}
	return id, nil
}
