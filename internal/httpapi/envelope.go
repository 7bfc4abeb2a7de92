// Package httpapi implements HTTPEdge: the route table, a uniform JSON
// envelope, and error-code→status mapping (spec §4.7). Grounded on
// api/handlers/common.go's WriteJSON/WriteSuccess/WriteError/
// mapErrorCodeToHTTPStatus, generalized from the teacher's provider-routing
// error taxonomy to apperr's analysis-service taxonomy.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
)

// Envelope is the uniform response shape spec §4.7 requires:
// {success, data?, error?, ...}. Admin handlers embed extra fields by
// composing their own response structs rather than widening this type.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes data as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes {success:true, data} with HTTP 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

// WriteError maps err to an HTTP status and localised message per spec
// §4.7's table, and writes the uniform envelope. apperr.New callers that
// set WithHTTPStatus override the table; everything else is derived from
// the error code. Errors that are not *apperr.Error are treated as
// unhandled exceptions (500, generic Arabic text).
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	appErr, ok := apperr.As(err)
	if !ok {
		if logger != nil {
			logger.Error("unhandled error", zap.Error(err))
		}
		WriteJSON(w, http.StatusInternalServerError, Envelope{
			Success: false, Error: "حدث خطأ غير متوقع، يرجى المحاولة لاحقاً", Timestamp: time.Now().UTC(),
		})
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(appErr.Code)
	}

	if logger != nil {
		logger.Warn("request failed",
			zap.String("code", string(appErr.Code)), zap.String("message", appErr.Message),
			zap.Int("status", status), zap.Error(appErr.Cause))
	}

	// Per spec §4.7's table, auth/quota/upstream failures are carried as a
	// 200 with {success:false} rather than a 4xx/5xx — validation (400),
	// unauthorized (401), forbidden (403), not-found (404), not-initialised
	// (503), and store/internal/unhandled failures (500) use a non-200 status.
	WriteJSON(w, status, Envelope{Success: false, Error: appErr.Message, Timestamp: time.Now().UTC()})
}

func mapErrorCodeToHTTPStatus(code apperr.ErrorCode) int {
	switch code {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrAuthFailure, apperr.ErrQuotaExhausted, apperr.ErrUpstreamUnavailable, apperr.ErrUpstreamSemantic:
		return http.StatusOK
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrNotInitialised:
		return http.StatusServiceUnavailable
	case apperr.ErrStoreFailure, apperr.ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
