package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/goldnightmare/goldservice/internal/apperr"
	"github.com/goldnightmare/goldservice/internal/config"
)

// adminClaims is the JWT payload for an admin bearer token. REDESIGN FLAG
// (spec §9): replaces the original's single fixed placeholder password
// check with a real signed, expiring token, grounded on
// cmd/agentflow/middleware.go's JWTAuth (HS256 HMAC parsing, Bearer-prefix
// extraction) narrowed to this service's single "admin" role.
type adminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth issues and validates the admin bearer token.
type AdminAuth struct {
	cfg    config.AdminConfig
	logger *zap.Logger
}

// NewAdminAuth builds AdminAuth from the configured single admin account.
func NewAdminAuth(cfg config.AdminConfig, logger *zap.Logger) *AdminAuth {
	return &AdminAuth{cfg: cfg, logger: logger.With(zap.String("component", "httpapi.adminauth"))}
}

// Login validates username/password against the single configured admin
// account and returns a signed bearer token on success.
func (a *AdminAuth) Login(username, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) != 1 {
		return "", apperr.New(apperr.ErrAuthFailure, "بيانات الدخول غير صحيحة")
	}

	ttl := a.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := time.Now().UTC()
	claims := adminClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		return "", apperr.New(apperr.ErrInternal, "تعذر إصدار رمز الدخول").WithCause(err)
	}
	return signed, nil
}

type adminContextKey struct{}

// Middleware requires a valid "Authorization: Bearer <token>" admin token.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			WriteError(w, apperr.New(apperr.ErrUnauthorized, "رأس التفويض مفقود أو غير صحيح"), a.logger)
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenStr, &adminClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperr.New(apperr.ErrUnauthorized, "طريقة توقيع غير مدعومة")
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			a.logger.Debug("admin token rejected", zap.Error(err))
			WriteError(w, apperr.New(apperr.ErrUnauthorized, "رمز الدخول غير صالح أو منتهي"), a.logger)
			return
		}
		claims, ok := token.Claims.(*adminClaims)
		if !ok || claims.Role != "admin" {
			WriteError(w, apperr.New(apperr.ErrForbidden, "صلاحيات غير كافية"), a.logger)
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey{}, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminUsername extracts the authenticated admin's username from ctx, set
// by Middleware.
func AdminUsername(ctx context.Context) string {
	if v, ok := ctx.Value(adminContextKey{}).(string); ok {
		return v
	}
	return ""
}
