package httpapi

import "net/http"

// NewRouter builds the full HTTP surface (spec §6.1), mirroring
// cmd/agentflow/server.go's plain stdlib http.NewServeMux wiring — this
// teacher routes with stdlib mux rather than chi/gin even though other pack
// repos pull in a router library, so this edge follows the teacher's own
// choice rather than the wider pack's.
func NewRouter(public *PublicHandlers, authH *AuthHandlers, adminH *AdminHandlers, adminAuth *AdminAuth) *http.ServeMux {
	mux := http.NewServeMux()

	// Public.
	mux.HandleFunc("GET /health", public.HandleHealth)
	mux.HandleFunc("GET /api/gold-price", public.HandleGoldPrice)
	mux.HandleFunc("GET /api/forex-price/{pair}", public.HandleForexPrice)
	mux.HandleFunc("GET /api/forex-pairs", public.HandleForexPairs)
	mux.HandleFunc("POST /api/analyze", public.HandleAnalyze)
	mux.HandleFunc("POST /api/analyze-forex", public.HandleAnalyzeForex)
	mux.HandleFunc("POST /api/analyze-chart", public.HandleAnalyzeChart)
	mux.HandleFunc("GET /api/analysis-types", public.HandleAnalysisTypes)
	mux.HandleFunc("GET /api/api-status", public.HandleAPIStatus)

	// Auth.
	mux.HandleFunc("POST /api/auth/register", authH.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authH.HandleLogin)
	mux.HandleFunc("GET /api/auth/user/{user_id}", authH.HandleGetUser)
	mux.HandleFunc("GET /api/auth/check-analysis-permission/{user_id}", authH.HandleCheckAnalysisPermission)

	// Admin: login is unauthenticated (it's how the token is obtained),
	// everything else behind AdminAuth.Middleware.
	mux.HandleFunc("POST /api/admin/login", adminH.HandleLogin)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/admin/dashboard", adminH.HandleDashboard)
	protected.HandleFunc("GET /api/admin/users", adminH.HandleListUsers)
	protected.HandleFunc("GET /api/admin/users/{user_id}", adminH.HandleUserDetail)
	protected.HandleFunc("POST /api/admin/users/toggle-status", adminH.HandleToggleStatus)
	protected.HandleFunc("POST /api/admin/users/update-tier", adminH.HandleUpdateTier)
	protected.HandleFunc("GET /api/admin/analysis-logs", adminH.HandleAnalysisLogs)
	protected.HandleFunc("GET /api/admin/system-status", adminH.HandleSystemStatus)
	mux.Handle("/api/admin/", adminAuth.Middleware(protected))

	return mux
}
