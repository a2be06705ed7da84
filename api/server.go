/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request log (method, path, status, duration, request id)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/members/*        Balances, entries, beneficiaries, disbursements
  /api/contacts/{id}    Beneficiary contact removal
  /api/vesting/*        Vesting lookups
  /api/admin/*          Cache invalidation
  /api/scenarios/*      Demo scenarios
  /api/health           Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/members/{badge}", func(r chi.Router) {
			r.Get("/balance", h.GetMemberBalance)
			r.Get("/entries", h.GetEntries)
			r.Post("/disbursements", h.Disburse)

			r.Route("/beneficiaries", func(r chi.Router) {
				r.Get("/", h.ListBeneficiaries)
				r.Post("/", h.CreateBeneficiary)
				r.Get("/{suffix}/balance", h.GetBeneficiaryBalance)
				r.Patch("/{suffix}", h.UpdateBeneficiary)
				r.Delete("/{suffix}", h.DeleteBeneficiary)
			})
		})

		r.Delete("/contacts/{id}", h.DeleteContact)

		r.Route("/vesting", func(r chi.Router) {
			r.Get("/new-plan-year", h.GetNewPlanEffectiveYear)
			r.Get("/{schedule}/percent", h.GetVestingPercent)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/vesting/invalidate", h.InvalidateVesting)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
