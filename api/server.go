/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:      Request logging
  2. Recoverer:   Panic recovery (500 instead of crash)
  3. RequestID:   Unique ID per request for tracing
  4. CORS:        Cross-origin requests for frontend
  5. RequireAuth: Token verification on everything but /api/auth

ROUTE GROUPS:
  /api/auth/*           Dev token minting (public)
  /api/records/*        Time record CRUD and totals
  /api/goals,           Goal and conversion submission
  /api/conversions
  /api/approvals/*      Pending queue and decisions (admin)
  /api/users/*          User administration (admin)
  /api/rankings,        Monthly ranking and AI reports (admin)
  /api/reports
  /api/settings,        Per-user settings and commit prefill
  /api/commits

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Authentication middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/token", h.MintToken)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/me", h.Me)

			// Time record routes
			r.Route("/records", func(r chi.Router) {
				r.Get("/", h.ListRecords)
				r.Post("/", h.CreateRecord)
				r.Get("/daily", h.DailyTotal)
				r.Get("/monthly", h.MonthlyTotal)
				r.Put("/{id}", h.UpdateRecord)
				r.Delete("/{id}", h.DeleteRecord)
			})

			// Accounting routes
			r.Get("/accumulated", h.Accumulated)
			r.Route("/goals", func(r chi.Router) {
				r.Get("/", h.ListGoals)
				r.Post("/", h.SubmitGoal)
			})
			r.Route("/conversions", func(r chi.Router) {
				r.Get("/", h.ListConversions)
				r.Post("/", h.SubmitConversion)
			})

			// Settings and commit prefill
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", h.GetSettings)
				r.Put("/", h.PutSettings)
			})
			r.Get("/commits", h.CommitPrefill)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)

				r.Route("/approvals", func(r chi.Router) {
					r.Get("/pending", h.ListPending)
					r.Post("/{kind}/{id}/decide", h.Decide)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.ListUsers)
					r.Post("/{id}/role", h.SetUserRole)
				})
				r.Post("/preauthorized", h.PreAuthorize)

				r.Get("/rankings", h.Ranking)
				r.Route("/reports", func(r chi.Router) {
					r.Get("/", h.ListReports)
					r.Post("/", h.GenerateReport)
				})
			})
		})
	})

	return r
}
