/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zerolog:    Structured request logging
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/auth/login      Public
  /api/patients/*      Authenticated; writes role-gated, delete admin-only
  /api/cases/*         Authenticated; writes role-gated, delete admin-only
  /api/invoices/*      Authenticated; create/pay/cancel role-gated
  /api/treatments/*    Catalog; reads open to staff, writes admin-only
  /api/users/*         Admin-only
  /healthz             Public liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", h.ListPatients)
				r.Post("/", h.CreatePatient)
				r.Get("/{id}", h.GetPatient)
				r.Put("/{id}", h.UpdatePatient)
				r.Delete("/{id}", h.DeletePatient)
			})

			r.Route("/cases", func(r chi.Router) {
				r.Get("/", h.ListCases)
				r.Post("/", h.CreateCase)
				r.Get("/{id}", h.GetCase)
				r.Put("/{id}", h.UpdateCase)
				r.Delete("/{id}", h.DeleteCase)
				r.Put("/{id}/treatments/{tid}", h.UpdateCaseTreatmentStatus)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.ListInvoices)
				r.Post("/", h.CreateInvoice)
				r.Get("/{id}", h.GetInvoice)
				r.Post("/{id}/pay", h.PayInvoice)
				r.Post("/{id}/cancel", h.CancelInvoice)
				r.Get("/{id}/pdf", h.InvoicePDF)
			})

			r.Route("/treatments", func(r chi.Router) {
				r.Get("/", h.ListTreatments)
				r.Post("/", h.CreateTreatment)
				r.Put("/{id}", h.UpdateTreatment)
				r.Delete("/{id}", h.DeleteTreatment)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Put("/{id}", h.UpdateUser)
			})
		})
	})

	return r
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
