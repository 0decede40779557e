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
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/pratiche/*   Case lifecycle, history and ledger
  /api/movimenti/*  Ledger entry mutation
  /api/clienti/*    Client registry
  /api/debitori/*   Debtor registry
  /api/fasi         Phase catalog
  /api/scenarios/*  Demo scenarios
  /api/reset        Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Pratica routes
		r.Route("/pratiche", func(r chi.Router) {
			r.Get("/", h.ListPratiche)
			r.Post("/", h.OpenPratica)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPratica)
				r.Patch("/", h.UpdatePratica)
				r.Delete("/", h.DeletePratica)
				r.Post("/avanza", h.AdvancePratica)
				r.Post("/riapri", h.ReopenPratica)
				r.Post("/disattiva", h.DeactivatePratica)
				r.Post("/riattiva", h.ReactivatePratica)
				r.Get("/storico", h.GetStorico)
				r.Get("/movimenti", h.ListMovimenti)
				r.Post("/movimenti", h.RecordMovimento)
				r.Get("/totali", h.GetTotali)
				r.Get("/documenti", h.ListDocumenti)
				r.Post("/documenti", h.CreateDocumento)
				r.Get("/alerts", h.ListAlerts)
				r.Post("/alerts", h.CreateAlert)
				r.Get("/tickets", h.ListTickets)
				r.Post("/tickets", h.CreateTicket)
			})
		})

		// Movimento routes
		r.Route("/movimenti", func(r chi.Router) {
			r.Put("/{id}", h.UpdateMovimento)
			r.Delete("/{id}", h.DeleteMovimento)
		})

		// Registry routes
		r.Route("/clienti", func(r chi.Router) {
			r.Get("/", h.ListClienti)
			r.Post("/", h.CreateCliente)
			r.Get("/{id}", h.GetCliente)
			r.Put("/{id}", h.UpdateCliente)
			r.Delete("/{id}", h.DeleteCliente)
		})

		r.Route("/debitori", func(r chi.Router) {
			r.Get("/", h.ListDebitori)
			r.Post("/", h.CreateDebitore)
			r.Get("/{id}", h.GetDebitore)
			r.Put("/{id}", h.UpdateDebitore)
			r.Delete("/{id}", h.DeleteDebitore)
		})

		// Configuration routes
		r.Get("/fasi", h.ListFasi)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Post("/reset", h.Reset)
	})

	// No frontend is bundled; the root serves a short API index.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Recupero Crediti API</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Recupero Crediti API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/pratiche">/api/pratiche</a> - List pratiche</li>
<li><a href="/api/clienti">/api/clienti</a> - List clienti</li>
<li><a href="/api/debitori">/api/debitori</a> - List debitori</li>
<li><a href="/api/fasi">/api/fasi</a> - Phase catalog</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
