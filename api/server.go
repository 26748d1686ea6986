/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. hlog:       zerolog request logger, access log line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web client

ROUTE GROUPS:
  /api/stores/*         Stores, inventory, transactions, items, export
  /api/notifications/*  Notification stream
  /api/scenarios/*      Demo data
  /healthz              Liveness probe

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
	"github.com/rs/zerolog/hlog"
)

// RouterOptions tunes the router.
type RouterOptions struct {
	// CORSOrigins lists allowed origins. Empty allows none.
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(h.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Post("/", h.CreateOrJoinStore)

			r.Route("/{storeID}", func(r chi.Router) {
				r.Get("/", h.GetStore)
				r.Get("/inventory", h.GetInventory)
				r.Get("/transactions", h.ListTransactions)
				r.Post("/transactions", h.CreateTransaction)
				r.Get("/export", h.Export)
				r.Get("/stream", h.StreamStore)

				r.Post("/items", h.CreateItem)
				r.Put("/items/{itemID}", h.RenameItem)
				r.Post("/items/{itemID}/buy", h.BuyItem)
				r.Post("/items/{itemID}/sell", h.SellItem)
			})
		})

		r.Get("/notifications/stream", h.StreamNotifications)

		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/demo", h.LoadDemo)
		})
	})

	return r
}
