package router

import (
	"net/http"

	"stockvault-api/internal/handler"
	"stockvault-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	RedeemHandler    *handler.RedeemHandler
	InventoryHandler *handler.InventoryHandler
	UserHandler      *handler.UserHandler
	KeyHandler       *handler.KeyHandler
	IngestHandler    *handler.IngestHandler
	AdminHandler     *handler.AdminHandler
	AuthHandler      *handler.AuthHandler
	AuthMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Token", "X-Actor-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if cfg.AuthHandler != nil {
				r.Route("/auth", func(r chi.Router) {
					r.Post("/token", cfg.AuthHandler.GenerateToken)
					r.Post("/revoke", cfg.AuthHandler.RevokeToken)
					r.Post("/refresh", cfg.AuthHandler.RefreshToken)
				})
			}

			// End-user operations, relayed by the gateway
			if cfg.RedeemHandler != nil {
				r.Post("/redeem", cfg.RedeemHandler.Redeem)
			}
			if cfg.InventoryHandler != nil {
				r.Post("/fetch", cfg.InventoryHandler.Fetch)
				r.Get("/stock/{kind}", cfg.InventoryHandler.Stock)
			}
			if cfg.UserHandler != nil {
				r.Get("/users/{user_id}/profile", cfg.UserHandler.Profile)
			}

			// Admin operations (role enforced per handler via X-Actor-ID)
			r.Route("/admin", func(r chi.Router) {
				if cfg.UserHandler != nil {
					r.Get("/users", cfg.UserHandler.List)
					r.Post("/users/{user_id}/ban", cfg.UserHandler.Ban)
					r.Post("/users/{user_id}/unban", cfg.UserHandler.Unban)
					r.Post("/users/{user_id}/revoke-plans", cfg.UserHandler.RevokePlans)
					r.Post("/admins/{user_id}", cfg.UserHandler.Promote)
					r.Delete("/admins/{user_id}", cfg.UserHandler.Demote)
				}
				if cfg.KeyHandler != nil {
					r.Post("/keys", cfg.KeyHandler.Generate)
					r.Post("/keys/tiers", cfg.KeyHandler.GenerateTiers)
					r.Post("/keys/superpro", cfg.KeyHandler.GenerateSuperPro)
					r.Post("/keys/cards", cfg.KeyHandler.GenerateCard)
				}
				if cfg.IngestHandler != nil {
					r.Post("/ingestion/{kind}/start", cfg.IngestHandler.Start)
					r.Post("/ingestion/feed", cfg.IngestHandler.Feed)
					r.Post("/ingestion/finish", cfg.IngestHandler.Finish)
					r.Post("/ingestion/cancel", cfg.IngestHandler.Cancel)
					r.Post("/broadcast/start", cfg.IngestHandler.StartBroadcast)
					r.Post("/broadcast/payload", cfg.IngestHandler.Feed)
				}
				if cfg.AdminHandler != nil {
					r.Get("/stats", cfg.AdminHandler.GetStats)
				}
			})
		})
	})

	return r
}
