package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if h.apiKey != "" {
				r.Use(AuthMiddleware(h.apiKey))
			}
			r.Get("/products", h.ListProducts)
			r.Get("/products/saved", h.SavedProducts)
			r.Post("/products/{itemCode}/saved", h.ToggleSaved)
			r.Get("/categories", h.Categories)
			r.Post("/sync", h.TriggerSync)
			r.Get("/sync/status", h.SyncStatus)
		})
	})

	return r
}
