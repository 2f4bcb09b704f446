package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all snapshot routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios/{portfolioID}/snapshots", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetHistory(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleCreateSnapshot(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Post("/backfill", func(w http.ResponseWriter, r *http.Request) {
			h.HandleBackfill(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetMetrics(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Delete("/{date}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDeleteSnapshot(w, r, chi.URLParam(r, "portfolioID"), chi.URLParam(r, "date"))
		})
	})
}
