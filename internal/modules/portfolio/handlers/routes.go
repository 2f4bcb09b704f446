package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleListPortfolios)
		r.Post("/", h.HandleCreatePortfolio)
		r.Get("/{portfolioID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetPortfolio(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Delete("/{portfolioID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDeletePortfolio(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Get("/{portfolioID}/positions", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetPositions(w, r, chi.URLParam(r, "portfolioID"))
		})
	})
}
