package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all fiscal routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{portfolioID}/fiscal", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetFiscalResult(w, r, chi.URLParam(r, "portfolioID"))
	})
}
