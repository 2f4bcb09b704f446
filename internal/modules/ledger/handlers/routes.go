package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios/{portfolioID}/transactions", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleListTransactions(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleCreateTransaction(w, r, chi.URLParam(r, "portfolioID"))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdateTransaction(w, r, chi.URLParam(r, "portfolioID"), chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDeleteTransaction(w, r, chi.URLParam(r, "id"))
		})
	})

	r.Put("/portfolios/{portfolioID}/assets/{assetID}/transactions", func(w http.ResponseWriter, r *http.Request) {
		h.HandleReplaceForAsset(w, r, chi.URLParam(r, "portfolioID"), chi.URLParam(r, "assetID"))
	})
}
