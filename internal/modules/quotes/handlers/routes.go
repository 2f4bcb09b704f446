package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all asset and quote routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleListAssets)
		r.Post("/", h.HandleRegisterAsset)
		r.Get("/{assetID}/quotes", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetQuotes(w, r, chi.URLParam(r, "assetID"))
		})
		r.Post("/{assetID}/quotes", func(w http.ResponseWriter, r *http.Request) {
			h.HandleIngestQuotes(w, r, chi.URLParam(r, "assetID"))
		})
	})
}
