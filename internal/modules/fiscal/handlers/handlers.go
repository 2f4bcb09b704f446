// Package handlers provides HTTP handlers for fiscal reporting.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/modules/fiscal"
)

// Handler handles fiscal HTTP requests
type Handler struct {
	service *fiscal.Service
	log     zerolog.Logger
}

// NewHandler creates a new fiscal handler
func NewHandler(service *fiscal.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "fiscal").Logger(),
	}
}

// HandleGetFiscalResult handles GET /api/portfolios/{portfolioID}/fiscal
func (h *Handler) HandleGetFiscalResult(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	var window fiscal.Window
	if startStr := r.URL.Query().Get("start_date"); startStr != "" {
		start, err := domain.ParseDate(startStr)
		if err != nil {
			http.Error(w, "Invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		window.Start = start
	}
	if endStr := r.URL.Query().Get("end_date"); endStr != "" {
		end, err := domain.ParseDate(endStr)
		if err != nil {
			http.Error(w, "Invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		window.End = end
	}

	result, err := h.service.CalculateResult(portfolioID, window)
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			http.Error(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to calculate fiscal result")
		http.Error(w, "Failed to calculate fiscal result", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, map[string]interface{}{
			"symbol":     item.Symbol,
			"date_buy":   domain.FormatDate(item.BuyDate),
			"date_sell":  domain.FormatDate(item.SellDate),
			"quantity":   item.Quantity.String(),
			"price_buy":  item.BuyPrice.String(),
			"price_sell": item.SellPrice.String(),
			"result":     item.Gain.String(),
		})
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"items":        items,
			"count":        len(items),
			"total_result": result.Total.String(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
