// Package handlers provides HTTP handlers for portfolio operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	portfolios *portfolio.PortfolioRepository
	positions  *portfolio.PositionRepository
	log        zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(
	portfolios *portfolio.PortfolioRepository,
	positions *portfolio.PositionRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		portfolios: portfolios,
		positions:  positions,
		log:        log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleCreatePortfolio handles POST /api/portfolios
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	p := &domain.Portfolio{
		ID:        uuid.New(),
		Name:      req.Name,
		Currency:  req.Currency,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.portfolios.Create(p); err != nil {
		h.log.Error().Err(err).Msg("Failed to create portfolio")
		http.Error(w, "Failed to create portfolio", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": portfolioJSON(*p),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleListPortfolios handles GET /api/portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolios.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		http.Error(w, "Failed to list portfolios", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, 0, len(portfolios))
	for _, p := range portfolios {
		items = append(items, portfolioJSON(p))
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"portfolios": items,
			"count":      len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetPortfolio handles GET /api/portfolios/{portfolioID}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	p, err := h.portfolios.GetByID(id)
	if errors.Is(err, domain.ErrPortfolioNotFound) {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio")
		http.Error(w, "Failed to get portfolio", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": portfolioJSON(*p),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetPositions handles GET /api/portfolios/{portfolioID}/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	if _, err := h.portfolios.GetByID(id); err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			http.Error(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to get portfolio")
		http.Error(w, "Failed to get portfolio", http.StatusInternalServerError)
		return
	}

	positions, err := h.positions.GetByPortfolio(id)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query positions")
		http.Error(w, "Failed to query positions", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, 0, len(positions))
	for _, pos := range positions {
		items = append(items, map[string]interface{}{
			"portfolio_id": pos.PortfolioID.String(),
			"asset_id":     pos.AssetID.String(),
			"quantity":     pos.Quantity.String(),
			"average_cost": pos.AverageCost.String(),
			"updated_at":   pos.UpdatedAt.Format(time.RFC3339),
		})
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"positions": items,
			"count":     len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeletePortfolio handles DELETE /api/portfolios/{portfolioID}
func (h *Handler) HandleDeletePortfolio(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	if err := h.portfolios.Delete(id); err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			http.Error(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to delete portfolio")
		http.Error(w, "Failed to delete portfolio", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"deleted": true,
			"id":      id.String(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func portfolioJSON(p domain.Portfolio) map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID.String(),
		"name":       p.Name,
		"currency":   p.Currency,
		"created_at": p.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
