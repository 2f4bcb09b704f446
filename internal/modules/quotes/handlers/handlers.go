// Package handlers provides HTTP handlers for asset and quote operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/modules/quotes"
)

// Handler handles asset and quote HTTP requests
type Handler struct {
	service *quotes.Service
	assets  *quotes.AssetRepository
	log     zerolog.Logger
}

// NewHandler creates a new quotes handler
func NewHandler(service *quotes.Service, assets *quotes.AssetRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		assets:  assets,
		log:     log.With().Str("handler", "quotes").Logger(),
	}
}

// HandleRegisterAsset handles POST /api/assets
func (h *Handler) HandleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "Symbol is required", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = string(domain.AssetStock)
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	asset, err := h.service.RegisterAsset(req.Symbol, req.Name, domain.AssetType(req.Type), req.Currency)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to register asset")
		http.Error(w, "Failed to register asset", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": assetJSON(*asset),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleListAssets handles GET /api/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		http.Error(w, "Failed to list assets", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, 0, len(assets))
	for _, asset := range assets {
		items = append(items, assetJSON(asset))
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"assets": items,
			"count":  len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

type quotePoint struct {
	Timestamp string          `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// HandleIngestQuotes handles POST /api/assets/{assetID}/quotes
func (h *Handler) HandleIngestQuotes(w http.ResponseWriter, r *http.Request, assetIDStr string) {
	assetID, err := uuid.Parse(assetIDStr)
	if err != nil {
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Quotes []quotePoint `json:"quotes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	series := make([]domain.Quote, 0, len(body.Quotes))
	for _, p := range body.Quotes {
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			ts, err = domain.ParseDate(p.Timestamp)
			if err != nil {
				http.Error(w, "Invalid quote timestamp, expected RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}
		series = append(series, domain.Quote{
			AssetID:   assetID,
			Timestamp: ts,
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			Volume:    p.Volume,
		})
	}

	if err := h.service.IngestSeries(assetID, series); err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			http.Error(w, "Asset not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to ingest quotes")
		http.Error(w, "Failed to ingest quotes", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"asset_id": assetID.String(),
			"ingested": len(series),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetQuotes handles GET /api/assets/{assetID}/quotes
func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request, assetIDStr string) {
	assetID, err := uuid.Parse(assetIDStr)
	if err != nil {
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	if startStr := r.URL.Query().Get("start_date"); startStr != "" {
		start, err = domain.ParseDate(startStr)
		if err != nil {
			http.Error(w, "Invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if endStr := r.URL.Query().Get("end_date"); endStr != "" {
		end, err = domain.ParseDate(endStr)
		if err != nil {
			http.Error(w, "Invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	series, err := h.service.GetSeries(assetID, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query quotes")
		http.Error(w, "Failed to query quotes", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, 0, len(series))
	for _, q := range series {
		items = append(items, map[string]interface{}{
			"timestamp": q.Timestamp.Format(time.RFC3339),
			"open":      q.Open.String(),
			"high":      q.High.String(),
			"low":       q.Low.String(),
			"close":     q.Close.String(),
			"volume":    q.Volume,
		})
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"asset_id": assetID.String(),
			"quotes":   items,
			"count":    len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func assetJSON(asset domain.Asset) map[string]interface{} {
	return map[string]interface{}{
		"id":       asset.ID.String(),
		"symbol":   asset.Symbol,
		"name":     asset.Name,
		"type":     string(asset.Type),
		"currency": asset.Currency,
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
