// Package handlers provides HTTP handlers for snapshot operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/modules/snapshots"
)

// Backfills larger than a year are almost always a client bug; the engine
// itself has no cap.
const maxBackfillDays = 365

// Handler handles snapshot HTTP requests
type Handler struct {
	reconstructor *snapshots.Reconstructor
	backfiller    *snapshots.Backfiller
	repository    *snapshots.SnapshotRepository
	log           zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(
	reconstructor *snapshots.Reconstructor,
	backfiller *snapshots.Backfiller,
	repository *snapshots.SnapshotRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		reconstructor: reconstructor,
		backfiller:    backfiller,
		repository:    repository,
		log:           log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleCreateSnapshot handles POST /api/portfolios/{portfolioID}/snapshots
func (h *Handler) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Date      string `json:"date"`
		Overwrite bool   `json:"overwrite"`
	}
	if r.Body != nil {
		// An empty body means "snapshot yesterday".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	// Yesterday is the default: today's market data is still moving.
	date := domain.DateOf(time.Now().UTC().AddDate(0, 0, -1))
	if req.Date != "" {
		date, err = domain.ParseDate(req.Date)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	snapshot, positions, err := h.reconstructor.Snapshot(portfolioID, date, req.Overwrite)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSnapshotExists):
			http.Error(w, "Snapshot already exists for date", http.StatusConflict)
		case errors.Is(err, domain.ErrPortfolioNotFound):
			http.Error(w, "Portfolio not found", http.StatusNotFound)
		default:
			h.log.Error().Err(err).Msg("Failed to create snapshot")
			http.Error(w, "Failed to create snapshot", http.StatusInternalServerError)
		}
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"snapshot":  snapshotJSON(*snapshot),
			"positions": positionSnapshotsJSON(positions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleBackfill handles POST /api/portfolios/{portfolioID}/snapshots/backfill
func (h *Handler) HandleBackfill(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	var req struct {
		FromDate  string `json:"from_date"`
		ToDate    string `json:"to_date"`
		Overwrite bool   `json:"overwrite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	from, err := domain.ParseDate(req.FromDate)
	if err != nil {
		http.Error(w, "Invalid from_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := domain.ParseDate(req.ToDate)
	if err != nil {
		http.Error(w, "Invalid to_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		http.Error(w, "from_date must not be after to_date", http.StatusBadRequest)
		return
	}
	if int(to.Sub(from).Hours()/24)+1 > maxBackfillDays {
		http.Error(w, "Backfill range exceeds 365 days", http.StatusBadRequest)
		return
	}

	result, err := h.backfiller.Run(portfolioID, from, to, req.Overwrite)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to run backfill")
		http.Error(w, "Failed to run backfill", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetHistory handles GET /api/portfolios/{portfolioID}/snapshots
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	end := domain.DateOf(time.Now().UTC())
	start := end.AddDate(0, -1, 0)

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
	includePositions := r.URL.Query().Get("include_positions") == "true"

	history, err := h.repository.GetRange(portfolioID, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query snapshots")
		http.Error(w, "Failed to query snapshots", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, 0, len(history))
	for _, snapshot := range history {
		item := snapshotJSON(snapshot)
		if includePositions {
			positions, err := h.repository.GetPositions(snapshot.ID)
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to query position snapshots")
				http.Error(w, "Failed to query position snapshots", http.StatusInternalServerError)
				return
			}
			item["positions"] = positionSnapshotsJSON(positions)
		}
		items = append(items, item)
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"snapshots": items,
			"count":     len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetMetrics handles GET /api/portfolios/{portfolioID}/snapshots/metrics
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	end := domain.DateOf(time.Now().UTC())
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

	metrics, err := h.reconstructor.ComputeMetrics(portfolioID, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute metrics")
		http.Error(w, "Failed to compute metrics", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": metrics,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"start":     domain.FormatDate(start),
			"end":       domain.FormatDate(end),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteSnapshot handles DELETE /api/portfolios/{portfolioID}/snapshots/{date}
func (h *Handler) HandleDeleteSnapshot(w http.ResponseWriter, r *http.Request, portfolioIDStr, dateStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := h.repository.Delete(portfolioID, date); err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			http.Error(w, "Snapshot not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to delete snapshot")
		http.Error(w, "Failed to delete snapshot", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"deleted": true,
			"date":    domain.FormatDate(date),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func snapshotJSON(s domain.PortfolioSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"id":                s.ID.String(),
		"portfolio_id":      s.PortfolioID.String(),
		"date":              domain.FormatDate(s.Date),
		"total_invested":    s.TotalInvested.String(),
		"total_value":       s.TotalValue.String(),
		"cash_balance":      s.CashBalance.String(),
		"daily_pnl":         s.DailyPnL.String(),
		"daily_pnl_percent": s.DailyPnLPercent.String(),
		"total_pnl":         s.TotalPnL.String(),
		"total_pnl_percent": s.TotalPnLPercent.String(),
		"position_count":    s.PositionCount,
		"asset_count":       s.AssetCount,
		"created_at":        s.CreatedAt.Format(time.RFC3339),
	}
}

func positionSnapshotsJSON(positions []domain.PositionSnapshot) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(positions))
	for _, pos := range positions {
		items = append(items, map[string]interface{}{
			"id":                   pos.ID.String(),
			"asset_id":             pos.AssetID.String(),
			"symbol":               pos.Symbol,
			"date":                 domain.FormatDate(pos.Date),
			"quantity":             pos.Quantity.String(),
			"average_buy_price":    pos.AverageBuyPrice.String(),
			"current_price":        pos.CurrentPrice.String(),
			"total_cost":           pos.TotalCost.String(),
			"current_value":        pos.CurrentValue.String(),
			"position_pnl":         pos.PositionPnL.String(),
			"position_pnl_percent": pos.PositionPnLPercent.String(),
			"daily_change":         pos.DailyChange.String(),
			"daily_change_percent": pos.DailyChangePercent.String(),
			"portfolio_weight":     pos.PortfolioWeight.String(),
		})
	}
	return items
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
