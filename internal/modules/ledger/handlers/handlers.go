// Package handlers provides HTTP handlers for ledger operations.
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
	"github.com/ivanmoreno/cartera/internal/modules/ledger"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

type transactionRequest struct {
	AssetID    string          `json:"asset_id"`
	Type       string          `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
	ExecutedAt string          `json:"executed_at"`
}

func (req *transactionRequest) toInput(portfolioID uuid.UUID) (ledger.TransactionInput, error) {
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return ledger.TransactionInput{}, errors.New("invalid asset_id")
	}

	executedAt, err := time.Parse(time.RFC3339, req.ExecutedAt)
	if err != nil {
		// Bare dates are accepted and pinned to midnight UTC.
		executedAt, err = domain.ParseDate(req.ExecutedAt)
		if err != nil {
			return ledger.TransactionInput{}, errors.New("invalid executed_at, expected RFC3339 or YYYY-MM-DD")
		}
	}

	return ledger.TransactionInput{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Type:        domain.TransactionType(req.Type),
		Quantity:    req.Quantity,
		Price:       req.Price,
		Fee:         req.Fee,
		ExecutedAt:  executedAt,
	}, nil
}

func transactionJSON(tx domain.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"id":           tx.ID.String(),
		"portfolio_id": tx.PortfolioID.String(),
		"asset_id":     tx.AssetID.String(),
		"type":         string(tx.Type),
		"quantity":     tx.Quantity.String(),
		"price":        tx.Price.String(),
		"fee":          tx.Fee.String(),
		"executed_at":  tx.ExecutedAt.Format(time.RFC3339),
		"created_at":   tx.CreatedAt.Format(time.RFC3339),
	}
}

// HandleCreateTransaction handles POST /api/portfolios/{portfolioID}/transactions
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input, err := req.toInput(portfolioID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.service.Create(input)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create transaction")
		return
	}

	response := map[string]interface{}{
		"data": transactionJSON(*tx),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleListTransactions handles GET /api/portfolios/{portfolioID}/transactions
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request, portfolioIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	transactions, err := h.service.ListByPortfolio(portfolioID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list transactions")
		return
	}

	items := make([]map[string]interface{}, 0, len(transactions))
	for _, tx := range transactions {
		items = append(items, transactionJSON(tx))
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": items,
			"count":        len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleUpdateTransaction handles PUT /api/portfolios/{portfolioID}/transactions/{id}
func (h *Handler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request, portfolioIDStr, idStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input, err := req.toInput(portfolioID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.service.Update(id, input)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update transaction")
		return
	}

	response := map[string]interface{}{
		"data": transactionJSON(*tx),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteTransaction handles DELETE /api/portfolios/{portfolioID}/transactions/{id}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(id); err != nil {
		h.writeServiceError(w, err, "Failed to delete transaction")
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

// HandleReplaceForAsset handles PUT /api/portfolios/{portfolioID}/assets/{assetID}/transactions
func (h *Handler) HandleReplaceForAsset(w http.ResponseWriter, r *http.Request, portfolioIDStr, assetIDStr string) {
	portfolioID, err := uuid.Parse(portfolioIDStr)
	if err != nil {
		http.Error(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}

	assetID, err := uuid.Parse(assetIDStr)
	if err != nil {
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Transactions []transactionRequest `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inputs := make([]ledger.TransactionInput, 0, len(body.Transactions))
	for _, req := range body.Transactions {
		req.AssetID = assetID.String()
		input, err := req.toInput(portfolioID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		inputs = append(inputs, input)
	}

	entries, err := h.service.ReplaceForAsset(portfolioID, assetID, inputs)
	if err != nil {
		h.writeServiceError(w, err, "Failed to replace transactions")
		return
	}

	items := make([]map[string]interface{}, 0, len(entries))
	for _, tx := range entries {
		items = append(items, transactionJSON(tx))
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": items,
			"count":        len(items),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeServiceError maps domain errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransaction):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInsufficientQuantity):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrPortfolioNotFound),
		errors.Is(err, domain.ErrAssetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error().Err(err).Msg(logMsg)
		http.Error(w, logMsg, http.StatusInternalServerError)
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
