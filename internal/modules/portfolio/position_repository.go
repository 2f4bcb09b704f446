package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// PositionRepository handles position persistence in portfolio.db. Positions
// are derived state: the ledger service overwrites them on every replay, so
// there is no partial-update path here.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository.
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// Upsert writes the replayed state for one (portfolio, asset) pair.
func (r *PositionRepository) Upsert(pos domain.Position) error {
	_, err := r.db.Exec(`
		INSERT INTO positions (portfolio_id, asset_id, quantity, average_cost, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, asset_id) DO UPDATE SET
			quantity = excluded.quantity,
			average_cost = excluded.average_cost,
			updated_at = excluded.updated_at`,
		pos.PortfolioID.String(), pos.AssetID.String(),
		pos.Quantity.String(), pos.AverageCost.String(),
		pos.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

// Delete removes a position. Deleting an absent row is not an error, replay
// of an already flat pair lands here.
func (r *PositionRepository) Delete(portfolioID, assetID uuid.UUID) error {
	_, err := r.db.Exec(`
		DELETE FROM positions WHERE portfolio_id = ? AND asset_id = ?`,
		portfolioID.String(), assetID.String())
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// GetByPair returns one position, or nil when the pair is flat.
func (r *PositionRepository) GetByPair(portfolioID, assetID uuid.UUID) (*domain.Position, error) {
	row := r.db.QueryRow(`
		SELECT portfolio_id, asset_id, quantity, average_cost, updated_at
		FROM positions WHERE portfolio_id = ? AND asset_id = ?`,
		portfolioID.String(), assetID.String())

	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// GetByPortfolio returns all open positions of a portfolio.
func (r *PositionRepository) GetByPortfolio(portfolioID uuid.UUID) ([]domain.Position, error) {
	rows, err := r.db.Query(`
		SELECT portfolio_id, asset_id, quantity, average_cost, updated_at
		FROM positions WHERE portfolio_id = ?
		ORDER BY asset_id ASC`, portfolioID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var portfolioStr, assetStr, quantityStr, avgCostStr, updatedAt string
	if err := row.Scan(&portfolioStr, &assetStr, &quantityStr, &avgCostStr, &updatedAt); err != nil {
		return nil, err
	}

	portfolioID, err := uuid.Parse(portfolioStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse portfolio id: %w", err)
	}
	assetID, err := uuid.Parse(assetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset id: %w", err)
	}
	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	avgCost, err := decimal.NewFromString(avgCostStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse average cost: %w", err)
	}
	updated, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &domain.Position{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Quantity:    quantity,
		AverageCost: avgCost,
		UpdatedAt:   updated,
	}, nil
}
