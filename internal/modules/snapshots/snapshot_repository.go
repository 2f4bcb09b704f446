// Package snapshots reconstructs and persists daily portfolio valuations.
package snapshots

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/database"
	"github.com/ivanmoreno/cartera/internal/domain"
)

// SnapshotRepository handles snapshot persistence in history.db.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

const snapshotColumns = `id, portfolio_id, snapshot_date, total_invested, total_value,
	cash_balance, daily_pnl, daily_pnl_percent, total_pnl, total_pnl_percent,
	position_count, asset_count, created_at`

const positionSnapshotColumns = `id, snapshot_id, asset_id, snapshot_date, symbol,
	quantity, average_buy_price, current_price, total_cost, current_value,
	position_pnl, position_pnl_percent, daily_change, daily_change_percent, portfolio_weight`

// Create persists a snapshot and its position children in one transaction.
// When overwrite is off and a snapshot already exists for the date, it fails
// with ErrSnapshotExists. With overwrite on, the existing parent and its
// children are deleted and both are written fresh, never patched.
func (r *SnapshotRepository) Create(snapshot *domain.PortfolioSnapshot, positions []domain.PositionSnapshot, overwrite bool) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var existingID string
		err := tx.QueryRow(`
			SELECT id FROM portfolio_snapshots
			WHERE portfolio_id = ? AND snapshot_date = ?`,
			snapshot.PortfolioID.String(), domain.FormatDate(snapshot.Date)).Scan(&existingID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check existing snapshot: %w", err)
		}

		if err == nil {
			if !overwrite {
				return domain.ErrSnapshotExists
			}
			// ON DELETE CASCADE removes the children.
			if _, err := tx.Exec(`DELETE FROM portfolio_snapshots WHERE id = ?`, existingID); err != nil {
				return fmt.Errorf("failed to delete prior snapshot: %w", err)
			}
		}

		_, err = tx.Exec(`
			INSERT INTO portfolio_snapshots (`+snapshotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshot.ID.String(), snapshot.PortfolioID.String(), domain.FormatDate(snapshot.Date),
			snapshot.TotalInvested.String(), snapshot.TotalValue.String(),
			snapshot.CashBalance.String(), snapshot.DailyPnL.String(), snapshot.DailyPnLPercent.String(),
			snapshot.TotalPnL.String(), snapshot.TotalPnLPercent.String(),
			snapshot.PositionCount, snapshot.AssetCount,
			snapshot.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		for _, pos := range positions {
			_, err = tx.Exec(`
				INSERT INTO position_snapshots (`+positionSnapshotColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				pos.ID.String(), snapshot.ID.String(), pos.AssetID.String(),
				domain.FormatDate(pos.Date), pos.Symbol,
				pos.Quantity.String(), pos.AverageBuyPrice.String(), pos.CurrentPrice.String(),
				pos.TotalCost.String(), pos.CurrentValue.String(),
				pos.PositionPnL.String(), pos.PositionPnLPercent.String(),
				pos.DailyChange.String(), pos.DailyChangePercent.String(), pos.PortfolioWeight.String())
			if err != nil {
				return fmt.Errorf("failed to insert position snapshot: %w", err)
			}
		}

		return nil
	})
}

// GetByDate returns the snapshot for one calendar date, or nil when absent.
func (r *SnapshotRepository) GetByDate(portfolioID uuid.UUID, date time.Time) (*domain.PortfolioSnapshot, error) {
	row := r.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM portfolio_snapshots
		WHERE portfolio_id = ? AND snapshot_date = ?`,
		portfolioID.String(), domain.FormatDate(date))

	snapshot, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetLatestBefore returns the most recent snapshot strictly before the given
// date, or nil when the portfolio has no earlier history.
func (r *SnapshotRepository) GetLatestBefore(portfolioID uuid.UUID, date time.Time) (*domain.PortfolioSnapshot, error) {
	row := r.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM portfolio_snapshots
		WHERE portfolio_id = ? AND snapshot_date < ?
		ORDER BY snapshot_date DESC
		LIMIT 1`,
		portfolioID.String(), domain.FormatDate(date))

	snapshot, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetRange returns snapshots between two dates inclusive, oldest first.
func (r *SnapshotRepository) GetRange(portfolioID uuid.UUID, start, end time.Time) ([]domain.PortfolioSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT `+snapshotColumns+`
		FROM portfolio_snapshots
		WHERE portfolio_id = ? AND snapshot_date >= ? AND snapshot_date <= ?
		ORDER BY snapshot_date ASC`,
		portfolioID.String(), domain.FormatDate(start), domain.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]domain.PortfolioSnapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, rows.Err()
}

// GetPositions returns the position children of one snapshot ordered by symbol.
func (r *SnapshotRepository) GetPositions(snapshotID uuid.UUID) ([]domain.PositionSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT `+positionSnapshotColumns+`
		FROM position_snapshots
		WHERE snapshot_id = ?
		ORDER BY symbol ASC`, snapshotID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query position snapshots: %w", err)
	}
	defer rows.Close()

	positions := make([]domain.PositionSnapshot, 0)
	for rows.Next() {
		pos, err := scanPositionSnapshot(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// Delete removes a snapshot and, by cascade, its position children.
func (r *SnapshotRepository) Delete(portfolioID uuid.UUID, date time.Time) error {
	result, err := r.db.Exec(`
		DELETE FROM portfolio_snapshots
		WHERE portfolio_id = ? AND snapshot_date = ?`,
		portfolioID.String(), domain.FormatDate(date))
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSnapshotNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*domain.PortfolioSnapshot, error) {
	var idStr, portfolioStr, dateStr, createdAt string
	var totalInvested, totalValue, cashBalance, dailyPnL, dailyPnLPct, totalPnL, totalPnLPct string
	var positionCount, assetCount int

	err := row.Scan(&idStr, &portfolioStr, &dateStr, &totalInvested, &totalValue,
		&cashBalance, &dailyPnL, &dailyPnLPct, &totalPnL, &totalPnLPct,
		&positionCount, &assetCount, &createdAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot id: %w", err)
	}
	portfolioID, err := uuid.Parse(portfolioStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse portfolio id: %w", err)
	}
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot date: %w", err)
	}
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	decimals, err := parseDecimals(totalInvested, totalValue, cashBalance,
		dailyPnL, dailyPnLPct, totalPnL, totalPnLPct)
	if err != nil {
		return nil, err
	}

	return &domain.PortfolioSnapshot{
		ID:              id,
		PortfolioID:     portfolioID,
		Date:            date,
		TotalInvested:   decimals[0],
		TotalValue:      decimals[1],
		CashBalance:     decimals[2],
		DailyPnL:        decimals[3],
		DailyPnLPercent: decimals[4],
		TotalPnL:        decimals[5],
		TotalPnLPercent: decimals[6],
		PositionCount:   positionCount,
		AssetCount:      assetCount,
		CreatedAt:       created,
	}, nil
}

func scanPositionSnapshot(row rowScanner) (*domain.PositionSnapshot, error) {
	var idStr, snapshotStr, assetStr, dateStr, symbol string
	var quantity, avgBuy, currentPrice, totalCost, currentValue string
	var pnl, pnlPct, dailyChange, dailyChangePct, weight string

	err := row.Scan(&idStr, &snapshotStr, &assetStr, &dateStr, &symbol,
		&quantity, &avgBuy, &currentPrice, &totalCost, &currentValue,
		&pnl, &pnlPct, &dailyChange, &dailyChangePct, &weight)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse position snapshot id: %w", err)
	}
	snapshotID, err := uuid.Parse(snapshotStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot id: %w", err)
	}
	assetID, err := uuid.Parse(assetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset id: %w", err)
	}
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot date: %w", err)
	}

	decimals, err := parseDecimals(quantity, avgBuy, currentPrice, totalCost,
		currentValue, pnl, pnlPct, dailyChange, dailyChangePct, weight)
	if err != nil {
		return nil, err
	}

	return &domain.PositionSnapshot{
		ID:                 id,
		SnapshotID:         snapshotID,
		AssetID:            assetID,
		Date:               date,
		Symbol:             symbol,
		Quantity:           decimals[0],
		AverageBuyPrice:    decimals[1],
		CurrentPrice:       decimals[2],
		TotalCost:          decimals[3],
		CurrentValue:       decimals[4],
		PositionPnL:        decimals[5],
		PositionPnLPercent: decimals[6],
		DailyChange:        decimals[7],
		DailyChangePercent: decimals[8],
		PortfolioWeight:    decimals[9],
	}, nil
}

func parseDecimals(values ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored decimal %q: %w", v, err)
		}
		out[i] = d
	}
	return out, nil
}
