// Package ledger implements the append-only transaction log and the replay
// logic that derives position cost basis from it.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/database"
	"github.com/ivanmoreno/cartera/internal/domain"
)

// TransactionRepository handles transaction persistence in ledger.db.
// All read methods return transactions ordered by (executed_at, seq), the
// deterministic order replay depends on.
type TransactionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transaction").Logger(),
	}
}

const transactionColumns = `seq, id, portfolio_id, asset_id, type, quantity, price, fee, executed_at, created_at`

// Insert appends a transaction to the ledger. The ledger sequence (seq) is
// assigned by the database and written back into tx.
func (r *TransactionRepository) Insert(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, portfolio_id, asset_id, type, quantity, price, fee, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.ledgerDB.Exec(query,
		tx.ID.String(),
		tx.PortfolioID.String(),
		tx.AssetID.String(),
		string(tx.Type),
		tx.Quantity.String(),
		tx.Price.String(),
		tx.Fee.String(),
		tx.ExecutedAt.UTC().Format(time.RFC3339),
		tx.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read ledger sequence: %w", err)
	}
	tx.Seq = seq

	return nil
}

// Replace overwrites every field of an existing ledger entry in one
// statement. The entry keeps its sequence number: a replacement edits
// history, it does not re-append.
func (r *TransactionRepository) Replace(tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET portfolio_id = ?, asset_id = ?, type = ?, quantity = ?, price = ?, fee = ?, executed_at = ?
		WHERE id = ?
	`
	res, err := r.ledgerDB.Exec(query,
		tx.PortfolioID.String(),
		tx.AssetID.String(),
		string(tx.Type),
		tx.Quantity.String(),
		tx.Price.String(),
		tx.Fee.String(),
		tx.ExecutedAt.UTC().Format(time.RFC3339),
		tx.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to replace transaction %s: %w", tx.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check replaced rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// Delete removes a ledger entry by ID.
func (r *TransactionRepository) Delete(id uuid.UUID) error {
	res, err := r.ledgerDB.Exec("DELETE FROM transactions WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ReplaceForAsset atomically swaps the whole history of one
// (portfolio, asset) pair for a new list of entries (batch edit). The old
// rows are deleted and the new ones appended in a single transaction.
func (r *TransactionRepository) ReplaceForAsset(portfolioID, assetID uuid.UUID, entries []domain.Transaction) error {
	return database.WithTransaction(r.ledgerDB, func(sqlTx *sql.Tx) error {
		_, err := sqlTx.Exec(
			"DELETE FROM transactions WHERE portfolio_id = ? AND asset_id = ?",
			portfolioID.String(), assetID.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to clear transactions for batch edit: %w", err)
		}

		for i := range entries {
			tx := &entries[i]
			res, err := sqlTx.Exec(`
				INSERT INTO transactions (id, portfolio_id, asset_id, type, quantity, price, fee, executed_at, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				tx.ID.String(),
				tx.PortfolioID.String(),
				tx.AssetID.String(),
				string(tx.Type),
				tx.Quantity.String(),
				tx.Price.String(),
				tx.Fee.String(),
				tx.ExecutedAt.UTC().Format(time.RFC3339),
				tx.CreatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return fmt.Errorf("failed to insert batch transaction: %w", err)
			}
			if tx.Seq, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read ledger sequence: %w", err)
			}
		}

		return nil
	})
}

// GetByID returns a single ledger entry.
func (r *TransactionRepository) GetByID(id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	rows, err := r.ledgerDB.Query(query, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction by id: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, domain.ErrTransactionNotFound
	}

	tx, err := r.scanTransaction(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	return &tx, nil
}

// GetByPortfolioAsset returns the ordered history of one (portfolio, asset) pair.
func (r *TransactionRepository) GetByPortfolioAsset(portfolioID, assetID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = ? AND asset_id = ?
		ORDER BY executed_at ASC, seq ASC`

	return r.queryTransactions(query, portfolioID.String(), assetID.String())
}

// GetByPortfolio returns a portfolio's ordered history across all assets.
func (r *TransactionRepository) GetByPortfolio(portfolioID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = ?
		ORDER BY executed_at ASC, seq ASC`

	return r.queryTransactions(query, portfolioID.String())
}

// GetByPortfolioUntil returns a portfolio's ordered history restricted to
// entries whose calendar date is on or before the given date.
func (r *TransactionRepository) GetByPortfolioUntil(portfolioID uuid.UUID, date time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = ? AND date(executed_at) <= ?
		ORDER BY executed_at ASC, seq ASC`

	return r.queryTransactions(query, portfolioID.String(), domain.FormatDate(date))
}

func (r *TransactionRepository) queryTransactions(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func (r *TransactionRepository) scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var tx domain.Transaction
	var idStr, portfolioIDStr, assetIDStr, typeStr string
	var quantityStr, priceStr, feeStr, executedAtStr, createdAtStr string

	if err := rows.Scan(&tx.Seq, &idStr, &portfolioIDStr, &assetIDStr, &typeStr,
		&quantityStr, &priceStr, &feeStr, &executedAtStr, &createdAtStr); err != nil {
		return domain.Transaction{}, err
	}

	var err error
	if tx.ID, err = uuid.Parse(idStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid transaction id %q: %w", idStr, err)
	}
	if tx.PortfolioID, err = uuid.Parse(portfolioIDStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid portfolio id %q: %w", portfolioIDStr, err)
	}
	if tx.AssetID, err = uuid.Parse(assetIDStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid asset id %q: %w", assetIDStr, err)
	}

	tx.Type = domain.TransactionType(typeStr)

	if tx.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid quantity %q: %w", quantityStr, err)
	}
	if tx.Price, err = decimal.NewFromString(priceStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid price %q: %w", priceStr, err)
	}
	if tx.Fee, err = decimal.NewFromString(feeStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid fee %q: %w", feeStr, err)
	}
	if tx.ExecutedAt, err = time.Parse(time.RFC3339, executedAtStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid executed_at %q: %w", executedAtStr, err)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid created_at %q: %w", createdAtStr, err)
	}

	return tx, nil
}
