// Package portfolio persists portfolios and their replay-derived positions.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// PortfolioRepository handles portfolio persistence in portfolio.db.
type PortfolioRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository.
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio.
func (r *PortfolioRepository) Create(p *domain.Portfolio) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolios (id, name, currency, created_at)
		VALUES (?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Currency, p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

// GetByID returns one portfolio.
func (r *PortfolioRepository) GetByID(id uuid.UUID) (*domain.Portfolio, error) {
	row := r.db.QueryRow(`
		SELECT id, name, currency, created_at
		FROM portfolios WHERE id = ?`, id.String())

	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetAll returns all portfolios ordered by creation time.
func (r *PortfolioRepository) GetAll() ([]domain.Portfolio, error) {
	rows, err := r.db.Query(`
		SELECT id, name, currency, created_at
		FROM portfolios ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}
	return portfolios, rows.Err()
}

// Delete removes a portfolio row. Ledger entries, positions and snapshots
// live in other databases and are the caller's responsibility.
func (r *PortfolioRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM portfolios WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPortfolioNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var idStr, name, currency, createdAt string
	if err := row.Scan(&idStr, &name, &currency, &createdAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse portfolio id: %w", err)
	}
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &domain.Portfolio{
		ID:        id,
		Name:      name,
		Currency:  currency,
		CreatedAt: created,
	}, nil
}
