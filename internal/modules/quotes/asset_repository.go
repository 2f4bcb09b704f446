// Package quotes persists assets and their price series in market.db.
package quotes

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// AssetRepository handles asset persistence.
type AssetRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAssetRepository creates a new asset repository.
func NewAssetRepository(db *sql.DB, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{
		db:  db,
		log: log.With().Str("repo", "asset").Logger(),
	}
}

// Upsert inserts or updates an asset keyed by symbol.
func (r *AssetRepository) Upsert(asset *domain.Asset) error {
	_, err := r.db.Exec(`
		INSERT INTO assets (id, symbol, name, type, currency)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			currency = excluded.currency`,
		asset.ID.String(), asset.Symbol, asset.Name, string(asset.Type), asset.Currency)
	if err != nil {
		return fmt.Errorf("failed to upsert asset: %w", err)
	}
	return nil
}

// GetByID returns one asset.
func (r *AssetRepository) GetByID(id uuid.UUID) (*domain.Asset, error) {
	row := r.db.QueryRow(`
		SELECT id, symbol, name, type, currency
		FROM assets WHERE id = ?`, id.String())
	return r.scanAsset(row)
}

// GetBySymbol returns one asset by its ticker symbol.
func (r *AssetRepository) GetBySymbol(symbol string) (*domain.Asset, error) {
	row := r.db.QueryRow(`
		SELECT id, symbol, name, type, currency
		FROM assets WHERE symbol = ?`, symbol)
	return r.scanAsset(row)
}

// GetAll returns all known assets ordered by symbol.
func (r *AssetRepository) GetAll() ([]domain.Asset, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, name, type, currency
		FROM assets ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		asset, err := r.scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *AssetRepository) scanAsset(row rowScanner) (*domain.Asset, error) {
	var idStr, symbol, name, assetType, currency string
	err := row.Scan(&idStr, &symbol, &name, &assetType, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset id: %w", err)
	}

	return &domain.Asset{
		ID:       id,
		Symbol:   symbol,
		Name:     name,
		Type:     domain.AssetType(assetType),
		Currency: currency,
	}, nil
}
