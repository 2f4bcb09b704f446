package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionReader is the ledger query surface the engine consumes. The
// implementations must return transactions already ordered deterministically
// (ExecutedAt ASC, Seq ASC); replay is not a sorter.
type TransactionReader interface {
	// GetByPortfolioAsset returns the full ordered history for one
	// (portfolio, asset) pair.
	GetByPortfolioAsset(portfolioID, assetID uuid.UUID) ([]Transaction, error)

	// GetByPortfolio returns the full ordered history for a portfolio.
	GetByPortfolio(portfolioID uuid.UUID) ([]Transaction, error)

	// GetByPortfolioUntil returns the ordered history with ExecutedAt dates
	// on or before the given calendar date.
	GetByPortfolioUntil(portfolioID uuid.UUID, date time.Time) ([]Transaction, error)
}

// PositionWriter is the derived-position surface the replay service exposes
// to collaborators.
type PositionWriter interface {
	Upsert(pos Position) error
	Delete(portfolioID, assetID uuid.UUID) error
}

// QuoteReader resolves point-in-time valuation input.
type QuoteReader interface {
	// GetLatestOnOrBefore returns the most recent quote with a timestamp on
	// or before the end of the given calendar date, or nil when the series
	// has no such point.
	GetLatestOnOrBefore(assetID uuid.UUID, date time.Time) (*Quote, error)
}

// AssetReader resolves asset metadata.
type AssetReader interface {
	GetByID(id uuid.UUID) (*Asset, error)
	GetBySymbol(symbol string) (*Asset, error)
}

// PortfolioReader lists portfolios for schedulers and orchestrators.
type PortfolioReader interface {
	GetAll() ([]Portfolio, error)
	GetByID(id uuid.UUID) (*Portfolio, error)
}
