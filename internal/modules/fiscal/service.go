package fiscal

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// Service resolves a portfolio's ledger and asset symbols, then runs the
// FIFO matcher over them.
type Service struct {
	transactions domain.TransactionReader
	assets       domain.AssetReader
	portfolios   domain.PortfolioReader
	log          zerolog.Logger
}

// NewService creates a new fiscal service.
func NewService(
	transactions domain.TransactionReader,
	assets domain.AssetReader,
	portfolios domain.PortfolioReader,
	log zerolog.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		assets:       assets,
		portfolios:   portfolios,
		log:          log.With().Str("service", "fiscal").Logger(),
	}
}

// CalculateResult computes the realized-gain report for a portfolio over an
// optional window.
func (s *Service) CalculateResult(portfolioID uuid.UUID, window Window) (*Result, error) {
	if _, err := s.portfolios.GetByID(portfolioID); err != nil {
		return nil, err
	}

	transactions, err := s.transactions.GetByPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}

	symbols := make(map[string]string)
	for _, tx := range transactions {
		key := tx.AssetID.String()
		if _, seen := symbols[key]; seen {
			continue
		}
		asset, err := s.assets.GetByID(tx.AssetID)
		if err != nil {
			// Fall back to the raw ID so one orphaned asset does not
			// sink the whole report.
			s.log.Warn().Err(err).Str("asset_id", key).Msg("Asset lookup failed during fiscal run")
			continue
		}
		symbols[key] = asset.Symbol
	}

	result := Match(transactions, symbols, window)

	s.log.Debug().
		Str("portfolio_id", portfolioID.String()).
		Int("realized_gains", len(result.Items)).
		Str("total", result.Total.String()).
		Msg("Fiscal result calculated")

	return &result, nil
}
