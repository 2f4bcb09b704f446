package snapshots

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/events"
	"github.com/ivanmoreno/cartera/internal/modules/ledger"
)

var hundred = decimal.NewFromInt(100)

// EventEmitter publishes snapshot lifecycle events.
type EventEmitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Reconstructor rebuilds the complete valuation of a portfolio for one
// calendar date from the ledger and the quote series. It never reads the
// live positions table: history must stay reproducible from the ledger
// alone, including for dates before the current position state existed.
type Reconstructor struct {
	transactions domain.TransactionReader
	quotes       domain.QuoteReader
	assets       domain.AssetReader
	portfolios   domain.PortfolioReader
	snapshots    *SnapshotRepository
	emitter      EventEmitter
	log          zerolog.Logger
}

// NewReconstructor creates a new snapshot reconstructor.
func NewReconstructor(
	transactions domain.TransactionReader,
	quotes domain.QuoteReader,
	assets domain.AssetReader,
	portfolios domain.PortfolioReader,
	snapshots *SnapshotRepository,
	emitter EventEmitter,
	log zerolog.Logger,
) *Reconstructor {
	return &Reconstructor{
		transactions: transactions,
		quotes:       quotes,
		assets:       assets,
		portfolios:   portfolios,
		snapshots:    snapshots,
		emitter:      emitter,
		log:          log.With().Str("service", "snapshots").Logger(),
	}
}

// Snapshot reconstructs and persists the portfolio's valuation for one date.
// Existing snapshots fail with ErrSnapshotExists unless overwrite is set, in
// which case the prior snapshot is deleted and rebuilt whole.
func (r *Reconstructor) Snapshot(portfolioID uuid.UUID, date time.Time, overwrite bool) (*domain.PortfolioSnapshot, []domain.PositionSnapshot, error) {
	if _, err := r.portfolios.GetByID(portfolioID); err != nil {
		return nil, nil, err
	}

	day := domain.DateOf(date)

	transactions, err := r.transactions.GetByPortfolioUntil(portfolioID, day)
	if err != nil {
		return nil, nil, err
	}

	// Replay each asset's history up to the date. Ledger order is already
	// deterministic, so grouping preserves it.
	byAsset := make(map[uuid.UUID][]domain.Transaction)
	order := make([]uuid.UUID, 0)
	for _, tx := range transactions {
		if _, seen := byAsset[tx.AssetID]; !seen {
			order = append(order, tx.AssetID)
		}
		byAsset[tx.AssetID] = append(byAsset[tx.AssetID], tx)
	}

	previous, err := r.snapshots.GetLatestBefore(portfolioID, day)
	if err != nil {
		return nil, nil, err
	}
	var previousPositions map[uuid.UUID]domain.PositionSnapshot
	if previous != nil {
		children, err := r.snapshots.GetPositions(previous.ID)
		if err != nil {
			return nil, nil, err
		}
		previousPositions = make(map[uuid.UUID]domain.PositionSnapshot, len(children))
		for _, child := range children {
			previousPositions[child.AssetID] = child
		}
	}

	snapshotID := uuid.New()
	positions := make([]domain.PositionSnapshot, 0, len(order))
	totalInvested := decimal.Zero
	totalValue := decimal.Zero

	for _, assetID := range order {
		state := ledger.Replay(byAsset[assetID])
		if !state.Quantity.IsPositive() {
			continue
		}

		symbol := assetID.String()
		if asset, err := r.assets.GetByID(assetID); err == nil {
			symbol = asset.Symbol
		}

		price, err := r.resolvePrice(assetID, day, state.AverageCost)
		if err != nil {
			return nil, nil, err
		}

		currentValue := state.Quantity.Mul(price)
		pnl := currentValue.Sub(state.TotalCost)
		pnlPercent := decimal.Zero
		if !state.TotalCost.IsZero() {
			pnlPercent = pnl.Div(state.TotalCost).Mul(hundred)
		}

		dailyChange := decimal.Zero
		dailyChangePercent := decimal.Zero
		if prev, ok := previousPositions[assetID]; ok {
			dailyChange = currentValue.Sub(prev.CurrentValue)
			if !prev.CurrentValue.IsZero() {
				dailyChangePercent = dailyChange.Div(prev.CurrentValue).Mul(hundred)
			}
		}

		positions = append(positions, domain.PositionSnapshot{
			ID:                 uuid.New(),
			SnapshotID:         snapshotID,
			AssetID:            assetID,
			Date:               day,
			Symbol:             symbol,
			Quantity:           state.Quantity,
			AverageBuyPrice:    state.AverageCost,
			CurrentPrice:       price,
			TotalCost:          state.TotalCost,
			CurrentValue:       currentValue,
			PositionPnL:        pnl,
			PositionPnLPercent: pnlPercent,
			DailyChange:        dailyChange,
			DailyChangePercent: dailyChangePercent,
		})

		totalInvested = totalInvested.Add(state.TotalCost)
		totalValue = totalValue.Add(currentValue)
	}

	// Weights need the final total, so they come in a second pass.
	for i := range positions {
		if !totalValue.IsZero() {
			positions[i].PortfolioWeight = positions[i].CurrentValue.Div(totalValue).Mul(hundred)
		} else {
			positions[i].PortfolioWeight = decimal.Zero
		}
	}

	totalPnL := totalValue.Sub(totalInvested)
	totalPnLPercent := decimal.Zero
	if !totalInvested.IsZero() {
		totalPnLPercent = totalPnL.Div(totalInvested).Mul(hundred)
	}

	dailyPnL := decimal.Zero
	dailyPnLPercent := decimal.Zero
	if previous != nil {
		dailyPnL = totalValue.Sub(previous.TotalValue)
		if !previous.TotalValue.IsZero() {
			dailyPnLPercent = dailyPnL.Div(previous.TotalValue).Mul(hundred)
		}
	}

	snapshot := &domain.PortfolioSnapshot{
		ID:              snapshotID,
		PortfolioID:     portfolioID,
		Date:            day,
		TotalInvested:   totalInvested,
		TotalValue:      totalValue,
		CashBalance:     decimal.Zero,
		DailyPnL:        dailyPnL,
		DailyPnLPercent: dailyPnLPercent,
		TotalPnL:        totalPnL,
		TotalPnLPercent: totalPnLPercent,
		PositionCount:   len(positions),
		AssetCount:      len(positions),
		CreatedAt:       time.Now().UTC(),
	}

	if err := r.snapshots.Create(snapshot, positions, overwrite); err != nil {
		return nil, nil, err
	}

	if r.emitter != nil {
		r.emitter.EmitTyped(events.SnapshotCreated, "snapshots", &events.SnapshotCreatedData{
			PortfolioID: portfolioID.String(),
			Date:        domain.FormatDate(day),
			Overwritten: overwrite,
		})
	}

	r.log.Debug().
		Str("portfolio_id", portfolioID.String()).
		Str("date", domain.FormatDate(day)).
		Int("positions", len(positions)).
		Str("total_value", totalValue.String()).
		Msg("Snapshot reconstructed")

	return snapshot, positions, nil
}

// resolvePrice returns the valuation price for an asset on a date: the most
// recent quote on or before the date, falling back to the average cost when
// the series has no point yet. The fallback values the position at book,
// yielding zero unrealized P&L rather than a failed snapshot.
func (r *Reconstructor) resolvePrice(assetID uuid.UUID, day time.Time, averageCost decimal.Decimal) (decimal.Decimal, error) {
	quote, err := r.quotes.GetLatestOnOrBefore(assetID, day)
	if err != nil {
		return decimal.Zero, err
	}
	if quote == nil {
		return averageCost, nil
	}
	return quote.Close, nil
}
