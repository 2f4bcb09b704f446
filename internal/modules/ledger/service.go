package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/events"
)

// TransactionStore is the persistence contract the service needs.
type TransactionStore interface {
	Insert(tx *domain.Transaction) error
	Replace(tx *domain.Transaction) error
	Delete(id uuid.UUID) error
	ReplaceForAsset(portfolioID, assetID uuid.UUID, entries []domain.Transaction) error
	GetByID(id uuid.UUID) (*domain.Transaction, error)
	GetByPortfolioAsset(portfolioID, assetID uuid.UUID) ([]domain.Transaction, error)
	GetByPortfolio(portfolioID uuid.UUID) ([]domain.Transaction, error)
}

// EventEmitter publishes ledger change events.
type EventEmitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Service owns all ledger mutations. Every mutation follows the same shape:
// validate, write the ledger, fully replay the touched (portfolio, asset)
// pair into its Position row, then emit LedgerChanged so the snapshot worker
// recomputes history off the request path.
//
// Replay-on-every-edit is deliberate: deriving positions incrementally from
// deltas is what caused drift in the past. Correctness over performance.
type Service struct {
	transactions TransactionStore
	positions    domain.PositionWriter
	assets       domain.AssetReader
	portfolios   domain.PortfolioReader
	emitter      EventEmitter
	policy       domain.OversellPolicy
	log          zerolog.Logger
}

// NewService creates a new ledger service.
func NewService(
	transactions TransactionStore,
	positions domain.PositionWriter,
	assets domain.AssetReader,
	portfolios domain.PortfolioReader,
	emitter EventEmitter,
	policy domain.OversellPolicy,
	log zerolog.Logger,
) *Service {
	return &Service{
		transactions: transactions,
		positions:    positions,
		assets:       assets,
		portfolios:   portfolios,
		emitter:      emitter,
		policy:       policy,
		log:          log.With().Str("service", "ledger").Logger(),
	}
}

// TransactionInput carries the caller-controlled fields of a ledger entry.
type TransactionInput struct {
	PortfolioID uuid.UUID
	AssetID     uuid.UUID
	Type        domain.TransactionType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	ExecutedAt  time.Time
}

func (s *Service) validate(in TransactionInput) error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidTransaction, in.Type)
	}
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidTransaction)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidTransaction)
	}
	if in.Fee.IsNegative() {
		return fmt.Errorf("%w: fee must not be negative", domain.ErrInvalidTransaction)
	}

	if _, err := s.portfolios.GetByID(in.PortfolioID); err != nil {
		return err
	}
	if _, err := s.assets.GetByID(in.AssetID); err != nil {
		return err
	}

	return nil
}

// checkOversell enforces the strict oversell policy for sells/withdrawals:
// the replayed position must hold at least the quantity being sold. Under
// the allow policy the ledger accepts the entry and replay goes negative.
func (s *Service) checkOversell(in TransactionInput, exclude uuid.UUID) error {
	if s.policy != domain.OversellStrict {
		return nil
	}
	if in.Type != domain.TransactionSell && in.Type != domain.TransactionWithdrawal {
		return nil
	}

	history, err := s.transactions.GetByPortfolioAsset(in.PortfolioID, in.AssetID)
	if err != nil {
		return err
	}

	if exclude != uuid.Nil {
		filtered := history[:0]
		for _, tx := range history {
			if tx.ID != exclude {
				filtered = append(filtered, tx)
			}
		}
		history = filtered
	}

	held := Replay(history).Quantity
	if held.LessThan(in.Quantity) {
		return fmt.Errorf("%w: have %s, selling %s",
			domain.ErrInsufficientQuantity, held.String(), in.Quantity.String())
	}

	return nil
}

// Create validates and appends a ledger entry, replays the touched pair and
// emits LedgerChanged.
func (s *Service) Create(in TransactionInput) (*domain.Transaction, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if err := s.checkOversell(in, uuid.Nil); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		PortfolioID: in.PortfolioID,
		AssetID:     in.AssetID,
		Type:        in.Type,
		Quantity:    in.Quantity,
		Price:       in.Price,
		Fee:         in.Fee,
		ExecutedAt:  in.ExecutedAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.transactions.Insert(tx); err != nil {
		return nil, err
	}

	if err := s.SyncPosition(tx.PortfolioID, tx.AssetID); err != nil {
		return nil, err
	}

	s.emitLedgerChanged(tx.PortfolioID, tx.ExecutedAt)

	s.log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("portfolio_id", tx.PortfolioID.String()).
		Str("type", string(tx.Type)).
		Str("quantity", tx.Quantity.String()).
		Msg("Transaction created")

	return tx, nil
}

// Update fully replaces an existing ledger entry and replays every pair the
// edit touches: the entry's old (portfolio, asset) pair and, if the edit
// moved it, the new one.
func (s *Service) Update(id uuid.UUID, in TransactionInput) (*domain.Transaction, error) {
	old, err := s.transactions.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.validate(in); err != nil {
		return nil, err
	}
	if err := s.checkOversell(in, id); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:          id,
		PortfolioID: in.PortfolioID,
		AssetID:     in.AssetID,
		Type:        in.Type,
		Quantity:    in.Quantity,
		Price:       in.Price,
		Fee:         in.Fee,
		ExecutedAt:  in.ExecutedAt.UTC(),
		Seq:         old.Seq,
		CreatedAt:   old.CreatedAt,
	}

	if err := s.transactions.Replace(tx); err != nil {
		return nil, err
	}

	if err := s.SyncPosition(old.PortfolioID, old.AssetID); err != nil {
		return nil, err
	}
	if old.PortfolioID != tx.PortfolioID || old.AssetID != tx.AssetID {
		if err := s.SyncPosition(tx.PortfolioID, tx.AssetID); err != nil {
			return nil, err
		}
	}

	s.emitLedgerChanged(old.PortfolioID, old.ExecutedAt, tx.ExecutedAt)
	if old.PortfolioID != tx.PortfolioID {
		s.emitLedgerChanged(tx.PortfolioID, old.ExecutedAt, tx.ExecutedAt)
	}

	return tx, nil
}

// Delete removes a ledger entry and replays its pair.
func (s *Service) Delete(id uuid.UUID) error {
	old, err := s.transactions.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.transactions.Delete(id); err != nil {
		return err
	}

	if err := s.SyncPosition(old.PortfolioID, old.AssetID); err != nil {
		return err
	}

	s.emitLedgerChanged(old.PortfolioID, old.ExecutedAt)

	s.log.Info().
		Str("transaction_id", id.String()).
		Str("portfolio_id", old.PortfolioID.String()).
		Msg("Transaction deleted")

	return nil
}

// ReplaceForAsset swaps the whole history of one (portfolio, asset) pair
// for a new list of entries (batch edit), then replays once.
func (s *Service) ReplaceForAsset(portfolioID, assetID uuid.UUID, inputs []TransactionInput) ([]domain.Transaction, error) {
	old, err := s.transactions.GetByPortfolioAsset(portfolioID, assetID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.Transaction, 0, len(inputs))
	now := time.Now().UTC()
	for _, in := range inputs {
		in.PortfolioID = portfolioID
		in.AssetID = assetID
		if err := s.validate(in); err != nil {
			return nil, err
		}
		entries = append(entries, domain.Transaction{
			ID:          uuid.New(),
			PortfolioID: portfolioID,
			AssetID:     assetID,
			Type:        in.Type,
			Quantity:    in.Quantity,
			Price:       in.Price,
			Fee:         in.Fee,
			ExecutedAt:  in.ExecutedAt.UTC(),
			CreatedAt:   now,
		})
	}

	if err := s.transactions.ReplaceForAsset(portfolioID, assetID, entries); err != nil {
		return nil, err
	}

	if err := s.SyncPosition(portfolioID, assetID); err != nil {
		return nil, err
	}

	// Every date in either the old or the new history needs its snapshot
	// recomputed.
	dates := make([]time.Time, 0, len(old)+len(entries))
	for _, tx := range old {
		dates = append(dates, tx.ExecutedAt)
	}
	for _, tx := range entries {
		dates = append(dates, tx.ExecutedAt)
	}
	s.emitLedgerChanged(portfolioID, dates...)

	s.log.Info().
		Str("portfolio_id", portfolioID.String()).
		Str("asset_id", assetID.String()).
		Int("old_count", len(old)).
		Int("new_count", len(entries)).
		Msg("Transaction history replaced for asset")

	return entries, nil
}

// SyncPosition fully replays one (portfolio, asset) pair and writes the
// result into the positions table: upsert while the position is open,
// delete once it zeroes out.
func (s *Service) SyncPosition(portfolioID, assetID uuid.UUID) error {
	history, err := s.transactions.GetByPortfolioAsset(portfolioID, assetID)
	if err != nil {
		return err
	}

	result := Replay(history)

	if result.IsFlat() {
		if err := s.positions.Delete(portfolioID, assetID); err != nil {
			return fmt.Errorf("failed to delete flat position: %w", err)
		}
		return nil
	}

	return s.positions.Upsert(domain.Position{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Quantity:    result.Quantity,
		AverageCost: result.AverageCost,
		UpdatedAt:   time.Now().UTC(),
	})
}

// ListByPortfolio returns the portfolio's ordered ledger.
func (s *Service) ListByPortfolio(portfolioID uuid.UUID) ([]domain.Transaction, error) {
	if _, err := s.portfolios.GetByID(portfolioID); err != nil {
		return nil, err
	}
	return s.transactions.GetByPortfolio(portfolioID)
}

func (s *Service) emitLedgerChanged(portfolioID uuid.UUID, dates ...time.Time) {
	if s.emitter == nil {
		return
	}

	seen := make(map[string]bool, len(dates))
	affected := make([]string, 0, len(dates))
	for _, d := range dates {
		key := domain.FormatDate(d)
		if !seen[key] {
			seen[key] = true
			affected = append(affected, key)
		}
	}

	s.emitter.EmitTyped(events.LedgerChanged, "ledger", &events.LedgerChangedData{
		PortfolioID:   portfolioID.String(),
		AffectedDates: affected,
	})
}
