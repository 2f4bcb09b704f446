package quotes

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/events"
)

// EventEmitter publishes quote ingestion events.
type EventEmitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Service coordinates asset registration and quote ingestion.
type Service struct {
	assets  *AssetRepository
	quotes  *QuoteRepository
	cache   *Cache
	emitter EventEmitter
	log     zerolog.Logger
}

// NewService creates a new quotes service.
func NewService(
	assets *AssetRepository,
	quotes *QuoteRepository,
	cache *Cache,
	emitter EventEmitter,
	log zerolog.Logger,
) *Service {
	return &Service{
		assets:  assets,
		quotes:  quotes,
		cache:   cache,
		emitter: emitter,
		log:     log.With().Str("service", "quotes").Logger(),
	}
}

// RegisterAsset upserts an asset keyed by symbol. Re-registering an existing
// symbol keeps its ID so ledger references stay valid.
func (s *Service) RegisterAsset(symbol, name string, assetType domain.AssetType, currency string) (*domain.Asset, error) {
	if existing, err := s.assets.GetBySymbol(symbol); err == nil {
		existing.Name = name
		existing.Type = assetType
		existing.Currency = currency
		if err := s.assets.Upsert(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	asset := &domain.Asset{
		ID:       uuid.New(),
		Symbol:   symbol,
		Name:     name,
		Type:     assetType,
		Currency: currency,
	}
	if err := s.assets.Upsert(asset); err != nil {
		return nil, err
	}

	s.log.Info().Str("symbol", symbol).Str("asset_id", asset.ID.String()).Msg("Asset registered")
	return asset, nil
}

// IngestSeries writes a batch of quote points, refreshes the cache entry and
// announces the update so the snapshot worker can reconcile affected days.
func (s *Service) IngestSeries(assetID uuid.UUID, series []domain.Quote) error {
	if _, err := s.assets.GetByID(assetID); err != nil {
		return err
	}
	if len(series) == 0 {
		return nil
	}

	if err := s.quotes.UpsertBatch(assetID, series); err != nil {
		return err
	}

	if err := s.cache.Put(assetID, series); err != nil {
		// Cache writes are best effort.
		s.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("Quote cache refresh failed")
	}

	earliest := series[0].Timestamp
	latest := series[0].Timestamp
	for _, q := range series[1:] {
		if q.Timestamp.Before(earliest) {
			earliest = q.Timestamp
		}
		if q.Timestamp.After(latest) {
			latest = q.Timestamp
		}
	}

	if s.emitter != nil {
		s.emitter.EmitTyped(events.QuoteSeriesUpdated, "quotes", &events.QuoteSeriesUpdatedData{
			AssetID:   assetID.String(),
			FirstDate: domain.FormatDate(earliest),
			LastDate:  domain.FormatDate(latest),
			Points:    len(series),
		})
	}

	s.log.Info().
		Str("asset_id", assetID.String()).
		Int("points", len(series)).
		Msg("Quote series ingested")
	return nil
}

// GetSeries returns the quote series for a date range, serving from the
// cache only when the cached run spans the whole request. The cache holds
// the most recent ingested batch, which may cover less than the database.
func (s *Service) GetSeries(assetID uuid.UUID, start, end time.Time) ([]domain.Quote, error) {
	if cached, ok := s.cache.Get(assetID); ok && coversRange(cached, start, end) {
		filtered := make([]domain.Quote, 0, len(cached))
		for _, q := range cached {
			day := domain.DateOf(q.Timestamp)
			if !day.Before(domain.DateOf(start)) && !day.After(domain.DateOf(end)) {
				filtered = append(filtered, q)
			}
		}
		return filtered, nil
	}

	return s.quotes.GetRange(assetID, start, end)
}

// coversRange reports whether the series' day span contains [start, end].
func coversRange(series []domain.Quote, start, end time.Time) bool {
	if len(series) == 0 {
		return false
	}
	first := domain.DateOf(series[0].Timestamp)
	last := first
	for _, q := range series[1:] {
		day := domain.DateOf(q.Timestamp)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}
	return !first.After(domain.DateOf(start)) && !last.Before(domain.DateOf(end))
}
