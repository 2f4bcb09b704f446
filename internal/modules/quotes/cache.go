package quotes

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// Cache stores recently ingested quote series as msgpack blobs in cache.db
// so chart reads skip the market database. Entries older than the TTL are
// treated as misses.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a new quote cache with the given TTL.
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("repo", "quote_cache").Logger(),
	}
}

// cachedPoint is the wire form of one quote point. Decimals travel as
// strings to keep the round trip exact.
type cachedPoint struct {
	Timestamp int64  `msgpack:"t"`
	Open      string `msgpack:"o"`
	High      string `msgpack:"h"`
	Low       string `msgpack:"l"`
	Close     string `msgpack:"c"`
	Volume    int64  `msgpack:"v"`
}

// Put stores the series for an asset, replacing any previous entry.
func (c *Cache) Put(assetID uuid.UUID, series []domain.Quote) error {
	points := make([]cachedPoint, 0, len(series))
	for _, q := range series {
		points = append(points, cachedPoint{
			Timestamp: q.Timestamp.UTC().Unix(),
			Open:      q.Open.String(),
			High:      q.High.String(),
			Low:       q.Low.String(),
			Close:     q.Close.String(),
			Volume:    q.Volume,
		})
	}

	payload, err := msgpack.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal quote series: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO quote_cache (asset_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		assetID.String(), payload, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to write quote cache: %w", err)
	}
	return nil
}

// Get returns the cached series for an asset, or (nil, false) on a miss or
// an expired entry.
func (c *Cache) Get(assetID uuid.UUID) ([]domain.Quote, bool) {
	var payload []byte
	var updatedAt int64
	err := c.db.QueryRow(`
		SELECT payload, updated_at FROM quote_cache WHERE asset_id = ?`,
		assetID.String()).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("Quote cache read failed")
		return nil, false
	}

	if time.Since(time.Unix(updatedAt, 0)) > c.ttl {
		return nil, false
	}

	var points []cachedPoint
	if err := msgpack.Unmarshal(payload, &points); err != nil {
		c.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("Quote cache entry corrupt, dropping")
		c.Invalidate(assetID)
		return nil, false
	}

	series := make([]domain.Quote, 0, len(points))
	for _, p := range points {
		open, err1 := decimal.NewFromString(p.Open)
		high, err2 := decimal.NewFromString(p.High)
		low, err3 := decimal.NewFromString(p.Low)
		closePrice, err4 := decimal.NewFromString(p.Close)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			c.Invalidate(assetID)
			return nil, false
		}
		series = append(series, domain.Quote{
			AssetID:   assetID,
			Timestamp: time.Unix(p.Timestamp, 0).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    p.Volume,
		})
	}
	return series, true
}

// Invalidate removes the cached series for an asset.
func (c *Cache) Invalidate(assetID uuid.UUID) {
	if _, err := c.db.Exec(`DELETE FROM quote_cache WHERE asset_id = ?`, assetID.String()); err != nil {
		c.log.Warn().Err(err).Str("asset_id", assetID.String()).Msg("Quote cache invalidation failed")
	}
}
