package quotes

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// QuoteRepository handles quote series persistence.
type QuoteRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewQuoteRepository creates a new quote repository.
func NewQuoteRepository(db *sql.DB, log zerolog.Logger) *QuoteRepository {
	return &QuoteRepository{
		db:  db,
		log: log.With().Str("repo", "quote").Logger(),
	}
}

const quoteColumns = `asset_id, timestamp, open, high, low, close, volume`

// Upsert writes one quote point, replacing any point at the same timestamp.
func (r *QuoteRepository) Upsert(q *domain.Quote) error {
	_, err := r.db.Exec(`
		INSERT INTO quotes (`+quoteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id, timestamp) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`,
		q.AssetID.String(), q.Timestamp.UTC().Format(time.RFC3339),
		q.Open.String(), q.High.String(), q.Low.String(), q.Close.String(), q.Volume)
	if err != nil {
		return fmt.Errorf("failed to upsert quote: %w", err)
	}
	return nil
}

// UpsertBatch writes a series of quote points in one transaction.
func (r *QuoteRepository) UpsertBatch(assetID uuid.UUID, series []domain.Quote) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO quotes (` + quoteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id, timestamp) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, q := range series {
		_, err := stmt.Exec(
			assetID.String(), q.Timestamp.UTC().Format(time.RFC3339),
			q.Open.String(), q.High.String(), q.Low.String(), q.Close.String(), q.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert quote point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotes: %w", err)
	}
	return nil
}

// GetLatestOnOrBefore returns the most recent quote with a timestamp on or
// before the end of the given calendar date, or nil when the series has no
// such point. This is the stale-forward lookup snapshot valuation relies on.
func (r *QuoteRepository) GetLatestOnOrBefore(assetID uuid.UUID, date time.Time) (*domain.Quote, error) {
	row := r.db.QueryRow(`
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE asset_id = ? AND date(timestamp) <= ?
		ORDER BY timestamp DESC
		LIMIT 1`,
		assetID.String(), domain.FormatDate(date))

	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetRange returns the quote series for an asset between two dates inclusive,
// oldest first.
func (r *QuoteRepository) GetRange(assetID uuid.UUID, start, end time.Time) ([]domain.Quote, error) {
	rows, err := r.db.Query(`
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE asset_id = ? AND date(timestamp) >= ? AND date(timestamp) <= ?
		ORDER BY timestamp ASC`,
		assetID.String(), domain.FormatDate(start), domain.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	series := make([]domain.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		series = append(series, *q)
	}
	return series, rows.Err()
}

func scanQuote(row rowScanner) (*domain.Quote, error) {
	var assetStr, timestamp, openStr, highStr, lowStr, closeStr string
	var volume int64
	if err := row.Scan(&assetStr, &timestamp, &openStr, &highStr, &lowStr, &closeStr, &volume); err != nil {
		return nil, err
	}

	assetID, err := uuid.Parse(assetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote timestamp: %w", err)
	}

	open, err := decimal.NewFromString(openStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse open: %w", err)
	}
	high, err := decimal.NewFromString(highStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse high: %w", err)
	}
	low, err := decimal.NewFromString(lowStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse low: %w", err)
	}
	closePrice, err := decimal.NewFromString(closeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse close: %w", err)
	}

	return &domain.Quote{
		AssetID:   assetID,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
