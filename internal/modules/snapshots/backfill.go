package snapshots

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// Backfiller walks a date range and reconstructs one snapshot per calendar
// day. Days are isolated: an existing snapshot counts as a skip, any other
// failure is recorded and the walk continues. Re-running without overwrite
// is therefore a cheap way to resume an interrupted backfill.
type Backfiller struct {
	reconstructor *Reconstructor
	log           zerolog.Logger
}

// NewBackfiller creates a new backfiller.
func NewBackfiller(reconstructor *Reconstructor, log zerolog.Logger) *Backfiller {
	return &Backfiller{
		reconstructor: reconstructor,
		log:           log.With().Str("service", "backfill").Logger(),
	}
}

// Run backfills snapshots for every day in [from, to] inclusive. The range
// is not capped here; callers that need a cap enforce it at their boundary.
func (b *Backfiller) Run(portfolioID uuid.UUID, from, to time.Time, overwrite bool) (*domain.BackfillResult, error) {
	start := domain.DateOf(from)
	end := domain.DateOf(to)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid backfill range: %s is after %s",
			domain.FormatDate(start), domain.FormatDate(end))
	}

	result := &domain.BackfillResult{
		Errors: make([]domain.BackfillError, 0),
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		result.TotalDays++

		_, _, err := b.reconstructor.Snapshot(portfolioID, day, overwrite)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, domain.ErrSnapshotExists):
			result.Skipped++
		default:
			result.Errors = append(result.Errors, domain.BackfillError{
				Date:    domain.FormatDate(day),
				Message: err.Error(),
			})
			b.log.Warn().Err(err).
				Str("portfolio_id", portfolioID.String()).
				Str("date", domain.FormatDate(day)).
				Msg("Backfill day failed")
		}
	}

	b.log.Info().
		Str("portfolio_id", portfolioID.String()).
		Str("from", domain.FormatDate(start)).
		Str("to", domain.FormatDate(end)).
		Bool("overwrite", overwrite).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Backfill completed")

	return result, nil
}
