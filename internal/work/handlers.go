// Package work implements the queue job handlers: snapshot backfills driven
// by ledger and quote events, the daily snapshot run, database backups and
// maintenance jobs.
package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/domain"
	"github.com/ivanmoreno/cartera/internal/queue"
)

// BackfillRunner runs a snapshot backfill over a date range.
type BackfillRunner interface {
	Run(portfolioID uuid.UUID, from, to time.Time, overwrite bool) (*domain.BackfillResult, error)
}

// BackupRunner uploads database backups and rotates old ones.
type BackupRunner interface {
	Run() error
}

// MaintenanceRunner covers the periodic database upkeep jobs.
type MaintenanceRunner interface {
	HealthCheck() error
	CheckpointWAL() error
}

// Deps holds everything the job handlers need.
type Deps struct {
	Backfiller  BackfillRunner
	Portfolios  domain.PortfolioReader
	Backup      BackupRunner
	Maintenance MaintenanceRunner
	Log         zerolog.Logger
}

// RegisterHandlers binds a handler to every job type the scheduler and the
// event listeners produce.
func RegisterHandlers(manager *queue.Manager, deps *Deps) {
	log := deps.Log.With().Str("component", "work").Logger()

	manager.Register(queue.JobTypeSnapshotBackfill, func(job *queue.Job) error {
		return handleSnapshotBackfill(job, deps, log)
	})

	manager.Register(queue.JobTypeDailySnapshot, func(job *queue.Job) error {
		return handleDailySnapshot(deps, log)
	})

	manager.Register(queue.JobTypeBackup, func(job *queue.Job) error {
		if deps.Backup == nil {
			return nil
		}
		return deps.Backup.Run()
	})

	manager.Register(queue.JobTypeHealthCheck, func(job *queue.Job) error {
		if deps.Maintenance == nil {
			return nil
		}
		return deps.Maintenance.HealthCheck()
	})

	manager.Register(queue.JobTypeWALCheckpoint, func(job *queue.Job) error {
		if deps.Maintenance == nil {
			return nil
		}
		return deps.Maintenance.CheckpointWAL()
	})
}

// handleSnapshotBackfill serves two payload shapes. Ledger mutations carry a
// portfolio and its affected dates; the rebuild runs from the earliest of
// them through today with overwrite enabled, since every later snapshot is
// stale. Quote ingests carry a date range; existing snapshots stay
// authoritative, so every portfolio is filled without overwrite.
func handleSnapshotBackfill(job *queue.Job, deps *Deps, log zerolog.Logger) error {
	if portfolioID, ok := job.Payload["portfolio_id"].(string); ok {
		return backfillAfterLedgerChange(portfolioID, job.Payload, deps, log)
	}
	return backfillAfterQuoteIngest(job.Payload, deps, log)
}

func backfillAfterLedgerChange(portfolioID string, payload map[string]interface{}, deps *Deps, log zerolog.Logger) error {
	id, err := uuid.Parse(portfolioID)
	if err != nil {
		return fmt.Errorf("invalid portfolio id %q: %w", portfolioID, err)
	}

	from, err := earliestDate(payload["affected_dates"])
	if err != nil {
		return err
	}

	result, err := deps.Backfiller.Run(id, from, time.Now().UTC(), true)
	if err != nil {
		return fmt.Errorf("ledger-driven backfill failed: %w", err)
	}
	if len(result.Errors) > 0 {
		log.Warn().
			Str("portfolio_id", portfolioID).
			Int("errors", len(result.Errors)).
			Msg("Ledger-driven backfill finished with errors")
	}

	return nil
}

func backfillAfterQuoteIngest(payload map[string]interface{}, deps *Deps, log zerolog.Logger) error {
	first, ok := payload["first_date"].(string)
	if !ok {
		return errors.New("backfill payload has neither portfolio_id nor first_date")
	}
	last, _ := payload["last_date"].(string)

	from, err := domain.ParseDate(first)
	if err != nil {
		return fmt.Errorf("invalid first_date %q: %w", first, err)
	}
	to, err := domain.ParseDate(last)
	if err != nil {
		return fmt.Errorf("invalid last_date %q: %w", last, err)
	}

	portfolios, err := deps.Portfolios.GetAll()
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	for _, p := range portfolios {
		if _, err := deps.Backfiller.Run(p.ID, from, to, false); err != nil {
			log.Warn().Err(err).
				Str("portfolio_id", p.ID.String()).
				Msg("Quote-driven backfill failed for portfolio")
		}
	}

	return nil
}

// handleDailySnapshot reconstructs yesterday's snapshot for every portfolio.
// Portfolios already snapshotted count as skips, so the job is idempotent
// within a day.
func handleDailySnapshot(deps *Deps, log zerolog.Logger) error {
	yesterday := domain.DateOf(time.Now().UTC().AddDate(0, 0, -1))

	portfolios, err := deps.Portfolios.GetAll()
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	var failed int
	for _, p := range portfolios {
		result, err := deps.Backfiller.Run(p.ID, yesterday, yesterday, false)
		if err != nil || len(result.Errors) > 0 {
			failed++
			log.Warn().
				Str("portfolio_id", p.ID.String()).
				Str("date", domain.FormatDate(yesterday)).
				Msg("Daily snapshot failed for portfolio")
		}
	}

	if failed > 0 {
		return fmt.Errorf("daily snapshot failed for %d of %d portfolios", failed, len(portfolios))
	}

	log.Info().
		Str("date", domain.FormatDate(yesterday)).
		Int("portfolios", len(portfolios)).
		Msg("Daily snapshot run completed")
	return nil
}

// earliestDate returns the minimum of the YYYY-MM-DD dates in the payload
// value. The listener enqueues []string; payloads that crossed a JSON
// boundary arrive as []interface{}.
func earliestDate(value interface{}) (time.Time, error) {
	var dates []string
	switch v := value.(type) {
	case []string:
		dates = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return time.Time{}, fmt.Errorf("affected_dates contains a non-string entry %v", item)
			}
			dates = append(dates, s)
		}
	}
	if len(dates) == 0 {
		return time.Time{}, errors.New("backfill payload is missing affected_dates")
	}

	var earliest time.Time
	for _, s := range dates {
		d, err := domain.ParseDate(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid affected date %q: %w", s, err)
		}
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}

	return earliest, nil
}
