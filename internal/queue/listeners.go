package queue

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/events"
)

// RegisterListeners wires event bus subscriptions to queue jobs. Handlers run
// on the emitting goroutine, so they do nothing beyond building a job and
// enqueueing it; the heavy lifting happens in the worker pool.
func RegisterListeners(bus *events.Bus, manager *Manager, log zerolog.Logger) {
	log = log.With().Str("component", "queue_listeners").Logger()

	// Ledger mutations invalidate every snapshot from the earliest affected
	// date forward. The backfill handler recomputes that range with
	// overwrite enabled.
	bus.Subscribe(events.LedgerChanged, func(event *events.Event) {
		var data events.LedgerChangedData
		if err := events.FromMap(event.Data, &data); err != nil {
			log.Error().Err(err).Msg("Failed to decode ledger changed event")
			return
		}
		if data.PortfolioID == "" || len(data.AffectedDates) == 0 {
			return
		}

		job := &Job{
			ID:       fmt.Sprintf("%s-%d", JobTypeSnapshotBackfill, event.Timestamp.UnixNano()),
			Type:     JobTypeSnapshotBackfill,
			Priority: PriorityHigh,
			Payload: map[string]interface{}{
				"portfolio_id":   data.PortfolioID,
				"affected_dates": data.AffectedDates,
			},
			CreatedAt:  event.Timestamp,
			MaxRetries: 3,
		}
		if err := manager.Enqueue(job); err != nil {
			log.Error().Err(err).
				Str("portfolio_id", data.PortfolioID).
				Msg("Failed to enqueue snapshot backfill")
		}
	})

	// A freshly ingested quote series changes valuations across every
	// portfolio, but existing snapshots stay authoritative, so the handler
	// only fills gaps inside the ingested range.
	bus.Subscribe(events.QuoteSeriesUpdated, func(event *events.Event) {
		var data events.QuoteSeriesUpdatedData
		if err := events.FromMap(event.Data, &data); err != nil {
			log.Error().Err(err).Msg("Failed to decode quote series event")
			return
		}
		if data.FirstDate == "" || data.LastDate == "" {
			return
		}

		job := &Job{
			ID:       fmt.Sprintf("%s-quotes-%d", JobTypeSnapshotBackfill, event.Timestamp.UnixNano()),
			Type:     JobTypeSnapshotBackfill,
			Priority: PriorityLow,
			Payload: map[string]interface{}{
				"asset_id":   data.AssetID,
				"first_date": data.FirstDate,
				"last_date":  data.LastDate,
			},
			CreatedAt:  event.Timestamp,
			MaxRetries: 3,
		}
		if err := manager.Enqueue(job); err != nil {
			log.Error().Err(err).
				Str("asset_id", data.AssetID).
				Msg("Failed to enqueue quote-driven backfill")
		}
	})
}
