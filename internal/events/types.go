// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// LedgerChanged fires after any transaction mutation commits: create,
	// edit, delete or batch replacement. It carries the affected portfolio
	// and the set of affected calendar dates, and drives the reactive
	// snapshot backfill.
	LedgerChanged EventType = "LEDGER_CHANGED"

	// SnapshotCreated fires after a snapshot day is persisted.
	SnapshotCreated EventType = "SNAPSHOT_CREATED"

	// QuoteSeriesUpdated fires after new quote points are ingested.
	QuoteSeriesUpdated EventType = "QUOTE_SERIES_UPDATED"

	// ErrorOccurred reports a background failure.
	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// Event represents a system event with a typed payload map.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
