package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second int
	bus.Subscribe(LedgerChanged, func(event *Event) { first++ })
	bus.Subscribe(LedgerChanged, func(event *Event) { second++ })
	bus.Subscribe(SnapshotCreated, func(event *Event) { t.Error("wrong event type delivered") })

	bus.Emit(LedgerChanged, "ledger", nil)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestEmitTypedRoundTrip(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(LedgerChanged, func(event *Event) { received = event })

	manager.EmitTyped(LedgerChanged, "ledger", &LedgerChangedData{
		PortfolioID:   "p-1",
		AffectedDates: []string{"2024-03-15", "2024-03-16"},
	})

	require.NotNil(t, received)
	assert.Equal(t, LedgerChanged, received.Type)
	assert.Equal(t, "ledger", received.Module)

	var decoded LedgerChangedData
	require.NoError(t, FromMap(received.Data, &decoded))
	assert.Equal(t, "p-1", decoded.PortfolioID)
	assert.Equal(t, []string{"2024-03-15", "2024-03-16"}, decoded.AffectedDates)
}

func TestEmitErrorCarriesContext(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(ErrorOccurred, func(event *Event) { received = event })

	manager.EmitError("queue", assert.AnError, map[string]interface{}{"job_id": "j-1"})

	require.NotNil(t, received)

	var decoded ErrorEventData
	require.NoError(t, FromMap(received.Data, &decoded))
	assert.Equal(t, assert.AnError.Error(), decoded.Error)
	assert.Equal(t, "j-1", decoded.Context["job_id"])
}
