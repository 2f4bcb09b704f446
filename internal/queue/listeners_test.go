package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/events"
)

// jobRecorder captures every job a handler receives.
type jobRecorder struct {
	mu   sync.Mutex
	jobs []*Job
}

func (r *jobRecorder) handle(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *jobRecorder) snapshot() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Job(nil), r.jobs...)
}

func TestLedgerChangedEnqueuesBackfill(t *testing.T) {
	bus := events.NewBus()
	emitter := events.NewManager(bus, zerolog.Nop())
	manager := NewManager(nil, nil, zerolog.Nop())

	recorder := &jobRecorder{}
	manager.Register(JobTypeSnapshotBackfill, recorder.handle)
	RegisterListeners(bus, manager, zerolog.Nop())

	manager.Start(1)
	defer manager.Stop()

	emitter.EmitTyped(events.LedgerChanged, "ledger", &events.LedgerChangedData{
		PortfolioID:   "4f5bd5e5-8a5f-4a87-9e5e-1c2b3d4e5f60",
		AffectedDates: []string{"2024-03-15", "2024-03-10"},
	})

	require.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	job := recorder.snapshot()[0]
	assert.Equal(t, JobTypeSnapshotBackfill, job.Type)
	assert.Equal(t, PriorityHigh, job.Priority)
	assert.Equal(t, 3, job.MaxRetries)
	assert.Equal(t, "4f5bd5e5-8a5f-4a87-9e5e-1c2b3d4e5f60", job.Payload["portfolio_id"])
}

func TestLedgerChangedWithoutDatesIsIgnored(t *testing.T) {
	bus := events.NewBus()
	emitter := events.NewManager(bus, zerolog.Nop())
	manager := NewManager(nil, nil, zerolog.Nop())

	recorder := &jobRecorder{}
	manager.Register(JobTypeSnapshotBackfill, recorder.handle)
	RegisterListeners(bus, manager, zerolog.Nop())

	manager.Start(1)
	defer manager.Stop()

	emitter.EmitTyped(events.LedgerChanged, "ledger", &events.LedgerChangedData{
		PortfolioID: "4f5bd5e5-8a5f-4a87-9e5e-1c2b3d4e5f60",
	})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, recorder.snapshot())
}

func TestQuoteSeriesUpdatedEnqueuesLowPriorityBackfill(t *testing.T) {
	bus := events.NewBus()
	emitter := events.NewManager(bus, zerolog.Nop())
	manager := NewManager(nil, nil, zerolog.Nop())

	recorder := &jobRecorder{}
	manager.Register(JobTypeSnapshotBackfill, recorder.handle)
	RegisterListeners(bus, manager, zerolog.Nop())

	manager.Start(1)
	defer manager.Stop()

	emitter.EmitTyped(events.QuoteSeriesUpdated, "quotes", &events.QuoteSeriesUpdatedData{
		AssetID:   "7a1c9f3d-2b4e-4c6d-8e0f-1a2b3c4d5e6f",
		FirstDate: "2024-01-02",
		LastDate:  "2024-01-31",
		Points:    21,
	})

	require.Eventually(t, func() bool {
		return len(recorder.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	job := recorder.snapshot()[0]
	assert.Equal(t, PriorityLow, job.Priority)
	assert.Equal(t, "2024-01-02", job.Payload["first_date"])
	assert.Equal(t, "2024-01-31", job.Payload["last_date"])
}
