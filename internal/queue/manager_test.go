package queue

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartesting "github.com/ivanmoreno/cartera/internal/testing"
)

func TestManagerExecutesJob(t *testing.T) {
	manager := NewManager(nil, nil, zerolog.Nop())

	var executed int32
	manager.Register(JobTypeDailySnapshot, func(job *Job) error {
		atomic.AddInt32(&executed, 1)
		return nil
	})

	manager.Start(1)
	defer manager.Stop()

	err := manager.Enqueue(&Job{
		ID:   "test-1",
		Type: JobTypeDailySnapshot,
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&executed) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerRetriesFailedJob(t *testing.T) {
	manager := NewManager(nil, nil, zerolog.Nop())

	var attempts int32
	manager.Register(JobTypeSnapshotBackfill, func(job *Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	})

	manager.Start(1)
	defer manager.Stop()

	err := manager.Enqueue(&Job{
		ID:         "retry-1",
		Type:       JobTypeSnapshotBackfill,
		MaxRetries: 3,
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerGivesUpAfterMaxRetries(t *testing.T) {
	manager := NewManager(nil, nil, zerolog.Nop())

	var attempts int32
	manager.Register(JobTypeSnapshotBackfill, func(job *Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent failure")
	})

	manager.Start(1)
	defer manager.Stop()

	err := manager.Enqueue(&Job{
		ID:         "fail-1",
		Type:       JobTypeSnapshotBackfill,
		MaxRetries: 2,
	})
	require.NoError(t, err)

	// Initial attempt plus two retries.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == 3
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestEnqueueIfShouldRunDedupesWithinInterval(t *testing.T) {
	cacheDB, cleanup := cartesting.NewTestDB(t, "cache")
	defer cleanup()

	manager := NewManager(cacheDB.Conn(), nil, zerolog.Nop())

	assert.True(t, manager.EnqueueIfShouldRun(JobTypeBackup, PriorityLow, time.Hour, nil))
	assert.False(t, manager.EnqueueIfShouldRun(JobTypeBackup, PriorityLow, time.Hour, nil))

	// A different job type keeps its own schedule.
	assert.True(t, manager.EnqueueIfShouldRun(JobTypeHealthCheck, PriorityLow, time.Hour, nil))
}

func TestEnqueueIfShouldRunAfterIntervalElapsed(t *testing.T) {
	cacheDB, cleanup := cartesting.NewTestDB(t, "cache")
	defer cleanup()

	manager := NewManager(cacheDB.Conn(), nil, zerolog.Nop())

	require.True(t, manager.EnqueueIfShouldRun(JobTypeWALCheckpoint, PriorityLow, time.Nanosecond, nil))
	time.Sleep(10 * time.Millisecond)
	assert.True(t, manager.EnqueueIfShouldRun(JobTypeWALCheckpoint, PriorityLow, time.Nanosecond, nil))
}

func TestGetJobDescriptionCoversEveryJobType(t *testing.T) {
	for _, jobType := range []JobType{
		JobTypeSnapshotBackfill,
		JobTypeDailySnapshot,
		JobTypeBackup,
		JobTypeHealthCheck,
		JobTypeWALCheckpoint,
	} {
		desc := GetJobDescription(jobType)
		assert.NotEmpty(t, desc)
		assert.NotEqual(t, string(jobType), desc)
	}

	// Unknown types fall back to the raw type string.
	assert.Equal(t, "mystery", GetJobDescription(JobType("mystery")))
}
