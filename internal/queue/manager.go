package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/events"
)

// HandlerFunc executes one job.
type HandlerFunc func(job *Job) error

// Manager owns the in-process job queue: a registry of handlers, a buffered
// channel of pending jobs and a fixed worker pool draining it. Periodic jobs
// record their last run in cache.db so restarts do not replay them early.
type Manager struct {
	mu       sync.RWMutex
	handlers map[JobType]HandlerFunc

	jobs    chan *Job
	cacheDB *sql.DB
	emitter *events.Manager
	log     zerolog.Logger

	wg      sync.WaitGroup
	stop    chan struct{}
	started bool
}

// NewManager creates a new queue manager. cacheDB may be nil in tests; the
// interval bookkeeping then degrades to always-run.
func NewManager(cacheDB *sql.DB, emitter *events.Manager, log zerolog.Logger) *Manager {
	return &Manager{
		handlers: make(map[JobType]HandlerFunc),
		jobs:     make(chan *Job, 256),
		cacheDB:  cacheDB,
		emitter:  emitter,
		log:      log.With().Str("component", "queue").Logger(),
		stop:     make(chan struct{}),
	}
}

// Register binds a handler to a job type. Registration happens at startup,
// before Start.
func (m *Manager) Register(jobType JobType, handler HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobType] = handler
}

// Start launches the worker pool.
func (m *Manager) Start(workers int) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	m.log.Info().Int("workers", workers).Msg("Queue manager started")
}

// Stop drains the stop signal and waits for in-flight jobs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()
	m.log.Info().Msg("Queue manager stopped")
}

// Enqueue adds a job to the queue. It fails when the queue is full rather
// than blocking the caller.
func (m *Manager) Enqueue(job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	select {
	case m.jobs <- job:
		m.log.Debug().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Msg("Job enqueued")
		return nil
	default:
		return errors.New("job queue is full")
	}
}

// EnqueueIfShouldRun enqueues a periodic job only when its interval has
// passed since the recorded last run.
func (m *Manager) EnqueueIfShouldRun(jobType JobType, priority Priority, interval time.Duration, payload map[string]interface{}) bool {
	if !m.shouldRun(jobType, interval) {
		return false
	}

	job := &Job{
		ID:         fmt.Sprintf("%s-%d", jobType, time.Now().UnixNano()),
		Type:       jobType,
		Priority:   priority,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: 1,
	}
	if err := m.Enqueue(job); err != nil {
		m.log.Error().Err(err).Str("job_type", string(jobType)).Msg("Failed to enqueue periodic job")
		return false
	}

	m.markRun(jobType)
	return true
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	log := m.log.With().Int("worker", id).Logger()

	for {
		select {
		case <-m.stop:
			return
		case job := <-m.jobs:
			m.execute(job, log)
		}
	}
}

func (m *Manager) execute(job *Job, log zerolog.Logger) {
	m.mu.RLock()
	handler, ok := m.handlers[job.Type]
	m.mu.RUnlock()

	if !ok {
		log.Error().Str("job_type", string(job.Type)).Msg("No handler registered for job type")
		return
	}

	start := time.Now()
	err := handler(job)
	elapsed := time.Since(start)

	if err == nil {
		log.Info().
			Str("job_id", job.ID).
			Str("job_type", string(job.Type)).
			Str("description", GetJobDescription(job.Type)).
			Dur("elapsed", elapsed).
			Msg("Job completed")
		return
	}

	log.Error().Err(err).
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Str("description", GetJobDescription(job.Type)).
		Int("retries", job.Retries).
		Msg("Job failed")

	if m.emitter != nil {
		m.emitter.EmitError("queue", err, map[string]interface{}{
			"job_id":   job.ID,
			"job_type": string(job.Type),
		})
	}

	if job.Retries < job.MaxRetries {
		job.Retries++
		if err := m.Enqueue(job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to re-enqueue job for retry")
		}
	}
}

// shouldRun consults the job_history table. Missing table or row means run.
func (m *Manager) shouldRun(jobType JobType, interval time.Duration) bool {
	if m.cacheDB == nil {
		return true
	}

	var lastRun int64
	err := m.cacheDB.QueryRow(`
		SELECT last_run_at FROM job_history WHERE job_type = ?`,
		string(jobType)).Scan(&lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		m.log.Warn().Err(err).Str("job_type", string(jobType)).Msg("Job history lookup failed")
		return true
	}

	return time.Since(time.Unix(lastRun, 0)) >= interval
}

func (m *Manager) markRun(jobType JobType) {
	if m.cacheDB == nil {
		return
	}

	_, err := m.cacheDB.Exec(`
		INSERT INTO job_history (job_type, last_run_at)
		VALUES (?, ?)
		ON CONFLICT(job_type) DO UPDATE SET last_run_at = excluded.last_run_at`,
		string(jobType), time.Now().UTC().Unix())
	if err != nil {
		m.log.Warn().Err(err).Str("job_type", string(jobType)).Msg("Failed to record job run")
	}
}
