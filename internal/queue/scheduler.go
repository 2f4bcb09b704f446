package queue

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/config"
)

// Scheduler drives the recurring jobs: the daily snapshot run, nightly
// backups, periodic health checks and WAL checkpoints. It only enqueues;
// workers do the actual work.
type Scheduler struct {
	cron    *cron.Cron
	manager *Manager
	cfg     *config.Config
	log     zerolog.Logger
}

// NewScheduler creates a scheduler bound to the given queue manager.
func NewScheduler(manager *Manager, cfg *config.Config, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		manager: manager,
		cfg:     cfg,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the recurring jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// Daily snapshot for every portfolio, once the market day is over.
	dailySpec := fmt.Sprintf("0 %d * * *", s.cfg.SnapshotHour)
	if err := s.add(dailySpec, "daily_snapshot", func() {
		s.manager.EnqueueIfShouldRun(JobTypeDailySnapshot, PriorityMedium, 12*time.Hour, nil)
	}); err != nil {
		return err
	}

	if s.cfg.Backup != nil && s.cfg.Backup.Enabled {
		if err := s.add("30 2 * * *", "db_backup", func() {
			s.manager.EnqueueIfShouldRun(JobTypeBackup, PriorityLow, 12*time.Hour, nil)
		}); err != nil {
			return err
		}
	}

	if err := s.add("*/15 * * * *", "health_check", func() {
		s.manager.EnqueueIfShouldRun(JobTypeHealthCheck, PriorityLow, 10*time.Minute, nil)
	}); err != nil {
		return err
	}

	if err := s.add("0 */6 * * *", "wal_checkpoint", func() {
		s.manager.EnqueueIfShouldRun(JobTypeWALCheckpoint, PriorityLow, 5*time.Hour, nil)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Int("snapshot_hour", s.cfg.SnapshotHour).Msg("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running entries to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) add(spec, name string, fn func()) error {
	_, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	s.log.Info().Str("schedule", spec).Str("job", name).Msg("Job scheduled")
	return nil
}
