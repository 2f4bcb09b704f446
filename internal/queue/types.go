// Package queue runs background jobs dispatched from events and schedules.
package queue

import "time"

// JobType represents the type of job
type JobType string

const (
	// JobTypeSnapshotBackfill recomputes snapshots for a portfolio over a
	// date range, triggered reactively by ledger or quote changes.
	JobTypeSnapshotBackfill JobType = "snapshot_backfill"

	// JobTypeDailySnapshot creates yesterday's snapshot for every portfolio.
	JobTypeDailySnapshot JobType = "daily_snapshot"

	// JobTypeBackup uploads the database files to object storage.
	JobTypeBackup JobType = "db_backup"

	// JobTypeHealthCheck pings every database connection.
	JobTypeHealthCheck JobType = "health_check"

	// JobTypeWALCheckpoint compacts the write-ahead logs.
	JobTypeWALCheckpoint JobType = "wal_checkpoint"
)

// Priority represents job priority
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// Job represents a queued job
type Job struct {
	ID          string
	Type        JobType
	Priority    Priority
	Payload     map[string]interface{}
	CreatedAt   time.Time
	Retries     int
	MaxRetries  int
}

// GetJobDescription returns a human-readable description for a job type
func GetJobDescription(jobType JobType) string {
	descriptions := map[JobType]string{
		JobTypeSnapshotBackfill: "Recomputing portfolio snapshots",
		JobTypeDailySnapshot:    "Creating daily snapshots",
		JobTypeBackup:           "Uploading database backup",
		JobTypeHealthCheck:      "Running health check",
		JobTypeWALCheckpoint:    "Checkpointing write-ahead logs",
	}

	if desc, exists := descriptions[jobType]; exists {
		return desc
	}
	return string(jobType)
}
