// Package reliability covers database upkeep and off-site backups: integrity
// checks, WAL checkpoints, disk space monitoring and S3 uploads.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/ivanmoreno/cartera/internal/database"
)

const (
	diskWarnPercent     = 85.0
	diskCriticalPercent = 95.0

	healthCheckTimeout = 30 * time.Second
)

// Maintenance runs the periodic upkeep jobs over every open database.
type Maintenance struct {
	databases map[string]*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenance creates a maintenance service for the given databases.
func NewMaintenance(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("service", "maintenance").Logger(),
	}
}

// HealthCheck pings and integrity-checks every database, then checks free
// disk space under the data directory. A corrupt database or a nearly full
// disk is an error; an elevated disk level only warns.
func (m *Maintenance) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	for name, db := range m.databases {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("health check failed for %s: %w", name, err)
		}
	}

	usage, err := disk.Usage(m.dataDir)
	if err != nil {
		m.log.Warn().Err(err).Msg("Disk usage check failed")
		return nil
	}

	switch {
	case usage.UsedPercent >= diskCriticalPercent:
		return fmt.Errorf("disk usage critical: %.1f%% used, %d MB free",
			usage.UsedPercent, usage.Free/1024/1024)
	case usage.UsedPercent >= diskWarnPercent:
		m.log.Warn().
			Float64("used_percent", usage.UsedPercent).
			Uint64("free_mb", usage.Free/1024/1024).
			Msg("Disk usage high")
	}

	return nil
}

// CheckpointWAL truncates the WAL file of every database. Failures are
// logged per database; the job itself only fails when every checkpoint does.
func (m *Maintenance) CheckpointWAL() error {
	var failed int
	for name, db := range m.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			failed++
			m.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	if failed == len(m.databases) && failed > 0 {
		return fmt.Errorf("WAL checkpoint failed for all %d databases", failed)
	}

	m.log.Debug().Int("databases", len(m.databases)).Msg("WAL checkpoints completed")
	return nil
}
