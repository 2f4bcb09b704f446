package reliability

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/database"
	cartesting "github.com/ivanmoreno/cartera/internal/testing"
)

func maintenanceFixture(t *testing.T) *Maintenance {
	t.Helper()

	ledgerDB, cleanupLedger := cartesting.NewTestDB(t, "ledger")
	t.Cleanup(cleanupLedger)
	cacheDB, cleanupCache := cartesting.NewTestDB(t, "cache")
	t.Cleanup(cleanupCache)

	databases := map[string]*database.DB{
		"ledger": ledgerDB,
		"cache":  cacheDB,
	}
	return NewMaintenance(databases, t.TempDir(), zerolog.Nop())
}

func TestHealthCheckPassesOnHealthyDatabases(t *testing.T) {
	m := maintenanceFixture(t)
	require.NoError(t, m.HealthCheck())
}

func TestCheckpointWALSucceeds(t *testing.T) {
	m := maintenanceFixture(t)
	assert.NoError(t, m.CheckpointWAL())
}

func TestCheckpointWALWithNoDatabases(t *testing.T) {
	m := NewMaintenance(map[string]*database.DB{}, t.TempDir(), zerolog.Nop())
	assert.NoError(t, m.CheckpointWAL())
}
