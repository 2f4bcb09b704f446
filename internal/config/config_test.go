package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CARTERA_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, domain.OversellAllow, cfg.OversellPolicy)
	assert.Equal(t, 20, cfg.SnapshotHour)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CARTERA_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("OVERSELL_POLICY", "strict")
	t.Setenv("SNAPSHOT_HOUR", "22")
	t.Setenv("BACKUP_S3_BUCKET", "cartera-backups")
	t.Setenv("BACKUP_KEEP", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, domain.OversellStrict, cfg.OversellPolicy)
	assert.Equal(t, 22, cfg.SnapshotHour)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "cartera-backups", cfg.Backup.Bucket)
	assert.Equal(t, 7, cfg.Backup.Keep)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "unknown oversell policy",
			cfg:  Config{OversellPolicy: "sometimes", SnapshotHour: 20},
		},
		{
			name: "snapshot hour too large",
			cfg:  Config{OversellPolicy: domain.OversellAllow, SnapshotHour: 24},
		},
		{
			name: "negative snapshot hour",
			cfg:  Config{OversellPolicy: domain.OversellAllow, SnapshotHour: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
