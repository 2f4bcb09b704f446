// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for all databases (always absolute)
	Port           int
	LogLevel       string
	DevMode        bool
	OversellPolicy domain.OversellPolicy
	SnapshotHour   int // Hour of day (0-23) for the automatic daily snapshot run
	Backup         *BackupConfig
}

// BackupConfig holds the S3-compatible backup target configuration.
// Backups are disabled when no bucket is configured.
type BackupConfig struct {
	Enabled   bool
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // Optional custom endpoint (S3-compatible storage)
	AccessKey string
	SecretKey string
	Keep      int // Number of backups retained per database
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CARTERA_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("PORT", 8000),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		OversellPolicy: domain.OversellPolicy(getEnv("OVERSELL_POLICY", string(domain.OversellAllow))),
		SnapshotHour:   getEnvAsInt("SNAPSHOT_HOUR", 20),
		Backup:         loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	switch c.OversellPolicy {
	case domain.OversellAllow, domain.OversellStrict:
	default:
		return fmt.Errorf("invalid OVERSELL_POLICY %q (want %q or %q)",
			c.OversellPolicy, domain.OversellAllow, domain.OversellStrict)
	}

	if c.SnapshotHour < 0 || c.SnapshotHour > 23 {
		return fmt.Errorf("invalid SNAPSHOT_HOUR %d (want 0-23)", c.SnapshotHour)
	}

	return nil
}

func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:   bucket != "",
		Bucket:    bucket,
		Prefix:    getEnv("BACKUP_S3_PREFIX", "backups"),
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Keep:      getEnvAsInt("BACKUP_KEEP", 14),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
