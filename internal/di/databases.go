package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/config"
	"github.com/ivanmoreno/cartera/internal/database"
)

// InitializeDatabases opens all five databases and applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	specs := []struct {
		name    string
		profile database.Profile
		target  **database.DB
	}{
		{"ledger", database.ProfileLedger, &container.LedgerDB},
		{"portfolio", database.ProfileStandard, &container.PortfolioDB},
		{"market", database.ProfileStandard, &container.MarketDB},
		{"history", database.ProfileStandard, &container.HistoryDB},
		{"cache", database.ProfileCache, &container.CacheDB},
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", spec.name, err)
		}

		if err := db.Migrate(); err != nil {
			db.Close()
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}

		*spec.target = db
		log.Info().Str("database", spec.name).Str("path", db.Path()).Msg("Database initialized")
	}

	return container, nil
}
