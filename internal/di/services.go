package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/config"
	"github.com/ivanmoreno/cartera/internal/events"
	"github.com/ivanmoreno/cartera/internal/modules/fiscal"
	"github.com/ivanmoreno/cartera/internal/modules/ledger"
	"github.com/ivanmoreno/cartera/internal/modules/quotes"
	"github.com/ivanmoreno/cartera/internal/modules/snapshots"
	"github.com/ivanmoreno/cartera/internal/queue"
	"github.com/ivanmoreno/cartera/internal/reliability"
	"github.com/ivanmoreno/cartera/internal/work"
)

// InitializeServices creates the event bus, domain services and background
// workers, then wires the event listeners and job handlers together.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.LedgerService = ledger.NewService(
		container.TransactionRepo,
		container.PositionRepo,
		container.AssetRepo,
		container.PortfolioRepo,
		container.EventManager,
		cfg.OversellPolicy,
		log,
	)

	container.QuotesService = quotes.NewService(
		container.AssetRepo,
		container.QuoteRepo,
		container.QuoteCache,
		container.EventManager,
		log,
	)

	container.FiscalService = fiscal.NewService(
		container.TransactionRepo,
		container.AssetRepo,
		container.PortfolioRepo,
		log,
	)

	container.Reconstructor = snapshots.NewReconstructor(
		container.TransactionRepo,
		container.QuoteRepo,
		container.AssetRepo,
		container.PortfolioRepo,
		container.SnapshotRepo,
		container.EventManager,
		log,
	)
	container.Backfiller = snapshots.NewBackfiller(container.Reconstructor, log)

	container.Maintenance = reliability.NewMaintenance(container.Databases(), cfg.DataDir, log)

	if cfg.Backup != nil && cfg.Backup.Enabled {
		backupService, err := reliability.NewBackupService(container.Databases(), cfg.Backup, cfg.DataDir, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup service: %w", err)
		}
		container.BackupService = backupService
	}

	container.QueueManager = queue.NewManager(container.CacheDB.Conn(), container.EventManager, log)
	container.Scheduler = queue.NewScheduler(container.QueueManager, cfg, log)

	deps := &work.Deps{
		Backfiller:  container.Backfiller,
		Portfolios:  container.PortfolioRepo,
		Maintenance: container.Maintenance,
		Log:         log,
	}
	if container.BackupService != nil {
		deps.Backup = container.BackupService
	}
	work.RegisterHandlers(container.QueueManager, deps)

	queue.RegisterListeners(container.EventBus, container.QueueManager, log)

	return nil
}
