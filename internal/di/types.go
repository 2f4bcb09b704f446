// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/ivanmoreno/cartera/internal/database"
	"github.com/ivanmoreno/cartera/internal/events"
	"github.com/ivanmoreno/cartera/internal/modules/fiscal"
	"github.com/ivanmoreno/cartera/internal/modules/ledger"
	"github.com/ivanmoreno/cartera/internal/modules/portfolio"
	"github.com/ivanmoreno/cartera/internal/modules/quotes"
	"github.com/ivanmoreno/cartera/internal/modules/snapshots"
	"github.com/ivanmoreno/cartera/internal/queue"
	"github.com/ivanmoreno/cartera/internal/reliability"
)

// Container holds every wired dependency of the application.
type Container struct {
	// Databases
	LedgerDB    *database.DB
	PortfolioDB *database.DB
	MarketDB    *database.DB
	HistoryDB   *database.DB
	CacheDB     *database.DB

	// Repositories
	TransactionRepo *ledger.TransactionRepository
	PortfolioRepo   *portfolio.PortfolioRepository
	PositionRepo    *portfolio.PositionRepository
	AssetRepo       *quotes.AssetRepository
	QuoteRepo       *quotes.QuoteRepository
	SnapshotRepo    *snapshots.SnapshotRepository
	QuoteCache      *quotes.Cache

	// Services
	LedgerService *ledger.Service
	QuotesService *quotes.Service
	FiscalService *fiscal.Service
	Reconstructor *snapshots.Reconstructor
	Backfiller    *snapshots.Backfiller

	// Infrastructure
	EventBus      *events.Bus
	EventManager  *events.Manager
	QueueManager  *queue.Manager
	Scheduler     *queue.Scheduler
	Maintenance   *reliability.Maintenance
	BackupService *reliability.BackupService
}

// Databases returns the open databases keyed by name.
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"ledger":    c.LedgerDB,
		"portfolio": c.PortfolioDB,
		"market":    c.MarketDB,
		"history":   c.HistoryDB,
		"cache":     c.CacheDB,
	}
}

// Close closes every open database.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		if db != nil {
			db.Close()
		}
	}
}
