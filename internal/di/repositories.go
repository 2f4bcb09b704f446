package di

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/modules/ledger"
	"github.com/ivanmoreno/cartera/internal/modules/portfolio"
	"github.com/ivanmoreno/cartera/internal/modules/quotes"
	"github.com/ivanmoreno/cartera/internal/modules/snapshots"
)

// quoteCacheTTL bounds how long a cached quote series serves reads before
// falling back to the market database.
const quoteCacheTTL = 15 * time.Minute

// InitializeRepositories creates all repositories over the open databases.
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.TransactionRepo = ledger.NewTransactionRepository(container.LedgerDB.Conn(), log)
	container.PortfolioRepo = portfolio.NewPortfolioRepository(container.PortfolioDB.Conn(), log)
	container.PositionRepo = portfolio.NewPositionRepository(container.PortfolioDB.Conn(), log)
	container.AssetRepo = quotes.NewAssetRepository(container.MarketDB.Conn(), log)
	container.QuoteRepo = quotes.NewQuoteRepository(container.MarketDB.Conn(), log)
	container.SnapshotRepo = snapshots.NewSnapshotRepository(container.HistoryDB.Conn(), log)
	container.QuoteCache = quotes.NewCache(container.CacheDB.Conn(), quoteCacheTTL, log)
}
