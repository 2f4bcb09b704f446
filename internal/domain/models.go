// Package domain contains the core types shared across modules.
//
// The domain layer is pure: no database handles, no HTTP, no logging. All
// monetary and quantity fields use decimal arithmetic; binary floating point
// is reserved for derived reporting statistics only.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates the supported ledger entry types.
type TransactionType string

const (
	TransactionBuy        TransactionType = "buy"
	TransactionSell       TransactionType = "sell"
	TransactionDividend   TransactionType = "dividend"
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionDividend,
		TransactionDeposit, TransactionWithdrawal:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Entries are never patched in
// place: edits happen by full replacement, and every mutation forces a full
// replay of the affected (portfolio, asset) pair.
//
// Seq is a monotonically increasing ledger sequence assigned on insert. It is
// the deterministic tie-break for transactions sharing the same ExecutedAt
// timestamp: replay order is (ExecutedAt ASC, Seq ASC).
type Transaction struct {
	ID          uuid.UUID
	PortfolioID uuid.UUID
	AssetID     uuid.UUID
	Type        TransactionType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	ExecutedAt  time.Time
	Seq         int64
	CreatedAt   time.Time
}

// Position is the derived, non-authoritative cost-basis row for one
// (portfolio, asset) pair. It is always recomputable from the ledger and is
// deleted when the replayed quantity zeroes out.
type Position struct {
	PortfolioID uuid.UUID
	AssetID     uuid.UUID
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	UpdatedAt   time.Time
}

// Portfolio is a named container of transactions and derived state.
type Portfolio struct {
	ID        uuid.UUID
	Name      string
	Currency  string
	CreatedAt time.Time
}

// AssetType enumerates supported asset classes.
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetETF    AssetType = "etf"
	AssetFund   AssetType = "fund"
	AssetCrypto AssetType = "crypto"
	AssetCash   AssetType = "cash"
)

// Asset is reference metadata for an instrument.
type Asset struct {
	ID       uuid.UUID
	Symbol   string
	Name     string
	Type     AssetType
	Currency string
}

// Quote is one point of an external OHLCV time series. Quotes are valuation
// input only; the engine never mutates them.
type Quote struct {
	AssetID   uuid.UUID
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// RealizedGain is one FIFO-matched slice of a sell for tax reporting.
// Gain = (SellPrice - BuyPrice) * Quantity.
type RealizedGain struct {
	Symbol    string
	BuyDate   time.Time
	SellDate  time.Time
	Quantity  decimal.Decimal
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Gain      decimal.Decimal
}

// PortfolioSnapshot is the immutable point-in-time valuation of a portfolio
// for one calendar date. One row per (portfolio, date); overwrites are a full
// delete and recreate, never a field patch.
type PortfolioSnapshot struct {
	ID              uuid.UUID
	PortfolioID     uuid.UUID
	Date            time.Time // calendar date, truncated to midnight UTC
	TotalInvested   decimal.Decimal
	TotalValue      decimal.Decimal
	CashBalance     decimal.Decimal
	DailyPnL        decimal.Decimal
	DailyPnLPercent decimal.Decimal
	TotalPnL        decimal.Decimal
	TotalPnLPercent decimal.Decimal
	PositionCount   int
	AssetCount      int
	CreatedAt       time.Time
}

// PositionSnapshot is the per-asset child of a PortfolioSnapshot.
type PositionSnapshot struct {
	ID                 uuid.UUID
	SnapshotID         uuid.UUID
	AssetID            uuid.UUID
	Date               time.Time
	Symbol             string
	Quantity           decimal.Decimal
	AverageBuyPrice    decimal.Decimal
	CurrentPrice       decimal.Decimal
	TotalCost          decimal.Decimal
	CurrentValue       decimal.Decimal
	PositionPnL        decimal.Decimal
	PositionPnLPercent decimal.Decimal
	DailyChange        decimal.Decimal
	DailyChangePercent decimal.Decimal
	PortfolioWeight    decimal.Decimal
}

// BackfillError records a single day's failure inside a backfill run.
type BackfillError struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

// BackfillResult summarizes a date-range backfill. Days that already had a
// snapshot (and overwrite was off) are counted as skipped; any other failure
// is recorded per day and does not abort the remaining days.
type BackfillResult struct {
	Created   int             `json:"created"`
	Skipped   int             `json:"skipped"`
	Errors    []BackfillError `json:"errors"`
	TotalDays int             `json:"total_days"`
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date the way it is stored (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDate parses a stored YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
