package domain

import "errors"

// Sentinel errors shared across modules. Callers match with errors.Is; the
// modules wrap them with context via fmt.Errorf("...: %w", err).
var (
	// ErrSnapshotExists signals that a snapshot for the requested
	// (portfolio, date) already exists and overwrite was not requested.
	// Recoverable: backfills count it as a skip.
	ErrSnapshotExists = errors.New("snapshot already exists for date")

	// ErrInsufficientQuantity signals a sell or withdrawal larger than the
	// currently held quantity, under the strict oversell policy.
	ErrInsufficientQuantity = errors.New("insufficient quantity to sell")

	// ErrAssetNotFound signals a reference to an unknown asset.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrPortfolioNotFound signals a reference to an unknown portfolio.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrTransactionNotFound signals a reference to an unknown ledger entry.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidTransaction signals a ledger entry that fails validation
	// (unknown type, non-positive quantity or price, negative fee).
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrSnapshotNotFound signals a reference to an absent snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// OversellPolicy decides what happens when a sell exceeds the held quantity.
// It is applied uniformly at ledger write time, so the FIFO matcher never
// needs its own check.
type OversellPolicy string

const (
	// OversellAllow lets quantity go negative in replay and leaves the
	// unmatched remainder of a FIFO sell without a gain record.
	OversellAllow OversellPolicy = "allow"

	// OversellStrict rejects the mutation with ErrInsufficientQuantity.
	OversellStrict OversellPolicy = "strict"
)
