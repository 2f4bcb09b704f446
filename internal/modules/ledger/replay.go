package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// quantityEpsilon is the threshold below which a replayed quantity is treated
// as exactly zero, erasing decimal division residue left by partial sells.
var quantityEpsilon = decimal.New(1, -9) // 1e-9

// ReplayResult is the cost-basis state of one (portfolio, asset) pair after
// replaying its ordered transaction history.
type ReplayResult struct {
	Quantity    decimal.Decimal
	TotalCost   decimal.Decimal
	AverageCost decimal.Decimal
}

// IsFlat reports whether the replayed position has zeroed out.
func (r ReplayResult) IsFlat() bool {
	return r.Quantity.IsZero()
}

// Replay computes the running (quantity, total_cost, average_cost) of one
// (portfolio, asset) pair from its transaction history.
//
// Precondition: transactions are ordered ascending by (ExecutedAt, Seq).
// Replay never sorts; determinism is the caller's contract.
//
// Rules:
//   - BUY/DEPOSIT increase quantity and add quantity*price+fee to cost.
//   - SELL/WITHDRAWAL shrink cost proportionally to the quantity sold while
//     the position is long; once quantity is not positive the quantity keeps
//     decreasing (short/degenerate case) but cost basis is not tracked.
//   - DIVIDEND does not move quantity or cost basis.
//   - After every step, |quantity| < 1e-9 collapses the whole state to zero.
//
// Replaying the same ordered input twice yields bit-identical results.
func Replay(transactions []domain.Transaction) ReplayResult {
	quantity := decimal.Zero
	totalCost := decimal.Zero
	averageCost := decimal.Zero

	for _, tx := range transactions {
		switch tx.Type {
		case domain.TransactionBuy, domain.TransactionDeposit:
			quantity = quantity.Add(tx.Quantity)
			totalCost = totalCost.Add(tx.Quantity.Mul(tx.Price)).Add(tx.Fee)

		case domain.TransactionSell, domain.TransactionWithdrawal:
			if quantity.IsPositive() {
				// Shrink cost in proportion to the quantity leaving the
				// position. A sell larger than the position drives the
				// remainder negative; the zeroing below cleans up cost.
				remaining := quantity.Sub(tx.Quantity)
				totalCost = totalCost.Mul(remaining).Div(quantity)
				quantity = remaining
			} else {
				quantity = quantity.Sub(tx.Quantity)
			}

		case domain.TransactionDividend:
			// Cash income, no effect on the position.
		}

		if quantity.Abs().LessThan(quantityEpsilon) {
			quantity = decimal.Zero
		}

		if quantity.IsPositive() {
			averageCost = totalCost.Div(quantity)
		} else {
			averageCost = decimal.Zero
			totalCost = decimal.Zero
		}
	}

	return ReplayResult{
		Quantity:    quantity,
		TotalCost:   totalCost,
		AverageCost: averageCost,
	}
}
