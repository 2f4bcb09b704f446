// Package fiscal computes realized gains with FIFO tax-lot matching. Tax
// accounting tracks individual lots, so it runs independently of the
// average-cost view the positions table holds.
package fiscal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanmoreno/cartera/internal/domain"
)

// Lots smaller than this are treated as exhausted and dropped from the queue.
var lotEpsilon = decimal.New(1, -6)

type lot struct {
	date     time.Time
	quantity decimal.Decimal
	price    decimal.Decimal
}

// Window is an optional reporting period. Zero times mean unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(d time.Time) bool {
	day := domain.DateOf(d)
	if !w.Start.IsZero() && day.Before(domain.DateOf(w.Start)) {
		return false
	}
	if !w.End.IsZero() && day.After(domain.DateOf(w.End)) {
		return false
	}
	return true
}

// Result is the outcome of one matching run.
type Result struct {
	Items []domain.RealizedGain
	Total decimal.Decimal
}

// Match runs FIFO lot matching over a portfolio's full transaction history.
// Transactions must span all symbols and arrive in deterministic ledger
// order. The window filters which sells are reported, never which are
// matched: a sell before the window still consumes lots, otherwise later
// matches would pair against the wrong buys.
//
// A sell with no lots left produces no record for the uncovered slice. The
// strict oversell policy prevents such ledgers at write time; permissive
// ledgers simply underreport that slice.
func Match(transactions []domain.Transaction, symbols map[string]string, window Window) Result {
	queues := make(map[string][]lot)
	result := Result{
		Items: make([]domain.RealizedGain, 0),
		Total: decimal.Zero,
	}

	for _, tx := range transactions {
		symbol, ok := symbols[tx.AssetID.String()]
		if !ok {
			symbol = tx.AssetID.String()
		}

		switch tx.Type {
		case domain.TransactionBuy:
			queues[symbol] = append(queues[symbol], lot{
				date:     tx.ExecutedAt,
				quantity: tx.Quantity,
				price:    tx.Price,
			})

		case domain.TransactionSell:
			remaining := tx.Quantity
			queue := queues[symbol]

			for remaining.IsPositive() && len(queue) > 0 {
				oldest := &queue[0]

				matched := decimal.Min(remaining, oldest.quantity)
				gain := tx.Price.Sub(oldest.price).Mul(matched)

				if window.contains(tx.ExecutedAt) {
					result.Items = append(result.Items, domain.RealizedGain{
						Symbol:    symbol,
						BuyDate:   domain.DateOf(oldest.date),
						SellDate:  domain.DateOf(tx.ExecutedAt),
						Quantity:  matched,
						BuyPrice:  oldest.price,
						SellPrice: tx.Price,
						Gain:      gain,
					})
					result.Total = result.Total.Add(gain)
				}

				remaining = remaining.Sub(matched)
				oldest.quantity = oldest.quantity.Sub(matched)

				if oldest.quantity.LessThanOrEqual(lotEpsilon) {
					queue = queue[1:]
				}
			}

			queues[symbol] = queue
		}
	}

	return result
}
