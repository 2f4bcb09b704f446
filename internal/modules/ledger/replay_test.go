package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/domain"
)

func tx(txType domain.TransactionType, quantity, price, fee string, day int) domain.Transaction {
	return domain.Transaction{
		ID:         uuid.New(),
		Type:       txType,
		Quantity:   decimal.RequireFromString(quantity),
		Price:      decimal.RequireFromString(price),
		Fee:        decimal.RequireFromString(fee),
		ExecutedAt: time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC),
	}
}

func TestReplayEmptyHistory(t *testing.T) {
	result := Replay(nil)

	assert.True(t, result.IsFlat())
	assert.True(t, result.Quantity.IsZero())
	assert.True(t, result.TotalCost.IsZero())
	assert.True(t, result.AverageCost.IsZero())
}

func TestReplayWeightedAverageCost(t *testing.T) {
	result := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "10", "100", "5", 1),
		tx(domain.TransactionBuy, "10", "110", "5", 2),
	})

	assert.True(t, result.Quantity.Equal(decimal.RequireFromString("20")),
		"quantity = %s", result.Quantity)
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("2105")),
		"total cost = %s", result.TotalCost)
	assert.True(t, result.AverageCost.Equal(decimal.RequireFromString("105.25")),
		"average cost = %s", result.AverageCost)
}

func TestReplaySellShrinksCostProportionally(t *testing.T) {
	result := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "10", "100", "5", 1),
		tx(domain.TransactionBuy, "10", "110", "5", 2),
		tx(domain.TransactionSell, "5", "120", "0", 3),
	})

	// Selling a quarter of the position removes a quarter of the cost.
	// The average cost must not move.
	assert.True(t, result.Quantity.Equal(decimal.RequireFromString("15")))
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("1578.75")),
		"total cost = %s", result.TotalCost)
	assert.True(t, result.AverageCost.Equal(decimal.RequireFromString("105.25")),
		"average cost = %s", result.AverageCost)
}

func TestReplaySellToFlatZeroesState(t *testing.T) {
	result := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "10", "100", "0", 1),
		tx(domain.TransactionSell, "10", "120", "0", 2),
	})

	assert.True(t, result.IsFlat())
	assert.True(t, result.TotalCost.IsZero())
	assert.True(t, result.AverageCost.IsZero())
}

func TestReplayThirdsLeaveNoResidue(t *testing.T) {
	// 1/3 repeats forever in binary and decimal alike. Buy 1 share in
	// three equal thirds, sell one share, and the position must land
	// exactly flat rather than on a dust quantity.
	result := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "0.333333333333", "300", "0", 1),
		tx(domain.TransactionBuy, "0.333333333333", "300", "0", 2),
		tx(domain.TransactionBuy, "0.333333333334", "300", "0", 3),
		tx(domain.TransactionSell, "1", "310", "0", 4),
	})

	assert.True(t, result.IsFlat(), "quantity = %s", result.Quantity)
	assert.True(t, result.AverageCost.IsZero())
}

func TestReplayDepositAndWithdrawalMirrorBuySell(t *testing.T) {
	bought := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "4", "50", "2", 1),
		tx(domain.TransactionSell, "1", "55", "0", 2),
	})
	transferred := Replay([]domain.Transaction{
		tx(domain.TransactionDeposit, "4", "50", "2", 1),
		tx(domain.TransactionWithdrawal, "1", "55", "0", 2),
	})

	assert.True(t, bought.Quantity.Equal(transferred.Quantity))
	assert.True(t, bought.TotalCost.Equal(transferred.TotalCost))
	assert.True(t, bought.AverageCost.Equal(transferred.AverageCost))
}

func TestReplayDividendDoesNotTouchPosition(t *testing.T) {
	base := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "10", "100", "0", 1),
	})
	withDividend := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "10", "100", "0", 1),
		tx(domain.TransactionDividend, "10", "0.50", "0", 2),
	})

	assert.True(t, base.Quantity.Equal(withDividend.Quantity))
	assert.True(t, base.TotalCost.Equal(withDividend.TotalCost))
	assert.True(t, base.AverageCost.Equal(withDividend.AverageCost))
}

func TestReplayOversellGoesNegative(t *testing.T) {
	// Without the strict policy the ledger can hold more sells than buys,
	// for example when a user records history out of order. Replay keeps
	// the negative quantity and carries no cost.
	result := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "5", "100", "0", 1),
		tx(domain.TransactionSell, "8", "110", "0", 2),
	})

	assert.True(t, result.Quantity.Equal(decimal.RequireFromString("-3")),
		"quantity = %s", result.Quantity)
	assert.True(t, result.TotalCost.IsZero())
	assert.True(t, result.AverageCost.IsZero())
}

func TestReplayIsDeterministic(t *testing.T) {
	history := []domain.Transaction{
		tx(domain.TransactionBuy, "3.5", "99.99", "1.25", 1),
		tx(domain.TransactionBuy, "1.5", "101.01", "1.25", 2),
		tx(domain.TransactionSell, "2", "105", "0.50", 3),
		tx(domain.TransactionDividend, "3", "0.75", "0", 4),
		tx(domain.TransactionBuy, "0.25", "98", "0", 5),
	}

	first := Replay(history)
	for i := 0; i < 10; i++ {
		again := Replay(history)
		require.True(t, first.Quantity.Equal(again.Quantity))
		require.True(t, first.TotalCost.Equal(again.TotalCost))
		require.True(t, first.AverageCost.Equal(again.AverageCost))
	}
}

func TestReplayBuyAfterFlatStartsFresh(t *testing.T) {
	result := Replay([]domain.Transaction{
		tx(domain.TransactionBuy, "10", "100", "0", 1),
		tx(domain.TransactionSell, "10", "150", "0", 2),
		tx(domain.TransactionBuy, "2", "200", "1", 3),
	})

	// Costs from the closed round trip must not bleed into the new lot.
	assert.True(t, result.Quantity.Equal(decimal.RequireFromString("2")))
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("401")),
		"total cost = %s", result.TotalCost)
	assert.True(t, result.AverageCost.Equal(decimal.RequireFromString("200.5")),
		"average cost = %s", result.AverageCost)
}
