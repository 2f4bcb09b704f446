package fiscal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/domain"
)

var (
	acmeID   = uuid.New()
	globexID = uuid.New()

	symbols = map[string]string{
		acmeID.String():   "ACME",
		globexID.String(): "GLOBEX",
	}
)

func tx(assetID uuid.UUID, txType domain.TransactionType, quantity, price string, day int) domain.Transaction {
	return domain.Transaction{
		ID:         uuid.New(),
		AssetID:    assetID,
		Type:       txType,
		Quantity:   decimal.RequireFromString(quantity),
		Price:      decimal.RequireFromString(price),
		ExecutedAt: time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
	}
}

func TestMatchSingleLot(t *testing.T) {
	result := Match([]domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "10", "100", 1),
		tx(acmeID, domain.TransactionSell, "10", "120", 5),
	}, symbols, Window{})

	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, "ACME", item.Symbol)
	assert.True(t, item.Quantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, item.Gain.Equal(decimal.RequireFromString("200")), "gain = %s", item.Gain)
	assert.True(t, result.Total.Equal(decimal.RequireFromString("200")))
}

func TestMatchSellSpansMultipleLots(t *testing.T) {
	result := Match([]domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "5", "100", 1),
		tx(acmeID, domain.TransactionBuy, "5", "110", 2),
		tx(acmeID, domain.TransactionSell, "8", "120", 5),
	}, symbols, Window{})

	// The oldest lot is consumed fully, the second split.
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.True(t, first.Quantity.Equal(decimal.RequireFromString("5")))
	assert.True(t, first.BuyPrice.Equal(decimal.RequireFromString("100")))
	assert.True(t, first.Gain.Equal(decimal.RequireFromString("100")))

	second := result.Items[1]
	assert.True(t, second.Quantity.Equal(decimal.RequireFromString("3")))
	assert.True(t, second.BuyPrice.Equal(decimal.RequireFromString("110")))
	assert.True(t, second.Gain.Equal(decimal.RequireFromString("30")))

	assert.True(t, result.Total.Equal(decimal.RequireFromString("130")))
}

func TestMatchSplitLotRemainderCarries(t *testing.T) {
	result := Match([]domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "10", "100", 1),
		tx(acmeID, domain.TransactionSell, "4", "110", 2),
		tx(acmeID, domain.TransactionSell, "6", "130", 3),
	}, symbols, Window{})

	require.Len(t, result.Items, 2)
	assert.True(t, result.Items[1].Quantity.Equal(decimal.RequireFromString("6")))
	assert.True(t, result.Items[1].BuyPrice.Equal(decimal.RequireFromString("100")))
	// 4*10 + 6*30
	assert.True(t, result.Total.Equal(decimal.RequireFromString("220")), "total = %s", result.Total)
}

func TestMatchQueuesAreIndependentPerSymbol(t *testing.T) {
	result := Match([]domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "10", "100", 1),
		tx(globexID, domain.TransactionBuy, "10", "50", 2),
		tx(globexID, domain.TransactionSell, "10", "40", 3),
		tx(acmeID, domain.TransactionSell, "10", "120", 4),
	}, symbols, Window{})

	require.Len(t, result.Items, 2)
	assert.Equal(t, "GLOBEX", result.Items[0].Symbol)
	assert.True(t, result.Items[0].Gain.Equal(decimal.RequireFromString("-100")))
	assert.Equal(t, "ACME", result.Items[1].Symbol)
	assert.True(t, result.Items[1].Gain.Equal(decimal.RequireFromString("200")))
	assert.True(t, result.Total.Equal(decimal.RequireFromString("100")))
}

func TestMatchWindowFiltersOutputNotState(t *testing.T) {
	history := []domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "10", "100", 1),
		tx(acmeID, domain.TransactionSell, "5", "110", 2),
		tx(acmeID, domain.TransactionBuy, "5", "200", 3),
		tx(acmeID, domain.TransactionSell, "5", "210", 10),
	}

	window := Window{
		Start: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	result := Match(history, symbols, window)

	// The early sell consumed half the first lot even though it falls
	// outside the window, so the reported sell matches the remainder of
	// the first lot at 100, not the newer lot at 200.
	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, "2024-01-10", domain.FormatDate(item.SellDate))
	assert.True(t, item.BuyPrice.Equal(decimal.RequireFromString("100")))
	assert.True(t, item.Gain.Equal(decimal.RequireFromString("550")), "gain = %s", item.Gain)
}

func TestMatchOversellLeavesUncoveredSliceUnreported(t *testing.T) {
	result := Match([]domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "5", "100", 1),
		tx(acmeID, domain.TransactionSell, "8", "120", 2),
	}, symbols, Window{})

	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Quantity.Equal(decimal.RequireFromString("5")))
	assert.True(t, result.Total.Equal(decimal.RequireFromString("100")))
}

func TestMatchQuantityConservation(t *testing.T) {
	history := []domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "3.5", "100", 1),
		tx(acmeID, domain.TransactionBuy, "2.5", "105", 2),
		tx(acmeID, domain.TransactionBuy, "4", "98", 3),
		tx(acmeID, domain.TransactionSell, "6", "110", 4),
		tx(acmeID, domain.TransactionSell, "4", "95", 5),
	}

	result := Match(history, symbols, Window{})

	matched := decimal.Zero
	for _, item := range result.Items {
		matched = matched.Add(item.Quantity)
	}
	assert.True(t, matched.Equal(decimal.RequireFromString("10")),
		"matched quantity = %s", matched)
}

func TestMatchIgnoresDividendsAndTransfers(t *testing.T) {
	result := Match([]domain.Transaction{
		tx(acmeID, domain.TransactionBuy, "10", "100", 1),
		tx(acmeID, domain.TransactionDividend, "10", "0.50", 2),
		tx(acmeID, domain.TransactionDeposit, "5", "90", 3),
		tx(acmeID, domain.TransactionWithdrawal, "5", "95", 4),
		tx(acmeID, domain.TransactionSell, "10", "120", 5),
	}, symbols, Window{})

	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Quantity.Equal(decimal.RequireFromString("10")))
	assert.True(t, result.Total.Equal(decimal.RequireFromString("200")))
}

func TestMatchUnknownSymbolFallsBackToAssetID(t *testing.T) {
	orphan := uuid.New()
	result := Match([]domain.Transaction{
		tx(orphan, domain.TransactionBuy, "1", "10", 1),
		tx(orphan, domain.TransactionSell, "1", "12", 2),
	}, symbols, Window{})

	require.Len(t, result.Items, 1)
	assert.Equal(t, orphan.String(), result.Items[0].Symbol)
}
