package snapshots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/domain"
	cartesting "github.com/ivanmoreno/cartera/internal/testing"
)

func TestBackfillCreatesEveryDay(t *testing.T) {
	f := newEngineFixture(t)

	f.addTransaction(t, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 1))
	f.addQuote(t, "100", cartesting.Date(2024, 3, 1))

	result, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 5), false)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalDays)
	assert.Equal(t, 5, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	history, err := f.snapshots.GetRange(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 5))
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestBackfillSkipsExistingWithoutOverwrite(t *testing.T) {
	f := newEngineFixture(t)

	f.addTransaction(t, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 1))

	_, _, err := f.reconstructor.Snapshot(f.portfolioID, cartesting.Date(2024, 3, 3), false)
	require.NoError(t, err)

	result, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 5), false)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalDays)
	assert.Equal(t, 4, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Errors)
}

func TestBackfillRejectsInvertedRange(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 5), cartesting.Date(2024, 3, 1), false)
	assert.Error(t, err)
}

func TestBackfillOverwriteFromEditLeavesEarlierDaysUntouched(t *testing.T) {
	f := newEngineFixture(t)

	f.addTransaction(t, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 1))
	f.addQuote(t, "100", cartesting.Date(2024, 3, 1))

	// Initial five-day backfill.
	_, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 5), false)
	require.NoError(t, err)

	before, err := f.snapshots.GetRange(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 5))
	require.NoError(t, err)
	require.Len(t, before, 5)

	// A transaction lands mid-range; only that day forward is rebuilt.
	f.addTransaction(t, domain.TransactionBuy, "5", "110", cartesting.Date(2024, 3, 3))

	result, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 3), cartesting.Date(2024, 3, 5), true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)

	after, err := f.snapshots.GetRange(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 5))
	require.NoError(t, err)
	require.Len(t, after, 5)

	// Days before the edit keep their original rows and values.
	for i := 0; i < 2; i++ {
		assert.Equal(t, before[i].ID, after[i].ID, "day %s was rebuilt", domain.FormatDate(after[i].Date))
		assert.True(t, before[i].TotalInvested.Equal(after[i].TotalInvested))
	}

	// Days from the edit onward reflect the new transaction.
	for i := 2; i < 5; i++ {
		assert.NotEqual(t, before[i].ID, after[i].ID)
		assert.True(t, after[i].TotalInvested.Equal(cartesting.D("1550")),
			"day %s invested = %s", domain.FormatDate(after[i].Date), after[i].TotalInvested)
	}
}

func TestBackfillIsRestartable(t *testing.T) {
	f := newEngineFixture(t)

	f.addTransaction(t, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 1))

	first, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 4), false)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Created)

	// Re-running the same range without overwrite only skips.
	second, err := f.backfiller.Run(f.portfolioID,
		cartesting.Date(2024, 3, 1), cartesting.Date(2024, 3, 4), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 4, second.Skipped)
	assert.Empty(t, second.Errors)
}
