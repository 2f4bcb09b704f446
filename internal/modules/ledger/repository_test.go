package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmoreno/cartera/internal/domain"
	cartesting "github.com/ivanmoreno/cartera/internal/testing"
)

func repoFixture(t *testing.T) *TransactionRepository {
	t.Helper()

	db, cleanup := cartesting.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	return NewTransactionRepository(db.Conn(), zerolog.Nop())
}

func newEntry(portfolioID, assetID uuid.UUID, txType domain.TransactionType, quantity, price string, executedAt time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Type:        txType,
		Quantity:    cartesting.D(quantity),
		Price:       cartesting.D(price),
		Fee:         cartesting.D("0"),
		ExecutedAt:  executedAt,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestInsertAssignsMonotonicSequence(t *testing.T) {
	repo := repoFixture(t)
	portfolioID, assetID := uuid.New(), uuid.New()

	first := newEntry(portfolioID, assetID, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 10))
	second := newEntry(portfolioID, assetID, domain.TransactionBuy, "5", "110", cartesting.Date(2024, 3, 11))

	require.NoError(t, repo.Insert(first))
	require.NoError(t, repo.Insert(second))

	assert.Greater(t, second.Seq, first.Seq)
}

func TestHistoryOrderedByDateThenSequence(t *testing.T) {
	repo := repoFixture(t)
	portfolioID, assetID := uuid.New(), uuid.New()

	// Same executed_at; insertion order must break the tie.
	day := cartesting.Date(2024, 3, 10).Add(10 * time.Hour)
	first := newEntry(portfolioID, assetID, domain.TransactionBuy, "10", "100", day)
	second := newEntry(portfolioID, assetID, domain.TransactionSell, "4", "105", day)
	earlier := newEntry(portfolioID, assetID, domain.TransactionBuy, "2", "90", cartesting.Date(2024, 3, 5))

	require.NoError(t, repo.Insert(first))
	require.NoError(t, repo.Insert(second))
	require.NoError(t, repo.Insert(earlier))

	history, err := repo.GetByPortfolioAsset(portfolioID, assetID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, earlier.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.Equal(t, second.ID, history[2].ID)
}

func TestGetByPortfolioUntilExcludesLaterDates(t *testing.T) {
	repo := repoFixture(t)
	portfolioID, assetID := uuid.New(), uuid.New()

	require.NoError(t, repo.Insert(newEntry(portfolioID, assetID, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 10))))
	require.NoError(t, repo.Insert(newEntry(portfolioID, assetID, domain.TransactionBuy, "5", "110", cartesting.Date(2024, 3, 20))))

	history, err := repo.GetByPortfolioUntil(portfolioID, cartesting.Date(2024, 3, 15))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Quantity.Equal(cartesting.D("10")))
}

func TestReplaceKeepsSequence(t *testing.T) {
	repo := repoFixture(t)
	portfolioID, assetID := uuid.New(), uuid.New()

	entry := newEntry(portfolioID, assetID, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 10))
	require.NoError(t, repo.Insert(entry))
	originalSeq := entry.Seq

	entry.Quantity = cartesting.D("12")
	entry.Price = cartesting.D("99.50")
	require.NoError(t, repo.Replace(entry))

	got, err := repo.GetByID(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, originalSeq, got.Seq)
	assert.True(t, got.Quantity.Equal(cartesting.D("12")))
	assert.True(t, got.Price.Equal(cartesting.D("99.50")))
}

func TestReplaceMissingTransaction(t *testing.T) {
	repo := repoFixture(t)

	entry := newEntry(uuid.New(), uuid.New(), domain.TransactionBuy, "1", "1", cartesting.Date(2024, 1, 1))
	err := repo.Replace(entry)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestDeleteMissingTransaction(t *testing.T) {
	repo := repoFixture(t)

	err := repo.Delete(uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestReplaceForAssetSwapsWholeHistory(t *testing.T) {
	repo := repoFixture(t)
	portfolioID, assetID := uuid.New(), uuid.New()
	otherAsset := uuid.New()

	require.NoError(t, repo.Insert(newEntry(portfolioID, assetID, domain.TransactionBuy, "10", "100", cartesting.Date(2024, 3, 10))))
	require.NoError(t, repo.Insert(newEntry(portfolioID, assetID, domain.TransactionBuy, "5", "110", cartesting.Date(2024, 3, 11))))
	keep := newEntry(portfolioID, otherAsset, domain.TransactionBuy, "3", "50", cartesting.Date(2024, 3, 12))
	require.NoError(t, repo.Insert(keep))

	replacement := []domain.Transaction{
		*newEntry(portfolioID, assetID, domain.TransactionBuy, "20", "95", cartesting.Date(2024, 3, 9)),
	}
	require.NoError(t, repo.ReplaceForAsset(portfolioID, assetID, replacement))

	history, err := repo.GetByPortfolioAsset(portfolioID, assetID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Quantity.Equal(cartesting.D("20")))

	// The unrelated asset's history is untouched.
	other, err := repo.GetByPortfolioAsset(portfolioID, otherAsset)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, keep.ID, other[0].ID)
}

func TestDecimalsSurviveRoundTrip(t *testing.T) {
	repo := repoFixture(t)
	portfolioID, assetID := uuid.New(), uuid.New()

	entry := newEntry(portfolioID, assetID, domain.TransactionBuy, "0.000001", "12345.678901", cartesting.Date(2024, 3, 10))
	entry.Fee = cartesting.D("1.995")
	require.NoError(t, repo.Insert(entry))

	got, err := repo.GetByID(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.000001", got.Quantity.String())
	assert.Equal(t, "12345.678901", got.Price.String())
	assert.Equal(t, "1.995", got.Fee.String())
}
