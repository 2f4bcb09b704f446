package quotes

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

func quoteRepoFixture(t *testing.T) *QuoteRepository {
	t.Helper()

	db, cleanup := cartesting.NewTestDB(t, "market")
	t.Cleanup(cleanup)

	return NewQuoteRepository(db.Conn(), zerolog.Nop())
}

func point(assetID uuid.UUID, year int, month time.Month, day int, closePrice string) domain.Quote {
	close := cartesting.D(closePrice)
	return domain.Quote{
		AssetID:   assetID,
		Timestamp: cartesting.Date(year, month, day).Add(17 * time.Hour),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1000,
	}
}

func TestGetLatestOnOrBeforePicksExactDay(t *testing.T) {
	repo := quoteRepoFixture(t)
	assetID := uuid.New()

	require.NoError(t, repo.UpsertBatch(assetID, []domain.Quote{
		point(assetID, 2024, 3, 14, "100"),
		point(assetID, 2024, 3, 15, "105"),
		point(assetID, 2024, 3, 18, "110"),
	}))

	quote, err := repo.GetLatestOnOrBefore(assetID, cartesting.Date(2024, 3, 15))
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.Close.Equal(cartesting.D("105")))
}

func TestGetLatestOnOrBeforeFallsBackToStaleQuote(t *testing.T) {
	repo := quoteRepoFixture(t)
	assetID := uuid.New()

	// Weekend gap: Friday the 15th is the latest point before Sunday the 17th.
	require.NoError(t, repo.UpsertBatch(assetID, []domain.Quote{
		point(assetID, 2024, 3, 14, "100"),
		point(assetID, 2024, 3, 15, "105"),
	}))

	quote, err := repo.GetLatestOnOrBefore(assetID, cartesting.Date(2024, 3, 17))
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.Close.Equal(cartesting.D("105")))
}

func TestGetLatestOnOrBeforeNilWhenSeriesStartsLater(t *testing.T) {
	repo := quoteRepoFixture(t)
	assetID := uuid.New()

	require.NoError(t, repo.Upsert(&domain.Quote{
		AssetID:   assetID,
		Timestamp: cartesting.Date(2024, 3, 20).Add(17 * time.Hour),
		Open:      cartesting.D("100"),
		High:      cartesting.D("100"),
		Low:       cartesting.D("100"),
		Close:     cartesting.D("100"),
	}))

	quote, err := repo.GetLatestOnOrBefore(assetID, cartesting.Date(2024, 3, 15))
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestUpsertReplacesSameTimestamp(t *testing.T) {
	repo := quoteRepoFixture(t)
	assetID := uuid.New()

	original := point(assetID, 2024, 3, 15, "105")
	require.NoError(t, repo.Upsert(&original))

	corrected := original
	corrected.Close = cartesting.D("106.50")
	require.NoError(t, repo.Upsert(&corrected))

	series, err := repo.GetRange(assetID, cartesting.Date(2024, 3, 15), cartesting.Date(2024, 3, 15))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, series[0].Close.Equal(cartesting.D("106.50")))
}

func TestGetRangeIsInclusiveAndOrdered(t *testing.T) {
	repo := quoteRepoFixture(t)
	assetID := uuid.New()

	require.NoError(t, repo.UpsertBatch(assetID, []domain.Quote{
		point(assetID, 2024, 3, 18, "110"),
		point(assetID, 2024, 3, 14, "100"),
		point(assetID, 2024, 3, 15, "105"),
		point(assetID, 2024, 3, 20, "120"),
	}))

	series, err := repo.GetRange(assetID, cartesting.Date(2024, 3, 14), cartesting.Date(2024, 3, 18))
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.True(t, series[0].Close.Equal(cartesting.D("100")))
	assert.True(t, series[1].Close.Equal(cartesting.D("105")))
	assert.True(t, series[2].Close.Equal(cartesting.D("110")))
}
