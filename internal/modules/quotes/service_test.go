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

func serviceFixture(t *testing.T) *Service {
	t.Helper()

	marketDB, marketCleanup := cartesting.NewTestDB(t, "market")
	t.Cleanup(marketCleanup)
	cacheDB, cacheCleanup := cartesting.NewTestDB(t, "cache")
	t.Cleanup(cacheCleanup)

	return NewService(
		NewAssetRepository(marketDB.Conn(), zerolog.Nop()),
		NewQuoteRepository(marketDB.Conn(), zerolog.Nop()),
		NewCache(cacheDB.Conn(), time.Hour, zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
}

func closeOnly(assetID uuid.UUID, year int, month time.Month, day int, close string) domain.Quote {
	return domain.Quote{
		AssetID:   assetID,
		Timestamp: cartesting.Date(year, month, day).Add(17 * time.Hour),
		Open:      cartesting.D(close),
		High:      cartesting.D(close),
		Low:       cartesting.D(close),
		Close:     cartesting.D(close),
		Volume:    1000,
	}
}

func TestGetSeriesFallsThroughWhenCacheCoversPartOfRange(t *testing.T) {
	svc := serviceFixture(t)

	asset, err := svc.RegisterAsset("ACME", "Acme Corp", domain.AssetStock, "EUR")
	require.NoError(t, err)

	// Two ingest runs: the second replaces the cache entry, so the cache
	// holds only March while the database holds both months.
	require.NoError(t, svc.IngestSeries(asset.ID, []domain.Quote{
		closeOnly(asset.ID, 2024, 2, 15, "100.00"),
	}))
	require.NoError(t, svc.IngestSeries(asset.ID, []domain.Quote{
		closeOnly(asset.ID, 2024, 3, 15, "110.00"),
	}))

	got, err := svc.GetSeries(asset.ID, cartesting.Date(2024, 2, 1), cartesting.Date(2024, 3, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Close.Equal(cartesting.D("100.00")))
	assert.True(t, got[1].Close.Equal(cartesting.D("110.00")))
}

func TestGetSeriesServesFromCoveringCache(t *testing.T) {
	svc := serviceFixture(t)

	asset, err := svc.RegisterAsset("ACME", "Acme Corp", domain.AssetStock, "EUR")
	require.NoError(t, err)

	require.NoError(t, svc.IngestSeries(asset.ID, []domain.Quote{
		closeOnly(asset.ID, 2024, 3, 14, "103.50"),
		closeOnly(asset.ID, 2024, 3, 15, "104.75"),
	}))

	got, err := svc.GetSeries(asset.ID, cartesting.Date(2024, 3, 14), cartesting.Date(2024, 3, 15))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// A sub-range of the cached run is still served, trimmed to the request.
	got, err = svc.GetSeries(asset.ID, cartesting.Date(2024, 3, 15), cartesting.Date(2024, 3, 15))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Close.Equal(cartesting.D("104.75")))
}

func TestGetSeriesEmptyRangeInsideCoveringCache(t *testing.T) {
	svc := serviceFixture(t)

	asset, err := svc.RegisterAsset("ACME", "Acme Corp", domain.AssetStock, "EUR")
	require.NoError(t, err)

	require.NoError(t, svc.IngestSeries(asset.ID, []domain.Quote{
		closeOnly(asset.ID, 2024, 3, 14, "103.50"),
		closeOnly(asset.ID, 2024, 3, 18, "104.75"),
	}))

	// The weekend gap is covered by the cached run but holds no points.
	got, err := svc.GetSeries(asset.ID, cartesting.Date(2024, 3, 16), cartesting.Date(2024, 3, 17))
	require.NoError(t, err)
	assert.Empty(t, got)
}
