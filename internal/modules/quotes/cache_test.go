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

func cacheFixture(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()

	db, cleanup := cartesting.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	return NewCache(db.Conn(), ttl, zerolog.Nop())
}

func sampleSeries(assetID uuid.UUID) []domain.Quote {
	return []domain.Quote{
		{
			AssetID:   assetID,
			Timestamp: cartesting.Date(2024, 3, 14).Add(17 * time.Hour),
			Open:      cartesting.D("100.10"),
			High:      cartesting.D("104.00"),
			Low:       cartesting.D("99.85"),
			Close:     cartesting.D("103.50"),
			Volume:    12500,
		},
		{
			AssetID:   assetID,
			Timestamp: cartesting.Date(2024, 3, 15).Add(17 * time.Hour),
			Open:      cartesting.D("103.50"),
			High:      cartesting.D("105.25"),
			Low:       cartesting.D("102.00"),
			Close:     cartesting.D("104.75"),
			Volume:    9800,
		},
	}
}

func TestCacheRoundTripPreservesDecimals(t *testing.T) {
	cache := cacheFixture(t, time.Hour)
	assetID := uuid.New()

	require.NoError(t, cache.Put(assetID, sampleSeries(assetID)))

	got, ok := cache.Get(assetID)
	require.True(t, ok)
	require.Len(t, got, 2)

	assert.True(t, got[0].Close.Equal(cartesting.D("103.50")))
	assert.True(t, got[1].Close.Equal(cartesting.D("104.75")))
	assert.Equal(t, int64(12500), got[0].Volume)
	assert.Equal(t, sampleSeries(assetID)[0].Timestamp.Unix(), got[0].Timestamp.Unix())
}

func TestCacheMissForUnknownAsset(t *testing.T) {
	cache := cacheFixture(t, time.Hour)

	_, ok := cache.Get(uuid.New())
	assert.False(t, ok)
}

func TestCacheExpiredEntryIsAMiss(t *testing.T) {
	cache := cacheFixture(t, time.Nanosecond)
	assetID := uuid.New()

	require.NoError(t, cache.Put(assetID, sampleSeries(assetID)))
	time.Sleep(10 * time.Millisecond)

	_, ok := cache.Get(assetID)
	assert.False(t, ok)
}

func TestCachePutReplacesPreviousEntry(t *testing.T) {
	cache := cacheFixture(t, time.Hour)
	assetID := uuid.New()

	series := sampleSeries(assetID)
	require.NoError(t, cache.Put(assetID, series))
	require.NoError(t, cache.Put(assetID, series[:1]))

	got, ok := cache.Get(assetID)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestCacheInvalidate(t *testing.T) {
	cache := cacheFixture(t, time.Hour)
	assetID := uuid.New()

	require.NoError(t, cache.Put(assetID, sampleSeries(assetID)))
	cache.Invalidate(assetID)

	_, ok := cache.Get(assetID)
	assert.False(t, ok)
}
