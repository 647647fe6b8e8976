package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	reverseCalls int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, m.err
}

func newCached(t *testing.T, inner domain.Geocoder, size int, m *observability.Metrics) *CachedGeocoder {
	t.Helper()
	c, err := NewCachedGeocoder(inner, size, m)
	require.NoError(t, err)
	return c
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Moscow, Russia", PlaceName: "Moscow"},
	}
	m := observability.NewMetricsForTesting()
	cached := newCached(t, inner, 10, m)

	r1, err := cached.ReverseGeocode(context.Background(), 55.7558, 37.6173)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), 55.7558, 37.6173)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.reverseCalls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")), 1e-9)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Somewhere"},
	}
	cached := newCached(t, inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 55.1, 37.1)
	_, _ = cached.ReverseGeocode(context.Background(), 55.2, 37.1)

	assert.Equal(t, 2, inner.reverseCalls)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedGeocoder_NearbyPointsShareEntry(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Moscow, Russia"},
	}
	cached := newCached(t, inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 55.75581, 37.61729)
	_, _ = cached.ReverseGeocode(context.Background(), 55.75579, 37.61731)

	assert.Equal(t, 1, inner.reverseCalls)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := newCached(t, inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 0, 0)
	_, _ = cached.ReverseGeocode(context.Background(), 0, 0)

	assert.Equal(t, 2, inner.reverseCalls)
	assert.Zero(t, cached.Len())
}

func TestCachedGeocoder_ErrorPropagates(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := newCached(t, inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 1, 1)
	assert.EqualError(t, err, "boom")
}

func TestCachedGeocoder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere"}}
	cached := newCached(t, inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	_, _ = cached.ReverseGeocode(ctx, 1, 1)
	_, _ = cached.ReverseGeocode(ctx, 2, 2)
	_, _ = cached.ReverseGeocode(ctx, 1, 1) // refresh 1,1
	_, _ = cached.ReverseGeocode(ctx, 3, 3) // evicts 2,2
	require.Equal(t, 3, inner.reverseCalls)

	_, _ = cached.ReverseGeocode(ctx, 1, 1)
	assert.Equal(t, 3, inner.reverseCalls, "recently used entry survives")
	_, _ = cached.ReverseGeocode(ctx, 2, 2)
	assert.Equal(t, 4, inner.reverseCalls, "least recently used entry was evicted")
}

func TestNewCachedGeocoder_RejectsZeroSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, observability.NewMetricsForTesting())
	assert.Error(t, err)
}
