package mapbox

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// keyScale quantises coordinates to 1e-4° (about 11 m) so that repeat
// clicks on the same sample share one lookup.
const keyScale = 1e4

// pointKey is a quantised coordinate used as the cache key.
type pointKey struct {
	lat, lon int64
}

func keyOf(lat, lon float64) pointKey {
	return pointKey{
		lat: int64(math.Round(lat * keyScale)),
		lon: int64(math.Round(geo.WrapLng(lon) * keyScale)),
	}
}

// CachedGeocoder memoises reverse lookups in an LRU keyed by quantised
// coordinate.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[pointKey, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner with a cache holding at most maxEntries
// places.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	cache, err := lru.New[pointKey, domain.GeocodingResult](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := keyOf(lat, lon)
	if result, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Empty answers stay uncached; the provider may resolve the point later.
	if result.FormattedAddress != "" {
		c.cache.Add(key, result)
	}
	return result, nil
}

// Len reports the number of cached places.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}
