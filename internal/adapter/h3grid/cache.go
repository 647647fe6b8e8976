package h3grid

import (
	"fmt"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedIndexer wraps an Indexer with an LRU cache of cell boundaries.
// Point lookups pass straight through; boundaries never change for a given
// cell, so they are safe to keep indefinitely.
type CachedIndexer struct {
	inner   domain.Indexer
	cache   *lru.Cache[string, []geo.LatLng]
	metrics *observability.Metrics
}

// NewCachedIndexer creates a cache decorator around an indexer holding at
// most maxEntries boundaries.
func NewCachedIndexer(inner domain.Indexer, maxEntries int, metrics *observability.Metrics) (*CachedIndexer, error) {
	cache, err := lru.New[string, []geo.LatLng](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create boundary cache: %w", err)
	}
	return &CachedIndexer{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedIndexer) PointToCell(p geo.LatLng, resolution int) (string, error) {
	return c.inner.PointToCell(p, resolution)
}

// CellToBoundary returns a cached boundary when available. Failures are not
// cached. Callers must not modify the returned slice.
func (c *CachedIndexer) CellToBoundary(cellID string) ([]geo.LatLng, error) {
	if b, ok := c.cache.Get(cellID); ok {
		c.metrics.BoundaryCache.WithLabelValues("hit").Inc()
		return b, nil
	}
	c.metrics.BoundaryCache.WithLabelValues("miss").Inc()

	b, err := c.inner.CellToBoundary(cellID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(cellID, b)
	return b, nil
}

// Len reports the number of cached boundaries.
func (c *CachedIndexer) Len() int {
	return c.cache.Len()
}
