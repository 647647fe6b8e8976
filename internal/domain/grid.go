package domain

import (
	"context"
	"errors"

	"github.com/couchcryptid/hexweather/internal/geo"
)

// ErrInvalidCell is returned by an Indexer for a token it does not
// recognise as a cell.
var ErrInvalidCell = errors.New("invalid cell id")

// Indexer maps coordinates to grid cells and back. Cell ids are opaque.
type Indexer interface {
	// PointToCell returns the id of the cell containing p at resolution.
	PointToCell(p geo.LatLng, resolution int) (string, error)

	// CellToBoundary returns the cell's vertices in order.
	CellToBoundary(cellID string) ([]geo.LatLng, error)
}

// GeocodingResult holds the place details returned for a coordinate.
type GeocodingResult struct {
	FormattedAddress string
	PlaceName        string
	Region           string
	Country          string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves coordinates to a human-readable place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
