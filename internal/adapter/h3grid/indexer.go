// Package h3grid adapts the uber/h3-go bindings to the domain Indexer.
package h3grid

import (
	"context"
	"fmt"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/uber/h3-go/v4"
)

// Indexer implements domain.Indexer on the H3 grid. Cell ids are the
// library's canonical hexadecimal strings.
type Indexer struct{}

// NewIndexer returns an H3-backed indexer.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// PointToCell returns the id of the H3 cell containing p. Longitudes past
// ±180 are wrapped, so a window straddling the antimeridian indexes fully.
func (*Indexer) PointToCell(p geo.LatLng, resolution int) (string, error) {
	if !geo.IsValidLatLng(p.Lat, geo.WrapLng(p.Lng)) {
		return "", fmt.Errorf("index point %.6f,%.6f: coordinate out of range", p.Lat, p.Lng)
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, geo.WrapLng(p.Lng)), resolution)
	if err != nil {
		return "", fmt.Errorf("index point %.6f,%.6f: %w", p.Lat, p.Lng, err)
	}
	if cell == 0 {
		return "", fmt.Errorf("index point %.6f,%.6f: %w", p.Lat, p.Lng, domain.ErrInvalidCell)
	}
	return cell.String(), nil
}

// CellToBoundary returns the cell's vertices in the library's order.
func (*Indexer) CellToBoundary(cellID string) ([]geo.LatLng, error) {
	cell := h3.Cell(h3.IndexFromString(cellID))
	if cell == 0 || !cell.IsValid() {
		return nil, fmt.Errorf("cell boundary %q: %w", cellID, domain.ErrInvalidCell)
	}
	boundary, err := h3.CellToBoundary(cell)
	if err != nil {
		return nil, fmt.Errorf("cell boundary %q: %w", cellID, err)
	}
	out := make([]geo.LatLng, len(boundary))
	for i, v := range boundary {
		out[i] = geo.LatLng{Lat: v.Lat, Lng: v.Lng}
	}
	return out, nil
}

// CheckReadiness verifies the grid library can index a known point.
func (ix *Indexer) CheckReadiness(_ context.Context) error {
	if _, err := ix.PointToCell(geo.LatLng{}, 0); err != nil {
		return fmt.Errorf("grid indexer not ready: %w", err)
	}
	return nil
}
