// Package domain models synthetic weather values laid over a hexagonal grid.
//
// # Grid
//
// The sphere is partitioned into H3 cells. A cell is named by an opaque
// string token; nothing outside the grid adapter parses or builds one.
// Every sampling pass uses a single resolution (6 by default, roughly
// 36 km² per cell) and every pointer lookup reuses the pass resolution.
//
// # Sampling
//
// A pass walks a rectangle around the viewport centre in fixed angular
// steps:
//
//	lat = centre.lat - latSpan + i*step   while lat < centre.lat + latSpan
//	lng = centre.lng - lngSpan + j*step   while lng < centre.lng + lngSpan
//
// Each lattice point is indexed to a cell. The first point to land in a cell
// fixes the sample's reported coordinate and draws its values; later points
// in the same cell are collapsed. Values are illustrative only:
//
//	temperature  round(U*30 - 10) + offset   °C
//	humidity     round(U*100)                %
//	pressure     round(980 + U*60)           hPa
//
// # Colour ramp
//
// Temperatures map to five contiguous bands:
//
//	t < -5   #3B82F6
//	t <  5   #60A5FA
//	t < 15   #34D399
//	t < 25   #FBBF24
//	else     #EF4444
//
// # Selection
//
// A view's selection is a small state machine: idle, hovered(cell) and
// selected(sample). Pointer misses never produce errors. See [Selection].
package domain
