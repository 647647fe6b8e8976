// Package geo holds the coordinate math shared by every renderer: the
// spherical Web-Mercator projection used by tiled web maps and the
// hexagon lattice used by the static SVG grid.
package geo

import "math"

// TileSize is the edge length in pixels of one basemap tile at zoom 0.
const TileSize = 256

// LatLng is a WGS-84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a position on a drawing surface in pixels, origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the pixel extent of a drawing surface.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the centre and integer zoom level of a map view.
type Viewport struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// Projector converts between geographic and surface coordinates.
type Projector interface {
	Forward(p LatLng) Point
	Inverse(pt Point) LatLng
}

// Scale returns the world width in pixels at the given zoom.
func Scale(zoom int) float64 {
	return TileSize * math.Pow(2, float64(zoom))
}

// World projects a coordinate onto the unbounded world plane at zoom.
func World(p LatLng, zoom int) Point {
	scale := Scale(zoom)
	phi := p.Lat * math.Pi / 180
	return Point{
		X: (p.Lng + 180) / 360 * scale,
		Y: (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2 * scale,
	}
}

// Unworld is the inverse of World.
func Unworld(pt Point, zoom int) LatLng {
	scale := Scale(zoom)
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*pt.Y/scale)))
	return LatLng{
		Lat: latRad * 180 / math.Pi,
		Lng: pt.X/scale*360 - 180,
	}
}

// Forward maps p to surface pixels for a viewport centred on v.Center.
// Latitudes at or beyond ±85° are outside the supported range.
func Forward(p LatLng, v Viewport, s Size) Point {
	w := World(p, v.Zoom)
	c := World(v.Center, v.Zoom)
	return Point{
		X: s.Width/2 + (w.X - c.X),
		Y: s.Height/2 + (w.Y - c.Y),
	}
}

// Inverse maps surface pixels back to a coordinate.
func Inverse(pt Point, v Viewport, s Size) LatLng {
	c := World(v.Center, v.Zoom)
	return Unworld(Point{
		X: c.X + (pt.X - s.Width/2),
		Y: c.Y + (pt.Y - s.Height/2),
	}, v.Zoom)
}

// Mercator binds a viewport and surface size into a Projector.
type Mercator struct {
	Viewport Viewport
	Size     Size
}

// NewMercator returns a Projector for the given viewport and surface.
func NewMercator(v Viewport, s Size) Mercator {
	return Mercator{Viewport: v, Size: s}
}

func (m Mercator) Forward(p LatLng) Point { return Forward(p, m.Viewport, m.Size) }

func (m Mercator) Inverse(pt Point) LatLng { return Inverse(pt, m.Viewport, m.Size) }

// Bounds returns the coordinates of the surface's north-west and
// south-east corners.
func (m Mercator) Bounds() (nw, se LatLng) {
	return m.Inverse(Point{}), m.Inverse(Point{X: m.Size.Width, Y: m.Size.Height})
}

// ClampZoom limits zoom to [minZoom, maxZoom].
func ClampZoom(zoom, minZoom, maxZoom int) int {
	if zoom < minZoom {
		return minZoom
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}

// IsValidLatLng reports whether the coordinate is finite and in range.
func IsValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat < -90 || lat > 90 {
		return false
	}
	if lng < -180 || lng > 180 {
		return false
	}
	return true
}

// WrapLng maps a longitude into [-180, 180).
func WrapLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// NearestLng returns the longitude equivalent to lng that lies within 180°
// of ref. Outlines that straddle the antimeridian stay contiguous when every
// vertex is moved next to the same reference.
func NearestLng(lng, ref float64) float64 {
	return ref + WrapLng(lng-ref)
}
