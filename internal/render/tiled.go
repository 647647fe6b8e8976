package render

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// TileURLTemplate is the basemap the overlay is meant to sit on.
const TileURLTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// maxMercatorLat is the latitude where the square Web-Mercator world ends.
const maxMercatorLat = 85.05112878

// Tile is one basemap tile covering part of the surface.
type Tile struct {
	Z   uint32 `json:"z"`
	X   uint32 `json:"x"`
	Y   uint32 `json:"y"`
	URL string `json:"url"`
}

// Tiled emits the pass as a GeoJSON overlay for a tiled basemap client.
type Tiled struct {
	cells cellResolver
}

// NewTiled creates the vector overlay renderer.
func NewTiled(indexer domain.Indexer, logger *slog.Logger, metrics *observability.Metrics) *Tiled {
	return &Tiled{cells: cellResolver{indexer: indexer, logger: logger, metrics: metrics}}
}

func (t *Tiled) Name() string        { return "tiled" }
func (t *Tiled) ContentType() string { return "application/geo+json" }

func (t *Tiled) Render(w io.Writer, f Frame) error {
	start := time.Now()
	fc, err := t.Collection(f)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write feature collection: %w", err)
	}
	observe(t.cells.metrics, t.Name(), start)
	return nil
}

// Collection builds the overlay: one polygon feature per resolvable cell
// plus foreign members describing the viewport and its basemap tiles.
func (t *Tiled) Collection(f Frame) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, c := range t.cells.polygons(t.Name(), f.Pass) {
		fc.Append(cellFeature(c, c.Sample.CellID == f.Hovered))
	}

	fc.ExtraMembers = geojson.Properties{
		"viewport": f.Viewport,
		"tiles":    CoveringTiles(f),
	}
	if f.Pass != nil {
		fc.ExtraMembers["passId"] = f.Pass.ID
		fc.ExtraMembers["resolution"] = f.Pass.Resolution
	}
	return fc, nil
}

func (t *Tiled) CellAt(f Frame, pt geo.Point) (string, bool) {
	return t.cells.cellAt(f, pt)
}

// CellAtGeo resolves a coordinate reported by the basemap client.
func (t *Tiled) CellAtGeo(f Frame, ll geo.LatLng) (string, bool) {
	return t.cells.cellAtGeo(f, ll)
}

func cellFeature(c cellPolygon, hovered bool) *geojson.Feature {
	ring := make(orb.Ring, 0, len(c.Boundary)+1)
	for _, v := range c.Boundary {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}
	ring = append(ring, ring[0])
	if ring.Orientation() == orb.CW {
		ring.Reverse()
	}

	feat := geojson.NewFeature(orb.Polygon{ring})
	feat.ID = c.Sample.CellID

	stroke, strokeWidth, fillOpacity := "#FFFFFF", 1.0, 0.8
	if hovered {
		stroke, strokeWidth, fillOpacity = domain.ColorHighlight.Hex(), 2.0, 1.0
	}
	feat.Properties["cellId"] = c.Sample.CellID
	feat.Properties["temperature"] = c.Sample.Temperature
	feat.Properties["humidity"] = c.Sample.Humidity
	feat.Properties["pressure"] = c.Sample.Pressure
	feat.Properties["fill"] = domain.TempColor(c.Sample.Temperature).Hex()
	feat.Properties["fillOpacity"] = fillOpacity
	feat.Properties["stroke"] = stroke
	feat.Properties["strokeWidth"] = strokeWidth
	feat.Properties["hovered"] = hovered
	return feat
}

// CoveringTiles lists the basemap tiles visible on the frame's surface at
// the viewport zoom, row by row from the north-west corner.
func CoveringTiles(f Frame) []Tile {
	nw, se := f.Projector().Bounds()
	z := maptile.Zoom(f.Viewport.Zoom)
	a := maptile.At(tilePoint(nw), z)
	b := maptile.At(tilePoint(se), z)
	if b.X < a.X || b.Y < a.Y {
		return nil
	}

	tiles := make([]Tile, 0, int(b.X-a.X+1)*int(b.Y-a.Y+1))
	for y := a.Y; y <= b.Y; y++ {
		for x := a.X; x <= b.X; x++ {
			tiles = append(tiles, Tile{Z: uint32(z), X: x, Y: y, URL: tileURL(uint32(z), x, y)})
		}
	}
	return tiles
}

func tilePoint(ll geo.LatLng) orb.Point {
	lat := min(max(ll.Lat, -maxMercatorLat), maxMercatorLat)
	lng := min(max(ll.Lng, -180), 179.999999)
	return orb.Point{lng, lat}
}

func tileURL(z, x, y uint32) string {
	return strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(z), 10),
		"{x}", strconv.FormatUint(uint64(x), 10),
		"{y}", strconv.FormatUint(uint64(y), 10),
	).Replace(TileURLTemplate)
}
