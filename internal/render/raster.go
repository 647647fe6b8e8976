package render

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/fogleman/gg"
)

const (
	fillAlpha    = 0xCC
	outlineAlpha = 0x33 // white at 20%
)

// Raster draws cells onto an in-memory bitmap and encodes it as PNG.
type Raster struct {
	cells cellResolver
}

// NewRaster creates the immediate-mode canvas renderer.
func NewRaster(indexer domain.Indexer, logger *slog.Logger, metrics *observability.Metrics) *Raster {
	return &Raster{cells: cellResolver{indexer: indexer, logger: logger, metrics: metrics}}
}

func (r *Raster) Name() string        { return "raster" }
func (r *Raster) ContentType() string { return "image/png" }

func (r *Raster) Render(w io.Writer, f Frame) error {
	start := time.Now()
	width, height := int(f.Size.Width), int(f.Size.Height)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render raster: invalid surface %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	setColor(dc, domain.ColorBackground, 0xFF)
	dc.Clear()

	proj := f.Projector()
	var hovered *cellPolygon
	polys := r.cells.polygons(r.Name(), f.Pass)
	for i := range polys {
		if polys[i].Sample.CellID == f.Hovered {
			hovered = &polys[i]
			continue
		}
		drawCell(dc, proj, f.Size, polys[i], false)
	}
	// The hovered outline goes last so neighbours cannot paint over it.
	if hovered != nil {
		drawCell(dc, proj, f.Size, *hovered, true)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	observe(r.cells.metrics, r.Name(), start)
	return nil
}

func (r *Raster) CellAt(f Frame, pt geo.Point) (string, bool) {
	return r.cells.cellAt(f, pt)
}

func (r *Raster) CellAtGeo(f Frame, ll geo.LatLng) (string, bool) {
	return r.cells.cellAtGeo(f, ll)
}

func drawCell(dc *gg.Context, proj geo.Projector, size geo.Size, c cellPolygon, hovered bool) {
	pts := make([]geo.Point, len(c.Boundary))
	for i, v := range c.Boundary {
		pts[i] = proj.Forward(v)
	}
	if !intersects(pts, size) {
		return
	}

	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()

	fill := domain.TempColor(c.Sample.Temperature)
	if hovered {
		setColor(dc, fill, 0xFF)
	} else {
		setColor(dc, fill, fillAlpha)
	}
	dc.FillPreserve()

	if hovered {
		setColor(dc, domain.ColorHighlight, 0xFF)
		dc.SetLineWidth(2)
	} else {
		dc.SetRGBA255(0xFF, 0xFF, 0xFF, outlineAlpha)
		dc.SetLineWidth(1)
	}
	dc.Stroke()

	label := proj.Forward(c.Sample.Point())
	dc.SetRGB255(0xFF, 0xFF, 0xFF)
	dc.DrawStringAnchored(tempLabel(c.Sample.Temperature), label.X, label.Y, 0.5, 0.5)
}

func setColor(dc *gg.Context, c domain.Color, alpha uint8) {
	dc.SetColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha})
}

// intersects reports whether the polygon's bounding box overlaps the surface.
func intersects(pts []geo.Point, size geo.Size) bool {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return maxX >= 0 && maxY >= 0 && minX <= size.Width && minY <= size.Height
}
