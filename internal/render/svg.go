package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
)

// SVG lays the samples out on a fixed hexagon lattice, ignoring geography.
// Sample i is drawn at lattice index i.
type SVG struct {
	radius  float64
	metrics *observability.Metrics
}

// NewSVG creates the static grid renderer with cells of the given radius.
func NewSVG(radius float64, metrics *observability.Metrics) *SVG {
	return &SVG{radius: radius, metrics: metrics}
}

func (s *SVG) Name() string        { return "svg" }
func (s *SVG) ContentType() string { return "image/svg+xml" }

func (s *SVG) layout(f Frame) geo.HexLayout {
	return geo.NewHexLayout(s.radius, f.Size)
}

func (s *SVG) Render(w io.Writer, f Frame) error {
	start := time.Now()
	layout := s.layout(f)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`,
		f.Size.Width, f.Size.Height, f.Size.Width, f.Size.Height)
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, domain.ColorBackground.Hex())

	if f.Pass != nil {
		hovered := -1
		for i, smp := range f.Pass.Samples {
			if smp.CellID == f.Hovered {
				hovered = i
				continue
			}
			writeHex(&b, layout, i, smp, false)
		}
		if hovered >= 0 {
			writeHex(&b, layout, hovered, f.Pass.Samples[hovered], true)
		}
	}
	b.WriteString(`</svg>`)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	observe(s.metrics, s.Name(), start)
	return nil
}

func (s *SVG) CellAt(f Frame, pt geo.Point) (string, bool) {
	if f.Pass == nil {
		return "", false
	}
	i, ok := s.layout(f).IndexAt(pt)
	if !ok || i >= f.Pass.Len() {
		return "", false
	}
	return f.Pass.Samples[i].CellID, true
}

func writeHex(b *strings.Builder, layout geo.HexLayout, i int, smp domain.WeatherSample, hovered bool) {
	center := layout.Center(i)
	corners := geo.HexCorners(center, layout.Radius)

	points := make([]string, len(corners))
	for k, c := range corners {
		points[k] = fmt.Sprintf("%.2f,%.2f", c.X, c.Y)
	}

	stroke, strokeOpacity, strokeWidth := "#FFFFFF", 0.2, 1
	if hovered {
		stroke, strokeOpacity, strokeWidth = domain.ColorHighlight.Hex(), 1, 2
	}
	fmt.Fprintf(b, `<polygon data-cell-id="%s" points="%s" fill="%s" fill-opacity="0.8" stroke="%s" stroke-opacity="%.1f" stroke-width="%d"/>`,
		smp.CellID, strings.Join(points, " "), domain.TempColor(smp.Temperature).Hex(), stroke, strokeOpacity, strokeWidth)
	fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="#FFFFFF" font-size="10" text-anchor="middle" dominant-baseline="middle">%s</text>`,
		center.X, center.Y, tempLabel(smp.Temperature))
}
