// Package render draws a sampling pass onto a surface. Three strategies
// share one contract: a raster PNG, a GeoJSON overlay for a tiled basemap,
// and a static SVG hex grid.
package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
)

// ErrUnknownRenderer is returned when a renderer name is not registered.
var ErrUnknownRenderer = errors.New("unknown renderer")

// Frame is everything a renderer needs to draw one picture.
type Frame struct {
	Viewport geo.Viewport
	Size     geo.Size
	Pass     *domain.Pass
	Hovered  string
}

// Projector returns the Web-Mercator projection for the frame.
func (f Frame) Projector() geo.Mercator {
	return geo.NewMercator(f.Viewport, f.Size)
}

// Renderer draws frames and resolves surface points back to cells.
type Renderer interface {
	Name() string
	ContentType() string
	Render(w io.Writer, f Frame) error
	// CellAt returns the id of the sampled cell drawn under pt. A point
	// outside every sampled cell reports false.
	CellAt(f Frame, pt geo.Point) (string, bool)
}

// GeoLocator is implemented by renderers whose cells sit at their true
// geographic position, so a coordinate can be resolved without projecting.
type GeoLocator interface {
	CellAtGeo(f Frame, ll geo.LatLng) (string, bool)
}

// Registry holds the available renderers by name.
type Registry struct {
	renderers map[string]Renderer
	def       string
}

// NewRegistry registers rs and selects def as the default.
func NewRegistry(def string, rs ...Renderer) (*Registry, error) {
	r := &Registry{renderers: make(map[string]Renderer, len(rs))}
	for _, rr := range rs {
		r.renderers[rr.Name()] = rr
	}
	if _, ok := r.renderers[def]; !ok {
		return nil, fmt.Errorf("default renderer %q: %w", def, ErrUnknownRenderer)
	}
	r.def = def
	return r, nil
}

// Get looks up a renderer. Names are case-insensitive.
func (r *Registry) Get(name string) (Renderer, error) {
	rr, ok := r.renderers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownRenderer)
	}
	return rr, nil
}

// Default returns the default renderer.
func (r *Registry) Default() Renderer {
	return r.renderers[r.def]
}

// Names lists the registered renderer names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.renderers))
	for n := range r.renderers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Standard builds the three stock renderers.
func Standard(indexer domain.Indexer, hexRadius float64, logger *slog.Logger, metrics *observability.Metrics) []Renderer {
	return []Renderer{
		NewRaster(indexer, logger, metrics),
		NewTiled(indexer, logger, metrics),
		NewSVG(hexRadius, metrics),
	}
}

// cellPolygon is a sample together with its resolved geographic outline.
type cellPolygon struct {
	Sample   domain.WeatherSample
	Boundary []geo.LatLng
}

// cellResolver carries the indexer-backed behaviour shared by the
// geographic renderers.
type cellResolver struct {
	indexer domain.Indexer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// polygons resolves every sample's boundary. Cells whose boundary cannot be
// resolved are logged and skipped; the rest of the frame still renders.
func (c cellResolver) polygons(renderer string, pass *domain.Pass) []cellPolygon {
	if pass == nil {
		return nil
	}
	out := make([]cellPolygon, 0, pass.Len())
	for _, s := range pass.Samples {
		boundary, err := c.indexer.CellToBoundary(s.CellID)
		if err != nil {
			c.logger.Warn("resolve cell boundary failed, skipping cell",
				"renderer", renderer,
				"cell_id", s.CellID,
				"pass_id", pass.ID,
				"error", err,
			)
			c.metrics.BoundaryErrors.Inc()
			continue
		}
		if len(boundary) < 3 {
			c.logger.Warn("degenerate cell boundary, skipping cell",
				"renderer", renderer,
				"cell_id", s.CellID,
				"vertices", len(boundary),
			)
			c.metrics.BoundaryErrors.Inc()
			continue
		}
		out = append(out, cellPolygon{Sample: s, Boundary: alignBoundary(boundary, s.Lng)})
	}
	return out
}

// alignBoundary copies a boundary with every vertex moved next to ref, so a
// cell sampled east of 180° is drawn east of 180° and cells cut by the
// antimeridian keep their shape. The input may be shared by a cache and is
// never modified.
func alignBoundary(boundary []geo.LatLng, ref float64) []geo.LatLng {
	out := make([]geo.LatLng, len(boundary))
	for i, v := range boundary {
		out[i] = geo.LatLng{Lat: v.Lat, Lng: geo.NearestLng(v.Lng, ref)}
	}
	return out
}

// cellAt inverse-projects pt, re-indexes it at the pass resolution and looks
// the id up in the pass.
func (c cellResolver) cellAt(f Frame, pt geo.Point) (string, bool) {
	return c.cellAtGeo(f, f.Projector().Inverse(pt))
}

func (c cellResolver) cellAtGeo(f Frame, ll geo.LatLng) (string, bool) {
	if f.Pass == nil {
		return "", false
	}
	id, err := c.indexer.PointToCell(ll, f.Pass.Resolution)
	if err != nil {
		c.logger.Debug("pointer outside indexable range", "lat", ll.Lat, "lng", ll.Lng, "error", err)
		return "", false
	}
	if _, ok := f.Pass.Lookup(id); !ok {
		return "", false
	}
	return id, true
}

// observe records a finished render.
func observe(m *observability.Metrics, renderer string, start time.Time) {
	m.RenderDuration.WithLabelValues(renderer).Observe(time.Since(start).Seconds())
	m.FramesRendered.WithLabelValues(renderer).Inc()
}

// tempLabel formats the on-map temperature label.
func tempLabel(t float64) string {
	return fmt.Sprintf("%.0f°", t)
}
