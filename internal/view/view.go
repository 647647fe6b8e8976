// Package view holds the per-client map state: viewport, renderer, current
// sampling pass and pointer selection.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/couchcryptid/hexweather/internal/render"
	"github.com/jonboulle/clockwork"
)

// maxLat keeps pans inside the range the projection supports.
const maxLat = 85

// ErrInvalidOptions is returned when a view cannot be mounted as requested.
var ErrInvalidOptions = errors.New("invalid view options")

// Sampler produces a fresh pass around a centre.
type Sampler interface {
	Sample(center geo.LatLng) *domain.Pass
}

// Options describe a view to mount.
type Options struct {
	Viewport geo.Viewport
	Size     geo.Size
	Renderer string // empty selects the registry default
	MinZoom  int
	MaxZoom  int
}

// Deps are the collaborators shared by every view.
type Deps struct {
	Registry *render.Registry
	Sampler  Sampler
	Geocoder domain.Geocoder // nil disables place names in Detail
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Clock    clockwork.Clock
}

// MapView is one mounted map. All methods are safe for concurrent use;
// operations are serialised on the view's mutex.
type MapView struct {
	id   string
	deps Deps

	mu        sync.Mutex
	viewport  geo.Viewport
	size      geo.Size
	minZoom   int
	maxZoom   int
	renderer  render.Renderer
	pass      *domain.Pass
	selection domain.Selection
	lastSeen  time.Time
}

// New validates opts, picks the renderer and mounts the view.
func New(id string, opts Options, deps Deps) (*MapView, error) {
	if !geo.IsValidLatLng(opts.Viewport.Center.Lat, opts.Viewport.Center.Lng) || math.Abs(opts.Viewport.Center.Lat) >= maxLat {
		return nil, fmt.Errorf("centre %.4f,%.4f: %w", opts.Viewport.Center.Lat, opts.Viewport.Center.Lng, ErrInvalidOptions)
	}
	if opts.Size.Width <= 0 || opts.Size.Height <= 0 {
		return nil, fmt.Errorf("surface %.0fx%.0f: %w", opts.Size.Width, opts.Size.Height, ErrInvalidOptions)
	}
	if opts.MinZoom > opts.MaxZoom {
		return nil, fmt.Errorf("zoom range %d..%d: %w", opts.MinZoom, opts.MaxZoom, ErrInvalidOptions)
	}

	r := deps.Registry.Default()
	if opts.Renderer != "" {
		var err error
		if r, err = deps.Registry.Get(opts.Renderer); err != nil {
			return nil, err
		}
	}

	v := &MapView{
		id:   id,
		deps: deps,
		viewport: geo.Viewport{
			Center: opts.Viewport.Center,
			Zoom:   geo.ClampZoom(opts.Viewport.Zoom, opts.MinZoom, opts.MaxZoom),
		},
		size:     opts.Size,
		minZoom:  opts.MinZoom,
		maxZoom:  opts.MaxZoom,
		renderer: r,
	}
	v.Mount()
	return v, nil
}

// ID returns the view's identifier.
func (v *MapView) ID() string {
	return v.id
}

// Mount samples a new pass for the current viewport and resets the
// selection.
func (v *MapView) Mount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resample()
}

// ZoomIn raises the zoom level by one, up to the maximum.
func (v *MapView) ZoomIn() geo.Viewport {
	return v.Zoom(1)
}

// ZoomOut lowers the zoom level by one, down to the minimum.
func (v *MapView) ZoomOut() geo.Viewport {
	return v.Zoom(-1)
}

// Zoom changes the zoom level by delta, clamped to the view's range. A
// change of level triggers a new pass over the same centre, so the selected
// cell stays selected with its new values. The hover is cleared because
// every cell moves on the surface.
func (v *MapView) Zoom(delta int) geo.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()

	z := geo.ClampZoom(v.viewport.Zoom+delta, v.minZoom, v.maxZoom)
	if z != v.viewport.Zoom {
		v.viewport.Zoom = z
		kept := v.selection
		v.resample()
		kept.Rebind(v.pass)
		v.selection = kept
	}
	v.touch()
	return v.viewport
}

// Pan moves the centre by the given offsets in degrees. Latitude is clamped
// to the supported band and longitude wraps at the antimeridian.
func (v *MapView) Pan(dLat, dLng float64) geo.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()

	c := v.viewport.Center
	v.recenter(geo.LatLng{Lat: c.Lat + dLat, Lng: c.Lng + dLng})
	return v.viewport
}

// Recenter moves the view to ll.
func (v *MapView) Recenter(ll geo.LatLng) geo.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.recenter(ll)
	return v.viewport
}

func (v *MapView) recenter(ll geo.LatLng) {
	v.viewport.Center = geo.LatLng{
		Lat: min(max(ll.Lat, -maxLat+1), maxLat-1),
		Lng: geo.WrapLng(ll.Lng),
	}
	v.resample()
	v.touch()
}

// SetRenderer switches drawing strategy. The pass and selection survive;
// the hover is cleared because cell positions differ between strategies.
func (v *MapView) SetRenderer(name string) error {
	r, err := v.deps.Registry.Get(name)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.renderer = r
	v.selection.Leave()
	v.touch()
	return nil
}

// PointerMove updates the hover from a surface position.
func (v *MapView) PointerMove(pt geo.Point) domain.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.renderer.CellAt(v.frame(), pt)
	v.selection.Hover(id, ok)
	v.recordPointer("move", ok)
	return v.selection
}

// PointerMoveGeo updates the hover from a geographic position, as reported
// by a basemap client.
func (v *MapView) PointerMoveGeo(ll geo.LatLng) domain.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.cellAtGeo(ll)
	v.selection.Hover(id, ok)
	v.recordPointer("move", ok)
	return v.selection
}

// PointerLeave clears the hover.
func (v *MapView) PointerLeave() domain.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.selection.Leave()
	v.deps.Metrics.PointerEvents.WithLabelValues("leave", "none").Inc()
	v.touch()
	return v.selection
}

// Click selects the sample under pt. Clicking outside every sampled cell
// leaves the selection unchanged.
func (v *MapView) Click(pt geo.Point) domain.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.renderer.CellAt(v.frame(), pt)
	v.click(id, ok)
	return v.selection
}

// ClickGeo is Click for a geographic position.
func (v *MapView) ClickGeo(ll geo.LatLng) domain.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, ok := v.cellAtGeo(ll)
	v.click(id, ok)
	return v.selection
}

func (v *MapView) click(id string, ok bool) {
	var sample domain.WeatherSample
	if ok {
		sample, ok = v.pass.Lookup(id)
	}
	v.selection.Click(sample, ok)
	v.recordPointer("click", ok)
}

// CloseDetail dismisses the detail panel.
func (v *MapView) CloseDetail() domain.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.selection.Close()
	v.deps.Metrics.PointerEvents.WithLabelValues("close", "none").Inc()
	v.touch()
	return v.selection
}

// ContentType is the media type Render writes.
func (v *MapView) ContentType() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderer.ContentType()
}

// Render draws the current frame to w and returns its media type.
func (v *MapView) Render(w io.Writer) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.touch()
	if err := v.renderer.Render(w, v.frame()); err != nil {
		return "", fmt.Errorf("render view %s: %w", v.id, err)
	}
	return v.renderer.ContentType(), nil
}

// Cells returns the samples of the current pass.
func (v *MapView) Cells() []domain.WeatherSample {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.touch()
	if v.pass == nil {
		return nil
	}
	out := make([]domain.WeatherSample, len(v.pass.Samples))
	copy(out, v.pass.Samples)
	return out
}

// Pass returns the current pass. Passes are immutable.
func (v *MapView) Pass() *domain.Pass {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pass
}

// Snapshot describes the view for API clients.
type Snapshot struct {
	ID        string                `json:"id"`
	Viewport  geo.Viewport          `json:"viewport"`
	Size      geo.Size              `json:"size"`
	Renderer  string                `json:"renderer"`
	State     domain.SelectionState `json:"state"`
	Selection domain.Selection      `json:"selection"`
	Pass      domain.PassSummary    `json:"pass"`
	Bounds    [2]geo.LatLng         `json:"bounds"` // north-west, south-east
}

// Snapshot returns the current state of the view.
func (v *MapView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	nw, se := v.frame().Projector().Bounds()
	return Snapshot{
		ID:        v.id,
		Viewport:  v.viewport,
		Size:      v.size,
		Renderer:  v.renderer.Name(),
		State:     v.selection.State(),
		Selection: v.selection,
		Pass:      v.pass.Summary(),
		Bounds:    [2]geo.LatLng{nw, se},
	}
}

// Detail returns the detail panel for the selected sample. The second
// result is false when nothing is selected.
func (v *MapView) Detail(ctx context.Context) (domain.CellDetail, bool) {
	v.mu.Lock()
	selected := v.selection.Selected
	v.touch()
	v.mu.Unlock()

	if selected == nil {
		return domain.CellDetail{}, false
	}
	// Geocoding may block on the network, so it runs outside the lock.
	return domain.DescribeSample(ctx, *selected, v.deps.Geocoder, v.deps.Logger), true
}

// LastSeen is the time of the most recent operation on the view.
func (v *MapView) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *MapView) frame() render.Frame {
	return render.Frame{
		Viewport: v.viewport,
		Size:     v.size,
		Pass:     v.pass,
		Hovered:  v.selection.Hovered,
	}
}

func (v *MapView) cellAtGeo(ll geo.LatLng) (string, bool) {
	f := v.frame()
	if gl, ok := v.renderer.(render.GeoLocator); ok {
		return gl.CellAtGeo(f, ll)
	}
	return v.renderer.CellAt(f, f.Projector().Forward(ll))
}

// resample replaces the pass. The old selection refers to cells that no
// longer exist, so it is discarded too.
func (v *MapView) resample() {
	v.pass = v.deps.Sampler.Sample(v.viewport.Center)
	v.selection.Reset()
	v.touch()
	v.deps.Logger.Debug("view resampled",
		"view_id", v.id,
		"pass_id", v.pass.ID,
		"zoom", v.viewport.Zoom,
		"lat", v.viewport.Center.Lat,
		"lng", v.viewport.Center.Lng,
	)
}

func (v *MapView) recordPointer(event string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	v.deps.Metrics.PointerEvents.WithLabelValues(event, outcome).Inc()
	v.touch()
}

func (v *MapView) touch() {
	v.lastSeen = v.deps.Clock.Now()
}
