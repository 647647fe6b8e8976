package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/hexweather/internal/config"
	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/render"
	"github.com/couchcryptid/hexweather/internal/view"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 16

var errBadRequest = errors.New("bad request")

// ViewDefaults fill in the fields a create-view request leaves out.
type ViewDefaults struct {
	Center   geo.LatLng
	Zoom     int
	MinZoom  int
	MaxZoom  int
	Size     geo.Size
	Renderer string
}

// DefaultsFromConfig derives view defaults from the service configuration.
func DefaultsFromConfig(cfg *config.Config) ViewDefaults {
	return ViewDefaults{
		Center:   geo.LatLng{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
		Zoom:     cfg.DefaultZoom,
		MinZoom:  cfg.MinZoom,
		MaxZoom:  cfg.MaxZoom,
		Size:     geo.Size{Width: float64(cfg.SurfaceWidth), Height: float64(cfg.SurfaceHeight)},
		Renderer: cfg.Renderer,
	}
}

// API serves the JSON view endpoints under /api/v1.
type API struct {
	store     *view.Store
	defaults  ViewDefaults
	validator *validator.Validate
	logger    *slog.Logger
}

// NewAPI creates the view API.
func NewAPI(store *view.Store, defaults ViewDefaults, logger *slog.Logger) *API {
	return &API{
		store:     store,
		defaults:  defaults,
		validator: validator.New(),
		logger:    logger,
	}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/legend", a.handleLegend)
	mux.HandleFunc("POST /api/v1/views", a.handleCreateView)
	mux.HandleFunc("GET /api/v1/views/{id}", a.withView(a.handleGetView))
	mux.HandleFunc("DELETE /api/v1/views/{id}", a.handleDeleteView)
	mux.HandleFunc("GET /api/v1/views/{id}/frame", a.withView(a.handleFrame))
	mux.HandleFunc("GET /api/v1/views/{id}/cells", a.withView(a.handleCells))
	mux.HandleFunc("GET /api/v1/views/{id}/detail", a.withView(a.handleDetail))
	mux.HandleFunc("POST /api/v1/views/{id}/zoom", a.withView(a.handleZoom))
	mux.HandleFunc("POST /api/v1/views/{id}/pan", a.withView(a.handlePan))
	mux.HandleFunc("POST /api/v1/views/{id}/renderer", a.withView(a.handleRenderer))
	mux.HandleFunc("POST /api/v1/views/{id}/pointer", a.withView(a.handlePointer))
}

// --- request bodies ---

type createViewRequest struct {
	Lat      *float64 `json:"lat" validate:"omitempty,gt=-85,lt=85"`
	Lng      *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Zoom     *int     `json:"zoom" validate:"omitempty,gte=0,lte=22"`
	Renderer string   `json:"renderer" validate:"omitempty,max=32"`
	Width    int      `json:"width" validate:"omitempty,gte=64,lte=4096"`
	Height   int      `json:"height" validate:"omitempty,gte=64,lte=4096"`
}

type zoomRequest struct {
	Delta int `json:"delta" validate:"required,gte=-22,lte=22"`
}

type panRequest struct {
	DLat float64 `json:"dLat" validate:"gte=-90,lte=90"`
	DLng float64 `json:"dLng" validate:"gte=-360,lte=360"`
}

type rendererRequest struct {
	Name string `json:"name" validate:"required,max=32"`
}

type pointerRequest struct {
	Event string   `json:"event" validate:"required,oneof=move click leave close"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Lat   *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng   *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}

type pointerResponse struct {
	State     domain.SelectionState `json:"state"`
	Selection domain.Selection      `json:"selection"`
}

type cellsResponse struct {
	Pass    domain.PassSummary     `json:"pass"`
	Samples []domain.WeatherSample `json:"samples"`
}

// --- handlers ---

func (a *API) handleLegend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stops": domain.Legend()})
}

func (a *API) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	opts := view.Options{
		Viewport: geo.Viewport{Center: a.defaults.Center, Zoom: a.defaults.Zoom},
		Size:     a.defaults.Size,
		Renderer: a.defaults.Renderer,
		MinZoom:  a.defaults.MinZoom,
		MaxZoom:  a.defaults.MaxZoom,
	}
	if req.Lat != nil {
		opts.Viewport.Center.Lat = *req.Lat
	}
	if req.Lng != nil {
		opts.Viewport.Center.Lng = *req.Lng
	}
	if req.Zoom != nil {
		opts.Viewport.Zoom = *req.Zoom
	}
	if req.Renderer != "" {
		opts.Renderer = req.Renderer
	}
	if req.Width > 0 {
		opts.Size.Width = float64(req.Width)
	}
	if req.Height > 0 {
		opts.Size.Height = float64(req.Height)
	}

	v, err := a.store.Create(opts)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/views/"+v.ID())
	writeJSON(w, http.StatusCreated, v.Snapshot())
}

func (a *API) handleGetView(w http.ResponseWriter, _ *http.Request, v *view.MapView) {
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (a *API) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Delete(r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleFrame(w http.ResponseWriter, _ *http.Request, v *view.MapView) {
	var buf bytes.Buffer
	contentType, err := v.Render(&buf)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

func (a *API) handleCells(w http.ResponseWriter, _ *http.Request, v *view.MapView) {
	writeJSON(w, http.StatusOK, cellsResponse{
		Pass:    v.Pass().Summary(),
		Samples: v.Cells(),
	})
}

func (a *API) handleDetail(w http.ResponseWriter, r *http.Request, v *view.MapView) {
	detail, ok := v.Detail(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cell selected"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleZoom(w http.ResponseWriter, r *http.Request, v *view.MapView) {
	var req zoomRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	v.Zoom(req.Delta)
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (a *API) handlePan(w http.ResponseWriter, r *http.Request, v *view.MapView) {
	var req panRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	v.Pan(req.DLat, req.DLng)
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (a *API) handleRenderer(w http.ResponseWriter, r *http.Request, v *view.MapView) {
	var req rendererRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if err := v.SetRenderer(req.Name); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (a *API) handlePointer(w http.ResponseWriter, r *http.Request, v *view.MapView) {
	var req pointerRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	var sel domain.Selection
	switch req.Event {
	case "leave":
		sel = v.PointerLeave()
	case "close":
		sel = v.CloseDetail()
	default:
		pt, ll, err := pointerPosition(req)
		if err != nil {
			a.writeError(w, err)
			return
		}
		switch {
		case req.Event == "move" && pt != nil:
			sel = v.PointerMove(*pt)
		case req.Event == "move":
			sel = v.PointerMoveGeo(*ll)
		case pt != nil:
			sel = v.Click(*pt)
		default:
			sel = v.ClickGeo(*ll)
		}
	}
	writeJSON(w, http.StatusOK, pointerResponse{State: sel.State(), Selection: sel})
}

// pointerPosition picks the surface position when x and y are both given,
// otherwise the geographic one.
func pointerPosition(req pointerRequest) (*geo.Point, *geo.LatLng, error) {
	if req.X != nil && req.Y != nil {
		return &geo.Point{X: *req.X, Y: *req.Y}, nil, nil
	}
	if req.Lat != nil && req.Lng != nil {
		return nil, &geo.LatLng{Lat: *req.Lat, Lng: *req.Lng}, nil
	}
	return nil, nil, fmt.Errorf("%w: %s requires x,y or lat,lng", errBadRequest, req.Event)
}

// --- helpers ---

type viewHandler func(w http.ResponseWriter, r *http.Request, v *view.MapView)

// withView resolves the {id} path value to a mounted view.
func (a *API) withView(h viewHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := a.store.Get(r.PathValue("id"))
		if err != nil {
			a.writeError(w, err)
			return
		}
		h(w, r, v)
	}
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// to the zero value.
func (a *API) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if err := a.validator.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// writeError maps domain errors to status codes.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, view.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, view.ErrInvalidOptions),
		errors.Is(err, render.ErrUnknownRenderer):
		status = http.StatusBadRequest
	default:
		a.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
