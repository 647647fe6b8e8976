package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/hexweather/internal/config"
	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Settings is the non-secret configuration shown on the settings page.
type Settings struct {
	DefaultLat     float64
	DefaultLng     float64
	DefaultZoom    int
	MinZoom        int
	MaxZoom        int
	SurfaceWidth   int
	SurfaceHeight  int
	GridResolution int
	SampleStep     float64
	SampleLatSpan  float64
	SampleLngSpan  float64
	TempOffset     float64
	Seeded         bool
	Renderer       string
	Renderers      []string
	HexRadius      float64
	ViewTTL        string
	Geocoding      bool
	Snapshots      bool
	SnapshotTopic  string
}

// SettingsFromConfig builds the settings page model.
func SettingsFromConfig(cfg *config.Config, renderers []string) Settings {
	return Settings{
		DefaultLat:     cfg.DefaultLat,
		DefaultLng:     cfg.DefaultLng,
		DefaultZoom:    cfg.DefaultZoom,
		MinZoom:        cfg.MinZoom,
		MaxZoom:        cfg.MaxZoom,
		SurfaceWidth:   cfg.SurfaceWidth,
		SurfaceHeight:  cfg.SurfaceHeight,
		GridResolution: cfg.GridResolution,
		SampleStep:     cfg.SampleStep,
		SampleLatSpan:  cfg.SampleLatSpan,
		SampleLngSpan:  cfg.SampleLngSpan,
		TempOffset:     cfg.TempOffset,
		Seeded:         cfg.RandomSeed != nil,
		Renderer:       cfg.Renderer,
		Renderers:      renderers,
		HexRadius:      cfg.HexRadius,
		ViewTTL:        cfg.ViewTTL.String(),
		Geocoding:      cfg.MapboxEnabled,
		Snapshots:      cfg.KafkaEnabled,
		SnapshotTopic:  cfg.KafkaSnapshotTopic,
	}
}

// Pages serves the HTML shell: map, about and settings.
type Pages struct {
	templates map[string]*template.Template
	settings  Settings
	logger    *slog.Logger
}

type pageData struct {
	Title    string
	Active   string
	Settings Settings
	Legend   []domain.LegendStop
	TileURL  string
}

// NewPages parses the embedded templates.
func NewPages(settings Settings, logger *slog.Logger) (*Pages, error) {
	p := &Pages{
		templates: make(map[string]*template.Template),
		settings:  settings,
		logger:    logger,
	}
	for _, name := range []string{"map", "about", "settings"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.templates[name] = t
	}
	return p, nil
}

// Register adds the page routes to mux.
func (p *Pages) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/map", http.StatusFound)
	})
	mux.HandleFunc("GET /map", p.page("map", "Map"))
	mux.HandleFunc("GET /about", p.page("about", "About"))
	mux.HandleFunc("GET /settings", p.page("settings", "Settings"))
}

func (p *Pages) page(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := pageData{
			Title:    title,
			Active:   name,
			Settings: p.settings,
			Legend:   domain.Legend(),
			TileURL:  render.TileURLTemplate,
		}
		var buf bytes.Buffer
		if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
			p.logger.Error("render page failed", "page", name, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes()) //nolint:errcheck // client went away
	}
}
