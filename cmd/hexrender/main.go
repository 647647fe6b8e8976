// Command hexrender samples one pass and writes a single rendered frame to a
// file, using the same renderers the service serves. With -seed and the
// fixed clock the output is byte-for-byte reproducible.
//
// Usage:
//
//	go run ./cmd/hexrender \
//	  -renderer raster -lat 55.7558 -lng 37.6173 -zoom 7 \
//	  -seed 42 -out frame.png
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/hexweather/internal/adapter/h3grid"
	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/couchcryptid/hexweather/internal/render"
	"github.com/couchcryptid/hexweather/internal/sampler"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rendererName := flag.String("renderer", "raster", "renderer: raster, tiled or svg")
	lat := flag.Float64("lat", 55.7558, "centre latitude")
	lng := flag.Float64("lng", 37.6173, "centre longitude")
	zoom := flag.Int("zoom", 7, "zoom level")
	width := flag.Int("width", 1400, "surface width in pixels")
	height := flag.Int("height", 800, "surface height in pixels")
	resolution := flag.Int("resolution", 6, "grid resolution")
	radius := flag.Float64("radius", 28, "svg hexagon radius in pixels")
	seedFlag := flag.String("seed", "", "generator seed (empty for random)")
	hover := flag.Int("hover", -1, "index of the sample to draw as hovered")
	out := flag.String("out", "", "output path (- for stdout)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if !geo.IsValidLatLng(*lat, *lng) {
		return fmt.Errorf("invalid centre %.4f,%.4f", *lat, *lng)
	}

	var seed *uint64
	if *seedFlag != "" {
		v, err := strconv.ParseUint(*seedFlag, 10, 64)
		if err != nil {
			return fmt.Errorf("parse -seed: %w", err)
		}
		seed = &v
	}

	// Set a fixed clock for reproducible pass timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	indexer := h3grid.NewIndexer()

	registry, err := render.NewRegistry("raster", render.Standard(indexer, *radius, logger, metrics)...)
	if err != nil {
		return err
	}
	r, err := registry.Get(*rendererName)
	if err != nil {
		return err
	}

	opts := sampler.DefaultOptions()
	opts.Resolution = *resolution
	center := geo.LatLng{Lat: *lat, Lng: *lng}
	pass := sampler.New(indexer, sampler.NewRand(seed), logger, metrics, opts).Sample(center)
	log.Printf("pass %s: %d raw points, %d cells", pass.ID, pass.RawPoints, pass.Len())

	frame := render.Frame{
		Viewport: geo.Viewport{Center: center, Zoom: *zoom},
		Size:     geo.Size{Width: float64(*width), Height: float64(*height)},
		Pass:     pass,
	}
	if *hover >= 0 && *hover < pass.Len() {
		frame.Hovered = pass.Samples[*hover].CellID
	}

	return writeFrame(*out, r, frame)
}

func writeFrame(path string, r render.Renderer, frame render.Frame) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	if err := r.Render(bw, frame); err != nil {
		return fmt.Errorf("render %s frame: %w", r.Name(), err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if path != "-" {
		log.Printf("wrote %s frame (%s) to %s", r.Name(), r.ContentType(), path)
	}
	return nil
}
