// Command gridcheck runs the grid and projection invariants against the
// real H3 indexer and reports each phase as PASS or FAIL.
//
// Usage:
//
//	go run ./cmd/gridcheck -lat 55.7558 -lng 37.6173 -seed 42
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/hexweather/internal/adapter/h3grid"
	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/couchcryptid/hexweather/internal/render"
	"github.com/couchcryptid/hexweather/internal/sampler"
	"github.com/couchcryptid/hexweather/internal/view"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the errors printed per phase.
const maxReported = 10

type env struct {
	center  geo.LatLng
	seed    uint64
	indexer *h3grid.Indexer
	logger  *slog.Logger
	metrics *observability.Metrics
}

func (e env) sampler(seed uint64) *sampler.Sampler {
	return sampler.New(e.indexer, sampler.NewRand(&seed), e.logger, e.metrics, sampler.DefaultOptions())
}

func main() {
	lat := flag.Float64("lat", 55.7558, "centre latitude")
	lng := flag.Float64("lng", 37.6173, "centre longitude")
	seed := flag.Uint64("seed", 42, "generator seed")
	points := flag.Int("points", 10000, "random points for the projection round trip")
	flag.Parse()

	if !geo.IsValidLatLng(*lat, *lng) {
		flag.Usage()
		os.Exit(1)
	}

	e := env{
		center:  geo.LatLng{Lat: *lat, Lng: *lng},
		seed:    *seed,
		indexer: h3grid.NewIndexer(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: observability.NewMetricsForTesting(),
	}
	os.Exit(run(e, *points))
}

func run(e env, points int) int {
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Hex Grid Invariant Check ===")
	fmt.Printf("centre %.4f,%.4f  seed %d\n", e.center.Lat, e.center.Lng, e.seed)

	phases := []*phase{
		checkProjection(e.seed, points),
		checkSampling(e),
		checkRamp(),
		checkSelection(e),
		checkReproducibility(e),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, msg := range p.errors {
			if i == maxReported {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, msg)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

// ── Phases ──

func checkProjection(seed uint64, n int) *phase {
	p := &phase{name: "Projection round trip (1e-6°)"}
	rng := rand.New(rand.NewPCG(seed, seed))
	size := geo.Size{Width: 1400, Height: 800}

	for range n {
		ll := geo.LatLng{Lat: rng.Float64()*170 - 85, Lng: rng.Float64()*360 - 180}
		if math.Abs(ll.Lat) >= 85 {
			continue
		}
		vp := geo.Viewport{
			Center: geo.LatLng{Lat: rng.Float64()*160 - 80, Lng: rng.Float64()*360 - 180},
			Zoom:   rng.IntN(19),
		}
		back := geo.Inverse(geo.Forward(ll, vp, size), vp, size)
		if math.Abs(back.Lat-ll.Lat) > 1e-6 || math.Abs(back.Lng-ll.Lng) > 1e-6 {
			p.errorf("(%.6f,%.6f) zoom %d -> (%.6f,%.6f)", ll.Lat, ll.Lng, vp.Zoom, back.Lat, back.Lng)
		}
	}
	return p
}

func checkSampling(e env) *phase {
	p := &phase{name: "Sampling: unique cells, bounded count"}
	pass := e.sampler(e.seed).Sample(e.center)

	seen := make(map[string]bool, pass.Len())
	for _, s := range pass.Samples {
		if seen[s.CellID] {
			p.errorf("duplicate cell %s", s.CellID)
		}
		seen[s.CellID] = true
		if s.Temperature < -10 || s.Temperature > 20 {
			p.errorf("cell %s temperature %.0f out of range", s.CellID, s.Temperature)
		}
		if s.Humidity < 0 || s.Humidity > 100 {
			p.errorf("cell %s humidity %.0f out of range", s.CellID, s.Humidity)
		}
		if s.Pressure < 980 || s.Pressure > 1040 {
			p.errorf("cell %s pressure %.0f out of range", s.CellID, s.Pressure)
		}
	}

	// 34 lattice rows × 50 columns, give or take one at each edge.
	if pass.RawPoints < 33*49 || pass.RawPoints > 35*51 {
		p.errorf("raw points %d outside expected 34×50 lattice", pass.RawPoints)
	}
	if pass.Len() > pass.RawPoints {
		p.errorf("%d cells from %d raw points", pass.Len(), pass.RawPoints)
	}
	fmt.Printf("  pass: %d raw points, %d cells\n", pass.RawPoints, pass.Len())
	return p
}

func checkRamp() *phase {
	p := &phase{name: "Colour ramp: five contiguous bands"}
	bands := []struct {
		lo, hi float64
		want   domain.Color
	}{
		{-1000, -5, domain.ColorFreezing},
		{-5, 5, domain.ColorCold},
		{5, 15, domain.ColorMild},
		{15, 25, domain.ColorWarm},
		{25, 1000, domain.ColorHot},
	}
	for _, b := range bands {
		for t := b.lo; t < b.hi; t += 0.25 {
			if got := domain.TempColor(t); got != b.want {
				p.errorf("TempColor(%.2f) = %s, want %s", t, got.Hex(), b.want.Hex())
			}
		}
	}
	return p
}

func checkSelection(e env) *phase {
	p := &phase{name: "Selection: click, miss, hover A→B"}

	reg, err := render.NewRegistry("raster", render.Standard(e.indexer, 28, e.logger, e.metrics)...)
	if err != nil {
		p.errorf("registry: %v", err)
		return p
	}
	v, err := view.New("gridcheck", view.Options{
		Viewport: geo.Viewport{Center: e.center, Zoom: 7},
		Size:     geo.Size{Width: 1400, Height: 800},
		MinZoom:  0,
		MaxZoom:  18,
	}, view.Deps{
		Registry: reg,
		Sampler:  e.sampler(e.seed),
		Logger:   e.logger,
		Metrics:  e.metrics,
		Clock:    clockwork.NewRealClock(),
	})
	if err != nil {
		p.errorf("mount: %v", err)
		return p
	}

	pass := v.Pass()
	if pass.Len() < 2 {
		p.errorf("pass has %d cells, need at least 2", pass.Len())
		return p
	}
	a, b := pass.Samples[0], pass.Samples[1]

	sel := v.ClickGeo(a.Point())
	if sel.Selected == nil || *sel.Selected != a {
		p.errorf("click on %s did not select it", a.CellID)
	}
	sel = v.ClickGeo(geo.LatLng{Lat: e.center.Lat + 10, Lng: e.center.Lng})
	if sel.Selected == nil || sel.Selected.CellID != a.CellID {
		p.errorf("click outside sampled cells changed the selection")
	}

	v.CloseDetail()
	if sel = v.PointerMoveGeo(a.Point()); sel.Hovered != a.CellID {
		p.errorf("hover A: got %q", sel.Hovered)
	}
	if sel = v.PointerMoveGeo(b.Point()); sel.Hovered != b.CellID || sel.State() != domain.StateHovered {
		p.errorf("hover A→B: got %q in state %s", sel.Hovered, sel.State())
	}
	return p
}

func checkReproducibility(e env) *phase {
	p := &phase{name: "Seeded passes reproducible"}
	a := e.sampler(e.seed).Sample(e.center)
	b := e.sampler(e.seed).Sample(e.center)
	if diff := cmp.Diff(a.Samples, b.Samples); diff != "" {
		p.errorf("same seed, different samples (-a +b):\n%s", diff)
	}
	return p
}
