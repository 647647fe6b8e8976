// Package sampler generates synthetic weather passes over a grid of cells.
package sampler

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/google/uuid"
)

// Options controls the sampled region and grid.
type Options struct {
	LatSpan    float64 // half-span in degrees
	LngSpan    float64 // half-span in degrees
	Step       float64
	Resolution int
	TempOffset float64
}

// DefaultOptions returns the stock 2°×3° window at 0.12° and resolution 6.
func DefaultOptions() Options {
	return Options{
		LatSpan:    2,
		LngSpan:    3,
		Step:       0.12,
		Resolution: 6,
	}
}

// Sampler walks a lattice of points around a centre and assigns random
// readings to every distinct cell it lands in.
type Sampler struct {
	indexer domain.Indexer
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a Sampler. The generator is owned by the sampler from here on.
func New(indexer domain.Indexer, rng *rand.Rand, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Sampler {
	return &Sampler{
		indexer: indexer,
		rng:     rng,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// Resolution is the grid resolution passes are indexed at.
func (s *Sampler) Resolution() int {
	return s.opts.Resolution
}

// Sample runs one pass centred on center.
func (s *Sampler) Sample(center geo.LatLng) *domain.Pass {
	s.mu.Lock()
	defer s.mu.Unlock()

	minLat, maxLat := center.Lat-s.opts.LatSpan, center.Lat+s.opts.LatSpan
	minLng, maxLng := center.Lng-s.opts.LngSpan, center.Lng+s.opts.LngSpan

	seen := make(map[string]struct{})
	var samples []domain.WeatherSample
	raw := 0

	for i := 0; ; i++ {
		lat := minLat + float64(i)*s.opts.Step
		if lat >= maxLat {
			break
		}
		for j := 0; ; j++ {
			lng := minLng + float64(j)*s.opts.Step
			if lng >= maxLng {
				break
			}
			raw++

			p := geo.LatLng{Lat: lat, Lng: lng}
			cellID, err := s.indexer.PointToCell(p, s.opts.Resolution)
			if err != nil {
				s.logger.Warn("index sample point failed, skipping",
					"error", err,
					"lat", lat,
					"lng", lng,
					"resolution", s.opts.Resolution,
				)
				s.metrics.IndexErrors.Inc()
				continue
			}
			if _, dup := seen[cellID]; dup {
				continue
			}
			seen[cellID] = struct{}{}
			samples = append(samples, s.reading(cellID, p))
		}
	}

	pass := domain.NewPass(uuid.NewString(), domain.Now(), s.opts.Resolution, center, raw, samples)
	s.metrics.SamplingPasses.Inc()
	s.metrics.PassCells.Observe(float64(pass.Len()))
	s.logger.Debug("sampling pass complete",
		"pass_id", pass.ID,
		"raw_points", raw,
		"cells", pass.Len(),
	)
	return pass
}

func (s *Sampler) reading(cellID string, p geo.LatLng) domain.WeatherSample {
	return domain.WeatherSample{
		CellID:      cellID,
		Temperature: math.Round(s.rng.Float64()*30-10) + s.opts.TempOffset,
		Humidity:    math.Round(s.rng.Float64() * 100),
		Pressure:    math.Round(980 + s.rng.Float64()*60),
		Lat:         p.Lat,
		Lng:         p.Lng,
	}
}

// NewRand returns a PCG generator seeded from seed, or from the runtime's
// entropy source when seed is nil.
func NewRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
}
