package domain

import (
	"math"
	"time"

	"github.com/couchcryptid/hexweather/internal/geo"
)

// WeatherSample is the synthetic reading assigned to one grid cell in one
// pass. Lat/Lng is the sampling point that first landed in the cell, not the
// cell centroid.
type WeatherSample struct {
	CellID      string  `json:"cellId"`
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // percent, 0–100
	Pressure    float64 `json:"pressure"`    // hPa
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Point returns the sample's coordinate.
func (s WeatherSample) Point() geo.LatLng {
	return geo.LatLng{Lat: s.Lat, Lng: s.Lng}
}

// Pass is the output of one sampling run. It is never mutated after
// construction and is replaced wholesale when the viewport changes.
type Pass struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Resolution  int             `json:"resolution"`
	Center      geo.LatLng      `json:"center"`
	RawPoints   int             `json:"rawPoints"`
	Samples     []WeatherSample `json:"samples"`

	index map[string]int
}

// NewPass builds a pass and its cell index. Samples must already be unique
// by cell id.
func NewPass(id string, generatedAt time.Time, resolution int, center geo.LatLng, rawPoints int, samples []WeatherSample) *Pass {
	index := make(map[string]int, len(samples))
	for i, s := range samples {
		index[s.CellID] = i
	}
	return &Pass{
		ID:          id,
		GeneratedAt: generatedAt,
		Resolution:  resolution,
		Center:      center,
		RawPoints:   rawPoints,
		Samples:     samples,
		index:       index,
	}
}

// Lookup returns the sample for cellID.
func (p *Pass) Lookup(cellID string) (WeatherSample, bool) {
	if p == nil || cellID == "" {
		return WeatherSample{}, false
	}
	if p.index == nil {
		for _, s := range p.Samples {
			if s.CellID == cellID {
				return s, true
			}
		}
		return WeatherSample{}, false
	}
	i, ok := p.index[cellID]
	if !ok {
		return WeatherSample{}, false
	}
	return p.Samples[i], true
}

// Len returns the number of unique cells in the pass.
func (p *Pass) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Samples)
}

// PassSummary is the lightweight description of a pass returned with view
// snapshots.
type PassSummary struct {
	ID          string     `json:"id"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Resolution  int        `json:"resolution"`
	Center      geo.LatLng `json:"center"`
	RawPoints   int        `json:"rawPoints"`
	Cells       int        `json:"cells"`

	// Temperature statistics over the cells, in °C. Zero for an empty pass.
	MinTemperature  float64 `json:"minTemperature"`
	MaxTemperature  float64 `json:"maxTemperature"`
	MeanTemperature float64 `json:"meanTemperature"`
}

// Summary describes the pass without its samples.
func (p *Pass) Summary() PassSummary {
	if p == nil {
		return PassSummary{}
	}
	sum := PassSummary{
		ID:          p.ID,
		GeneratedAt: p.GeneratedAt,
		Resolution:  p.Resolution,
		Center:      p.Center,
		RawPoints:   p.RawPoints,
		Cells:       len(p.Samples),
	}
	if len(p.Samples) == 0 {
		return sum
	}

	sum.MinTemperature = math.Inf(1)
	sum.MaxTemperature = math.Inf(-1)
	total := 0.0
	for _, s := range p.Samples {
		sum.MinTemperature = math.Min(sum.MinTemperature, s.Temperature)
		sum.MaxTemperature = math.Max(sum.MaxTemperature, s.Temperature)
		total += s.Temperature
	}
	sum.MeanTemperature = total / float64(len(p.Samples))
	return sum
}
