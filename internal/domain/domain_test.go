package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCellA = "861f1d48fffffff"
	testCellB = "861f1d4a7ffffff"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePass() *Pass {
	return NewPass("pass-1", time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC), 6, geo.LatLng{Lat: 55, Lng: 37}, 3, []WeatherSample{
		{CellID: testCellA, Temperature: -7, Humidity: 40, Pressure: 1001, Lat: 55.1, Lng: 37.2},
		{CellID: testCellB, Temperature: 18, Humidity: 80, Pressure: 990, Lat: 55.2, Lng: 37.3},
	})
}

// --- colour ramp ---

func TestTempColor(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		want Color
	}{
		{"far below", -40, ColorFreezing},
		{"just below -5", -5.0001, ColorFreezing},
		{"at -5", -5, ColorCold},
		{"zero", 0, ColorCold},
		{"at 5", 5, ColorMild},
		{"just below 15", 14.999, ColorMild},
		{"at 15", 15, ColorWarm},
		{"at 25", 25, ColorHot},
		{"far above", 60, ColorHot},
		{"+inf", math.Inf(1), ColorHot},
		{"-inf", math.Inf(-1), ColorFreezing},
		{"NaN", math.NaN(), ColorHot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TempColor(tt.temp))
		})
	}
}

func TestTempColor_BandsAreContiguous(t *testing.T) {
	stops := []Color{ColorFreezing, ColorCold, ColorMild, ColorWarm, ColorHot}
	band := func(c Color) int {
		for i, s := range stops {
			if s == c {
				return i
			}
		}
		return -1
	}

	prev := 0
	for temp := -30.0; temp <= 40; temp += 0.25 {
		b := band(TempColor(temp))
		require.NotEqual(t, -1, b)
		require.GreaterOrEqual(t, b, prev, "band went backwards at %v", temp)
		require.LessOrEqual(t, b-prev, 1, "band skipped at %v", temp)
		prev = b
	}
	assert.Equal(t, 4, prev)
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "#3B82F6", ColorFreezing.Hex())
	assert.Equal(t, "#1A1F2C", ColorBackground.Hex())
}

func TestLegend(t *testing.T) {
	legend := Legend()
	require.Len(t, legend, 5)
	assert.Equal(t, "-10°C", legend[0].Label)
	assert.Equal(t, "#EF4444", legend[4].Color)
}

// --- pass ---

func TestPass_Lookup(t *testing.T) {
	p := samplePass()

	s, ok := p.Lookup(testCellB)
	require.True(t, ok)
	assert.Equal(t, 18.0, s.Temperature)

	_, ok = p.Lookup("8611aa000ffffff")
	assert.False(t, ok)

	_, ok = p.Lookup("")
	assert.False(t, ok)
}

func TestPass_LookupWithoutIndex(t *testing.T) {
	p := &Pass{Samples: []WeatherSample{{CellID: testCellA}}}

	_, ok := p.Lookup(testCellA)
	assert.True(t, ok)
}

func TestPass_NilSafe(t *testing.T) {
	var p *Pass
	_, ok := p.Lookup(testCellA)
	assert.False(t, ok)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, PassSummary{}, p.Summary())
}

func TestPass_Summary(t *testing.T) {
	s := samplePass().Summary()
	assert.Equal(t, "pass-1", s.ID)
	assert.Equal(t, 2, s.Cells)
	assert.Equal(t, 3, s.RawPoints)
	assert.Equal(t, 6, s.Resolution)
	assert.InDelta(t, -7, s.MinTemperature, 1e-9)
	assert.InDelta(t, 18, s.MaxTemperature, 1e-9)
	assert.InDelta(t, 5.5, s.MeanTemperature, 1e-9)
}

func TestPass_SummaryStatistics(t *testing.T) {
	p := NewPass("pass-2", time.Time{}, 6, geo.LatLng{}, 4, []WeatherSample{
		{CellID: "a", Temperature: 3},
		{CellID: "b", Temperature: -10},
		{CellID: "c", Temperature: 20},
		{CellID: "d", Temperature: 3},
	})

	s := p.Summary()
	assert.Equal(t, 4, s.Cells)
	assert.InDelta(t, -10, s.MinTemperature, 1e-9)
	assert.InDelta(t, 20, s.MaxTemperature, 1e-9)
	assert.InDelta(t, 4, s.MeanTemperature, 1e-9)

	empty := NewPass("pass-3", time.Time{}, 6, geo.LatLng{}, 10, nil).Summary()
	assert.Zero(t, empty.Cells)
	assert.Zero(t, empty.MinTemperature)
	assert.Zero(t, empty.MaxTemperature)
	assert.Zero(t, empty.MeanTemperature)
}

// --- selection ---

func TestSelection_HoverThenMove(t *testing.T) {
	var sel Selection
	assert.Equal(t, StateIdle, sel.State())

	sel.Hover(testCellA, true)
	assert.Equal(t, StateHovered, sel.State())
	assert.Equal(t, testCellA, sel.Hovered)

	sel.Hover(testCellB, true)
	assert.Equal(t, StateHovered, sel.State())
	assert.Equal(t, testCellB, sel.Hovered)
}

func TestSelection_HoverMissClears(t *testing.T) {
	var sel Selection
	sel.Hover(testCellA, true)
	sel.Hover("", false)
	assert.Equal(t, StateIdle, sel.State())
}

func TestSelection_Leave(t *testing.T) {
	var sel Selection
	sel.Hover(testCellA, true)
	sel.Leave()
	assert.Empty(t, sel.Hovered)
	assert.Equal(t, StateIdle, sel.State())
}

func TestSelection_ClickKeepsHover(t *testing.T) {
	p := samplePass()
	var sel Selection
	sel.Hover(testCellA, true)

	sample, ok := p.Lookup(testCellA)
	sel.Click(sample, ok)

	assert.Equal(t, StateSelected, sel.State())
	require.NotNil(t, sel.Selected)
	assert.Equal(t, sample, *sel.Selected)
	assert.Equal(t, testCellA, sel.Hovered)
}

func TestSelection_ClickMissIsNoop(t *testing.T) {
	p := samplePass()
	var sel Selection
	sample, _ := p.Lookup(testCellB)
	sel.Click(sample, true)

	sel.Click(WeatherSample{}, false)

	require.NotNil(t, sel.Selected)
	assert.Equal(t, testCellB, sel.Selected.CellID)
}

func TestSelection_Close(t *testing.T) {
	var sel Selection
	sel.Hover(testCellA, true)
	sel.Click(WeatherSample{CellID: testCellA}, true)

	sel.Close()

	assert.Equal(t, StateIdle, sel.State())
	assert.Nil(t, sel.Selected)
}

func TestSelection_Reset(t *testing.T) {
	sel := Selection{Hovered: testCellA, Selected: &WeatherSample{CellID: testCellA}}
	sel.Reset()
	assert.Equal(t, Selection{}, sel)
}

func TestSelection_Rebind(t *testing.T) {
	next := NewPass("pass-next", time.Time{}, 6, geo.LatLng{}, 2, []WeatherSample{
		{CellID: testCellA, Temperature: 12},
	})

	sel := Selection{Hovered: testCellA, Selected: &WeatherSample{CellID: testCellA, Temperature: -4}}
	sel.Rebind(next)
	assert.Empty(t, sel.Hovered)
	require.NotNil(t, sel.Selected)
	assert.InDelta(t, 12, sel.Selected.Temperature, 1e-9, "selection follows the new pass values")
	assert.Equal(t, StateSelected, sel.State())

	gone := Selection{Selected: &WeatherSample{CellID: testCellB}}
	gone.Rebind(next)
	assert.Equal(t, StateIdle, gone.State())

	var idle Selection
	idle.Rebind(next)
	assert.Equal(t, Selection{}, idle)
}

// --- detail ---

func TestDescribeSample_NilGeocoder(t *testing.T) {
	s := WeatherSample{CellID: testCellA, Temperature: 3}

	d := DescribeSample(context.Background(), s, nil, discardLogger())

	assert.Equal(t, s, d.Sample)
	assert.Equal(t, "#60A5FA", d.Color)
	assert.Empty(t, d.GeoSource)
}

func TestDescribeSample_Reverse(t *testing.T) {
	g := &mockGeocoder{result: GeocodingResult{
		FormattedAddress: "Moscow, Moscow, Russia",
		PlaceName:        "Moscow",
		Region:           "Moscow",
		Country:          "Russia",
		Confidence:       0.9,
	}}

	d := DescribeSample(context.Background(), WeatherSample{CellID: testCellA, Lat: 55.75, Lng: 37.61}, g, discardLogger())

	assert.Equal(t, 1, g.calls)
	assert.Equal(t, "reverse", d.GeoSource)
	assert.Equal(t, "Moscow", d.PlaceName)
	assert.Equal(t, "Moscow", d.Region)
	assert.Equal(t, "Russia", d.Country)
	assert.InEpsilon(t, 0.9, d.GeoConfidence, 1e-9)
}

func TestDescribeSample_EmptyResult(t *testing.T) {
	g := &mockGeocoder{}
	d := DescribeSample(context.Background(), WeatherSample{CellID: testCellA}, g, discardLogger())
	assert.Equal(t, "original", d.GeoSource)
}

func TestDescribeSample_Failure(t *testing.T) {
	g := &mockGeocoder{err: errors.New("timeout")}
	d := DescribeSample(context.Background(), WeatherSample{CellID: testCellA, Temperature: 30}, g, discardLogger())
	assert.Equal(t, "failed", d.GeoSource)
	assert.Equal(t, "#EF4444", d.Color)
}

// --- clock ---

func TestSetClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC), Now())

	fake.Advance(time.Minute)
	assert.Equal(t, time.Date(2024, 4, 26, 15, 11, 0, 0, time.UTC), Now())
}
