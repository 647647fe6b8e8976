package domain

import "fmt"

// Color is an opaque RGB colour.
type Color struct {
	R, G, B uint8
}

// Hex formats the colour as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Ramp stops, coldest first.
var (
	ColorFreezing = Color{0x3B, 0x82, 0xF6}
	ColorCold     = Color{0x60, 0xA5, 0xFA}
	ColorMild     = Color{0x34, 0xD3, 0x99}
	ColorWarm     = Color{0xFB, 0xBF, 0x24}
	ColorHot      = Color{0xEF, 0x44, 0x44}
)

// Palette colours shared by the renderers.
var (
	ColorBackground = Color{0x1A, 0x1F, 0x2C}
	ColorHighlight  = Color{0x0E, 0xA5, 0xE9}
)

// TempColor maps a temperature in °C to its ramp colour. The bands are
// half-open on the right, so every input, NaN included, lands in exactly
// one band.
func TempColor(temp float64) Color {
	switch {
	case temp < -5:
		return ColorFreezing
	case temp < 5:
		return ColorCold
	case temp < 15:
		return ColorMild
	case temp < 25:
		return ColorWarm
	default:
		return ColorHot
	}
}

// LegendStop is one entry of the temperature legend.
type LegendStop struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend returns the sidebar gradient, coldest first.
func Legend() []LegendStop {
	return []LegendStop{
		{Label: "-10°C", Color: ColorFreezing.Hex()},
		{Label: "0°C", Color: ColorCold.Hex()},
		{Label: "10°C", Color: ColorMild.Hex()},
		{Label: "20°C", Color: ColorWarm.Hex()},
		{Label: "30°C", Color: ColorHot.Hex()},
	}
}
