package domain

import (
	"context"
	"log/slog"
)

// CellDetail is the content of the detail panel for a selected sample.
type CellDetail struct {
	Sample           WeatherSample `json:"sample"`
	Color            string        `json:"color"`
	FormattedAddress string        `json:"formattedAddress,omitempty"`
	PlaceName        string        `json:"placeName,omitempty"`
	Region           string        `json:"region,omitempty"`
	Country          string        `json:"country,omitempty"`
	GeoConfidence    float64       `json:"geoConfidence,omitempty"`
	GeoSource        string        `json:"geoSource,omitempty"` // "reverse", "original", "failed"
}

// DescribeSample builds the detail panel for a sample, reverse geocoding
// its coordinate when a geocoder is configured. A nil geocoder or a failed
// lookup still yields the sample itself.
func DescribeSample(ctx context.Context, sample WeatherSample, geocoder Geocoder, logger *slog.Logger) CellDetail {
	d := CellDetail{
		Sample: sample,
		Color:  TempColor(sample.Temperature).Hex(),
	}
	if geocoder == nil {
		return d
	}

	result, err := geocoder.ReverseGeocode(ctx, sample.Lat, sample.Lng)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"cell_id", sample.CellID,
			"lat", sample.Lat,
			"lng", sample.Lng,
			"error", err,
		)
		d.GeoSource = "failed"
		return d
	}
	if result.FormattedAddress == "" {
		d.GeoSource = "original"
		return d
	}

	d.FormattedAddress = result.FormattedAddress
	d.PlaceName = result.PlaceName
	d.Region = result.Region
	d.Country = result.Country
	d.GeoConfidence = result.Confidence
	d.GeoSource = "reverse"
	return d
}
