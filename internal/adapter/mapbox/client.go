package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// placeTypes are the feature types a sample point may resolve to, most
// specific first. Mapbox returns the most specific match.
var placeTypes = []string{"place", "locality", "district", "region", "country"}

// Client implements domain.Geocoder using the Mapbox reverse geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	language   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLanguage requests place names in the given IETF language tag.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReverseGeocode resolves a sample point to its place, region and country.
// A point with no match (open sea) yields an empty result and no error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	start := time.Now()
	result, err := c.lookup(ctx, c.reverseURL(lat, lon))
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Debug("mapbox reverse geocode failed", "lat", lat, "lon", lon, "error", err)
	case result.FormattedAddress == "":
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return result, err
}

func (c *Client) reverseURL(lat, lon float64) string {
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {strings.Join(placeTypes, ",")},
	}
	if c.language != "" {
		params.Set("language", c.language)
	}
	// Mapbox takes lon,lat.
	return fmt.Sprintf("%s/%.6f,%.6f.json?%s", c.baseURL, geo.WrapLng(lon), lat, params.Encode())
}

func (c *Client) lookup(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}
	return fc.Features[0].result(), nil
}

// Mapbox API response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string    `json:"id"` // "<type>.<n>"
	Center    []float64 `json:"center"`
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
	Context   []area    `json:"context"`
}

// area is one enclosing area of a feature, such as its region or country.
type area struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (f feature) result() domain.GeocodingResult {
	r := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	// The feature itself may be the region or country when nothing finer
	// matched.
	areas := append([]area{{ID: f.ID, Text: f.Text}}, f.Context...)
	for _, a := range areas {
		switch featureType(a.ID) {
		case "region":
			if r.Region == "" {
				r.Region = a.Text
			}
		case "country":
			if r.Country == "" {
				r.Country = a.Text
			}
		}
	}
	return r
}

func featureType(id string) string {
	t, _, _ := strings.Cut(id, ".")
	return t
}
