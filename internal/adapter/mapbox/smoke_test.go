//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Live API checks. Run with MAPBOX_TOKEN set:
//
//	go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1
func liveClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Skip("MAPBOX_TOKEN not set")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(), logger)
}

func TestLive_SamplePointResolvesToCity(t *testing.T) {
	c := liveClient(t)

	result, err := c.ReverseGeocode(context.Background(), 55.7558, 37.6173)
	require.NoError(t, err)
	assert.Equal(t, "Moscow", result.PlaceName)
	assert.Equal(t, "Russia", result.Country)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestLive_EdgeOfSamplingWindow(t *testing.T) {
	c := liveClient(t)

	// Corner of the default 2°×3° window around Moscow.
	result, err := c.ReverseGeocode(context.Background(), 53.7558, 34.6173)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Country)
	t.Logf("window corner: %q (%s)", result.FormattedAddress, result.Region)
}

func TestLive_OpenSeaIsEmpty(t *testing.T) {
	c := liveClient(t)

	result, err := c.ReverseGeocode(context.Background(), 0.5, -160)
	require.NoError(t, err)
	t.Logf("mid-Pacific: %q", result.FormattedAddress)
}
