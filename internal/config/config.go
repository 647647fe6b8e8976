package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Default viewport and drawing surface for new views.
	DefaultLat    float64
	DefaultLng    float64
	DefaultZoom   int
	MinZoom       int
	MaxZoom       int
	SurfaceWidth  int
	SurfaceHeight int

	// Sampling pass configuration.
	GridResolution int
	SampleStep     float64
	SampleLatSpan  float64
	SampleLngSpan  float64
	TempOffset     float64
	RandomSeed     *uint64 // nil seeds from the wall clock

	Renderer          string
	HexRadius         float64
	BoundaryCacheSize int

	ViewTTL           time.Duration
	ViewSweepInterval time.Duration

	// Mapbox reverse geocoding of selected cells.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxLanguage  string

	// Kafka snapshot sink.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	SnapshotInterval   time.Duration
}

// Renderer names accepted by RENDERER.
var validRenderers = []string{"raster", "tiled", "svg"}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var p parser

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: p.positiveDuration("SHUTDOWN_TIMEOUT", "10s"),

		DefaultLat:    p.float("DEFAULT_LAT", 55.7558),
		DefaultLng:    p.float("DEFAULT_LNG", 37.6173),
		DefaultZoom:   p.int("DEFAULT_ZOOM", 7),
		MinZoom:       p.int("MIN_ZOOM", 4),
		MaxZoom:       p.int("MAX_ZOOM", 12),
		SurfaceWidth:  p.int("SURFACE_WIDTH", 1400),
		SurfaceHeight: p.int("SURFACE_HEIGHT", 800),

		GridResolution: p.int("GRID_RESOLUTION", 6),
		SampleStep:     p.float("SAMPLE_STEP", 0.12),
		SampleLatSpan:  p.float("SAMPLE_LAT_SPAN", 2),
		SampleLngSpan:  p.float("SAMPLE_LNG_SPAN", 3),
		TempOffset:     p.float("TEMP_OFFSET", 0),
		RandomSeed:     p.seed("RANDOM_SEED"),

		Renderer:          strings.ToLower(envOrDefault("RENDERER", "raster")),
		HexRadius:         p.float("HEX_RADIUS", 28),
		BoundaryCacheSize: p.int("BOUNDARY_CACHE_SIZE", 4096),

		ViewTTL:           p.positiveDuration("VIEW_TTL", "30m"),
		ViewSweepInterval: p.positiveDuration("VIEW_SWEEP_INTERVAL", "1m"),

		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:   p.positiveDuration("MAPBOX_TIMEOUT", "5s"),
		MapboxCacheSize: parsePositiveIntOrDefault("MAPBOX_CACHE_SIZE", 1000),
		MapboxLanguage:  os.Getenv("MAPBOX_LANGUAGE"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: envOrDefault("KAFKA_SNAPSHOT_TOPIC", "hex-weather-snapshots"),
		SnapshotInterval:   p.positiveDuration("SNAPSHOT_INTERVAL", "5m"),
	}
	if p.err != nil {
		return nil, p.err
	}

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MinZoom < 0 || c.MaxZoom > 22 || c.MinZoom > c.MaxZoom {
		return errors.New("MIN_ZOOM and MAX_ZOOM must satisfy 0 <= MIN_ZOOM <= MAX_ZOOM <= 22")
	}
	if c.DefaultZoom < c.MinZoom || c.DefaultZoom > c.MaxZoom {
		return errors.New("DEFAULT_ZOOM must lie within MIN_ZOOM..MAX_ZOOM")
	}
	if c.DefaultLat <= -85 || c.DefaultLat >= 85 {
		return errors.New("DEFAULT_LAT must lie strictly within -85..85")
	}
	if c.DefaultLng < -180 || c.DefaultLng > 180 {
		return errors.New("DEFAULT_LNG must lie within -180..180")
	}
	if c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0 {
		return errors.New("SURFACE_WIDTH and SURFACE_HEIGHT must be positive")
	}
	if c.GridResolution < 0 || c.GridResolution > 15 {
		return errors.New("GRID_RESOLUTION must lie within 0..15")
	}
	if c.SampleStep <= 0 {
		return errors.New("SAMPLE_STEP must be positive")
	}
	if c.SampleLatSpan <= 0 || c.SampleLngSpan <= 0 {
		return errors.New("SAMPLE_LAT_SPAN and SAMPLE_LNG_SPAN must be positive")
	}
	if n := rawPoints(c.SampleLatSpan, c.SampleLngSpan, c.SampleStep); n > maxRawPoints {
		return fmt.Errorf("SAMPLE_STEP too small for SAMPLE_LAT_SPAN and SAMPLE_LNG_SPAN: %.0f lattice points per pass, limit %d", n, maxRawPoints)
	}
	if !isValidRenderer(c.Renderer) {
		return fmt.Errorf("RENDERER must be one of %s", strings.Join(validRenderers, ", "))
	}
	if c.HexRadius <= 0 {
		return errors.New("HEX_RADIUS must be positive")
	}
	if c.BoundaryCacheSize <= 0 {
		return errors.New("BOUNDARY_CACHE_SIZE must be positive")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaSnapshotTopic == "" {
			return errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

// maxRawPoints bounds the lattice walked by each sampling pass.
const maxRawPoints = 250_000

func rawPoints(latSpan, lngSpan, step float64) float64 {
	return math.Ceil(2*latSpan/step) * math.Ceil(2*lngSpan/step)
}

func isValidRenderer(name string) bool {
	for _, r := range validRenderers {
		if r == name {
			return true
		}
	}
	return false
}

// parser collects the first parse error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *parser) positiveDuration(key, def string) time.Duration {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if d <= 0 {
		p.fail(key, errors.New("must be positive"))
		return 0
	}
	return d
}

func (p *parser) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p *parser) int(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p *parser) seed(key string) *uint64 {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.fail(key, err)
		return nil
	}
	return &v
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveIntOrDefault(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
