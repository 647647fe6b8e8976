package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hexweather/internal/adapter/h3grid"
	httpadapter "github.com/couchcryptid/hexweather/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hexweather/internal/adapter/kafka"
	"github.com/couchcryptid/hexweather/internal/adapter/mapbox"
	"github.com/couchcryptid/hexweather/internal/config"
	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/couchcryptid/hexweather/internal/pipeline"
	"github.com/couchcryptid/hexweather/internal/render"
	"github.com/couchcryptid/hexweather/internal/sampler"
	"github.com/couchcryptid/hexweather/internal/scheduler"
	"github.com/couchcryptid/hexweather/internal/view"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	indexer := h3grid.NewIndexer()
	cached, err := h3grid.NewCachedIndexer(indexer, cfg.BoundaryCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create boundary cache", "error", err)
		os.Exit(1)
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		var opts []mapbox.Option
		if cfg.MapboxLanguage != "" {
			opts = append(opts, mapbox.WithLanguage(cfg.MapboxLanguage))
		}
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger, opts...)
		cachedGeocoder, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocode cache", "error", err)
			os.Exit(1)
		}
		geocoder = cachedGeocoder
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	registry, err := render.NewRegistry(cfg.Renderer, render.Standard(cached, cfg.HexRadius, logger, metrics)...)
	if err != nil {
		logger.Error("failed to build renderers", "error", err)
		os.Exit(1)
	}

	opts := sampler.Options{
		LatSpan:    cfg.SampleLatSpan,
		LngSpan:    cfg.SampleLngSpan,
		Step:       cfg.SampleStep,
		Resolution: cfg.GridResolution,
		TempOffset: cfg.TempOffset,
	}
	store := view.NewStore(view.Deps{
		Registry: registry,
		Sampler:  sampler.New(cached, sampler.NewRand(cfg.RandomSeed), logger, metrics, opts),
		Geocoder: geocoder,
		Logger:   logger,
		Metrics:  metrics,
		Clock:    clockwork.NewRealClock(),
	}, cfg.ViewTTL)

	pages, err := httpadapter.NewPages(httpadapter.SettingsFromConfig(cfg, registry.Names()), logger)
	if err != nil {
		logger.Error("failed to load page templates", "error", err)
		os.Exit(1)
	}
	api := httpadapter.NewAPI(store, httpadapter.DefaultsFromConfig(cfg), logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Checks{"grid": indexer}, logger, api, pages)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(ctx, logger)
	if err := sched.AddViewSweep(store, cfg.ViewSweepInterval); err != nil {
		logger.Error("failed to schedule view sweep", "error", err)
		os.Exit(1)
	}

	// Snapshot publishing (feature-flagged via KAFKA_ENABLED). The publisher
	// samples with its own generator so views stay reproducible under a seed.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		snapshots := sampler.New(cached, sampler.NewRand(cfg.RandomSeed), logger, metrics, opts)
		center := geo.LatLng{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng}
		p := pipeline.New(snapshots, writer, center, logger, metrics)
		if err := sched.AddSnapshots(p, cfg.SnapshotInterval); err != nil {
			logger.Error("failed to schedule snapshots", "error", err)
			os.Exit(1)
		}
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "interval", cfg.SnapshotInterval)
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	sched.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
