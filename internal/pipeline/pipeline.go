// Package pipeline produces snapshots: it samples a pass around a fixed
// centre and hands it to a publisher, retrying with backoff on failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
)

const (
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxAttempts    = 5
)

// Sampler generates a pass around a centre.
type Sampler interface {
	Sample(center geo.LatLng) *domain.Pass
}

// PassPublisher writes a pass to the snapshot sink.
type PassPublisher interface {
	PublishPass(ctx context.Context, pass *domain.Pass) error
}

// Pipeline orchestrates the sample-publish cycle.
type Pipeline struct {
	sampler   Sampler
	publisher PassPublisher
	center    geo.LatLng
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxAttempts    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBackoff overrides the retry delays.
func WithBackoff(initial, maxBackoff time.Duration) Option {
	return func(p *Pipeline) {
		p.initialBackoff = initial
		p.maxBackoff = maxBackoff
	}
}

// WithMaxAttempts bounds the publish attempts per cycle.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// New creates a Pipeline that snapshots the area around center.
func New(s Sampler, pub PassPublisher, center geo.LatLng, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		sampler:        s,
		publisher:      pub,
		center:         center,
		logger:         logger,
		metrics:        metrics,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		maxAttempts:    defaultMaxAttempts,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// CheckReadiness returns nil once at least one snapshot has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any snapshots yet")
	}
	return nil
}

// RunOnce samples one pass and publishes it. Publish failures are retried
// with exponential backoff until they succeed, the attempts run out or the
// context is cancelled.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	pass := p.sampler.Sample(p.center)
	if pass.Len() == 0 {
		p.logger.Warn("sampled pass is empty, nothing to publish", "pass_id", pass.ID)
		return nil
	}

	backoff := p.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := p.publisher.PublishPass(ctx, pass)
		if err == nil {
			p.metrics.SnapshotsPublished.Inc()
			p.ready.Store(true)
			p.logger.Info("snapshot published",
				"pass_id", pass.ID,
				"cells", pass.Len(),
				"attempt", attempt,
			)
			return nil
		}

		lastErr = err
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish snapshot failed",
			"error", err,
			"pass_id", pass.ID,
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
		)
		if attempt == p.maxAttempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, p.maxBackoff)
	}
	return fmt.Errorf("publish snapshot %s: %w", pass.ID, lastErr)
}

// Run publishes a snapshot every interval until the context is cancelled.
// Used when no external scheduler drives the pipeline.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("pipeline started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("snapshot cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
