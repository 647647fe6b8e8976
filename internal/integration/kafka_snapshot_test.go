//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/hexweather/internal/adapter/h3grid"
	"github.com/couchcryptid/hexweather/internal/adapter/kafka"
	"github.com/couchcryptid/hexweather/internal/config"
	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	"github.com/couchcryptid/hexweather/internal/observability"
	"github.com/couchcryptid/hexweather/internal/pipeline"
	"github.com/couchcryptid/hexweather/internal/sampler"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSnapshotTopic = "test-snapshots"

var moscow = geo.LatLng{Lat: 55.7558, Lng: 37.6173}

// snapshotMessage holds a deserialized message read from the snapshot topic.
type snapshotMessage struct {
	Sample  domain.WeatherSample
	Key     string
	Headers map[string]string
}

func readSnapshot(ctx context.Context, t *testing.T, consumer *kafkago.Reader) snapshotMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from snapshot topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var sample domain.WeatherSample
	require.NoError(t, json.Unmarshal(msg.Value, &sample), "unmarshal snapshot message")

	return snapshotMessage{Sample: sample, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSnapshotTopic,
		GroupID:     fmt.Sprintf("test-snapshots-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func newSampler(seed uint64) *sampler.Sampler {
	return sampler.New(h3grid.NewIndexer(), sampler.NewRand(&seed), discardLogger(),
		observability.NewMetricsForTesting(), sampler.DefaultOptions())
}

// TestWriterPublishPass verifies that every sample of a pass lands on the
// snapshot topic keyed by cell id with the pass headers attached.
func TestWriterPublishPass(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	generatedAt := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	pass := newSampler(42).Sample(moscow)
	require.NotZero(t, pass.Len())

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.PublishPass(ctx, pass))

	consumer := newConsumer(t, broker)
	received := make(map[string]snapshotMessage, pass.Len())
	for len(received) < pass.Len() {
		sm := readSnapshot(ctx, t, consumer)
		received[sm.Key] = sm
	}

	for _, want := range pass.Samples {
		sm, ok := received[want.CellID]
		require.True(t, ok, "missing cell %s", want.CellID)
		assert.Equal(t, want, sm.Sample)
		assert.Equal(t, pass.ID, sm.Headers["pass_id"])
		assert.Equal(t, strconv.Itoa(pass.Resolution), sm.Headers["resolution"])
		ts, err := time.Parse(time.RFC3339, sm.Headers["generated_at"])
		require.NoError(t, err, "generated_at should be valid RFC3339")
		assert.True(t, generatedAt.Equal(ts))
	}
}

// TestPipelinePublishesOnSchedule wires sampler, pipeline and writer against
// a real broker and checks that a tick produces a full pass on the topic.
func TestPipelinePublishesOnSchedule(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	expected := newSampler(7).Sample(moscow)

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(newSampler(7), writer, moscow, discardLogger(), metrics)

	runCtx, runCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx, time.Hour) }()

	consumer := newConsumer(t, broker)
	passIDs := map[string]bool{}
	cells := map[string]bool{}
	for len(cells) < expected.Len() {
		sm := readSnapshot(ctx, t, consumer)
		cells[sm.Key] = true
		passIDs[sm.Headers["pass_id"]] = true
		want, ok := expected.Lookup(sm.Key)
		require.True(t, ok, "unexpected cell %s", sm.Key)
		assert.Equal(t, want.Temperature, sm.Sample.Temperature)
	}

	runCancel()
	require.NoError(t, <-errCh)
	assert.Len(t, passIDs, 1, "one tick publishes one pass")
}
