package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/hexweather/internal/config"
	"github.com/couchcryptid/hexweather/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker is rejecting publishes.
var ErrCircuitOpen = errors.New("snapshot sink circuit open")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes sampling passes to the snapshot topic, one message per
// sample. It implements pipeline.PassPublisher.
type Writer struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, logger)
}

func newWriter(mw messageWriter, logger *slog.Logger) *Writer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-snapshots",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Writer{writer: mw, breaker: cb, logger: logger}
}

// PublishPass serializes every sample of the pass and writes them in a
// single WriteMessages call.
func (w *Writer) PublishPass(ctx context.Context, pass *domain.Pass) error {
	if pass.Len() == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(pass.Samples))
	for i := range pass.Samples {
		msg, err := serializeToMessage(pass, pass.Samples[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, w.writer.WriteMessages(ctx, msgs...)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return fmt.Errorf("write snapshot messages: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WeatherSample into a Kafka message keyed by
// its cell id.
func serializeToMessage(pass *domain.Pass, sample domain.WeatherSample) (kafkago.Message, error) {
	data, err := json.Marshal(sample)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather sample: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sample.CellID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "pass_id", Value: []byte(pass.ID)},
			{Key: "generated_at", Value: []byte(pass.GeneratedAt.Format(time.RFC3339))},
			{Key: "resolution", Value: []byte(strconv.Itoa(pass.Resolution))},
		},
	}, nil
}
