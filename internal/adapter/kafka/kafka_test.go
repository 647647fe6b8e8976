package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/hexweather/internal/domain"
	"github.com/couchcryptid/hexweather/internal/geo"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	err    error
	calls  int
	msgs   []kafkago.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var generatedAt = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

func testPass() *domain.Pass {
	return domain.NewPass("pass-1", generatedAt, 6, geo.LatLng{Lat: 55.7, Lng: 37.6}, 3, []domain.WeatherSample{
		{CellID: "861f1d48fffffff", Temperature: 4, Humidity: 55, Pressure: 1001, Lat: 55.7, Lng: 37.6},
		{CellID: "861f1d4b7ffffff", Temperature: 17, Humidity: 20, Pressure: 990, Lat: 55.8, Lng: 37.7},
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSerializeToMessage(t *testing.T) {
	pass := testPass()
	msg, err := serializeToMessage(pass, pass.Samples[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("861f1d48fffffff"), msg.Key)
	assert.JSONEq(t, `{"cellId":"861f1d48fffffff","temperature":4,"humidity":55,"pressure":1001,"lat":55.7,"lng":37.6}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "pass_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("pass-1"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(generatedAt.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, "resolution", msg.Headers[2].Key)
	assert.Equal(t, []byte("6"), msg.Headers[2].Value)
}

func TestWriter_PublishPass(t *testing.T) {
	fw := &fakeWriter{}
	w := newWriter(fw, discardLogger())

	require.NoError(t, w.PublishPass(context.Background(), testPass()))
	assert.Equal(t, 1, fw.calls, "one batch per pass")
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("861f1d4b7ffffff"), fw.msgs[1].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_EmptyPassIsNoop(t *testing.T) {
	fw := &fakeWriter{}
	w := newWriter(fw, discardLogger())

	require.NoError(t, w.PublishPass(context.Background(), domain.NewPass("p", generatedAt, 6, geo.LatLng{}, 0, nil)))
	assert.Zero(t, fw.calls)
}

func TestWriter_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	w := newWriter(fw, discardLogger())

	for range 3 {
		err := w.PublishPass(context.Background(), testPass())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "leader not available")
	}

	err := w.PublishPass(context.Background(), testPass())
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, fw.calls, "open breaker rejects without writing")
}
