package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewProducer(WithTopic("t"))
	require.Error(t, err)

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}))
	require.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithTopic("snapshots"))
	require.NoError(t, err)
	assert.Equal(t, "snapshots", p.Topic())
	require.NoError(t, p.Close())
}

func TestPublishEncodesJSONAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snapshots", "gzip")
	fixed := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), Message{
		Key:     []byte("XAUUSD"),
		Value:   map[string]int{"strategies": 2},
		Headers: map[string]string{"event": "snapshot"},
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "XAUUSD", string(m.Key))
	assert.JSONEq(t, `{"strategies":2}`, string(m.Value))
	assert.Equal(t, fixed, m.Time)
	require.Len(t, m.Headers, 1)
	assert.Equal(t, "event", m.Headers[0].Key)
	assert.Equal(t, "snapshot", string(m.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishBatchWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newProducer(&fakeWriter{err: boom}, "snapshots", "gzip")

	err := p.PublishBatch(context.Background(), []Message{{Value: "a"}, {Value: []byte("b")}})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}
