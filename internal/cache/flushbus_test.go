package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbank/recommender/internal/testsupport"
)

type flushCounter struct{ n int }

func (f *flushCounter) ClearAll() { f.n++ }

// newOfflineBus never dials: handle does not touch the client.
func newOfflineBus(t *testing.T) *FlushBus {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	return NewFlushBus(client, "test:flush", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDecodeFlushEvent(t *testing.T) {
	event, err := DecodeFlushEvent(`{"origin":"a1","at":"2026-01-02T03:04:05Z"}`)
	require.NoError(t, err)
	assert.Equal(t, "a1", event.Origin)
	assert.Equal(t, 2026, event.At.Year())

	_, err = DecodeFlushEvent(`not json`)
	assert.ErrorContains(t, err, "invalid flush event")

	_, err = DecodeFlushEvent(`{"at":"2026-01-02T03:04:05Z"}`)
	assert.ErrorContains(t, err, "missing origin")
}

func TestFlushBus_Handle(t *testing.T) {
	bus := newOfflineBus(t)

	t.Run("peer event clears the target", func(t *testing.T) {
		target := &flushCounter{}

		testsupport.AssertMetricDelta(t, "recommender_knowledge_flushes_total",
			map[string]string{"origin": "remote"}, 1, func() {
				bus.handle(`{"origin":"peer-1","at":"2026-01-02T03:04:05Z"}`, target)
			})

		assert.Equal(t, 1, target.n)
	})

	t.Run("own event is ignored", func(t *testing.T) {
		target := &flushCounter{}

		bus.handle(`{"origin":"`+bus.Origin()+`","at":"2026-01-02T03:04:05Z"}`, target)

		assert.Zero(t, target.n)
	})

	t.Run("malformed event is ignored", func(t *testing.T) {
		target := &flushCounter{}

		testsupport.AssertMetricDelta(t, "recommender_flushbus_messages_total",
			map[string]string{"direction": "received", "status": "invalid"}, 1, func() {
				bus.handle(`{"origin":`, target)
			})

		assert.Zero(t, target.n)
	})
}

func TestNewFlushBus_Panics(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	assert.Panics(t, func() { NewFlushBus(nil, "c", nil) })
	assert.Panics(t, func() { NewFlushBus(client, "", nil) })
	assert.NotEqual(t, NewFlushBus(client, "c", nil).Origin(), NewFlushBus(client, "c", nil).Origin())
}

func TestNewFlushBus_Options(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	bus := NewFlushBus(client, "c", nil)
	assert.Equal(t, 100, bus.bufferSize)
	assert.Zero(t, bus.publishTimeout)

	bus = NewFlushBus(client, "c", nil, WithPublishTimeout(250*time.Millisecond), WithBufferSize(8))
	assert.Equal(t, 8, bus.bufferSize)
	assert.Equal(t, 250*time.Millisecond, bus.publishTimeout)

	bus = NewFlushBus(client, "c", nil, WithBufferSize(0))
	assert.Equal(t, 100, bus.bufferSize)
}

func TestFlushBus_PublishFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	bus := NewFlushBus(client, "c", nil, WithPublishTimeout(time.Second))

	testsupport.AssertMetricDelta(t, "recommender_flushbus_messages_total",
		map[string]string{"direction": "published", "status": "error"}, 1, func() {
			err := bus.PublishFlush(context.Background())
			assert.ErrorContains(t, err, "failed to publish flush event")
		})
}
