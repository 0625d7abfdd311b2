package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/starbank/recommender/internal/observability"
)

// Flusher drops every cached aggregate. The knowledge store implements it.
type Flusher interface {
	ClearAll()
}

// FlushEvent is the Pub/Sub payload announcing that one replica flushed its caches.
type FlushEvent struct {
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// FlushBus publishes and receives cache flush events on a Redis channel.
// Each bus has a random origin so a replica ignores its own announcements.
type FlushBus struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger

	publishTimeout time.Duration
	bufferSize     int
}

// FlushBusOption tunes a FlushBus.
type FlushBusOption func(*FlushBus)

// WithPublishTimeout bounds each PUBLISH. Zero leaves the caller's context in charge.
func WithPublishTimeout(d time.Duration) FlushBusOption {
	return func(b *FlushBus) { b.publishTimeout = d }
}

// WithBufferSize sets how many received events are queued before the
// subscription drops new ones.
func WithBufferSize(n int) FlushBusOption {
	return func(b *FlushBus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// NewFlushBus panics when client is nil or channel is empty.
func NewFlushBus(client *redis.Client, channel string, logger *slog.Logger, opts ...FlushBusOption) *FlushBus {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if channel == "" {
		panic("cache: flush channel cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &FlushBus{
		client:     client,
		channel:    channel,
		origin:     uuid.NewString(),
		logger:     logger,
		bufferSize: 100,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Origin identifies this replica on the channel.
func (b *FlushBus) Origin() string {
	return b.origin
}

// PublishFlush announces a local flush to the other replicas.
func (b *FlushBus) PublishFlush(ctx context.Context) error {
	payload, err := json.Marshal(FlushEvent{Origin: b.origin, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode flush event: %w", err)
	}

	if b.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.publishTimeout)
		defer cancel()
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		observability.FlushBusMessages.WithLabelValues("published", "error").Inc()
		return fmt.Errorf("failed to publish flush event: %w", err)
	}

	observability.FlushBusMessages.WithLabelValues("published", "ok").Inc()
	return nil
}

// Listen subscribes to the channel and clears target for every event sent by
// another replica. It blocks until ctx is cancelled, then returns nil.
func (b *FlushBus) Listen(ctx context.Context, target Flusher) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	b.logger.Info("listening for cache flush events",
		slog.String("channel", b.channel),
		slog.String("origin", b.origin),
	)

	msgs := sub.Channel(redis.WithChannelSize(b.bufferSize))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("flush subscription closed")
			}
			b.handle(msg.Payload, target)
		}
	}
}

func (b *FlushBus) handle(payload string, target Flusher) {
	event, err := DecodeFlushEvent(payload)
	if err != nil {
		observability.FlushBusMessages.WithLabelValues("received", "invalid").Inc()
		b.logger.Warn("discarding malformed flush event", slog.String("error", err.Error()))
		return
	}

	if event.Origin == b.origin {
		observability.FlushBusMessages.WithLabelValues("received", "self").Inc()
		return
	}

	target.ClearAll()
	observability.KnowledgeFlushes.WithLabelValues("remote").Inc()
	observability.FlushBusMessages.WithLabelValues("received", "ok").Inc()
	b.logger.Info("caches flushed by peer", slog.String("peer", event.Origin))
}

// DecodeFlushEvent parses a channel payload. Events without an origin are rejected.
func DecodeFlushEvent(payload string) (FlushEvent, error) {
	var event FlushEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return FlushEvent{}, fmt.Errorf("invalid flush event: %w", err)
	}
	if event.Origin == "" {
		return FlushEvent{}, errors.New("invalid flush event: missing origin")
	}
	return event, nil
}
