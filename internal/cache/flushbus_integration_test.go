//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbank/recommender/internal/cache"
	"github.com/starbank/recommender/internal/config"
	"github.com/starbank/recommender/internal/testsupport"
)

type atomicFlusher struct{ n atomic.Int32 }

func (f *atomicFlusher) ClearAll() { f.n.Add(1) }

func TestFlushBus_Integration(t *testing.T) {
	ctx := context.Background()
	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	const channel = "test:knowledge:flush"

	replicaA := cache.NewFlushBus(redisCtr.Client, channel, log)
	replicaB := cache.NewFlushBus(redisCtr.Client, channel, log)

	listenCtx, stop := context.WithCancel(ctx)
	storeA, storeB := &atomicFlusher{}, &atomicFlusher{}
	doneA, doneB := make(chan error, 1), make(chan error, 1)
	go func() { doneA <- replicaA.Listen(listenCtx, storeA) }()
	go func() { doneB <- replicaB.Listen(listenCtx, storeB) }()

	t.Run("peer flush reaches the other replica only", func(t *testing.T) {
		// Publish until B's subscription is live.
		require.Eventually(t, func() bool {
			_ = replicaA.PublishFlush(ctx)
			return storeB.n.Load() > 0
		}, 5*time.Second, 50*time.Millisecond)

		assert.Zero(t, storeA.n.Load())
	})

	t.Run("health checker", func(t *testing.T) {
		hc := cache.NewHealthChecker(redisCtr.Client)
		assert.Equal(t, "redis", hc.Name())
		assert.NoError(t, hc.Check(ctx))
	})

	t.Run("listen returns nil on cancel", func(t *testing.T) {
		stop()
		for _, done := range []chan error{doneA, doneB} {
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("listener did not stop")
			}
		}
	})
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), &config.RedisConfig{
		Host:           "127.0.0.1",
		Port:           "1",
		PoolSize:       1,
		DialTimeout:    100 * time.Millisecond,
		PingMaxRetries: 2,
		PingBackoff:    10 * time.Millisecond,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
