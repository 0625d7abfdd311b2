package knowledge

import (
	"context"
	"time"

	"github.com/starbank/recommender/internal/observability"
)

// RunMetricsCollector samples cache sizes and eviction counters until ctx is done.
// Otter keeps cumulative stats, so evictions are exported as deltas.
func (s *Store) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastEvicted := map[string]int64{}

	collect := func(space string, size int, evicted int64) {
		observability.KnowledgeCacheItems.WithLabelValues(space).Set(float64(size))
		if delta := evicted - lastEvicted[space]; delta > 0 {
			observability.KnowledgeCacheEvictions.WithLabelValues(space).Add(float64(delta))
		}
		lastEvicted[space] = evicted
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collect(SpaceExists, s.exists.Size(), s.exists.Stats().EvictedCount())
			collect(SpaceCount, s.counts.Size(), s.counts.Stats().EvictedCount())
			collect(SpaceSum, s.sums.Size(), s.sums.Stats().EvictedCount())
		}
	}
}
