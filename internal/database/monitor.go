package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbank/recommender/internal/observability"
)

// RunPoolMonitor exports pool statistics every interval until ctx is done.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last poolTotals
	for {
		last = recordPoolStats(pool.Stat(), last)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poolTotals are the cumulative counters from the previous tick.
type poolTotals struct {
	acquires int64
	waits    int64
	acquire  time.Duration
}

func recordPoolStats(stat *pgxpool.Stat, last poolTotals) poolTotals {
	observability.DBPoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
	observability.DBPoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	observability.DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	observability.DBPoolConnections.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))

	now := poolTotals{
		acquires: stat.AcquireCount(),
		waits:    stat.EmptyAcquireCount(),
		acquire:  stat.AcquireDuration(),
	}
	if d := now.acquires - last.acquires; d > 0 {
		observability.DBPoolAcquireCount.Add(float64(d))
	}
	if d := now.waits - last.waits; d > 0 {
		observability.DBPoolWaitCount.Add(float64(d))
	}
	if d := now.acquire - last.acquire; d > 0 {
		observability.DBPoolAcquireDuration.Add(d.Seconds())
	}
	return now
}
