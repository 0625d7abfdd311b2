// Package knowledge caches per-user transaction aggregates in front of the ledger.
//
// Three independent cache spaces back the three aggregate shapes (existence,
// count, sum). Entries are computed lazily on first use, bounded by size and
// TTL, and can be dropped all at once with ClearAll.
//
// Keys carry a generation number. ClearAll moves to a new generation instead
// of clearing otter in place, since otter's Clear must not overlap reads or
// writes. Entries from older generations are unreachable and age out through
// the size bound and TTL.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter"

	"github.com/starbank/recommender/internal/observability"
	"github.com/starbank/recommender/internal/ruleengine"
)

// Cache space labels used in metrics and logs.
const (
	SpaceExists = "exists"
	SpaceCount  = "count"
	SpaceSum    = "sum"
)

// Ledger is the uncached aggregate source. It is read-only.
type Ledger interface {
	HasAnyTransaction(ctx context.Context, userID uuid.UUID, productType string) (bool, error)
	CountTransactions(ctx context.Context, userID uuid.UUID, productType string) (int64, error)
	SumAmount(ctx context.Context, userID uuid.UUID, productType, transactionType string) (int64, error)
}

// Options sizes each cache space.
type Options struct {
	ExistsCapacity int
	CountCapacity  int
	SumCapacity    int
	TTL            time.Duration
}

// DefaultOptions returns 100 000 entries per space and a 15 minute TTL.
func DefaultOptions() Options {
	return Options{
		ExistsCapacity: 100_000,
		CountCapacity:  100_000,
		SumCapacity:    100_000,
		TTL:            15 * time.Minute,
	}
}

// productKey identifies an entry of the exists and count spaces.
type productKey struct {
	gen         uint64
	user        uuid.UUID
	productType string
}

// sumKey identifies an entry of the sum space.
type sumKey struct {
	gen             uint64
	user            uuid.UUID
	productType     string
	transactionType string
}

// Store is the cached implementation of ruleengine.Aggregates.
type Store struct {
	ledger Ledger
	logger *slog.Logger

	exists otter.Cache[productKey, bool]
	counts otter.Cache[productKey, int64]
	sums   otter.Cache[sumKey, int64]

	// generation is part of every key. A lookup that starts after ClearAll
	// returns never sees a value stored under an earlier generation.
	generation atomic.Uint64
}

var _ ruleengine.Aggregates = (*Store)(nil)

// NewStore builds the three cache spaces.
func NewStore(ledger Ledger, opts Options, logger *slog.Logger) (*Store, error) {
	if ledger == nil {
		return nil, fmt.Errorf("knowledge: ledger cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	exists, err := otter.MustBuilder[productKey, bool](opts.ExistsCapacity).
		CollectStats().
		WithTTL(opts.TTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s cache: %w", SpaceExists, err)
	}

	counts, err := otter.MustBuilder[productKey, int64](opts.CountCapacity).
		CollectStats().
		WithTTL(opts.TTL).
		Build()
	if err != nil {
		exists.Close()
		return nil, fmt.Errorf("failed to build %s cache: %w", SpaceCount, err)
	}

	sums, err := otter.MustBuilder[sumKey, int64](opts.SumCapacity).
		CollectStats().
		WithTTL(opts.TTL).
		Build()
	if err != nil {
		exists.Close()
		counts.Close()
		return nil, fmt.Errorf("failed to build %s cache: %w", SpaceSum, err)
	}

	return &Store{
		ledger: ledger,
		logger: logger,
		exists: exists,
		counts: counts,
		sums:   sums,
	}, nil
}

func (s *Store) productKey(userID uuid.UUID, productType string) productKey {
	return productKey{gen: s.generation.Load(), user: userID, productType: productType}
}

func (s *Store) sumKey(userID uuid.UUID, productType, transactionType string) sumKey {
	return sumKey{
		gen:             s.generation.Load(),
		user:            userID,
		productType:     productType,
		transactionType: transactionType,
	}
}

// HasAnyTransaction reports whether the user has at least one transaction on a
// product of the given type.
func (s *Store) HasAnyTransaction(ctx context.Context, userID uuid.UUID, productType string) (bool, error) {
	key := s.productKey(userID, productType)
	if v, ok := s.exists.Get(key); ok {
		observability.KnowledgeCacheHits.WithLabelValues(SpaceExists).Inc()
		return v, nil
	}
	observability.KnowledgeCacheMisses.WithLabelValues(SpaceExists).Inc()

	v, err := s.ledger.HasAnyTransaction(ctx, userID, productType)
	if err != nil {
		return false, fmt.Errorf("failed to check transactions for product type %q: %w", productType, err)
	}
	s.exists.Set(key, v)
	return v, nil
}

// CountTransactions returns the number of the user's transactions on products of the given type.
func (s *Store) CountTransactions(ctx context.Context, userID uuid.UUID, productType string) (int64, error) {
	key := s.productKey(userID, productType)
	if v, ok := s.counts.Get(key); ok {
		observability.KnowledgeCacheHits.WithLabelValues(SpaceCount).Inc()
		return v, nil
	}
	observability.KnowledgeCacheMisses.WithLabelValues(SpaceCount).Inc()

	v, err := s.ledger.CountTransactions(ctx, userID, productType)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions for product type %q: %w", productType, err)
	}
	s.counts.Set(key, v)
	return v, nil
}

// SumAmount returns SUM(amount) in minor units, 0 when nothing matches.
func (s *Store) SumAmount(ctx context.Context, userID uuid.UUID, productType, transactionType string) (int64, error) {
	key := s.sumKey(userID, productType, transactionType)
	if v, ok := s.sums.Get(key); ok {
		observability.KnowledgeCacheHits.WithLabelValues(SpaceSum).Inc()
		return v, nil
	}
	observability.KnowledgeCacheMisses.WithLabelValues(SpaceSum).Inc()

	v, err := s.ledger.SumAmount(ctx, userID, productType, transactionType)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s amounts for product type %q: %w", transactionType, productType, err)
	}
	s.sums.Set(key, v)
	return v, nil
}

// ClearAll invalidates every cached aggregate in all three spaces. It never
// blocks on readers and is safe to call concurrently with itself.
func (s *Store) ClearAll() {
	gen := s.generation.Add(1)
	s.logger.Info("knowledge caches cleared", slog.Uint64("generation", gen))
}

// Size returns the number of entries held per cache space. Entries of earlier
// generations count until they are evicted.
func (s *Store) Size() map[string]int {
	return map[string]int{
		SpaceExists: s.exists.Size(),
		SpaceCount:  s.counts.Size(),
		SpaceSum:    s.sums.Size(),
	}
}

// Close stops the background maintenance goroutines of every cache space.
func (s *Store) Close() {
	s.exists.Close()
	s.counts.Close()
	s.sums.Close()
}
