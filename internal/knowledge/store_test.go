package knowledge_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbank/recommender/internal/knowledge"
	"github.com/starbank/recommender/internal/testsupport"
)

// countingLedger returns fixed values and counts every call.
type countingLedger struct {
	exists bool
	count  int64
	sum    int64
	err    error
	calls  atomic.Int64
}

func (l *countingLedger) HasAnyTransaction(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	l.calls.Add(1)
	return l.exists, l.err
}

func (l *countingLedger) CountTransactions(_ context.Context, _ uuid.UUID, _ string) (int64, error) {
	l.calls.Add(1)
	return l.count, l.err
}

func (l *countingLedger) SumAmount(_ context.Context, _ uuid.UUID, _, _ string) (int64, error) {
	l.calls.Add(1)
	return l.sum, l.err
}

// tupleLedger returns a sum chosen by the exact (product type, transaction type) pair.
type tupleLedger struct {
	countingLedger
	sums map[[2]string]int64
}

func (l *tupleLedger) SumAmount(_ context.Context, _ uuid.UUID, productType, transactionType string) (int64, error) {
	l.calls.Add(1)
	return l.sums[[2]string{productType, transactionType}], nil
}

func newStore(t *testing.T, ledger knowledge.Ledger) *knowledge.Store {
	t.Helper()
	s, err := knowledge.NewStore(ledger, knowledge.Options{
		ExistsCapacity: 100,
		CountCapacity:  100,
		SumCapacity:    100,
		TTL:            time.Minute,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStore_CachesAggregates(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	ledger := &countingLedger{exists: true, count: 7, sum: 1500}
	s := newStore(t, ledger)

	t.Run("Should serve repeated lookups from memory", func(t *testing.T) {
		for range 3 {
			ok, err := s.HasAnyTransaction(ctx, user, "DEBIT")
			require.NoError(t, err)
			assert.True(t, ok)

			n, err := s.CountTransactions(ctx, user, "DEBIT")
			require.NoError(t, err)
			assert.Equal(t, int64(7), n)

			sum, err := s.SumAmount(ctx, user, "DEBIT", "DEPOSIT")
			require.NoError(t, err)
			assert.Equal(t, int64(1500), sum)
		}
		assert.Equal(t, int64(3), ledger.calls.Load(), "one ledger query per cache space")
	})

	t.Run("Should key sums by transaction type", func(t *testing.T) {
		before := ledger.calls.Load()
		_, err := s.SumAmount(ctx, user, "DEBIT", "WITHDRAW")
		require.NoError(t, err)
		assert.Equal(t, before+1, ledger.calls.Load())
	})

	t.Run("Should not share entries between tuples with the same joined text", func(t *testing.T) {
		tl := &tupleLedger{sums: map[[2]string]int64{
			{"A|B", "C"}: 111,
			{"A", "B|C"}: 222,
		}}
		ts := newStore(t, tl)

		first, err := ts.SumAmount(ctx, user, "A|B", "C")
		require.NoError(t, err)
		second, err := ts.SumAmount(ctx, user, "A", "B|C")
		require.NoError(t, err)

		assert.Equal(t, int64(111), first)
		assert.Equal(t, int64(222), second)
		assert.Equal(t, int64(2), tl.calls.Load())
	})

	t.Run("Should keep exists and count entries per product type", func(t *testing.T) {
		before := ledger.calls.Load()
		_, err := s.CountTransactions(ctx, user, "DEBIT|X")
		require.NoError(t, err)
		_, err = s.CountTransactions(ctx, user, "DEBIT")
		require.NoError(t, err)
		assert.Equal(t, before+1, ledger.calls.Load())
	})

	t.Run("Should key entries by user", func(t *testing.T) {
		before := ledger.calls.Load()
		_, err := s.HasAnyTransaction(ctx, uuid.New(), "DEBIT")
		require.NoError(t, err)
		assert.Equal(t, before+1, ledger.calls.Load())
	})
}

func TestStore_Metrics(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, &countingLedger{count: 2})
	user := uuid.New()
	labels := map[string]string{"space": knowledge.SpaceCount}

	testsupport.AssertMetricDelta(t, "recommender_knowledge_cache_misses_total", labels, 1, func() {
		_, err := s.CountTransactions(ctx, user, "CREDIT")
		require.NoError(t, err)
	})

	testsupport.AssertMetricDelta(t, "recommender_knowledge_cache_hits_total", labels, 1, func() {
		_, err := s.CountTransactions(ctx, user, "CREDIT")
		require.NoError(t, err)
	})
}

func TestStore_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	ledger := &countingLedger{err: errors.New("connection refused")}
	s := newStore(t, ledger)
	user := uuid.New()

	_, err := s.SumAmount(ctx, user, "SAVING", "DEPOSIT")
	require.ErrorIs(t, err, ledger.err)

	ledger.err = nil
	ledger.sum = 42

	sum, err := s.SumAmount(ctx, user, "SAVING", "DEPOSIT")
	require.NoError(t, err)
	assert.Equal(t, int64(42), sum)
	assert.Equal(t, int64(2), ledger.calls.Load())
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("Should recompute identical values after a flush", func(t *testing.T) {
		ledger := &countingLedger{exists: true, count: 5, sum: 100}
		s := newStore(t, ledger)

		first, err := s.CountTransactions(ctx, user, "INVEST")
		require.NoError(t, err)

		s.ClearAll()

		second, err := s.CountTransactions(ctx, user, "INVEST")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(2), ledger.calls.Load())
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		ledger := &countingLedger{sum: 10}
		s := newStore(t, ledger)

		s.ClearAll()
		s.ClearAll()

		sum, err := s.SumAmount(ctx, user, "DEBIT", "DEPOSIT")
		require.NoError(t, err)
		assert.Equal(t, int64(10), sum)
	})

	t.Run("Should serve fresh ledger data after a flush", func(t *testing.T) {
		ledger := &countingLedger{count: 1}
		s := newStore(t, ledger)

		n, err := s.CountTransactions(ctx, user, "DEBIT")
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		ledger.count = 9
		s.ClearAll()

		n, err = s.CountTransactions(ctx, user, "DEBIT")
		require.NoError(t, err)
		assert.Equal(t, int64(9), n)
	})
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	ledger := &countingLedger{exists: true, count: 3, sum: 77}
	s := newStore(t, ledger)
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	// Flushes overlap each other and in-flight lookups in every round.
	for round := range 20 {
		var wg sync.WaitGroup
		errs := make(chan error, 64)

		for i := range 32 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user := users[i%len(users)]
				if i%8 == 0 {
					s.ClearAll()
				}
				n, err := s.CountTransactions(ctx, user, "DEBIT")
				if err != nil {
					errs <- err
					return
				}
				if n != 3 {
					errs <- errors.New("unexpected count")
				}
				sum, err := s.SumAmount(ctx, user, "DEBIT", "DEPOSIT")
				if err != nil {
					errs <- err
					return
				}
				if sum != 77 {
					errs <- errors.New("unexpected sum")
				}
			}(i)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatalf("round %d: lookups or flushes did not complete", round)
		}

		close(errs)
		for err := range errs {
			t.Error(err)
		}
	}
}

func TestStore_ClearAll_Overlapping(t *testing.T) {
	ledger := &countingLedger{count: 4}
	s := newStore(t, ledger)
	user := uuid.New()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ClearAll()
		}()
		go func() {
			defer wg.Done()
			_, _ = s.CountTransactions(ctx, user, "DEBIT")
			_, _ = s.SumAmount(ctx, user, "DEBIT", "DEPOSIT")
			if i%2 == 0 {
				s.ClearAll()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("overlapping ClearAll calls did not return")
	}

	// Values cached before the last flush are gone.
	before := ledger.calls.Load()
	n, err := s.CountTransactions(context.Background(), user, "DEBIT")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, before+1, ledger.calls.Load())
}

func TestStore_MetricsCollector(t *testing.T) {
	s := newStore(t, &countingLedger{exists: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.RunMetricsCollector(ctx, 10*time.Millisecond)

	for range 5 {
		_, err := s.HasAnyTransaction(context.Background(), uuid.New(), "DEBIT")
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		v := testsupport.GetMetricValue(t, "recommender_knowledge_cache_items_count",
			map[string]string{"space": knowledge.SpaceExists})
		return v >= 5
	}, 2*time.Second, 20*time.Millisecond)
}
