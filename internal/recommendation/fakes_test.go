package recommendation_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/starbank/recommender/internal/ruleengine"
	"github.com/starbank/recommender/internal/store"
)

// memRepo is an in-memory rule store and fire counter.
type memRepo struct {
	mu      sync.Mutex
	rules   []ruleengine.Rule
	counts  map[int64]int64
	loadErr error
	incErr  error
}

func newMemRepo(rules ...ruleengine.Rule) *memRepo {
	r := &memRepo{counts: make(map[int64]int64)}
	for _, rule := range rules {
		r.rules = append(r.rules, rule)
		r.counts[rule.ID] = 0
	}
	return r
}

func (r *memRepo) ListRulesWithConditions(_ context.Context) ([]ruleengine.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make([]ruleengine.Rule, len(r.rules))
	copy(out, r.rules)
	return out, nil
}

func (r *memRepo) IncrementFireCount(_ context.Context, ruleID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incErr != nil {
		return 0, r.incErr
	}
	if _, ok := r.counts[ruleID]; !ok {
		return 0, nil
	}
	r.counts[ruleID]++
	return 1, nil
}

func (r *memRepo) FireCountSnapshot(_ context.Context) ([]store.RuleFireCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.RuleFireCount, 0, len(r.counts))
	for id, c := range r.counts {
		out = append(out, store.RuleFireCount{RuleID: id, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out, nil
}

func (r *memRepo) count(ruleID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[ruleID]
}

// userLedger answers aggregates per user from fixed maps.
type userLedger struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[string]int64
	sums   map[uuid.UUID]map[[2]string]int64
	err    error
}

func newUserLedger() *userLedger {
	return &userLedger{
		counts: make(map[uuid.UUID]map[string]int64),
		sums:   make(map[uuid.UUID]map[[2]string]int64),
	}
}

func (l *userLedger) addCount(user uuid.UUID, productType string, n int64) {
	if l.counts[user] == nil {
		l.counts[user] = make(map[string]int64)
	}
	l.counts[user][productType] += n
}

func (l *userLedger) HasAnyTransaction(_ context.Context, user uuid.UUID, productType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return l.counts[user][productType] > 0, nil
}

func (l *userLedger) CountTransactions(_ context.Context, user uuid.UUID, productType string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	return l.counts[user][productType], nil
}

func (l *userLedger) SumAmount(_ context.Context, user uuid.UUID, productType, txType string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	return l.sums[user][[2]string{productType, txType}], nil
}

type flushSpy struct {
	clears     atomic.Int64
	publishes  atomic.Int64
	publishErr error
}

func (f *flushSpy) ClearAll() { f.clears.Add(1) }

func (f *flushSpy) PublishFlush(_ context.Context) error {
	f.publishes.Add(1)
	return f.publishErr
}

var errLedgerDown = errors.New("ledger down")
