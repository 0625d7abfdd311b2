package ruleengine

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// fakeAggregates is an in-memory Aggregates keyed by product type only.
// It counts calls so tests can prove an argument error never reaches the data source.
type fakeAggregates struct {
	counts map[string]int64
	sums   map[[2]string]int64
	err    error
	calls  atomic.Int64
}

func newFakeAggregates() *fakeAggregates {
	return &fakeAggregates{
		counts: make(map[string]int64),
		sums:   make(map[[2]string]int64),
	}
}

func (f *fakeAggregates) withCount(productType string, n int64) *fakeAggregates {
	f.counts[productType] = n
	return f
}

func (f *fakeAggregates) withSum(productType, txType string, sum int64) *fakeAggregates {
	f.sums[[2]string{productType, txType}] = sum
	return f
}

func (f *fakeAggregates) HasAnyTransaction(_ context.Context, _ uuid.UUID, productType string) (bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return false, f.err
	}
	return f.counts[productType] > 0, nil
}

func (f *fakeAggregates) CountTransactions(_ context.Context, _ uuid.UUID, productType string) (int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[productType], nil
}

func (f *fakeAggregates) SumAmount(_ context.Context, _ uuid.UUID, productType, transactionType string) (int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return f.sums[[2]string{productType, transactionType}], nil
}

// rawArgs builds a stored-form condition without going through NewCondition,
// simulating whatever is persisted in the database.
func rawArgs(t ConditionType, payload string, negate bool) Condition {
	return Condition{Type: t, Arguments: []byte(payload), Negate: negate}
}
