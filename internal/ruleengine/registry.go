package ruleengine

import "fmt"

// Registry resolves a condition type to its executor.
// The mapping is built once at startup and never mutated afterwards,
// so concurrent lookups need no locking.
type Registry struct {
	executors map[ConditionType]Executor
}

// NewRegistry wires the four built-in strategies to the given aggregate source.
func NewRegistry(aggregates Aggregates) *Registry {
	if aggregates == nil {
		panic("ruleengine: aggregates source cannot be nil")
	}

	return &Registry{
		executors: map[ConditionType]Executor{
			ConditionUserOf:                 NewUserOfExecutor(aggregates),
			ConditionActiveUserOf:           NewActiveUserOfExecutor(aggregates),
			ConditionTransactionSumCompare:  NewTransactionSumCompareExecutor(aggregates),
			ConditionDepositWithdrawCompare: NewDepositWithdrawCompareExecutor(aggregates),
		},
	}
}

// Lookup returns the executor registered for t.
// An unregistered type is a configuration error, not a user error.
func (r *Registry) Lookup(t ConditionType) (Executor, error) {
	executor, ok := r.executors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConditionType, string(t))
	}
	return executor, nil
}
