package ruleengine

import (
	"context"

	"github.com/google/uuid"
)

// Executor is the interface that all condition strategies must implement.
// It encapsulates the specific logic to determine whether a user satisfies one condition.
type Executor interface {
	// Execute computes the raw result of the condition for the user.
	//
	// The negate flag of the condition is NOT applied here; the Engine applies it
	// afterwards so negation never influences which aggregates are read.
	//
	// Returns:
	// - bool: the raw result.
	// - error: ErrInvalidConditionArguments for bad arguments, or an aggregate
	//   source failure wrapped as-is.
	Execute(ctx context.Context, userID uuid.UUID, cond Condition) (bool, error)
}

// Aggregates is the read side executors pull user data from.
// It is implemented by the knowledge store; executors never aggregate themselves.
type Aggregates interface {
	HasAnyTransaction(ctx context.Context, userID uuid.UUID, productType string) (bool, error)
	CountTransactions(ctx context.Context, userID uuid.UUID, productType string) (int64, error)
	SumAmount(ctx context.Context, userID uuid.UUID, productType, transactionType string) (int64, error)
}
