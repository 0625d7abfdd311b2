package ruleengine

import (
	"context"

	"github.com/google/uuid"
)

// ActiveUserThreshold is the minimum number of transactions that makes a user
// an "active" user of a product type. It is fixed, not configurable.
const ActiveUserThreshold = 5

// ActiveUserOfExecutor implements ACTIVE_USER_OF.
//
// Arguments: [productType]
type ActiveUserOfExecutor struct {
	aggregates Aggregates
}

// NewActiveUserOfExecutor creates the ACTIVE_USER_OF strategy.
func NewActiveUserOfExecutor(aggregates Aggregates) *ActiveUserOfExecutor {
	return &ActiveUserOfExecutor{aggregates: aggregates}
}

// Execute returns true when the transaction count reaches ActiveUserThreshold.
func (e *ActiveUserOfExecutor) Execute(ctx context.Context, userID uuid.UUID, cond Condition) (bool, error) {
	args, err := parseArguments(cond)
	if err != nil {
		return false, err
	}

	count, err := e.aggregates.CountTransactions(ctx, userID, args.at(0))
	if err != nil {
		return false, err
	}
	return count >= ActiveUserThreshold, nil
}
