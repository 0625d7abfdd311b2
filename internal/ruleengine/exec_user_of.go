package ruleengine

import (
	"context"

	"github.com/google/uuid"
)

// UserOfExecutor implements USER_OF: the user has at least one transaction
// against a product of the given type.
//
// Arguments: [productType]
type UserOfExecutor struct {
	aggregates Aggregates
}

// NewUserOfExecutor creates the USER_OF strategy.
func NewUserOfExecutor(aggregates Aggregates) *UserOfExecutor {
	return &UserOfExecutor{aggregates: aggregates}
}

// Execute checks transaction existence for (user, productType).
func (e *UserOfExecutor) Execute(ctx context.Context, userID uuid.UUID, cond Condition) (bool, error) {
	args, err := parseArguments(cond)
	if err != nil {
		return false, err
	}
	return e.aggregates.HasAnyTransaction(ctx, userID, args.at(0))
}
