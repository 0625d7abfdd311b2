package ruleengine

import (
	"context"

	"github.com/google/uuid"
)

// TransactionSumCompareExecutor implements TRANSACTION_SUM_COMPARE:
// SUM(amount) over (productType, transactionType) compared to a constant.
//
// Arguments: [productType, transactionType, operator, amount]
type TransactionSumCompareExecutor struct {
	aggregates Aggregates
}

// NewTransactionSumCompareExecutor creates the TRANSACTION_SUM_COMPARE strategy.
func NewTransactionSumCompareExecutor(aggregates Aggregates) *TransactionSumCompareExecutor {
	return &TransactionSumCompareExecutor{aggregates: aggregates}
}

// Execute evaluates `sum <operator> amount`.
// Operator and amount are parsed before the aggregate is read, so a bad
// argument never costs a ledger query.
func (e *TransactionSumCompareExecutor) Execute(ctx context.Context, userID uuid.UUID, cond Condition) (bool, error) {
	args, err := parseArguments(cond)
	if err != nil {
		return false, err
	}

	op, err := args.operatorAt(2)
	if err != nil {
		return false, err
	}
	threshold, err := args.int64At(3, "amount")
	if err != nil {
		return false, err
	}

	sum, err := e.aggregates.SumAmount(ctx, userID, args.at(0), args.at(1))
	if err != nil {
		return false, err
	}
	return op.Apply(sum, threshold), nil
}
