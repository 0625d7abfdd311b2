package ruleengine

import (
	"context"

	"github.com/google/uuid"
)

// Transaction types compared by TRANSACTION_SUM_COMPARE_DEPOSIT_WITHDRAW.
const (
	TransactionDeposit  = "DEPOSIT"
	TransactionWithdraw = "WITHDRAW"
)

// DepositWithdrawCompareExecutor implements TRANSACTION_SUM_COMPARE_DEPOSIT_WITHDRAW:
// SUM(DEPOSIT) compared to SUM(WITHDRAW) for the same user and product type.
//
// Arguments: [productType, operator]
type DepositWithdrawCompareExecutor struct {
	aggregates Aggregates
}

// NewDepositWithdrawCompareExecutor creates the deposit/withdraw strategy.
func NewDepositWithdrawCompareExecutor(aggregates Aggregates) *DepositWithdrawCompareExecutor {
	return &DepositWithdrawCompareExecutor{aggregates: aggregates}
}

// Execute evaluates `deposits <operator> withdrawals`.
func (e *DepositWithdrawCompareExecutor) Execute(ctx context.Context, userID uuid.UUID, cond Condition) (bool, error) {
	args, err := parseArguments(cond)
	if err != nil {
		return false, err
	}

	productType := args.at(0)
	op, err := args.operatorAt(1)
	if err != nil {
		return false, err
	}

	deposits, err := e.aggregates.SumAmount(ctx, userID, productType, TransactionDeposit)
	if err != nil {
		return false, err
	}
	withdrawals, err := e.aggregates.SumAmount(ctx, userID, productType, TransactionWithdraw)
	if err != nil {
		return false, err
	}
	return op.Apply(deposits, withdrawals), nil
}
