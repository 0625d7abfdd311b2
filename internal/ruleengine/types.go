// Package ruleengine provides the core logic for product recommendation rules.
// It implements a Strategy pattern where each condition type (strategy) is
// executed against a user's transaction aggregates to produce a boolean result.
package ruleengine

import (
	"encoding/json"
	"fmt"
)

// ConditionType is the discriminator telling the engine which Executor to invoke.
type ConditionType string

const (
	// ConditionUserOf matches users with at least one transaction on a product type.
	ConditionUserOf ConditionType = "USER_OF"

	// ConditionActiveUserOf matches users with at least ActiveUserThreshold
	// transactions on a product type.
	ConditionActiveUserOf ConditionType = "ACTIVE_USER_OF"

	// ConditionTransactionSumCompare compares SUM(amount) for a
	// (product type, transaction type) pair against a constant.
	ConditionTransactionSumCompare ConditionType = "TRANSACTION_SUM_COMPARE"

	// ConditionDepositWithdrawCompare compares the DEPOSIT sum against the
	// WITHDRAW sum for a product type.
	ConditionDepositWithdrawCompare ConditionType = "TRANSACTION_SUM_COMPARE_DEPOSIT_WITHDRAW"
)

// ConditionTypes lists every supported variant in declaration order.
var ConditionTypes = []ConditionType{
	ConditionUserOf,
	ConditionActiveUserOf,
	ConditionTransactionSumCompare,
	ConditionDepositWithdrawCompare,
}

// Arity returns the number of arguments the variant requires.
// The second return value is false for unknown variants.
func (t ConditionType) Arity() (int, bool) {
	switch t {
	case ConditionUserOf, ConditionActiveUserOf:
		return 1, true
	case ConditionTransactionSumCompare:
		return 4, true
	case ConditionDepositWithdrawCompare:
		return 2, true
	default:
		return 0, false
	}
}

// Valid reports whether t is one of the four supported variants.
func (t ConditionType) Valid() bool {
	_, ok := t.Arity()
	return ok
}

// ParseConditionType converts a raw token (API payload, DB column) into a ConditionType.
func ParseConditionType(s string) (ConditionType, error) {
	t := ConditionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedConditionType, s)
	}
	return t, nil
}

// Condition is a single typed, negatable test over a user's transaction aggregates.
// It mirrors one row of the 'rule_conditions' table.
type Condition struct {
	// Type selects the executor.
	Type ConditionType `json:"query"`

	// Arguments holds the ordered string arguments as an opaque JSON array.
	// It stays encoded until an executor decodes it, so malformed stored data
	// surfaces as ErrInvalidConditionArguments for the owning rule only.
	Arguments json.RawMessage `json:"arguments"`

	// Negate inverts the executor's raw result.
	Negate bool `json:"negate"`
}

// NewCondition validates the arguments against the variant's arity and encodes them.
// This is the creation-time gate: a condition with the wrong argument count never
// reaches the store or an executor.
func NewCondition(t ConditionType, args []string, negate bool) (Condition, error) {
	if !t.Valid() {
		return Condition{}, fmt.Errorf("%w: %q", ErrUnsupportedConditionType, string(t))
	}
	if err := ValidateArguments(t, args); err != nil {
		return Condition{}, err
	}

	raw, err := EncodeArguments(args)
	if err != nil {
		return Condition{}, err
	}

	return Condition{Type: t, Arguments: raw, Negate: negate}, nil
}

// Rule is a product recommendation guarded by a conjunction of Conditions.
type Rule struct {
	ID          int64
	ProductName string
	// ProductID is kept as stored; it is parsed as a UUID only when the rule fires.
	ProductID   string
	ProductText string
	Conditions  []Condition
}
