package ruleengine

import "fmt"

// Operator is one of the closed set of relational operators a condition may use.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// ParseOperator resolves a token from the condition arguments.
// Unknown tokens are an argument error, never a silent false.
func ParseOperator(token string) (Operator, error) {
	switch op := Operator(token); op {
	case OpGreater, OpLess, OpEqual, OpGreaterEqual, OpLessEqual:
		return op, nil
	default:
		return "", fmt.Errorf("%w: unknown comparison operator %q", ErrInvalidConditionArguments, token)
	}
}

// Apply compares left against right.
func (op Operator) Apply(left, right int64) bool {
	switch op {
	case OpGreater:
		return left > right
	case OpLess:
		return left < right
	case OpEqual:
		return left == right
	case OpGreaterEqual:
		return left >= right
	case OpLessEqual:
		return left <= right
	default:
		return false
	}
}
