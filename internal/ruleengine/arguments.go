package ruleengine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EncodeArguments serializes the ordered arguments into the JSON array stored
// in the 'arguments' column.
func EncodeArguments(args []string) (json.RawMessage, error) {
	if args == nil {
		args = []string{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode condition arguments: %w", err)
	}
	return b, nil
}

// DecodeArguments parses the stored JSON array back into an ordered list.
// A null or missing payload is rejected instead of being treated as "no arguments".
func DecodeArguments(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: arguments are missing", ErrInvalidConditionArguments)
	}

	var args []string
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of strings: %v", ErrInvalidConditionArguments, err)
	}
	if args == nil {
		return nil, fmt.Errorf("%w: arguments are null", ErrInvalidConditionArguments)
	}
	return args, nil
}

// ValidateArguments enforces the arity contract of the variant and rejects blank values.
func ValidateArguments(t ConditionType, args []string) error {
	want, ok := t.Arity()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedConditionType, string(t))
	}
	if args == nil {
		return fmt.Errorf("%w: %s requires %d argument(s), got none", ErrInvalidConditionArguments, t, want)
	}
	if len(args) != want {
		return fmt.Errorf("%w: %s requires %d argument(s), got %d", ErrInvalidConditionArguments, t, want, len(args))
	}
	for i, a := range args {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: argument at position %d is blank", ErrInvalidConditionArguments, i)
		}
	}
	return nil
}

// argumentList is the decoded, arity-checked view an executor works with.
type argumentList []string

// parseArguments decodes and validates the condition's arguments for its own type.
// Executors call this on every run; stored data is not trusted.
func parseArguments(cond Condition) (argumentList, error) {
	args, err := DecodeArguments(cond.Arguments)
	if err != nil {
		return nil, err
	}
	if err := ValidateArguments(cond.Type, args); err != nil {
		return nil, err
	}
	return argumentList(args), nil
}

// at returns the trimmed argument at index i. Bounds are guaranteed by parseArguments.
func (a argumentList) at(i int) string {
	return strings.TrimSpace(a[i])
}

// int64At parses the argument at index i as a base-10 integer.
func (a argumentList) int64At(i int, name string) (int64, error) {
	v, err := strconv.ParseInt(a.at(i), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a base-10 integer, got %q", ErrInvalidConditionArguments, name, a[i])
	}
	return v, nil
}

// operatorAt parses the argument at index i as a comparison operator.
func (a argumentList) operatorAt(i int) (Operator, error) {
	return ParseOperator(a.at(i))
}
