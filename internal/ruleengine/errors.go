package ruleengine

import "errors"

var (
	// ErrInvalidConditionArguments covers wrong argument count, blank values,
	// unparseable numbers, unknown operator tokens and malformed stored arguments.
	ErrInvalidConditionArguments = errors.New("invalid condition arguments")

	// ErrUnsupportedConditionType is a configuration error: no executor is
	// registered for the requested variant.
	ErrUnsupportedConditionType = errors.New("unsupported condition type")

	// ErrEmptyRule is returned when a rule without conditions reaches the engine.
	// Creation requires at least one condition, so this indicates corrupted data.
	ErrEmptyRule = errors.New("rule has no conditions")
)
