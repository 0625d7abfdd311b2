package ruleengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Engine is the orchestrator for condition evaluation.
type Engine struct {
	registry *Registry
	logger   *slog.Logger // Dedicated logger instance (DI)
}

// New creates a new Engine on top of a registry.
// If logger is nil, it defaults to slog.Default().
func New(registry *Registry, logger *slog.Logger) *Engine {
	if registry == nil {
		panic("ruleengine: registry cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		registry: registry,
		logger:   logger,
	}
}

// Evaluate runs a single condition for the user: result = negate XOR raw.
func (e *Engine) Evaluate(ctx context.Context, userID uuid.UUID, cond Condition) (bool, error) {
	executor, err := e.registry.Lookup(cond.Type)
	if err != nil {
		return false, err
	}

	raw, err := executor.Execute(ctx, userID, cond)
	if err != nil {
		return false, err
	}

	result := cond.Negate != raw

	e.logger.Debug("condition evaluated",
		slog.String("user_id", userID.String()),
		slog.String("type", string(cond.Type)),
		slog.Bool("negate", cond.Negate),
		slog.Bool("raw", raw),
		slog.Bool("result", result),
	)

	return result, nil
}

// Matches AND-reduces the rule's conditions, stopping at the first false.
// A rule without conditions is rejected instead of matching vacuously.
func (e *Engine) Matches(ctx context.Context, userID uuid.UUID, rule Rule) (bool, error) {
	if len(rule.Conditions) == 0 {
		return false, fmt.Errorf("rule %d: %w", rule.ID, ErrEmptyRule)
	}

	for i, cond := range rule.Conditions {
		ok, err := e.Evaluate(ctx, userID, cond)
		if err != nil {
			return false, fmt.Errorf("rule %d condition %d (%s): %w", rule.ID, i, cond.Type, err)
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}
