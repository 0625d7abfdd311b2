package store

import (
	"context"
	"fmt"
)

// RuleFireCount is one row of the fire counter snapshot.
type RuleFireCount struct {
	RuleID int64
	Count  int64
}

// StatsRepository defines the persistence operations for rule fire counters.
type StatsRepository interface {
	// IncrementFireCount adds one to the rule's counter in its own implicit transaction.
	// It returns the number of rows affected; 0 means the rule has no counter row.
	IncrementFireCount(ctx context.Context, ruleID int64) (int64, error)

	// FireCountSnapshot returns one entry per stored rule, including rules that never
	// fired, ordered by rule id ascending.
	FireCountSnapshot(ctx context.Context) ([]RuleFireCount, error)
}

// IncrementFireCount runs a single atomic UPDATE, so concurrent increments never lose updates.
func (s *PostgresStore) IncrementFireCount(ctx context.Context, ruleID int64) (int64, error) {
	tag, err := s.db.Exec(ctx, `UPDATE rule_fire_counts SET count = count + 1 WHERE rule_id = $1`, ruleID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment fire count for rule %d: %w", ruleID, err)
	}
	return tag.RowsAffected(), nil
}

// FireCountSnapshot lists every rule with its counter, 0 when the counter row is missing.
func (s *PostgresStore) FireCountSnapshot(ctx context.Context) ([]RuleFireCount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, COALESCE(c.count, 0)
		FROM rules r
		LEFT JOIN rule_fire_counts c ON c.rule_id = r.id
		ORDER BY r.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fire counts: %w", err)
	}
	defer rows.Close()

	counts := make([]RuleFireCount, 0)
	for rows.Next() {
		var rc RuleFireCount
		if err := rows.Scan(&rc.RuleID, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan fire count row: %w", err)
		}
		counts = append(counts, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return counts, nil
}
