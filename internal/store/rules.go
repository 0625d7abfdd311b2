// Package store provides the Data Access Layer for recommendation rules and
// their fire counters. It talks to PostgreSQL through the pgx driver.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbank/recommender/internal/ruleengine"
)

// ErrRuleNotFound is returned when an operation targets a rule id that does not exist.
var ErrRuleNotFound = errors.New("rule not found")

// Compile-time checks to verify that PostgresStore implements both repositories.
var (
	_ RuleRepository  = (*PostgresStore)(nil)
	_ StatsRepository = (*PostgresStore)(nil)
)

// RuleRepository defines the persistence operations for rules.
type RuleRepository interface {
	// CreateRule inserts the rule, its conditions and a zeroed fire counter in one
	// transaction, and populates rule.ID.
	CreateRule(ctx context.Context, rule *ruleengine.Rule) error

	// ListRulesWithConditions loads every rule with its ordered conditions.
	// Rules are ordered by id ascending.
	ListRulesWithConditions(ctx context.Context) ([]ruleengine.Rule, error)

	// RuleExists reports whether a rule with the given id is stored.
	RuleExists(ctx context.Context, id int64) (bool, error)

	// DeleteRule removes the rule, its conditions and its counter.
	// Returns ErrRuleNotFound if nothing was deleted.
	DeleteRule(ctx context.Context, id int64) error

	// ProductRuleExists reports whether any rule recommends the given product id.
	ProductRuleExists(ctx context.Context, productID string) (bool, error)
}

// PostgresStore is the implementation of RuleRepository and StatsRepository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// CreateRule persists a rule atomically.
// Conditions are stored with their position so the AND order survives a round trip.
func (s *PostgresStore) CreateRule(ctx context.Context, rule *ruleengine.Rule) error {
	if len(rule.Conditions) == 0 {
		return ruleengine.ErrEmptyRule
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op once Commit succeeded.
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO rules (product_name, product_id, product_text)
		VALUES ($1, $2, $3)
		RETURNING id
	`, rule.ProductName, rule.ProductID, rule.ProductText).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	batch := &pgx.Batch{}
	for i, cond := range rule.Conditions {
		batch.Queue(`
			INSERT INTO rule_conditions (rule_id, position, query, arguments, negate)
			VALUES ($1, $2, $3, $4, $5)
		`, rule.ID, i, string(cond.Type), string(cond.Arguments), cond.Negate)
	}
	batch.Queue(`INSERT INTO rule_fire_counts (rule_id, count) VALUES ($1, 0)`, rule.ID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("duplicate condition position for rule %d: %w", rule.ID, err)
		}
		return fmt.Errorf("failed to insert rule conditions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rule: %w", err)
	}
	return nil
}

// ListRulesWithConditions loads all rules and their conditions in a single query,
// inside a read-only repeatable-read transaction so the snapshot is consistent.
func (s *PostgresStore) ListRulesWithConditions(ctx context.Context) ([]ruleengine.Rule, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT r.id, r.product_name, r.product_id, r.product_text,
		       c.query, c.arguments, c.negate
		FROM rules r
		LEFT JOIN rule_conditions c ON c.rule_id = r.id
		ORDER BY r.id ASC, c.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := make([]ruleengine.Rule, 0)
	for rows.Next() {
		var (
			id                     int64
			productName, productID string
			productText            string
			query, arguments       *string
			negate                 *bool
		)
		if err := rows.Scan(&id, &productName, &productID, &productText, &query, &arguments, &negate); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}

		if n := len(rules); n == 0 || rules[n-1].ID != id {
			rules = append(rules, ruleengine.Rule{
				ID:          id,
				ProductName: productName,
				ProductID:   productID,
				ProductText: productText,
				Conditions:  []ruleengine.Condition{},
			})
		}

		// A rule without conditions yields a single row of NULLs on the right side.
		if query == nil {
			continue
		}

		cond := ruleengine.Condition{Type: ruleengine.ConditionType(*query)}
		if arguments != nil {
			cond.Arguments = []byte(*arguments)
		}
		if negate != nil {
			cond.Negate = *negate
		}
		last := &rules[len(rules)-1]
		last.Conditions = append(last.Conditions, cond)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}

	return rules, nil
}

// RuleExists reports whether a rule with the given id is stored.
func (s *PostgresStore) RuleExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rules WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check rule %d: %w", id, err)
	}
	return exists, nil
}

// DeleteRule removes the rule; conditions and the counter go with it (ON DELETE CASCADE).
func (s *PostgresStore) DeleteRule(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrRuleNotFound)
	}
	return nil
}

// ProductRuleExists reports whether any rule recommends productID.
func (s *PostgresStore) ProductRuleExists(ctx context.Context, productID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rules WHERE product_id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check rules for product %q: %w", productID, err)
	}
	return exists, nil
}
