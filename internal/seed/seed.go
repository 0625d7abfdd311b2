// Package seed installs the bank's built-in product rules into the rule store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starbank/recommender/internal/ruleengine"
)

//go:embed rules.yaml
var defaultRules []byte

// Repository is the subset of the rule store the seeder writes to.
type Repository interface {
	ProductRuleExists(ctx context.Context, productID string) (bool, error)
	CreateRule(ctx context.Context, rule *ruleengine.Rule) error
}

type file struct {
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	ProductName string         `yaml:"product_name"`
	ProductID   string         `yaml:"product_id"`
	ProductText string         `yaml:"product_text"`
	Rule        []conditionDoc `yaml:"rule"`
}

type conditionDoc struct {
	Query     string   `yaml:"query"`
	Arguments []string `yaml:"arguments"`
	Negate    bool     `yaml:"negate"`
}

// Result lists product ids by outcome, in file order.
type Result struct {
	Created []string
	Skipped []string
}

// Default returns the built-in rules.
func Default() ([]ruleengine.Rule, error) {
	return Parse(bytes.NewReader(defaultRules))
}

// Parse reads a YAML rules document. Every condition goes through the same
// arity check as the API, so a bad seed fails before anything is written.
func Parse(r io.Reader) ([]ruleengine.Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode seed rules: %w", err)
	}

	rules := make([]ruleengine.Rule, 0, len(doc.Rules))
	seen := make(map[string]struct{}, len(doc.Rules))

	for i, d := range doc.Rules {
		if strings.TrimSpace(d.ProductName) == "" || strings.TrimSpace(d.ProductText) == "" {
			return nil, fmt.Errorf("seed rule %d: product_name and product_text are required", i)
		}
		if _, err := uuid.Parse(d.ProductID); err != nil {
			return nil, fmt.Errorf("seed rule %d: invalid product_id %q: %w", i, d.ProductID, err)
		}
		if _, dup := seen[d.ProductID]; dup {
			return nil, fmt.Errorf("seed rule %d: duplicate product_id %s", i, d.ProductID)
		}
		seen[d.ProductID] = struct{}{}

		if len(d.Rule) == 0 {
			return nil, fmt.Errorf("seed rule %d: %w", i, ruleengine.ErrEmptyRule)
		}

		conds := make([]ruleengine.Condition, 0, len(d.Rule))
		for j, c := range d.Rule {
			t, err := ruleengine.ParseConditionType(strings.ToUpper(strings.TrimSpace(c.Query)))
			if err != nil {
				return nil, fmt.Errorf("seed rule %d condition %d: %w", i, j, err)
			}
			cond, err := ruleengine.NewCondition(t, c.Arguments, c.Negate)
			if err != nil {
				return nil, fmt.Errorf("seed rule %d condition %d: %w", i, j, err)
			}
			conds = append(conds, cond)
		}

		rules = append(rules, ruleengine.Rule{
			ProductName: d.ProductName,
			ProductID:   d.ProductID,
			ProductText: d.ProductText,
			Conditions:  conds,
		})
	}

	return rules, nil
}

// Apply creates every rule whose product id has no rule yet. Running it twice
// creates nothing the second time.
func Apply(ctx context.Context, repo Repository, rules []ruleengine.Rule, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}

	var res Result
	for i := range rules {
		rule := rules[i]

		exists, err := repo.ProductRuleExists(ctx, rule.ProductID)
		if err != nil {
			return res, fmt.Errorf("failed to check product %s: %w", rule.ProductID, err)
		}
		if exists {
			res.Skipped = append(res.Skipped, rule.ProductID)
			log.Info("seed rule already present", slog.String("product_id", rule.ProductID))
			continue
		}

		if err := repo.CreateRule(ctx, &rule); err != nil {
			return res, fmt.Errorf("failed to create rule for product %s: %w", rule.ProductID, err)
		}
		res.Created = append(res.Created, rule.ProductID)
		log.Info("seed rule created",
			slog.Int64("rule_id", rule.ID),
			slog.String("product_id", rule.ProductID),
			slog.String("product_name", rule.ProductName),
		)
	}

	return res, nil
}
