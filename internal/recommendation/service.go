// Package recommendation evaluates every stored rule for a user and turns the
// matching ones into product recommendations.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/starbank/recommender/internal/logger"
	"github.com/starbank/recommender/internal/observability"
	"github.com/starbank/recommender/internal/ruleengine"
	"github.com/starbank/recommender/internal/store"
	"github.com/starbank/recommender/internal/validation"
)

// ErrInvalidProductIdentifier is returned for a matched rule whose product id is not a UUID.
var ErrInvalidProductIdentifier = errors.New("invalid product identifier")

// Recommendation is one product offered to a user.
type Recommendation struct {
	ProductID   uuid.UUID
	ProductName string
	ProductText string
}

// UserRecommendations wraps the result of Recommend with the user it was computed for.
type UserRecommendations struct {
	UserID          uuid.UUID
	Recommendations []Recommendation
}

// RuleStat is one entry of the fire statistics. Count is rendered as a decimal string.
type RuleStat struct {
	RuleID int64
	Count  string
}

// RuleLoader loads the rule set for one evaluation.
type RuleLoader interface {
	ListRulesWithConditions(ctx context.Context) ([]ruleengine.Rule, error)
}

// StatsReader reads the fire counter snapshot.
type StatsReader interface {
	FireCountSnapshot(ctx context.Context) ([]store.RuleFireCount, error)
}

// CacheFlusher drops every cached aggregate.
type CacheFlusher interface {
	ClearAll()
}

// FlushBroadcaster tells other replicas to drop their caches.
type FlushBroadcaster interface {
	PublishFlush(ctx context.Context) error
}

// Service is the recommendation use case.
type Service struct {
	rules       RuleLoader
	stats       StatsReader
	engine      *ruleengine.Engine
	caches      CacheFlusher
	fires       *FireCounter
	broadcaster FlushBroadcaster
	logger      *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithFlushBroadcaster propagates FlushCaches to other replicas.
func WithFlushBroadcaster(b FlushBroadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

// NewService wires the use case. It panics on missing dependencies.
func NewService(
	rules RuleLoader,
	stats StatsReader,
	engine *ruleengine.Engine,
	caches CacheFlusher,
	fires *FireCounter,
	log *slog.Logger,
	opts ...Option,
) *Service {
	validation.AssertPresent(rules, "rule loader")
	validation.AssertPresent(stats, "stats reader")
	validation.AssertNotNil(engine, "rule engine")
	validation.AssertPresent(caches, "cache flusher")
	validation.AssertNotNil(fires, "fire counter")

	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		rules:  rules,
		stats:  stats,
		engine: engine,
		caches: caches,
		fires:  fires,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend evaluates every rule for the user and returns the matching products in store order.
//
// A rule with malformed stored arguments or a non-UUID product id is logged and
// skipped. Unsupported condition types, empty rules and ledger failures fail the call.
func (s *Service) Recommend(ctx context.Context, userID uuid.UUID) ([]Recommendation, error) {
	start := time.Now()
	defer func() {
		observability.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	log := logger.FromContext(ctx).With(slog.String("user_id", userID.String()))

	// The read unit of work commits inside the loader, before any fire is recorded.
	rules, err := s.rules.ListRulesWithConditions(ctx)
	if err != nil {
		observability.EvaluationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	matched := make([]ruleengine.Rule, 0, len(rules))
	for _, rule := range rules {
		ok, err := s.engine.Matches(ctx, userID, rule)
		if err != nil {
			if errors.Is(err, ruleengine.ErrInvalidConditionArguments) {
				observability.RulesSkippedTotal.WithLabelValues("invalid_arguments").Inc()
				log.Warn("skipping rule with invalid stored arguments",
					slog.Int64("rule_id", rule.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			observability.EvaluationsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if ok {
			matched = append(matched, rule)
		}
	}

	recs := make([]Recommendation, 0, len(matched))
	for _, rule := range matched {
		s.fires.Record(ctx, rule.ID)

		productID, err := uuid.Parse(rule.ProductID)
		if err != nil {
			err = fmt.Errorf("rule %d: %w: %q", rule.ID, ErrInvalidProductIdentifier, rule.ProductID)
			observability.RulesSkippedTotal.WithLabelValues("invalid_product_id").Inc()
			log.Error("dropping matched rule", slog.String("error", err.Error()))
			continue
		}

		recs = append(recs, Recommendation{
			ProductID:   productID,
			ProductName: rule.ProductName,
			ProductText: rule.ProductText,
		})
	}

	observability.EvaluationsTotal.WithLabelValues("ok").Inc()
	log.Debug("recommendations computed",
		slog.Int("rules", len(rules)),
		slog.Int("matched", len(matched)),
		slog.Int("recommended", len(recs)),
	)

	return recs, nil
}

// Recommendations is Recommend with the user id attached.
func (s *Service) Recommendations(ctx context.Context, userID uuid.UUID) (UserRecommendations, error) {
	recs, err := s.Recommend(ctx, userID)
	if err != nil {
		return UserRecommendations{}, err
	}
	return UserRecommendations{UserID: userID, Recommendations: recs}, nil
}

// RuleFireStats returns one entry per stored rule, zero counts included, ordered by rule id.
func (s *Service) RuleFireStats(ctx context.Context) ([]RuleStat, error) {
	counts, err := s.stats.FireCountSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule statistics: %w", err)
	}

	stats := make([]RuleStat, len(counts))
	for i, c := range counts {
		stats[i] = RuleStat{RuleID: c.RuleID, Count: strconv.FormatInt(c.Count, 10)}
	}
	return stats, nil
}

// FlushCaches drops every cached aggregate on this replica and, when a broadcaster
// is configured, asks the other replicas to do the same. Broadcast failures are logged only.
func (s *Service) FlushCaches(ctx context.Context) {
	s.caches.ClearAll()
	observability.KnowledgeFlushes.WithLabelValues("local").Inc()

	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.PublishFlush(ctx); err != nil {
		logger.FromContext(ctx).Warn("failed to broadcast cache flush", slog.String("error", err.Error()))
	}
}
