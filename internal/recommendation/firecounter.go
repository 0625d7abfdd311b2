package recommendation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starbank/recommender/internal/observability"
)

// DefaultFireTimeout bounds a single counter increment.
const DefaultFireTimeout = 5 * time.Second

// FireRecorder persists one fire of a rule.
type FireRecorder interface {
	IncrementFireCount(ctx context.Context, ruleID int64) (int64, error)
}

// FireCounter records rule fires outside the request's unit of work.
// Failures are logged and counted, never returned to the caller.
type FireCounter struct {
	repo    FireRecorder
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewFireCounter creates a fire counter. A non-positive timeout falls back to DefaultFireTimeout.
func NewFireCounter(repo FireRecorder, timeout time.Duration, logger *slog.Logger) *FireCounter {
	if repo == nil {
		panic("recommendation: fire recorder cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultFireTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FireCounter{repo: repo, timeout: timeout, logger: logger}
}

// Record increments the rule's counter on its own goroutine.
// The increment keeps the caller's values (request id, logger) but not its
// cancellation, so a client disconnect does not drop the count.
func (f *FireCounter) Record(ctx context.Context, ruleID int64) {
	f.wg.Add(1)

	go func() {
		defer f.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		affected, err := f.repo.IncrementFireCount(ctx, ruleID)
		switch {
		case err != nil:
			observability.RuleFiresTotal.WithLabelValues("fail").Inc()
			f.logger.Error("failed to record rule fire",
				slog.Int64("rule_id", ruleID),
				slog.String("error", err.Error()),
			)
		case affected == 0:
			observability.RuleFiresTotal.WithLabelValues("missing").Inc()
			f.logger.Warn("rule fire not recorded: no counter row",
				slog.Int64("rule_id", ruleID),
			)
		default:
			observability.RuleFiresTotal.WithLabelValues("success").Inc()
		}
	}()
}

// Wait blocks until every in-flight increment has finished.
func (f *FireCounter) Wait() {
	f.wg.Wait()
}
