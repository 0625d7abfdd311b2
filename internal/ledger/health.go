package ledger

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// HealthChecker implements the observability.Checker interface for the ledger database.
type HealthChecker struct {
	db *sqlx.DB
}

// NewHealthChecker creates a new health checker for the given ledger connection.
func NewHealthChecker(db *sqlx.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

// Name returns the component name.
func (h *HealthChecker) Name() string {
	return "ledger"
}

// Check verifies the ledger connection.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.db == nil {
		return fmt.Errorf("ledger connection is nil")
	}
	return h.db.PingContext(ctx)
}
