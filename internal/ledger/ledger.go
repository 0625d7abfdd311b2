package ledger

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"

	"github.com/starbank/recommender/internal/knowledge"
	"github.com/starbank/recommender/internal/observability"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// Query names in queries/ledger.sql.
const (
	queryHasAny = "has-any-transaction"
	queryCount  = "count-transactions"
	querySum    = "sum-amount"
)

// SQLLedger runs the aggregate queries against the ledger database.
// Every call is a single read query; nothing is cached here.
type SQLLedger struct {
	db  *sqlx.DB
	dot *dotsql.DotSql
}

var _ knowledge.Ledger = (*SQLLedger)(nil)

// New loads the embedded named queries and binds them to db.
func New(db *sqlx.DB) (*SQLLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: db cannot be nil")
	}

	var combinedSQL string
	err := fs.WalkDir(queriesFS, "queries", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		content, err := queriesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		combinedSQL += string(content) + "\n"
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load query files: %w", err)
	}

	dot, err := dotsql.LoadFromString(combinedSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}

	return &SQLLedger{db: db, dot: dot}, nil
}

// get runs a single-value named query, rebinding '?' placeholders for the driver.
func (l *SQLLedger) get(ctx context.Context, name string, dest any, args ...any) error {
	query, err := l.dot.Raw(name)
	if err != nil {
		return fmt.Errorf("query not found: %s", name)
	}

	start := time.Now()
	err = l.db.GetContext(ctx, dest, l.db.Rebind(query), args...)
	observability.LedgerQueryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.LedgerQueryErrors.WithLabelValues(name).Inc()
		return fmt.Errorf("ledger query %s failed: %w", name, err)
	}
	return nil
}

// HasAnyTransaction reports whether the user has at least one transaction on a product of productType.
func (l *SQLLedger) HasAnyTransaction(ctx context.Context, userID uuid.UUID, productType string) (bool, error) {
	var exists bool
	if err := l.get(ctx, queryHasAny, &exists, userID.String(), productType); err != nil {
		return false, err
	}
	return exists, nil
}

// CountTransactions counts the user's transactions on products of productType.
func (l *SQLLedger) CountTransactions(ctx context.Context, userID uuid.UUID, productType string) (int64, error) {
	var n int64
	if err := l.get(ctx, queryCount, &n, userID.String(), productType); err != nil {
		return 0, err
	}
	return n, nil
}

// SumAmount sums amounts in minor units for (productType, transactionType); 0 when nothing matches.
func (l *SQLLedger) SumAmount(ctx context.Context, userID uuid.UUID, productType, transactionType string) (int64, error) {
	var sum int64
	if err := l.get(ctx, querySum, &sum, userID.String(), productType, transactionType); err != nil {
		return 0, err
	}
	return sum, nil
}
