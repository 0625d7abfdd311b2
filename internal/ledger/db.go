// Package ledger reads per-user transaction aggregates from the bank's
// transaction ledger. The ledger is owned by another system and is never written.
//
// Supports SQLite (development, tests) and PostgreSQL (production) via sqlx.
package ledger

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Pool limits for a read-only analytical workload.
const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Open connects to the ledger from a URL.
// Supported schemes: sqlite://path/to/file.db, sqlite:///absolute/path, postgres://...
func Open(ledgerURL string) (*sqlx.DB, error) {
	u, err := url.Parse(ledgerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger URL: %w", err)
	}

	var driverName, dataSource string

	switch u.Scheme {
	case "sqlite":
		driverName = "sqlite3"
		if u.Host != "" {
			dataSource = u.Host + u.Path
		} else {
			dataSource = u.Path
		}
		if u.RawQuery != "" {
			dataSource += "?" + u.RawQuery
		}
	case "postgres", "postgresql":
		driverName = "postgres"
		dataSource = ledgerURL
	default:
		return nil, fmt.Errorf("unsupported ledger scheme: %s (expected sqlite or postgres)", u.Scheme)
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}

	return db, nil
}
