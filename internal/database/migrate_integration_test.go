//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbank/recommender/internal/database"
	"github.com/starbank/recommender/internal/testsupport"
	"github.com/starbank/recommender/migrations"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	pgCtr, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgCtr.Terminate(ctx)

	// The container already ran the scripts once.
	applied, err := database.Migrate(ctx, pgCtr.DB, migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_rules.sql"}, applied)

	var tables int
	err = pgCtr.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name IN ('rules', 'rule_conditions', 'rule_fire_counts')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 3, tables)
}
