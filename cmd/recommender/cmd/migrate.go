package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/starbank/recommender/internal/database"
	"github.com/starbank/recommender/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the rules database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to rules database: %w", err)
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		return err
	}
	log.Info("schema up to date", slog.Int("files", len(applied)))
	return nil
}
