package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/starbank/recommender/internal/database"
	"github.com/starbank/recommender/internal/ruleengine"
	"github.com/starbank/recommender/internal/seed"
	"github.com/starbank/recommender/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install product rules that are not stored yet",
	Long: `seed creates a rule for every product of the seed file whose product id has
no rule in the rules database. Without --file the built-in bank products are used.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML rules file (defaults to the built-in products)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	rules, err := loadSeed(seedFile)
	if err != nil {
		return err
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to rules database: %w", err)
	}
	defer pool.Close()

	res, err := seed.Apply(ctx, store.NewPostgresStore(pool), rules, log)
	if err != nil {
		return err
	}

	log.Info("seed finished",
		slog.Int("created", len(res.Created)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return nil
}

func loadSeed(path string) ([]ruleengine.Rule, error) {
	if path == "" {
		return seed.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return seed.Parse(f)
}
