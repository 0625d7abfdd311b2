package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/spf13/cobra"

	"github.com/starbank/recommender/internal/api"
	"github.com/starbank/recommender/internal/cache"
	"github.com/starbank/recommender/internal/config"
	"github.com/starbank/recommender/internal/database"
	"github.com/starbank/recommender/internal/knowledge"
	"github.com/starbank/recommender/internal/ledger"
	"github.com/starbank/recommender/internal/logger"
	"github.com/starbank/recommender/internal/observability"
	"github.com/starbank/recommender/internal/recommendation"
	"github.com/starbank/recommender/internal/ruleengine"
	"github.com/starbank/recommender/internal/store"
	"github.com/starbank/recommender/migrations"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation API and the observability server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the rules schema before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	cfg.LogConfig(log)

	ctx := logger.WithContext(cmd.Context(), log)
	// Background loops stop on this cancel, after the servers have drained.
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()
	var background sync.WaitGroup
	goBackground := func(fn func()) {
		background.Add(1)
		go func() {
			defer background.Done()
			fn()
		}()
	}

	// Rules database
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to rules database: %w", err)
	}
	defer pool.Close()

	if serveMigrate {
		if _, err := database.Migrate(ctx, pool, migrations.FS); err != nil {
			return err
		}
	}
	goBackground(func() { database.RunPoolMonitor(bgCtx, pool, cfg.Database.MonitorInterval) })

	// Transaction ledger and its caches
	ledgerDB, err := ledger.Open(cfg.Ledger.URL)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledgerDB.Close()

	ledgerQueries, err := ledger.New(ledgerDB)
	if err != nil {
		return err
	}

	knowledgeStore, err := knowledge.NewStore(ledgerQueries, knowledgeOptions(cfg.Knowledge), log)
	if err != nil {
		return err
	}
	defer knowledgeStore.Close()
	goBackground(func() { knowledgeStore.RunMetricsCollector(bgCtx, cfg.Knowledge.MetricsInterval) })

	checkers := []observability.Checker{
		database.NewHealthChecker(pool),
		ledger.NewHealthChecker(ledgerDB),
	}

	// Use case
	rules := store.NewPostgresStore(pool)
	engine := ruleengine.New(ruleengine.NewRegistry(knowledgeStore), log)
	fires := recommendation.NewFireCounter(rules, cfg.Stats.IncrementTimeout, log)

	var opts []recommendation.Option
	if cfg.Redis.IsConfigured() {
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		bus := cache.NewFlushBus(client, cfg.Redis.FlushChannel, log,
			cache.WithPublishTimeout(cfg.Redis.FlushPublishTimeout),
			cache.WithBufferSize(cfg.Redis.FlushBufferSize),
		)
		opts = append(opts, recommendation.WithFlushBroadcaster(bus))
		checkers = append(checkers, cache.NewHealthChecker(client))

		goBackground(func() {
			if err := bus.Listen(bgCtx, knowledgeStore); err != nil {
				log.Error("cache flush listener stopped", slog.String("error", err.Error()))
			}
		})
	} else {
		log.Info("redis not configured, cache flushes stay local to this replica")
	}

	svc := recommendation.NewService(rules, rules, engine, knowledgeStore, fires, log, opts...)

	apiCfg := cfg.Server.API
	handler := api.NewAPIWithConfig(
		rules,
		svc,
		api.Info{Name: cfg.App.Name, Version: cfg.App.Version},
		apiCfg.APIKeyHash,
		!apiCfg.AuthEnabled(cfg.App.Environment),
	)

	// Servers
	obs := observability.NewServer(log, &cfg.Observability, checkers...)
	obs.Start()

	srv := &http.Server{
		Addr:              apiCfg.Address(),
		Handler:           handler.Router,
		ReadTimeout:       apiCfg.ReadTimeout,
		ReadHeaderTimeout: apiCfg.ReadHeaderTimeout,
		WriteTimeout:      apiCfg.WriteTimeout,
		IdleTimeout:       apiCfg.IdleTimeout,
		MaxHeaderBytes:    apiCfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("api server listening", slog.String("addr", srv.Addr), slog.Bool("tls", apiCfg.TLSEnabled))
		serveErr <- listen(srv, apiCfg)
	}()

	select {
	case err = <-serveErr:
		if err != nil {
			log.Error("api server failed", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("api server shutdown failed", slog.String("error", shutdownErr.Error()))
	}
	if shutdownErr := obs.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("observability server shutdown failed", slog.String("error", shutdownErr.Error()))
	}

	// Pending fire increments run on their own timeout.
	fires.Wait()
	stopBackground()
	background.Wait()

	log.Info("shutdown complete")
	return err
}

func listen(srv *http.Server, cfg config.APIServerConfig) error {
	var err error
	if cfg.TLSEnabled {
		err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func knowledgeOptions(cfg config.KnowledgeConfig) knowledge.Options {
	return knowledge.Options{
		ExistsCapacity: cfg.Capacity,
		CountCapacity:  cfg.Capacity,
		SumCapacity:    cfg.Capacity,
		TTL:            cfg.TTL,
	}
}
