package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homemade/remap/internal/config"
	"github.com/homemade/remap/internal/rulesource"
	"github.com/homemade/remap/internal/rulestore"
	"github.com/homemade/remap/internal/server"
	"github.com/homemade/remap/mapping"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mapping HTTP service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("address", "", "listen address, overrides server.address")
	serveCmd.Flags().String("rules", "", "rule set directory, overrides rules.dir")
	serveCmd.Flags().Bool("watch", false, "reload when the rule directory changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configFile, config.CompositeEnvVar{Parent: secretsEnvVar})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("address") {
		cfg.Server.Address, _ = cmd.Flags().GetString("address")
	}
	if cmd.Flags().Changed("rules") {
		cfg.Rules.Dir, _ = cmd.Flags().GetString("rules")
	}
	if cmd.Flags().Changed("watch") {
		cfg.Rules.Watch, _ = cmd.Flags().GetBool("watch")
	}
	if dbURL != "" {
		cfg.Store.URL = dbURL
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		format = logFormat
	}
	logger, err := newLogger(os.Stderr, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	readTimeout, writeTimeout, shutdownTimeout, err := cfg.Server.Timeouts()
	if err != nil {
		return err
	}
	interval, err := cfg.Rules.Interval()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var loaders rulesource.MultiLoader
	if cfg.Rules.Dir != "" {
		loaders = append(loaders, rulesource.NewDirLoader(cfg.Rules.Dir, logger))
	}
	if cfg.Rules.Remote.URL != "" {
		loaders = append(loaders, rulesource.HTTPLoader{BaseURL: cfg.Rules.Remote.URL, Token: cfg.Rules.Remote.Token, Logger: logger})
	}

	var store *rulestore.Store
	if cfg.Store.URL != "" {
		database, err := rulestore.Open(cfg.Store.URL)
		if err != nil {
			return fmt.Errorf("failed to open rule store: %w", err)
		}
		defer database.Close()
		if store, err = rulestore.New(database, rulestore.WithLogger(logger)); err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		loaders = append(loaders, store)
	}

	registry := mapping.NewRegistry()
	executor := mapping.NewExecutor(registry, mapping.WithLogger(logger))
	metrics := server.NewMetrics()
	refresher := rulesource.NewRefresher(loaders, registry,
		rulesource.WithInterval(interval),
		rulesource.WithLogger(logger),
		rulesource.WithReloadHook(func(rulesource.ReloadResult) {
			metrics.SetRuleSets(registry.Len())
		}),
	)

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithReloader(refresher),
	}
	if store != nil {
		opts = append(opts, server.WithStore(store))
	}
	srv := server.New(registry, executor, opts...)

	go func() {
		if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("refresher stopped", slog.String("error", err.Error()))
		}
	}()
	if cfg.Rules.Watch && cfg.Rules.Dir != "" {
		go func() {
			if err := rulesource.Watch(ctx, cfg.Rules.Dir, refresher, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("rule watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	return srv.Serve(ctx, cfg.Server.Address, readTimeout, writeTimeout, shutdownTimeout)
}
