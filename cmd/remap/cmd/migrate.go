package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homemade/remap/internal/config"
	"github.com/homemade/remap/internal/rulestore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the rule store schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	url := dbURL
	if url == "" {
		cfg, err := config.LoadFile(configFile, config.CompositeEnvVar{Parent: secretsEnvVar})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		url = cfg.Store.URL
	}
	if url == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := rulestore.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	store, err := rulestore.New(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "rule store schema is up to date")
	return nil
}
