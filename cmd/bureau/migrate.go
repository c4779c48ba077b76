package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger := cliLogger()
		store, err := initStore(cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating %s store: %w", store.Driver(), err)
		}
		fmt.Printf("%s schema is up to date\n", store.Driver())
		return nil
	},
}
