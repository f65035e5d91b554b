package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nurpe/minefleet-dispatch/internal/config"
	"github.com/nurpe/minefleet-dispatch/internal/db"
	"github.com/nurpe/minefleet-dispatch/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the submission audit tables",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}
