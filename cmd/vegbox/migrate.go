package main

import (
	"fmt"

	"github.com/safar/vegbox/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{database.MigrateUp, database.MigrateDown},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(cmd.Context(), db, args[0])
	if err != nil {
		return err
	}

	for _, name := range applied {
		log.WithField("migration", name).Info("applied migration")
	}
	log.WithField("direction", args[0]).WithField("count", len(applied)).Info("migrations completed")
	return nil
}
