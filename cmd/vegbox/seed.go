package main

import (
	"fmt"

	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/store"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo products into an empty catalog",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if _, err := database.Migrate(cmd.Context(), db, database.MigrateUp); err != nil {
		return err
	}

	inserted, err := store.SeedDemoProducts(cmd.Context(), db)
	if err != nil {
		return err
	}
	log.WithField("inserted", inserted).Info("seeded demo products")
	return nil
}
