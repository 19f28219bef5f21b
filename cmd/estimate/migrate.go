package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbcholat-Dev/Estimation-immo/config"
	"github.com/jbcholat-Dev/Estimation-immo/internal/app"
	"github.com/jbcholat-Dev/Estimation-immo/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the valuation schema on a DVF+ PostGIS database",
		Long: `Apply the embedded migrations that add the spatial index and the
comparable_mutations view on top of an imported DVF+ database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostGIS {
				return fmt.Errorf("migrate requires DB_DRIVER=%s", config.DriverPostGIS)
			}
			logger := app.NewLogger(cfg.LogLevel)
			logger.SetOutput(os.Stderr)

			return database.Migrate(cmd.Context(), cfg.Database.URL, logger)
		},
	}
}
