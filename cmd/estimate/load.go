package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbcholat-Dev/Estimation-immo/internal/app"
	"github.com/jbcholat-Dev/Estimation-immo/internal/database"
	"github.com/jbcholat-Dev/Estimation-immo/internal/ingest"
)

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <transactions.json>",
		Short: "Load a JSON array of transactions into the SQLite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open dataset: %w", err)
			}
			defer f.Close()

			return withApp(cmd, func(a *app.App) error {
				store, ok := a.Store.(*database.SQLiteStore)
				if !ok {
					return fmt.Errorf("load requires the sqlite driver")
				}

				cfg := a.Config.Ingest
				pipeline := ingest.NewPipeline(store, ingest.Config{
					BatchSize:   cfg.BatchSize,
					Workers:     cfg.Workers,
					MaxAttempts: cfg.MaxAttempts,
					RetryDelay:  cfg.RetryDelay,
				}, a.Logger)
				pipeline.Start(cmd.Context())

				read, readErr := ingest.ReadJSON(cmd.Context(), f, pipeline)
				stats := pipeline.Close()
				a.Logger.WithField("read", read).WithField("loaded", stats.Loaded).Info("Dataset load finished")

				if readErr != nil {
					return readErr
				}
				if stats.FailedBatch > 0 {
					return fmt.Errorf("%d of %d batches failed (%d records)", stats.FailedBatch, stats.Batches, stats.FailedRecord)
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}
