package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbcholat-Dev/Estimation-immo/config"
	"github.com/jbcholat-Dev/Estimation-immo/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Comparable-sales property valuation",
	Long: `estimate values a residential property from recent nearby sales,
adjusting historical prices to today's borrowing conditions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(valuateCmd())
	rootCmd.AddCommand(listingsCmd())
	rootCmd.AddCommand(geocodeCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(ratesCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the --log-level override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// withApp builds the valuation pipeline for the duration of fn.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
