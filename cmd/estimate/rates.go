package main

import (
	"github.com/spf13/cobra"

	"github.com/jbcholat-Dev/Estimation-immo/config"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the mortgage rate table used for price adjustment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			table, err := config.LoadRateTable(cfg.Finance.RatesFile)
			if err != nil {
				return err
			}

			if export, _ := cmd.Flags().GetString("export"); export != "" {
				return config.SaveRateTable(export, table)
			}
			return printJSON(cmd.OutOrStdout(), table)
		},
	}
	cmd.Flags().String("export", "", "write the table to this JSON file instead of printing it")
	return cmd
}
