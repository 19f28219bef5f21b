package main

import (
	"github.com/spf13/cobra"

	"github.com/jbcholat-Dev/Estimation-immo/internal/app"
	"github.com/jbcholat-Dev/Estimation-immo/internal/listings"
)

func listingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Search properties currently for sale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var q listings.Query
			q.City, _ = cmd.Flags().GetString("city")
			q.PostalCode, _ = cmd.Flags().GetString("postal-code")
			q.PropertyType, _ = cmd.Flags().GetString("type")
			q.PriceMin, _ = cmd.Flags().GetFloat64("price-min")
			q.PriceMax, _ = cmd.Flags().GetFloat64("price-max")
			q.RadiusKm, _ = cmd.Flags().GetFloat64("radius")

			return withApp(cmd, func(a *app.App) error {
				if !a.Listings.Enabled() {
					return listings.ErrClientDisabled
				}
				return printJSON(cmd.OutOrStdout(), a.Listings.Search(cmd.Context(), q))
			})
		},
	}

	cmd.Flags().String("city", "", "city name")
	cmd.Flags().String("postal-code", "", "postal code")
	cmd.Flags().String("type", "", "property type")
	cmd.Flags().Float64("price-min", 0, "minimum asking price")
	cmd.Flags().Float64("price-max", 0, "maximum asking price")
	cmd.Flags().Float64("radius", 0, "search radius in km")
	cmd.MarkFlagsOneRequired("city", "postal-code")

	return cmd
}

func geocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <address>",
		Short: "Resolve an address to coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				candidates, err := a.Service.ResolveAddress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), candidates)
			})
		},
	}
}
