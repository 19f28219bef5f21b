package main

import (
	"github.com/spf13/cobra"

	"github.com/jbcholat-Dev/Estimation-immo/internal/app"
	"github.com/jbcholat-Dev/Estimation-immo/internal/database"
	"github.com/jbcholat-Dev/Estimation-immo/internal/listings"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

func valuateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "valuate",
		Short: "Estimate a property's value from comparable sales",
		Example: `  estimate valuate --lat 45.8992 --lon 6.1294 --surface 80 --type apartment --rooms 3 --dpe C
  estimate valuate --address "1 rue Royale, Annecy" --surface 120 --type maison --market`,
		RunE: runValuate,
	}

	cmd.Flags().Float64("lat", 0, "target latitude")
	cmd.Flags().Float64("lon", 0, "target longitude")
	cmd.Flags().String("address", "", "target address, geocoded when coordinates are omitted")
	cmd.Flags().Float64("surface", 0, "living surface in m²")
	cmd.Flags().String("type", "apartment", "property type (house, apartment, studio, duplex)")
	cmd.Flags().Int("rooms", 0, "number of main rooms")
	cmd.Flags().String("dpe", "", "energy rating A-G")
	cmd.Flags().Float64("environment", 1, "environment coefficient")
	cmd.Flags().Float64("condition", 1, "condition coefficient")
	cmd.Flags().Float64("radius", 0, "search radius in km (default from SEARCH_RADIUS_KM)")
	cmd.Flags().Int("years", 0, "years of history (default from SEARCH_YEARS_BACK)")
	cmd.Flags().Float64("tolerance", 0, "surface tolerance in percent (default from SEARCH_SURFACE_TOLERANCE_PCT)")
	cmd.Flags().Int("limit", 0, "maximum candidates retrieved (default from SEARCH_LIMIT)")
	cmd.Flags().Bool("market", false, "include current listings for --city/--postal-code")
	cmd.Flags().String("city", "", "city for the listings search")
	cmd.Flags().String("postal-code", "", "postal code for the listings search")
	_ = cmd.MarkFlagRequired("surface")
	_ = cmd.MarkFlagRequired("dpe")

	return cmd
}

func targetFromFlags(cmd *cobra.Command) (models.TargetProperty, error) {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	address, _ := cmd.Flags().GetString("address")
	surface, _ := cmd.Flags().GetFloat64("surface")
	typeName, _ := cmd.Flags().GetString("type")
	rooms, _ := cmd.Flags().GetInt("rooms")
	dpe, _ := cmd.Flags().GetString("dpe")
	environment, _ := cmd.Flags().GetFloat64("environment")
	condition, _ := cmd.Flags().GetFloat64("condition")

	propertyType, err := models.ParsePropertyType(typeName)
	if err != nil {
		return models.TargetProperty{}, err
	}
	var rating models.EnergyRating
	if dpe != "" {
		if rating, err = models.ParseEnergyRating(dpe); err != nil {
			return models.TargetProperty{}, err
		}
	}

	return models.TargetProperty{
		Address:                address,
		Latitude:               lat,
		Longitude:              lon,
		SurfaceM2:              surface,
		PropertyType:           propertyType,
		Rooms:                  rooms,
		EnergyRating:           rating,
		EnvironmentCoefficient: environment,
		ConditionCoefficient:   condition,
	}, nil
}

func searchFromFlags(cmd *cobra.Command) database.SearchParams {
	radius, _ := cmd.Flags().GetFloat64("radius")
	years, _ := cmd.Flags().GetInt("years")
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")
	limit, _ := cmd.Flags().GetInt("limit")

	return database.SearchParams{
		RadiusKm:            radius,
		YearsBack:           years,
		SurfaceTolerancePct: tolerance,
		Limit:               limit,
	}
}

func runValuate(cmd *cobra.Command, _ []string) error {
	target, err := targetFromFlags(cmd)
	if err != nil {
		return err
	}
	params := searchFromFlags(cmd)
	market, _ := cmd.Flags().GetBool("market")

	return withApp(cmd, func(a *app.App) error {
		if !market {
			result, err := a.Service.Valuate(cmd.Context(), target, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}

		city, _ := cmd.Flags().GetString("city")
		postalCode, _ := cmd.Flags().GetString("postal-code")
		report, err := a.Service.MarketReport(cmd.Context(), target, params, listings.Query{
			City:         city,
			PostalCode:   postalCode,
			PropertyType: target.PropertyType.String(),
			RadiusKm:     params.RadiusKm,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	})
}
