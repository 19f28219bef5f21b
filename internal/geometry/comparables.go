package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

const circleSegments = 64

// ComparablesFeatureCollection builds the map layer for an estimation: the
// target, the search radius and one point per scored comparable.
func ComparablesFeatureCollection(target models.TargetProperty, radiusKm float64, comparables []models.ScoredComparable) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	center := LatLon{Latitude: target.Latitude, Longitude: target.Longitude}

	targetFeature := geojson.NewFeature(center.Point())
	targetFeature.Properties = geojson.Properties{
		"kind":          "target",
		"address":       target.Address,
		"surface_m2":    target.SurfaceM2,
		"property_type": target.PropertyType.String(),
	}
	fc.Append(targetFeature)

	if radiusKm > 0 {
		radius := geojson.NewFeature(orb.Polygon{Circle(center, radiusKm, circleSegments)})
		radius.Properties = geojson.Properties{
			"kind":      "radius",
			"radius_km": radiusKm,
		}
		fc.Append(radius)
	}

	for i, c := range comparables {
		f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
		f.ID = c.ID
		f.Properties = geojson.Properties{
			"kind":             "comparable",
			"rank":             i + 1,
			"address":          c.Address,
			"sale_date":        c.SaleDate.Format("2006-01-02"),
			"sale_price":       c.SalePrice.InexactFloat64(),
			"adjusted_price":   c.AdjustedPrice.InexactFloat64(),
			"price_per_m2":     c.PricePerM2.InexactFloat64(),
			"surface_m2":       c.BuiltSurfaceM2,
			"distance_km":      c.DistanceKm,
			"similarity_score": c.SimilarityScore,
			"type_label":       c.TypeLabel,
		}
		fc.Append(f)
	}

	return fc
}
