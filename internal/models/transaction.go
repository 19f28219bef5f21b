package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomBreakdown holds the DVF per-type dwelling counts of a mutation. House
// and apartment buckets are disjoint; Units is the generic number of premises.
type RoomBreakdown struct {
	House1     *int `json:"house_1_room,omitempty"`
	House2     *int `json:"house_2_rooms,omitempty"`
	House3     *int `json:"house_3_rooms,omitempty"`
	House4     *int `json:"house_4_rooms,omitempty"`
	House5Plus *int `json:"house_5_plus_rooms,omitempty"`
	Apt1       *int `json:"apartment_1_room,omitempty"`
	Apt2       *int `json:"apartment_2_rooms,omitempty"`
	Apt3       *int `json:"apartment_3_rooms,omitempty"`
	Apt4       *int `json:"apartment_4_rooms,omitempty"`
	Apt5Plus   *int `json:"apartment_5_plus_rooms,omitempty"`
	Units      *int `json:"units,omitempty"`
}

// Transaction is a historical sale retrieved as a comparable.
type Transaction struct {
	ID             string          `json:"id"`
	SaleDate       time.Time       `json:"sale_date"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	BuiltSurfaceM2 float64         `json:"built_surface_m2"`
	TypeLabel      string          `json:"property_type_label"`
	Rooms          RoomBreakdown   `json:"room_breakdown"`
	EnergyRating   EnergyRating    `json:"energy_rating,omitempty"`
	Address        string          `json:"address,omitempty"`
	PostalCode     string          `json:"postal_code,omitempty"`
	Commune        string          `json:"commune,omitempty"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	DistanceKm     float64         `json:"distance_km"`
}

// ScoreBreakdown holds the per-factor sub-scores, each within [0, 1].
type ScoreBreakdown struct {
	Surface  float64 `json:"surface"`
	Rooms    float64 `json:"rooms"`
	Energy   float64 `json:"energy"`
	Distance float64 `json:"distance"`
	Recency  float64 `json:"recency"`
	Type     float64 `json:"type"`
}

// ScoredComparable is a transaction with its similarity and adjusted price.
type ScoredComparable struct {
	Transaction
	SimilarityScore float64         `json:"similarity_score"`
	AdjustedPrice   decimal.Decimal `json:"adjusted_price"`
	PricePerM2      decimal.Decimal `json:"price_per_m2"`
	RoomCount       int             `json:"room_count"`
	Breakdown       ScoreBreakdown  `json:"score_breakdown"`
}

// EstimationStats summarizes the selected comparables.
type EstimationStats struct {
	Count          int     `json:"count"`
	MeanSurfaceM2  float64 `json:"mean_surface_m2"`
	MeanDistanceKm float64 `json:"mean_distance_km"`
	MeanScore      float64 `json:"mean_score"`
}

// EstimationResult is the aggregated valuation for a target property.
// ComparablesWithScores is sorted by score descending, distance ascending.
type EstimationResult struct {
	Success                bool               `json:"success"`
	MedianPrice            decimal.Decimal    `json:"median_price"`
	MedianPricePerM2       decimal.Decimal    `json:"median_price_per_m2"`
	MedianAdjustedPrice    decimal.Decimal    `json:"median_adjusted_price"`
	EstimatedValue         decimal.Decimal    `json:"estimated_value"`
	EstimatedValueAdjusted decimal.Decimal    `json:"estimated_value_adjusted"`
	EstimatedValueWeighted decimal.Decimal    `json:"estimated_value_weighted"`
	Stats                  EstimationStats    `json:"stats"`
	ComparablesWithScores  []ScoredComparable `json:"comparables_with_scores"`
	Target                 TargetProperty     `json:"target"`
}
