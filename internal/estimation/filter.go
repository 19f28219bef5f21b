package estimation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// Filter narrows a comparable table before recomputation. Zero fields do
// not filter.
type Filter struct {
	MinScore      float64         `json:"min_score"`
	MaxDistanceKm float64         `json:"max_distance_km"`
	PriceMin      decimal.Decimal `json:"price_min"`
	PriceMax      decimal.Decimal `json:"price_max"`
	MaxAgeMonths  int             `json:"max_age_months"`
}

// IsZero reports whether the filter keeps everything.
func (f Filter) IsZero() bool {
	return f.MinScore == 0 && f.MaxDistanceKm == 0 && f.PriceMin.IsZero() && f.PriceMax.IsZero() && f.MaxAgeMonths == 0
}

func (f Filter) keep(sc models.ScoredComparable, now time.Time) bool {
	switch {
	case sc.SimilarityScore < f.MinScore:
		return false
	case f.MaxDistanceKm > 0 && sc.DistanceKm > f.MaxDistanceKm:
		return false
	case f.PriceMin.IsPositive() && sc.SalePrice.LessThan(f.PriceMin):
		return false
	case f.PriceMax.IsPositive() && sc.SalePrice.GreaterThan(f.PriceMax):
		return false
	case f.MaxAgeMonths > 0 && AgeMonths(sc.SaleDate, now) > float64(f.MaxAgeMonths):
		return false
	}
	return true
}

// FilterComparables returns the comparables passing f, in their input order.
func (e *Estimator) FilterComparables(list []models.ScoredComparable, f Filter) []models.ScoredComparable {
	now := e.scorer.Now()
	out := make([]models.ScoredComparable, 0, len(list))
	for _, sc := range list {
		if f.keep(sc, now) {
			out = append(out, sc)
		}
	}
	return out
}
