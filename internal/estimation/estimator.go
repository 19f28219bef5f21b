package estimation

import (
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/internal/finance"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// DefaultTopN is the number of comparables kept for the medians.
const DefaultTopN = 30

// Estimator turns a candidate set into an EstimationResult. It holds no
// per-request state and is safe for concurrent use.
type Estimator struct {
	scorer   *Scorer
	adjuster *finance.Adjuster
	topN     int
	logger   *logrus.Logger
}

func NewEstimator(scorer *Scorer, adjuster *finance.Adjuster, topN int, logger *logrus.Logger) *Estimator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Estimator{scorer: scorer, adjuster: adjuster, topN: topN, logger: logger}
}

// WithSearch returns an estimator whose scorer decays against the given
// search bounds.
func (e *Estimator) WithSearch(radiusKm float64, yearsBack int) *Estimator {
	c := *e
	c.scorer = e.scorer.WithSearch(radiusKm, yearsBack)
	return &c
}

func (e *Estimator) Scorer() *Scorer {
	return e.scorer
}

func (e *Estimator) Adjuster() *finance.Adjuster {
	return e.adjuster
}

// Estimate adjusts and scores every comparable, keeps the top N and
// computes medians over them. An empty input is reported through
// Success=false, not as an error.
func (e *Estimator) Estimate(target models.TargetProperty, comparables []models.Transaction) (models.EstimationResult, error) {
	if err := target.Validate(); err != nil {
		return models.EstimationResult{}, err
	}

	result := models.EstimationResult{
		Target:                 target,
		MedianPrice:            decimal.Zero,
		MedianPricePerM2:       decimal.Zero,
		MedianAdjustedPrice:    decimal.Zero,
		EstimatedValue:         decimal.Zero,
		EstimatedValueAdjusted: decimal.Zero,
		EstimatedValueWeighted: decimal.Zero,
		ComparablesWithScores:  []models.ScoredComparable{},
	}
	if len(comparables) == 0 {
		return result, nil
	}

	scored := make([]models.ScoredComparable, 0, len(comparables))
	for _, tx := range comparables {
		if tx.BuiltSurfaceM2 < 0 || !models.IsFinite(tx.BuiltSurfaceM2) {
			return models.EstimationResult{}, &models.ValidationError{Field: "built_surface_m2", Reason: "must be a finite, non-negative number"}
		}
		if tx.DistanceKm < 0 || !models.IsFinite(tx.DistanceKm) {
			return models.EstimationResult{}, &models.ValidationError{Field: "distance_km", Reason: "must be a finite, non-negative number"}
		}
		adjusted, err := e.adjuster.Adjust(tx.SalePrice, tx.SaleDate)
		if err != nil {
			return models.EstimationResult{}, err
		}
		score, breakdown := e.scorer.Score(target, tx)

		sc := models.ScoredComparable{
			Transaction:     tx,
			SimilarityScore: score,
			AdjustedPrice:   adjusted,
			PricePerM2:      decimal.Zero,
			RoomCount:       RoomCount(tx),
			Breakdown:       breakdown,
		}
		if tx.BuiltSurfaceM2 > 0 {
			sc.PricePerM2 = tx.SalePrice.Div(decimal.NewFromFloat(tx.BuiltSurfaceM2))
		}
		scored = append(scored, sc)
	}

	selected := SelectTop(scored, e.topN)

	prices := make([]decimal.Decimal, 0, len(selected))
	adjustedPrices := make([]decimal.Decimal, 0, len(selected))
	perM2 := make([]decimal.Decimal, 0, len(selected))
	adjustedPerM2 := make([]decimal.Decimal, 0, len(selected))
	for _, sc := range selected {
		prices = append(prices, sc.SalePrice)
		adjustedPrices = append(adjustedPrices, sc.AdjustedPrice)
		if sc.BuiltSurfaceM2 > 0 {
			surface := decimal.NewFromFloat(sc.BuiltSurfaceM2)
			perM2 = append(perM2, sc.PricePerM2)
			adjustedPerM2 = append(adjustedPerM2, sc.AdjustedPrice.Div(surface))
		}
	}

	surface := decimal.NewFromFloat(target.SurfaceM2)
	weighting := decimal.NewFromFloat(target.EnvironmentFactor()).Mul(decimal.NewFromFloat(target.ConditionFactor()))

	result.Success = true
	result.MedianPrice = Median(prices)
	result.MedianAdjustedPrice = Median(adjustedPrices)
	result.MedianPricePerM2 = Median(perM2)
	result.EstimatedValue = result.MedianPricePerM2.Mul(surface).Round(2)
	result.EstimatedValueAdjusted = Median(adjustedPerM2).Mul(surface).Round(2)
	result.EstimatedValueWeighted = result.EstimatedValueAdjusted.Mul(weighting).Round(2)
	result.Stats = summarize(selected)
	result.ComparablesWithScores = selected

	e.logger.WithFields(logrus.Fields{
		"candidates":          len(comparables),
		"selected":            len(selected),
		"median_price":        result.MedianPrice.StringFixed(0),
		"median_price_per_m2": result.MedianPricePerM2.StringFixed(0),
		"estimated_value":     result.EstimatedValue.StringFixed(0),
	}).Info("Estimation computed")

	return result, nil
}

// Recompute estimates over a caller-chosen subset of earlier comparables.
func (e *Estimator) Recompute(target models.TargetProperty, subset []models.ScoredComparable) (models.EstimationResult, error) {
	transactions := make([]models.Transaction, 0, len(subset))
	for _, sc := range subset {
		transactions = append(transactions, sc.Transaction)
	}
	return e.Estimate(target, transactions)
}

// Median returns the statistical median; the mean of the two central values
// for an even count and zero for an empty slice.
func Median(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

func summarize(selected []models.ScoredComparable) models.EstimationStats {
	stats := models.EstimationStats{Count: len(selected)}
	if len(selected) == 0 {
		return stats
	}
	for _, sc := range selected {
		stats.MeanSurfaceM2 += sc.BuiltSurfaceM2
		stats.MeanDistanceKm += sc.DistanceKm
		stats.MeanScore += sc.SimilarityScore
	}
	n := float64(len(selected))
	stats.MeanSurfaceM2 /= n
	stats.MeanDistanceKm /= n
	stats.MeanScore /= n
	return stats
}
