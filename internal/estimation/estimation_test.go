package estimation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbcholat-Dev/Estimation-immo/internal/finance"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

var testNow = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func testTarget() models.TargetProperty {
	return models.TargetProperty{
		Latitude:     48.8566,
		Longitude:    2.3522,
		SurfaceM2:    100,
		PropertyType: models.PropertyTypeHouse,
		Rooms:        4,
		EnergyRating: "D",
	}
}

func testScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights(), 3, 3)
	require.NoError(t, err)
	return s.WithClock(func() time.Time { return testNow })
}

func testEstimator(t *testing.T) *Estimator {
	t.Helper()
	adjuster, err := finance.NewAdjuster(finance.DefaultRateTable())
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewEstimator(testScorer(t), adjuster, 30, logger)
}

func twin() models.Transaction {
	return models.Transaction{
		ID:             "twin",
		SaleDate:       testNow,
		SalePrice:      decimal.NewFromInt(300000),
		BuiltSurfaceM2: 100,
		TypeLabel:      "UNE MAISON",
		Rooms:          models.RoomBreakdown{House4: intPtr(1)},
		EnergyRating:   "D",
	}
}

func sale(id string, price int64, surface, distance float64) models.Transaction {
	tx := twin()
	tx.ID = id
	tx.SalePrice = decimal.NewFromInt(price)
	tx.BuiltSurfaceM2 = surface
	tx.DistanceKm = distance
	tx.SaleDate = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	return tx
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	assert.NoError(t, w.Validate())

	w.Type = 0.5
	assert.Error(t, w.Validate())
	_, err := NewScorer(w, 3, 3)
	assert.Error(t, err)
}

func TestScoreIdenticalCandidate(t *testing.T) {
	score, b := testScorer(t).Score(testTarget(), twin())

	assert.InDelta(t, 100, score, 1e-9)
	assert.Equal(t, models.ScoreBreakdown{Surface: 1, Rooms: 1, Energy: 1, Distance: 1, Recency: 1, Type: 1}, b)
}

func TestScoreMissingAttributes(t *testing.T) {
	tx := twin()
	tx.Rooms = models.RoomBreakdown{}
	tx.EnergyRating = ""

	score, b := testScorer(t).Score(testTarget(), tx)

	assert.Zero(t, b.Rooms)
	assert.Zero(t, b.Energy)
	assert.InDelta(t, 70, score, 1e-9)
}

func TestScoreBounds(t *testing.T) {
	scorer := testScorer(t)
	candidates := []models.Transaction{
		twin(),
		sale("far", 100000, 40, 12),
		sale("huge", 900000, 400, 0),
		sale("empty", 1, 0, 0),
		{ID: "bare"},
		{ID: "future", SaleDate: testNow.AddDate(1, 0, 0), TypeLabel: "UN APPARTEMENT", EnergyRating: "G"},
		{ID: "ancient", SaleDate: testNow.AddDate(-20, 0, 0), TypeLabel: "maison", DistanceKm: 2.999},
	}

	for _, tx := range candidates {
		t.Run(tx.ID, func(t *testing.T) {
			score, b := scorer.Score(testTarget(), tx)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
			for _, sub := range []float64{b.Surface, b.Rooms, b.Energy, b.Distance, b.Recency, b.Type} {
				assert.GreaterOrEqual(t, sub, 0.0)
				assert.LessOrEqual(t, sub, 1.0)
			}
		})
	}
}

func TestSurfaceSubScoreMonotonic(t *testing.T) {
	scorer := testScorer(t)
	target := testTarget()

	previous := -1.0
	for _, surface := range []float64{250, 200, 160, 130, 110, 101, 100} {
		tx := twin()
		tx.BuiltSurfaceM2 = surface
		b := scorer.Breakdown(target, tx)
		assert.GreaterOrEqual(t, b.Surface, previous, "surface %v", surface)
		previous = b.Surface
	}

	// Smaller candidates decay symmetrically
	tx := twin()
	tx.BuiltSurfaceM2 = 80
	assert.InDelta(t, 0.8, scorer.Breakdown(target, tx).Surface, 1e-9)
}

func TestDecayFactors(t *testing.T) {
	scorer := testScorer(t)
	target := testTarget()

	tests := []struct {
		name   string
		mutate func(tx *models.Transaction)
		field  func(b models.ScoreBreakdown) float64
		want   float64
	}{
		{"half radius", func(tx *models.Transaction) { tx.DistanceKm = 1.5 }, func(b models.ScoreBreakdown) float64 { return b.Distance }, 0.5},
		{"at radius", func(tx *models.Transaction) { tx.DistanceKm = 3 }, func(b models.ScoreBreakdown) float64 { return b.Distance }, 0},
		{"beyond radius", func(tx *models.Transaction) { tx.DistanceKm = 4 }, func(b models.ScoreBreakdown) float64 { return b.Distance }, 0},
		{"two letters apart", func(tx *models.Transaction) { tx.EnergyRating = "B" }, func(b models.ScoreBreakdown) float64 { return b.Energy }, 1 - 2.0/6},
		{"three letters apart", func(tx *models.Transaction) { tx.EnergyRating = "A" }, func(b models.ScoreBreakdown) float64 { return b.Energy }, 0.5},
		{"two rooms", func(tx *models.Transaction) { tx.Rooms = models.RoomBreakdown{House2: intPtr(1)} }, func(b models.ScoreBreakdown) float64 { return b.Rooms }, 0.5},
		{"eighteen months old", func(tx *models.Transaction) { tx.SaleDate = testNow.AddDate(0, -18, 0) }, func(b models.ScoreBreakdown) float64 { return b.Recency }, 0.5},
		{"older than window", func(tx *models.Transaction) { tx.SaleDate = testNow.AddDate(-4, 0, 0) }, func(b models.ScoreBreakdown) float64 { return b.Recency }, 0},
		{"apartment against house", func(tx *models.Transaction) { tx.TypeLabel = "UN APPARTEMENT" }, func(b models.ScoreBreakdown) float64 { return b.Type }, 0},
		{"unknown label", func(tx *models.Transaction) { tx.TypeLabel = "DEPENDANCE" }, func(b models.ScoreBreakdown) float64 { return b.Type }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := twin()
			tt.mutate(&tx)
			assert.InDelta(t, tt.want, tt.field(scorer.Breakdown(target, tx)), 0.01)
		})
	}
}

func TestWithSearchChangesDecayReference(t *testing.T) {
	tx := twin()
	tx.DistanceKm = 1.5

	wide := testScorer(t).WithSearch(6, 0)
	assert.InDelta(t, 0.75, wide.Breakdown(testTarget(), tx).Distance, 1e-9)
	assert.Equal(t, 3, wide.YearsBack)
}

func TestTypeCompatibility(t *testing.T) {
	tests := []struct {
		target, candidate models.PropertyType
		want              float64
	}{
		{models.PropertyTypeHouse, models.PropertyTypeHouse, 1},
		{models.PropertyTypeApartment, models.PropertyTypeApartment, 1},
		{models.PropertyTypeStudio, models.PropertyTypeApartment, 0.75},
		{models.PropertyTypeDuplex, models.PropertyTypeApartment, 0.75},
		{models.PropertyTypeDuplex, models.PropertyTypeHouse, 0.5},
		{models.PropertyTypeStudio, models.PropertyTypeDuplex, 0.5},
		{models.PropertyTypeHouse, models.PropertyTypeApartment, 0},
		{models.PropertyTypeHouse, models.PropertyTypeStudio, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.target)+"/"+string(tt.candidate), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeCompatibility(tt.target, tt.candidate))
			assert.Equal(t, tt.want, TypeCompatibility(tt.candidate, tt.target))
		})
	}
}

func TestRoomCount(t *testing.T) {
	tests := []struct {
		name  string
		label string
		rooms models.RoomBreakdown
		want  int
	}{
		{"highest house bucket", "UNE MAISON", models.RoomBreakdown{House2: intPtr(1), House5Plus: intPtr(1)}, 5},
		{"zero bucket skipped", "UNE MAISON", models.RoomBreakdown{House5Plus: intPtr(0), House3: intPtr(2)}, 3},
		{"apartment buckets", "UN APPARTEMENT", models.RoomBreakdown{Apt2: intPtr(1)}, 2},
		{"other family ignored", "UN APPARTEMENT", models.RoomBreakdown{House4: intPtr(1), Units: intPtr(1)}, 1},
		{"unit fallback", "UNE MAISON", models.RoomBreakdown{Units: intPtr(3)}, 3},
		{"unknown label uses units", "LOCAL", models.RoomBreakdown{Apt3: intPtr(1), Units: intPtr(2)}, 2},
		{"nothing populated", "UNE MAISON", models.RoomBreakdown{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomCount(models.Transaction{TypeLabel: tt.label, Rooms: tt.rooms}))
		})
	}
}

func TestSelectTopOrdering(t *testing.T) {
	older := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	scored := []models.ScoredComparable{
		{Transaction: models.Transaction{ID: "a", DistanceKm: 2, SaleDate: newer}, SimilarityScore: 80},
		{Transaction: models.Transaction{ID: "b", DistanceKm: 1, SaleDate: older}, SimilarityScore: 80},
		{Transaction: models.Transaction{ID: "c", DistanceKm: 1, SaleDate: newer}, SimilarityScore: 80},
		{Transaction: models.Transaction{ID: "d", DistanceKm: 0.1, SaleDate: newer}, SimilarityScore: 60},
		{Transaction: models.Transaction{ID: "e", DistanceKm: 2.5, SaleDate: newer}, SimilarityScore: 95},
	}

	got := SelectTop(scored, 0)
	order := make([]string, 0, len(got))
	for _, sc := range got {
		order = append(order, sc.ID)
	}
	assert.Equal(t, []string{"e", "c", "b", "a", "d"}, order)
	assert.Equal(t, "a", scored[0].ID, "input is left untouched")

	assert.Len(t, SelectTop(scored, 2), 2)
	assert.Len(t, SelectTop(scored, 10), 5)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   int64
	}{
		{"odd count", []int64{300000, 100000, 200000}, 200000},
		{"even count", []int64{200000, 100000}, 150000},
		{"single", []int64{42}, 42},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]decimal.Decimal, 0, len(tt.values))
			for _, v := range tt.values {
				values = append(values, decimal.NewFromInt(v))
			}
			assert.True(t, decimal.NewFromInt(tt.want).Equal(Median(values)), Median(values).String())
		})
	}
}

func TestEstimateMedians(t *testing.T) {
	e := testEstimator(t)

	odd, err := e.Estimate(testTarget(), []models.Transaction{
		sale("a", 100000, 100, 0.5),
		sale("b", 200000, 100, 1.0),
		sale("c", 300000, 100, 1.5),
	})
	require.NoError(t, err)
	assert.True(t, odd.Success)
	assert.True(t, decimal.NewFromInt(200000).Equal(odd.MedianPrice), odd.MedianPrice.String())
	assert.True(t, decimal.NewFromInt(2000).Equal(odd.MedianPricePerM2), odd.MedianPricePerM2.String())
	assert.True(t, decimal.NewFromInt(200000).Equal(odd.EstimatedValue), odd.EstimatedValue.String())

	// 2025 sales carry the current rate so adjustment is neutral
	assert.True(t, odd.MedianPrice.Equal(odd.MedianAdjustedPrice))
	assert.True(t, odd.EstimatedValue.Equal(odd.EstimatedValueAdjusted))

	even, err := e.Estimate(testTarget(), []models.Transaction{
		sale("a", 100000, 100, 0.5),
		sale("b", 200000, 100, 1.0),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150000).Equal(even.MedianPrice), even.MedianPrice.String())
}

func TestEstimateEmpty(t *testing.T) {
	result, err := testEstimator(t).Estimate(testTarget(), nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotNil(t, result.ComparablesWithScores)
	assert.Empty(t, result.ComparablesWithScores)
	assert.Equal(t, testTarget(), result.Target)
}

func TestEstimateRejectsInvalidInput(t *testing.T) {
	e := testEstimator(t)

	target := testTarget()
	target.SurfaceM2 = -10
	_, err := e.Estimate(target, []models.Transaction{twin()})
	var validationErr *models.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "surface_m2", validationErr.Field)

	bad := twin()
	bad.SalePrice = decimal.NewFromInt(-1)
	_, err = e.Estimate(testTarget(), []models.Transaction{bad})
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "sale_price", validationErr.Field)
}

func TestEstimateRejectsNonFiniteTarget(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.TargetProperty)
		field  string
	}{
		{"NaN latitude", func(p *models.TargetProperty) { p.Latitude = math.NaN() }, "latitude"},
		{"infinite longitude", func(p *models.TargetProperty) { p.Longitude = math.Inf(1) }, "longitude"},
		{"NaN surface", func(p *models.TargetProperty) { p.SurfaceM2 = math.NaN() }, "surface_m2"},
		{"infinite surface", func(p *models.TargetProperty) { p.SurfaceM2 = math.Inf(1) }, "surface_m2"},
		{"NaN environment", func(p *models.TargetProperty) { p.EnvironmentCoefficient = math.NaN() }, "environment_coefficient"},
		{"infinite condition", func(p *models.TargetProperty) { p.ConditionCoefficient = math.Inf(1) }, "condition_coefficient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := testTarget()
			tt.mutate(&target)

			var err error
			assert.NotPanics(t, func() {
				_, err = testEstimator(t).Estimate(target, []models.Transaction{twin()})
			})
			var validationErr *models.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestEstimateRejectsInvalidComparable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tx *models.Transaction)
		field  string
	}{
		{"negative distance", func(tx *models.Transaction) { tx.DistanceKm = -5 }, "distance_km"},
		{"NaN distance", func(tx *models.Transaction) { tx.DistanceKm = math.NaN() }, "distance_km"},
		{"infinite distance", func(tx *models.Transaction) { tx.DistanceKm = math.Inf(1) }, "distance_km"},
		{"infinite surface", func(tx *models.Transaction) { tx.BuiltSurfaceM2 = math.Inf(1) }, "built_surface_m2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := twin()
			tt.mutate(&tx)

			result, err := testEstimator(t).Estimate(testTarget(), []models.Transaction{tx})
			var validationErr *models.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
			assert.False(t, result.Success)
		})
	}
}

func TestEstimateOrderingAndAdjustment(t *testing.T) {
	e := testEstimator(t)

	old := sale("old", 200000, 100, 0.5)
	old.SaleDate = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

	result, err := e.Estimate(testTarget(), []models.Transaction{
		sale("far", 250000, 140, 2.5),
		old,
		twin(),
	})
	require.NoError(t, err)
	require.Len(t, result.ComparablesWithScores, 3)

	scores := result.ComparablesWithScores
	assert.Equal(t, "twin", scores[0].ID)
	for i := 1; i < len(scores); i++ {
		assert.GreaterOrEqual(t, scores[i-1].SimilarityScore, scores[i].SimilarityScore)
	}

	for _, sc := range scores {
		if sc.ID == "old" {
			// 2023 rate 3.00 against 3.50 today: coefficient 0.95
			assert.True(t, decimal.NewFromInt(190000).Equal(sc.AdjustedPrice), sc.AdjustedPrice.String())
			assert.Equal(t, 4, sc.RoomCount)
			assert.True(t, decimal.NewFromInt(2000).Equal(sc.PricePerM2))
		}
	}
	assert.Equal(t, 3, result.Stats.Count)
	assert.InDelta(t, (140.0+100+100)/3, result.Stats.MeanSurfaceM2, 1e-9)
}

func TestEstimateTopNTruncation(t *testing.T) {
	adjuster, err := finance.NewAdjuster(finance.DefaultRateTable())
	require.NoError(t, err)
	e := NewEstimator(testScorer(t), adjuster, 2, nil)

	result, err := e.Estimate(testTarget(), []models.Transaction{
		sale("a", 100000, 100, 0.1),
		sale("b", 200000, 100, 0.2),
		sale("c", 900000, 100, 2.9),
	})
	require.NoError(t, err)
	require.Len(t, result.ComparablesWithScores, 2)
	assert.True(t, decimal.NewFromInt(150000).Equal(result.MedianPrice), result.MedianPrice.String())
}

func TestEstimateWeightedValue(t *testing.T) {
	target := testTarget()
	target.EnvironmentCoefficient = 1.1
	target.ConditionCoefficient = 0.9

	result, err := testEstimator(t).Estimate(target, []models.Transaction{sale("a", 300000, 100, 0.5)})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(300000).Equal(result.EstimatedValueAdjusted))
	assert.True(t, decimal.NewFromInt(297000).Equal(result.EstimatedValueWeighted), result.EstimatedValueWeighted.String())
}

func TestEstimateZeroSurfaceExcludedFromPerM2(t *testing.T) {
	result, err := testEstimator(t).Estimate(testTarget(), []models.Transaction{
		sale("a", 200000, 100, 0.5),
		sale("no-surface", 900000, 0, 0.5),
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(2000).Equal(result.MedianPricePerM2), result.MedianPricePerM2.String())
	assert.True(t, decimal.NewFromInt(550000).Equal(result.MedianPrice), result.MedianPrice.String())
}

func TestEstimateDeterministic(t *testing.T) {
	e := testEstimator(t)
	input := []models.Transaction{
		sale("a", 100000, 90, 0.5),
		sale("b", 200000, 110, 0.5),
		sale("c", 300000, 120, 1.5),
		twin(),
	}

	first, err := e.Estimate(testTarget(), input)
	require.NoError(t, err)
	second, err := e.Estimate(testTarget(), input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecomputeAndFilter(t *testing.T) {
	e := testEstimator(t)

	full, err := e.Estimate(testTarget(), []models.Transaction{
		sale("a", 100000, 100, 0.5),
		sale("b", 200000, 100, 1.0),
		sale("c", 300000, 100, 2.8),
	})
	require.NoError(t, err)

	near := e.FilterComparables(full.ComparablesWithScores, Filter{MaxDistanceKm: 1.2})
	require.Len(t, near, 2)

	result, err := e.Recompute(testTarget(), near)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150000).Equal(result.MedianPrice), result.MedianPrice.String())

	cheap := e.FilterComparables(full.ComparablesWithScores, Filter{PriceMax: decimal.NewFromInt(150000)})
	require.Len(t, cheap, 1)
	assert.Equal(t, "a", cheap[0].ID)

	assert.Len(t, e.FilterComparables(full.ComparablesWithScores, Filter{}), 3)
	assert.Empty(t, e.FilterComparables(full.ComparablesWithScores, Filter{MaxAgeMonths: 1}))
	assert.Empty(t, e.FilterComparables(full.ComparablesWithScores, Filter{MinScore: 101}))

	empty, err := e.Recompute(testTarget(), nil)
	require.NoError(t, err)
	assert.False(t, empty.Success)
}
