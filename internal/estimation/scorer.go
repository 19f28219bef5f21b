package estimation

import (
	"math"
	"sort"
	"time"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

const daysPerMonth = 365.25 / 12

// Scorer computes the 0-100 similarity between a target and a transaction.
// RadiusKm and YearsBack are the search bounds the distance and recency
// factors decay against.
type Scorer struct {
	Weights   Weights
	RadiusKm  float64
	YearsBack int
	now       func() time.Time
}

// NewScorer returns a scorer using the wall clock for transaction age.
func NewScorer(weights Weights, radiusKm float64, yearsBack int) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, &models.ValidationError{Field: "radius_km", Reason: "must be positive"}
	}
	if yearsBack < 1 {
		return nil, &models.ValidationError{Field: "years_back", Reason: "must be at least 1"}
	}
	return &Scorer{Weights: weights, RadiusKm: radiusKm, YearsBack: yearsBack, now: time.Now}, nil
}

// WithClock returns a copy of the scorer measuring age against now.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	c := *s
	c.now = now
	return &c
}

// WithSearch returns a copy of the scorer decaying against other bounds.
// Non-positive values keep the current ones.
func (s *Scorer) WithSearch(radiusKm float64, yearsBack int) *Scorer {
	c := *s
	if radiusKm > 0 {
		c.RadiusKm = radiusKm
	}
	if yearsBack > 0 {
		c.YearsBack = yearsBack
	}
	return &c
}

// Now returns the scorer's reference time.
func (s *Scorer) Now() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// linearDecay is 1 at gap 0 and reaches 0 once gap >= reference.
func linearDecay(gap, reference float64) float64 {
	if reference <= 0 || math.IsNaN(gap) {
		return 0
	}
	return 1 - math.Min(1, math.Abs(gap)/reference)
}

// AgeMonths returns the transaction age in months at now, never negative.
func AgeMonths(saleDate, now time.Time) float64 {
	days := now.Sub(saleDate).Hours() / 24
	if days < 0 {
		return 0
	}
	return days / daysPerMonth
}

// Breakdown returns the six sub-scores, each in [0, 1].
func (s *Scorer) Breakdown(target models.TargetProperty, candidate models.Transaction) models.ScoreBreakdown {
	var b models.ScoreBreakdown

	if target.SurfaceM2 > 0 && candidate.BuiltSurfaceM2 > 0 {
		b.Surface = linearDecay(target.SurfaceM2-candidate.BuiltSurfaceM2, target.SurfaceM2)
	}

	if rooms := RoomCount(candidate); target.Rooms > 0 && rooms > 0 {
		b.Rooms = linearDecay(float64(target.Rooms-rooms), float64(target.Rooms))
	}

	targetEnergy, okTarget := target.EnergyRating.Index()
	candidateEnergy, okCandidate := candidate.EnergyRating.Index()
	if okTarget && okCandidate {
		b.Energy = linearDecay(float64(targetEnergy-candidateEnergy), float64(models.MaxEnergyStep))
	}

	if candidate.DistanceKm >= 0 {
		b.Distance = linearDecay(candidate.DistanceKm, s.RadiusKm)
	}

	if !candidate.SaleDate.IsZero() {
		b.Recency = linearDecay(AgeMonths(candidate.SaleDate, s.Now()), float64(s.YearsBack*12))
	}

	if candidateType, ok := CandidateType(candidate.TypeLabel); ok {
		b.Type = TypeCompatibility(target.PropertyType, candidateType)
	}

	return b
}

// Score returns the weighted similarity in [0, 100] and its breakdown.
func (s *Scorer) Score(target models.TargetProperty, candidate models.Transaction) (float64, models.ScoreBreakdown) {
	b := s.Breakdown(target, candidate)
	w := s.Weights
	total := w.Surface*b.Surface +
		w.Rooms*b.Rooms +
		w.Energy*b.Energy +
		w.Distance*b.Distance +
		w.Recency*b.Recency +
		w.Type*b.Type
	return math.Max(0, math.Min(100, total*100)), b
}

// SelectTop sorts by score descending, then distance ascending, then most
// recent sale and ID, and keeps at most n entries. n <= 0 keeps everything.
func SelectTop(scored []models.ScoredComparable, n int) []models.ScoredComparable {
	out := make([]models.ScoredComparable, len(scored))
	copy(out, scored)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if !a.SaleDate.Equal(b.SaleDate) {
			return a.SaleDate.After(b.SaleDate)
		}
		return a.ID < b.ID
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
