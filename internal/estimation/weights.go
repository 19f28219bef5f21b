package estimation

import (
	"fmt"
	"math"
)

// Weights are the factor weights of the similarity score. They must sum to 1.
type Weights struct {
	Surface  float64 `json:"surface"`
	Rooms    float64 `json:"rooms"`
	Energy   float64 `json:"energy"`
	Distance float64 `json:"distance"`
	Recency  float64 `json:"recency"`
	Type     float64 `json:"type"`
}

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{
		Surface:  0.25,
		Rooms:    0.15,
		Energy:   0.15,
		Distance: 0.20,
		Recency:  0.10,
		Type:     0.15,
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Surface + w.Rooms + w.Energy + w.Distance + w.Recency + w.Type
}

// Validate checks every weight is non-negative and the total is 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Surface, w.Rooms, w.Energy, w.Distance, w.Recency, w.Type} {
		if v < 0 {
			return fmt.Errorf("negative weight %v", v)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("weights sum to %v, want 1", w.Sum())
	}
	return nil
}
