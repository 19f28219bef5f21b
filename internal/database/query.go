package database

import (
	"time"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// Canonical DVF type labels. Studios and duplexes are recorded as
// apartment mutations.
const (
	LabelHouse     = "MAISON"
	LabelApartment = "APPARTEMENT"
)

// CanonicalLabel returns the DVF label pattern for a property type.
func CanonicalLabel(t models.PropertyType) string {
	if t == models.PropertyTypeHouse {
		return LabelHouse
	}
	return LabelApartment
}

// SearchParams are the user-tunable search bounds around a target.
type SearchParams struct {
	RadiusKm            float64 `json:"radius_km"`
	YearsBack           int     `json:"years_back"`
	SurfaceTolerancePct float64 `json:"surface_tolerance_pct"`
	Limit               int     `json:"limit"`
}

// WithDefaults fills zero fields from defaults.
func (p SearchParams) WithDefaults(defaults SearchParams) SearchParams {
	if p.RadiusKm == 0 {
		p.RadiusKm = defaults.RadiusKm
	}
	if p.YearsBack == 0 {
		p.YearsBack = defaults.YearsBack
	}
	if p.SurfaceTolerancePct == 0 {
		p.SurfaceTolerancePct = defaults.SurfaceTolerancePct
	}
	if p.Limit == 0 {
		p.Limit = defaults.Limit
	}
	return p
}

// CandidateQuery is the bounded spatial and attribute filter sent to a store.
type CandidateQuery struct {
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	PropertyType models.PropertyType `json:"property_type"`
	SurfaceMin   float64             `json:"surface_min"`
	SurfaceMax   float64             `json:"surface_max"`
	RadiusKm     float64             `json:"radius_km"`
	YearsBack    int                 `json:"years_back"`
	Limit        int                 `json:"limit"`
}

// NewCandidateQuery derives the surface band [s*(1-t), s*(1+t)] from the
// target surface and the tolerance percentage.
func NewCandidateQuery(target models.TargetProperty, params SearchParams) CandidateQuery {
	tolerance := params.SurfaceTolerancePct / 100
	return CandidateQuery{
		Latitude:     target.Latitude,
		Longitude:    target.Longitude,
		PropertyType: target.PropertyType,
		SurfaceMin:   target.SurfaceM2 * (1 - tolerance),
		SurfaceMax:   target.SurfaceM2 * (1 + tolerance),
		RadiusKm:     params.RadiusKm,
		YearsBack:    params.YearsBack,
		Limit:        params.Limit,
	}
}

// Validate enforces the query constraints before any round-trip.
func (q CandidateQuery) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"latitude", q.Latitude},
		{"longitude", q.Longitude},
		{"radius_km", q.RadiusKm},
		{"surface_min", q.SurfaceMin},
		{"surface_max", q.SurfaceMax},
	} {
		if !models.IsFinite(f.value) {
			return &models.ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
	}

	switch {
	case q.Latitude < -90 || q.Latitude > 90:
		return &models.ValidationError{Field: "latitude", Reason: "must be within [-90, 90]"}
	case q.Longitude < -180 || q.Longitude > 180:
		return &models.ValidationError{Field: "longitude", Reason: "must be within [-180, 180]"}
	case !q.PropertyType.Valid():
		return &models.ValidationError{Field: "property_type", Reason: "unknown property type"}
	case q.RadiusKm <= 0:
		return &models.ValidationError{Field: "radius_km", Reason: "must be positive"}
	case q.SurfaceMin < 0:
		return &models.ValidationError{Field: "surface_min", Reason: "must not be negative"}
	case q.SurfaceMin > q.SurfaceMax:
		return &models.ValidationError{Field: "surface_min", Reason: "must not exceed surface_max"}
	case q.YearsBack < 1:
		return &models.ValidationError{Field: "years_back", Reason: "must be at least 1"}
	case q.Limit < 1:
		return &models.ValidationError{Field: "limit", Reason: "must be at least 1"}
	}
	return nil
}

// Label is the canonical type label the query matches against.
func (q CandidateQuery) Label() string {
	return CanonicalLabel(q.PropertyType)
}

// SaleDateCutoff is the oldest sale date still inside the recency window.
func (q CandidateQuery) SaleDateCutoff(now time.Time) time.Time {
	return now.UTC().AddDate(-q.YearsBack, 0, 0)
}
