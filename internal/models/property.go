package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// PropertyType is the kind of dwelling being valued.
type PropertyType string

const (
	PropertyTypeHouse     PropertyType = "house"
	PropertyTypeApartment PropertyType = "apartment"
	PropertyTypeStudio    PropertyType = "studio"
	PropertyTypeDuplex    PropertyType = "duplex"
)

// PropertyTypes lists every supported type in display order.
var PropertyTypes = []PropertyType{
	PropertyTypeApartment,
	PropertyTypeHouse,
	PropertyTypeStudio,
	PropertyTypeDuplex,
}

var propertyTypeAliases = map[string]PropertyType{
	"house":       PropertyTypeHouse,
	"maison":      PropertyTypeHouse,
	"apartment":   PropertyTypeApartment,
	"appartement": PropertyTypeApartment,
	"studio":      PropertyTypeStudio,
	"duplex":      PropertyTypeDuplex,
}

// ParsePropertyType accepts English or French names, case-insensitively.
func ParsePropertyType(s string) (PropertyType, error) {
	if t, ok := propertyTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", &ValidationError{Field: "property_type", Reason: fmt.Sprintf("unknown property type %q", s)}
}

func (t PropertyType) String() string {
	return string(t)
}

// Valid reports whether t is one of the supported canonical types.
func (t PropertyType) Valid() bool {
	for _, known := range PropertyTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t *PropertyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePropertyType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EnergyRating is the French DPE letter, A (best) to G (worst).
type EnergyRating string

const energyLetters = "ABCDEFG"

// MaxEnergyStep is the ordinal distance between A and G.
const MaxEnergyStep = len(energyLetters) - 1

// ParseEnergyRating normalizes a DPE letter.
func ParseEnergyRating(s string) (EnergyRating, error) {
	r := EnergyRating(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := r.Index(); !ok {
		return "", &ValidationError{Field: "energy_rating", Reason: fmt.Sprintf("unknown energy rating %q", s)}
	}
	return r, nil
}

// UnmarshalJSON normalizes the letter; an empty string stays unset.
func (r *EnergyRating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseEnergyRating(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Index returns the 0-based position of the letter (A=0, G=6).
func (r EnergyRating) Index() (int, bool) {
	if len(r) != 1 {
		return 0, false
	}
	i := strings.IndexByte(energyLetters, r[0])
	return i, i >= 0
}

// TargetProperty is the property submitted for valuation.
type TargetProperty struct {
	Address                string       `json:"address,omitempty"`
	Latitude               float64      `json:"latitude"`
	Longitude              float64      `json:"longitude"`
	SurfaceM2              float64      `json:"surface_m2"`
	PropertyType           PropertyType `json:"property_type"`
	Rooms                  int          `json:"rooms"`
	EnergyRating           EnergyRating `json:"energy_rating"`
	EnvironmentCoefficient float64      `json:"environment_coefficient"`
	ConditionCoefficient   float64      `json:"condition_coefficient"`
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate rejects targets the scoring pipeline cannot work with.
func (p TargetProperty) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"latitude", p.Latitude},
		{"longitude", p.Longitude},
		{"surface_m2", p.SurfaceM2},
		{"environment_coefficient", p.EnvironmentCoefficient},
		{"condition_coefficient", p.ConditionCoefficient},
	} {
		if !IsFinite(f.value) {
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
	}

	switch {
	case p.Latitude < -90 || p.Latitude > 90:
		return &ValidationError{Field: "latitude", Reason: "must be within [-90, 90]"}
	case p.Longitude < -180 || p.Longitude > 180:
		return &ValidationError{Field: "longitude", Reason: "must be within [-180, 180]"}
	case p.SurfaceM2 <= 0:
		return &ValidationError{Field: "surface_m2", Reason: "must be positive"}
	case !p.PropertyType.Valid():
		return &ValidationError{Field: "property_type", Reason: fmt.Sprintf("unknown property type %q", p.PropertyType)}
	case p.Rooms < 0:
		return &ValidationError{Field: "rooms", Reason: "must not be negative"}
	case p.EnvironmentCoefficient < 0:
		return &ValidationError{Field: "environment_coefficient", Reason: "must not be negative"}
	case p.ConditionCoefficient < 0:
		return &ValidationError{Field: "condition_coefficient", Reason: "must not be negative"}
	}
	if _, ok := p.EnergyRating.Index(); !ok {
		return &ValidationError{Field: "energy_rating", Reason: fmt.Sprintf("unknown energy rating %q", p.EnergyRating)}
	}
	return nil
}

// EnvironmentFactor returns the environment coefficient, 1 when unset.
func (p TargetProperty) EnvironmentFactor() float64 {
	if p.EnvironmentCoefficient == 0 {
		return 1
	}
	return p.EnvironmentCoefficient
}

// ConditionFactor returns the condition coefficient, 1 when unset.
func (p TargetProperty) ConditionFactor() float64 {
	if p.ConditionCoefficient == 0 {
		return 1
	}
	return p.ConditionCoefficient
}
