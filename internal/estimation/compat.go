package estimation

import (
	"strings"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

type typePair struct {
	target, candidate models.PropertyType
}

// typeCompatibility holds partial credit between distinct types. Pairs not
// listed score 0; identical types score 1.
var typeCompatibility = map[typePair]float64{
	{models.PropertyTypeStudio, models.PropertyTypeApartment}: 0.75,
	{models.PropertyTypeApartment, models.PropertyTypeStudio}: 0.75,
	{models.PropertyTypeDuplex, models.PropertyTypeApartment}: 0.75,
	{models.PropertyTypeApartment, models.PropertyTypeDuplex}: 0.75,
	{models.PropertyTypeDuplex, models.PropertyTypeHouse}:     0.5,
	{models.PropertyTypeHouse, models.PropertyTypeDuplex}:     0.5,
	{models.PropertyTypeStudio, models.PropertyTypeDuplex}:    0.5,
	{models.PropertyTypeDuplex, models.PropertyTypeStudio}:    0.5,
}

// TypeCompatibility returns the type-match sub-score of a candidate type
// against the target type.
func TypeCompatibility(target, candidate models.PropertyType) float64 {
	if target == "" || candidate == "" {
		return 0
	}
	if target == candidate {
		return 1
	}
	return typeCompatibility[typePair{target, candidate}]
}

// CandidateType derives the property type from a DVF type label such as
// "UNE MAISON" or "UN APPARTEMENT".
func CandidateType(label string) (models.PropertyType, bool) {
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, "MAISON"):
		return models.PropertyTypeHouse, true
	case strings.Contains(upper, "APPARTEMENT"):
		return models.PropertyTypeApartment, true
	}
	if t, err := models.ParsePropertyType(label); err == nil {
		return t, true
	}
	return "", false
}
