package finance

import (
	"fmt"
	"sort"
	"time"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// RateTable maps calendar years to the average mortgage rate (percent)
// observed that year, plus the rate in force today.
type RateTable struct {
	Rates   map[int]float64 `json:"rates"`
	Current float64         `json:"current"`
}

// DefaultRateTable returns the historical average borrowing rates
// (Banque de France approximations).
func DefaultRateTable() RateTable {
	return RateTable{
		Rates: map[int]float64{
			2019: 1.20,
			2020: 1.20,
			2021: 1.10,
			2022: 1.50,
			2023: 3.00,
			2024: 3.80,
			2025: 3.50,
		},
		Current: 3.50,
	}
}

// Validate ensures the table can answer every lookup.
func (t RateTable) Validate() error {
	if len(t.Rates) == 0 {
		return &models.ValidationError{Field: "rates", Reason: "rate table is empty"}
	}
	if t.Current <= 0 || !models.IsFinite(t.Current) {
		return &models.ValidationError{Field: "current", Reason: "current rate must be a positive number"}
	}
	for year, rate := range t.Rates {
		if rate < 0 || !models.IsFinite(rate) {
			return &models.ValidationError{Field: "rates", Reason: fmt.Sprintf("rate for %d must be a non-negative number", year)}
		}
	}
	return nil
}

// Years returns the covered years in ascending order.
func (t RateTable) Years() []int {
	years := make([]int, 0, len(t.Rates))
	for y := range t.Rates {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// RateFor returns the rate for the year of date. Years before the table
// use the earliest year's rate, years after it use the current rate, and a
// year missing inside the table uses the nearest earlier year.
func (t RateTable) RateFor(date time.Time) float64 {
	year := date.Year()
	if rate, ok := t.Rates[year]; ok {
		return rate
	}
	years := t.Years()
	if len(years) == 0 || year > years[len(years)-1] {
		return t.Current
	}
	if year < years[0] {
		return t.Rates[years[0]]
	}
	i := sort.SearchInts(years, year)
	return t.Rates[years[i-1]]
}
