package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// PurchasingPowerPerPoint is the share of purchasing power lost per
// percentage point of borrowing-rate increase.
var PurchasingPowerPerPoint = decimal.NewFromFloat(0.10)

// Adjuster rescales historical sale prices to today's borrowing conditions.
type Adjuster struct {
	table RateTable
}

// NewAdjuster builds an adjuster over a non-empty rate table.
func NewAdjuster(table RateTable) (*Adjuster, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Adjuster{table: table}, nil
}

// Table returns the rate table the adjuster reads from.
func (a *Adjuster) Table() RateTable {
	return a.table
}

// Coefficient returns 1 - (current - rate_then) * 0.10 for saleDate.
func (a *Adjuster) Coefficient(saleDate time.Time) decimal.Decimal {
	delta := decimal.NewFromFloat(a.table.Current).Sub(decimal.NewFromFloat(a.table.RateFor(saleDate)))
	return decimal.NewFromInt(1).Sub(delta.Mul(PurchasingPowerPerPoint))
}

// Adjust returns price scaled by the coefficient of saleDate.
func (a *Adjuster) Adjust(price decimal.Decimal, saleDate time.Time) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, &models.ValidationError{Field: "sale_price", Reason: "must not be negative"}
	}
	return price.Mul(a.Coefficient(saleDate)), nil
}
