package database

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// mutationRow is the column set both stores return for a candidate.
type mutationRow struct {
	ID           string    `gorm:"column:id"`
	SaleDate     time.Time `gorm:"column:sale_date"`
	SalePrice    float64   `gorm:"column:sale_price"`
	BuiltSurface float64   `gorm:"column:built_surface"`
	TypeLabel    string    `gorm:"column:type_label"`
	NbMai1PP     *int      `gorm:"column:nbmai1pp"`
	NbMai2PP     *int      `gorm:"column:nbmai2pp"`
	NbMai3PP     *int      `gorm:"column:nbmai3pp"`
	NbMai4PP     *int      `gorm:"column:nbmai4pp"`
	NbMai5PP     *int      `gorm:"column:nbmai5pp"`
	NbApt1PP     *int      `gorm:"column:nbapt1pp"`
	NbApt2PP     *int      `gorm:"column:nbapt2pp"`
	NbApt3PP     *int      `gorm:"column:nbapt3pp"`
	NbApt4PP     *int      `gorm:"column:nbapt4pp"`
	NbApt5PP     *int      `gorm:"column:nbapt5pp"`
	NbLocMut     *int      `gorm:"column:nblocmut"`
	EnergyRating string    `gorm:"column:energy_rating"`
	Address      string    `gorm:"column:address"`
	PostalCode   string    `gorm:"column:postal_code"`
	Commune      string    `gorm:"column:commune"`
	Latitude     float64   `gorm:"column:latitude"`
	Longitude    float64   `gorm:"column:longitude"`
	DistanceKm   float64   `gorm:"column:distance_km"`
}

func (r mutationRow) toTransaction() models.Transaction {
	return models.Transaction{
		ID:             r.ID,
		SaleDate:       r.SaleDate.UTC(),
		SalePrice:      decimal.NewFromFloat(r.SalePrice),
		BuiltSurfaceM2: r.BuiltSurface,
		TypeLabel:      r.TypeLabel,
		Rooms: models.RoomBreakdown{
			House1:     r.NbMai1PP,
			House2:     r.NbMai2PP,
			House3:     r.NbMai3PP,
			House4:     r.NbMai4PP,
			House5Plus: r.NbMai5PP,
			Apt1:       r.NbApt1PP,
			Apt2:       r.NbApt2PP,
			Apt3:       r.NbApt3PP,
			Apt4:       r.NbApt4PP,
			Apt5Plus:   r.NbApt5PP,
			Units:      r.NbLocMut,
		},
		EnergyRating: models.EnergyRating(r.EnergyRating),
		Address:      r.Address,
		PostalCode:   r.PostalCode,
		Commune:      r.Commune,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		DistanceKm:   r.DistanceKm,
	}
}

func (r *mutationRow) scanTargets() []any {
	return []any{
		&r.ID, &r.SaleDate, &r.SalePrice, &r.BuiltSurface, &r.TypeLabel,
		&r.NbMai1PP, &r.NbMai2PP, &r.NbMai3PP, &r.NbMai4PP, &r.NbMai5PP,
		&r.NbApt1PP, &r.NbApt2PP, &r.NbApt3PP, &r.NbApt4PP, &r.NbApt5PP,
		&r.NbLocMut, &r.EnergyRating, &r.Address, &r.PostalCode, &r.Commune,
		&r.Latitude, &r.Longitude, &r.DistanceKm,
	}
}
