package database

import (
	"time"

	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

// MutationRecord is the embedded-dataset row of a single DVF mutation.
type MutationRecord struct {
	ID           string    `gorm:"primaryKey;column:id"`
	SaleDate     time.Time `gorm:"column:sale_date;index:idx_mutations_sale_date"`
	SalePrice    float64   `gorm:"column:sale_price"`
	BuiltSurface float64   `gorm:"column:built_surface"`
	TypeLabel    string    `gorm:"column:type_label;index:idx_mutations_type_label"`
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
	Latitude     *float64  `gorm:"column:latitude;index:idx_mutations_coordinates"`
	Longitude    *float64  `gorm:"column:longitude;index:idx_mutations_coordinates"`
}

func (MutationRecord) TableName() string {
	return "mutations"
}

// NewMutationRecord converts a transaction into a dataset row.
func NewMutationRecord(t models.Transaction) MutationRecord {
	lat, lon := t.Latitude, t.Longitude
	return MutationRecord{
		ID:           t.ID,
		SaleDate:     t.SaleDate.UTC(),
		SalePrice:    t.SalePrice.InexactFloat64(),
		BuiltSurface: t.BuiltSurfaceM2,
		TypeLabel:    t.TypeLabel,
		NbMai1PP:     t.Rooms.House1,
		NbMai2PP:     t.Rooms.House2,
		NbMai3PP:     t.Rooms.House3,
		NbMai4PP:     t.Rooms.House4,
		NbMai5PP:     t.Rooms.House5Plus,
		NbApt1PP:     t.Rooms.Apt1,
		NbApt2PP:     t.Rooms.Apt2,
		NbApt3PP:     t.Rooms.Apt3,
		NbApt4PP:     t.Rooms.Apt4,
		NbApt5PP:     t.Rooms.Apt5Plus,
		NbLocMut:     t.Rooms.Units,
		EnergyRating: string(t.EnergyRating),
		Address:      t.Address,
		PostalCode:   t.PostalCode,
		Commune:      t.Commune,
		Latitude:     &lat,
		Longitude:    &lon,
	}
}
