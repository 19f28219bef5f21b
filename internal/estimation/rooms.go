package estimation

import "github.com/jbcholat-Dev/Estimation-immo/internal/models"

type roomBucket struct {
	rooms int
	count func(models.RoomBreakdown) *int
}

// roomBuckets lists each family's buckets from the highest room count down.
var roomBuckets = map[models.PropertyType][]roomBucket{
	models.PropertyTypeHouse: {
		{5, func(r models.RoomBreakdown) *int { return r.House5Plus }},
		{4, func(r models.RoomBreakdown) *int { return r.House4 }},
		{3, func(r models.RoomBreakdown) *int { return r.House3 }},
		{2, func(r models.RoomBreakdown) *int { return r.House2 }},
		{1, func(r models.RoomBreakdown) *int { return r.House1 }},
	},
	models.PropertyTypeApartment: {
		{5, func(r models.RoomBreakdown) *int { return r.Apt5Plus }},
		{4, func(r models.RoomBreakdown) *int { return r.Apt4 }},
		{3, func(r models.RoomBreakdown) *int { return r.Apt3 }},
		{2, func(r models.RoomBreakdown) *int { return r.Apt2 }},
		{1, func(r models.RoomBreakdown) *int { return r.Apt1 }},
	},
}

// roomFamily maps every type onto the family whose buckets describe it.
var roomFamily = map[models.PropertyType]models.PropertyType{
	models.PropertyTypeHouse:     models.PropertyTypeHouse,
	models.PropertyTypeApartment: models.PropertyTypeApartment,
	models.PropertyTypeStudio:    models.PropertyTypeApartment,
	models.PropertyTypeDuplex:    models.PropertyTypeApartment,
}

// RoomCount returns the room count of a transaction: the highest populated
// bucket of its type family, else the unit count, else 0.
func RoomCount(t models.Transaction) int {
	if candidateType, ok := CandidateType(t.TypeLabel); ok {
		for _, bucket := range roomBuckets[roomFamily[candidateType]] {
			if n := bucket.count(t.Rooms); n != nil && *n > 0 {
				return bucket.rooms
			}
		}
	}
	if t.Rooms.Units != nil && *t.Rooms.Units > 0 {
		return *t.Rooms.Units
	}
	return 0
}
