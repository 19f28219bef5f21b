package models

import "strings"

// Listing is a property currently advertised for sale.
type Listing struct {
	Address         string   `json:"address"`
	Price           *float64 `json:"price"`
	Surface         *float64 `json:"surface"`
	Rooms           *int     `json:"rooms"`
	PropertyType    string   `json:"property_type"`
	ListingURL      string   `json:"listing_url"`
	PublicationDate string   `json:"publication_date"`
	Description     string   `json:"description"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// Validate checks the fields an upstream listing must carry.
func (l Listing) Validate() error {
	if strings.TrimSpace(l.Address) == "" {
		return &ValidationError{Field: "address", Reason: "is required"}
	}
	if l.Price != nil && *l.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if l.Surface != nil && *l.Surface < 0 {
		return &ValidationError{Field: "surface", Reason: "must be positive"}
	}
	return nil
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
