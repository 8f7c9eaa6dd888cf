package models

import "time"

// Property types accepted on create.
const (
	PropertyTypeHouse      = "house"
	PropertyTypeApartment  = "apartment"
	PropertyTypeLand       = "land"
	PropertyTypeCommercial = "commercial"
)

// Listing types accepted on create.
const (
	ListingTypeSale = "sale"
	ListingTypeRent = "rent"
)

// Property is a listed real-estate object.
//
// Views is a denormalized unique-viewer counter. It is only ever changed by an
// atomic increment when a new identity is recorded in property_views and is
// never recomputed from the ledger.
type Property struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	OwnerID      uint           `gorm:"index;not null" json:"owner_id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	PropertyType string         `gorm:"size:32;not null" json:"property_type"`
	ListingType  string         `gorm:"size:16;index;not null" json:"listing_type"`
	Price        int64          `gorm:"not null;default:0" json:"price"`
	City         string         `gorm:"size:128;index" json:"city"`
	Address      string         `gorm:"size:255" json:"address"`
	Bedrooms     int            `gorm:"default:0" json:"bedrooms"`
	Bathrooms    int            `gorm:"default:0" json:"bathrooms"`
	AreaSqm      float64        `gorm:"column:area_sqm;default:0" json:"area_sqm"`
	Views        int64          `gorm:"not null;default:0" json:"views"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Owner        User           `gorm:"foreignKey:OwnerID" json:"owner"`
	Files        []PropertyFile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"files"`
}

// ValidPropertyType reports whether t is one of the accepted property types.
func ValidPropertyType(t string) bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeApartment, PropertyTypeLand, PropertyTypeCommercial:
		return true
	}
	return false
}

// ValidListingType reports whether t is sale or rent.
func ValidListingType(t string) bool {
	return t == ListingTypeSale || t == ListingTypeRent
}
