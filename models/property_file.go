package models

import "time"

// File categories, decided by extension.
const (
	FileCategoryImage    = "image"
	FileCategoryBrochure = "brochure"
)

// PropertyFile records an object stored with the file-storage provider for a property.
type PropertyFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PropertyID   uint      `gorm:"index;not null" json:"property_id"`
	ObjectKey    string    `gorm:"size:512;uniqueIndex;not null" json:"object_key"`
	URL          string    `gorm:"size:1024;not null" json:"url"`
	Category     string    `gorm:"size:16;not null" json:"category"`
	OriginalName string    `gorm:"size:255" json:"original_name"`
	SizeBytes    int64     `gorm:"not null;default:0" json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
