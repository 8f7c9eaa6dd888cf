package models

import "time"

// StorageHistory is a monthly snapshot of aggregate file-storage usage.
// RecordMonth ("YYYY-MM", UTC) is unique; a month's row is overwritten in place
// while the month is current and never touched afterwards.
type StorageHistory struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RecordMonth     string    `gorm:"size:7;uniqueIndex;not null" json:"record_month"`
	TotalFiles      int64     `gorm:"not null;default:0" json:"total_files"`
	TotalSizeMB     float64   `gorm:"column:total_size_mb;not null;default:0" json:"total_size_mb"`
	ImagesCount     int64     `gorm:"not null;default:0" json:"images_count"`
	ImagesSizeMB    float64   `gorm:"column:images_size_mb;not null;default:0" json:"images_size_mb"`
	BrochuresCount  int64     `gorm:"not null;default:0" json:"brochures_count"`
	BrochuresSizeMB float64   `gorm:"column:brochures_size_mb;not null;default:0" json:"brochures_size_mb"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName pins the table name to the singular form used by the trend chart queries.
func (StorageHistory) TableName() string {
	return "storage_history"
}
