package models

import "time"

// PropertyView is the dedup ledger: one row per (property, identity).
// A row carries either UserID or SessionID; the two composite unique indexes
// make them independent uniqueness domains.
type PropertyView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PropertyID uint      `gorm:"not null;index:idx_property_views_user,unique;index:idx_property_views_session,unique" json:"property_id"`
	UserID     *uint     `gorm:"index:idx_property_views_user,unique" json:"user_id"`
	SessionID  *string   `gorm:"size:128;index:idx_property_views_session,unique" json:"session_id"`
	IPAddress  string    `gorm:"column:ip_address;size:45" json:"ip_address"`
	ViewedAt   time.Time `gorm:"not null" json:"viewed_at"`
}

// TableName pins the ledger table name.
func (PropertyView) TableName() string {
	return "property_views"
}
