package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/homenest/estate/models"
)

// Identity is who viewed a property: exactly one of UserIdentity or
// SessionIdentity. The two kinds are separate dedup domains, so the same person
// viewing while logged out and again while logged in counts twice.
type Identity interface {
	// Kind is "user" or "session".
	Kind() string
	stamp(v *models.PropertyView)
	conflictColumns() []string
	match(tx *gorm.DB, propertyID uint) *gorm.DB
}

// UserIdentity is an authenticated viewer.
type UserIdentity struct {
	UserID uint
}

// SessionIdentity is an anonymous viewer identified by a client-generated session id.
type SessionIdentity struct {
	SessionID string
}

// IdentityFrom picks the viewer identity from request data. An authenticated user
// wins over a session id; nil means the viewer cannot be identified.
func IdentityFrom(userID uint, sessionID string) Identity {
	if userID != 0 {
		return UserIdentity{UserID: userID}
	}
	if s := strings.TrimSpace(sessionID); s != "" {
		return SessionIdentity{SessionID: s}
	}
	return nil
}

func (UserIdentity) Kind() string { return "user" }

func (u UserIdentity) stamp(v *models.PropertyView) {
	id := u.UserID
	v.UserID = &id
}

func (UserIdentity) conflictColumns() []string { return []string{"property_id", "user_id"} }

func (u UserIdentity) match(tx *gorm.DB, propertyID uint) *gorm.DB {
	return tx.Where("property_id = ? AND user_id = ?", propertyID, u.UserID)
}

func (SessionIdentity) Kind() string { return "session" }

func (s SessionIdentity) stamp(v *models.PropertyView) {
	id := s.SessionID
	v.SessionID = &id
}

func (SessionIdentity) conflictColumns() []string { return []string{"property_id", "session_id"} }

func (s SessionIdentity) match(tx *gorm.DB, propertyID uint) *gorm.DB {
	return tx.Where("property_id = ? AND session_id = ?", propertyID, s.SessionID)
}
