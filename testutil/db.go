// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/homenest/estate/config"
	"github.com/homenest/estate/models"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the full schema.
// The pool is limited to one connection, so concurrent callers are serialized
// the way a single database server would serialize conflicting writes.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given name.
func CreateUser(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateProperty inserts a property owned by ownerID. A non-zero id forces the primary key.
func CreateProperty(t testing.TB, db *gorm.DB, id, ownerID uint) models.Property {
	t.Helper()
	p := models.Property{
		ID:           id,
		OwnerID:      ownerID,
		Title:        "Sunny two-bedroom",
		PropertyType: models.PropertyTypeApartment,
		ListingType:  models.ListingTypeSale,
		Price:        250000,
		City:         "Lisbon",
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p
}
