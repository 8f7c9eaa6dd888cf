package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/homenest/estate/models"
)

var db *gorm.DB

// InitDatabase opens the configured database, migrates the schema and keeps the handle for DB().
func InitDatabase() *gorm.DB {
	if db != nil {
		return db
	}

	var err error
	db, err = OpenDatabase(Get())
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// Ping at boot so network/auth problems surface before the first request.
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}
	if err := SeedAdmins(db, Get().AdminUsernames); err != nil {
		log.Fatalf("seeding admins failed: %v", err)
	}
	return db
}

// OpenDatabase builds the GORM dialector for c.DBDriver (mysql, postgres or sqlite).
func OpenDatabase(c AppConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.DBDriver {
	case "mysql", "":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
		}
		dialector = mysql.Open(dsn)
	case "postgres":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = c.DBName + ".db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}

	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(c.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Migrate creates or extends every table, including the unique indexes the view ledger
// and the storage history upserts depend on.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PropertyFile{},
		&models.PropertyView{},
		&models.StorageHistory{},
	)
}

// SeedAdmins makes the admin flag match names exactly: listed accounts gain it,
// every other account loses it. Names without an account are skipped.
func SeedAdmins(gdb *gorm.DB, names []string) error {
	var listed []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			listed = append(listed, n)
		}
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		revoke := tx.Model(&models.User{}).Where("is_admin = ?", true)
		if len(listed) > 0 {
			revoke = revoke.Where("username NOT IN ?", listed)
		}
		if err := revoke.Update("is_admin", false).Error; err != nil {
			return err
		}
		if len(listed) == 0 {
			return nil
		}
		return tx.Model(&models.User{}).Where("username IN ?", listed).Update("is_admin", true).Error
	})
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}
