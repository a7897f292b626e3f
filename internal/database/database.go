package database

import (
	"fmt"
	"time"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	pkgLogger "github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string, production bool) (*gorm.DB, error) {
	// SQL statements are logged at debug level outside production
	logLevel := logger.Warn
	if !production {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), Config(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Config returns the gorm settings shared by every dialect
func Config(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                 pkgLogger.NewGormLogger(level, 200*time.Millisecond),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
}

// Migrate creates or updates the schema. Parents are listed before children
// so foreign keys resolve.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Client{},
		&models.Project{},
		&models.Invoice{},
		&models.Payment{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
