package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"go-sales-crm/internal/config"
	"go-sales-crm/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

// Connect opens the configured database (waiting for it to come up), sizes the
// pool, migrates the schema and seeds the lookup rows.
func Connect(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set; configure the %s connection string", cfg.DBDriver)
	}

	var (
		db  *gorm.DB
		err error
	)

	// 1. Connect with GORM (wait for DB to be ready)
	for i := 0; i < connectAttempts; i++ {
		db, err = Open(cfg.DBDriver, cfg.DBDSN, LogLevel(cfg.DBLogLevel))
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database. Retrying in 2 seconds... (%d/%d): %v", i+1, connectAttempts, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", connectAttempts, err)
	}
	log.Printf("✅ Successfully connected to %s!", cfg.DBDriver)

	// 2. Pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// 3. Auto-Migrate
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("✅ Database Schema Synced!")

	// 4. Lookups
	if err := Seed(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// Open returns a GORM handle for driver ("mysql", "postgres", "sqlserver" or "sqlite").
// Driver errors such as duplicate keys are translated to gorm errors.
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlserver", "mssql":
		dialector = sqlserver.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "[GORM] ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// LogLevel maps DB_LOG_LEVEL to a GORM log level.
func LogLevel(name string) logger.LogLevel {
	switch name {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
