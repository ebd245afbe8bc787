package database

import (
	"fmt"
	"log/slog"
	"time"

	"messaging-service/internal/config"
	"messaging-service/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxConnectAttempts = 5
	retryDelay         = 2 * time.Second
)

// Open connects with the dialect named by cfg.Driver, retrying transient
// connection failures for the network dialects.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true, // surface gorm.ErrDuplicatedKey
		Logger:                                   logger.Default.LogMode(logger.Warn),
	}

	attempts := maxConnectAttempts
	if cfg.Driver == "sqlite" {
		attempts = 1
	}

	var db *gorm.DB
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		slog.Warn("Failed to connect to database", "driver", cfg.Driver, "attempt", i+1, "max_attempts", attempts, "error", err)
		if i+1 < attempts {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// SQLite only supports one writer at a time
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	slog.Info("Database connection established", "driver", cfg.Driver)
	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates or updates every table plus the indexes gorm tags cannot
// express portably.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.DirectMessage{},
		&models.GroupMessage{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	return nil
}

const activeMembershipIndex = "idx_memberships_active"

// addIndexes enforces "one active membership per (user, group)" independent
// of historical inactive rows.
func addIndexes(db *gorm.DB) error {
	if db.Migrator().HasIndex(&models.Membership{}, activeMembershipIndex) {
		return nil
	}

	var stmt string
	switch db.Dialector.Name() {
	case "mysql":
		// MySQL has no partial indexes; NULLs in a functional key part never collide.
		stmt = fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON memberships (user_id, group_id, ((CASE WHEN state = '%s' THEN 1 END)))",
			activeMembershipIndex, models.StateActive)
	default:
		stmt = fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON memberships (user_id, group_id) WHERE state = '%s'",
			activeMembershipIndex, models.StateActive)
	}
	return db.Exec(stmt).Error
}
