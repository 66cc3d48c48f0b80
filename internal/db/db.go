// Package db opens the gorm connection, applies the schema and seeds the
// first account.
package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gestion-chantier/internal/config"
)

const (
	connectAttempts = 10
	retryDelay      = 2 * time.Second
)

// PostgresDSN returns the connection string for cfg, preferring RawDSN.
func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.RawDSN != "" {
		return NormalizeDSN(cfg.RawDSN)
	}
	return cfg.DSN()
}

// Connect opens the configured database. Postgres is retried while it starts;
// sqlite is opened once.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	var (
		open     func() gorm.Dialector
		attempts = connectAttempts
		target   string
	)
	switch cfg.Driver {
	case "sqlite":
		target = cfg.Path
		open = func() gorm.Dialector { return sqlite.Open(cfg.Path) }
		attempts = 1
	case "postgres", "":
		target = PostgresDSN(cfg)
		open = func() gorm.Dialector { return postgres.Open(target) }
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	var (
		gdb *gorm.DB
		err error
	)
	for i := 0; i < attempts; i++ {
		if gdb, err = gorm.Open(open(), gcfg); err == nil {
			break
		}
		slog.Warn("database not ready", "attempt", i+1, "of", attempts, "error", err)
		if i+1 < attempts {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := gdb.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	slog.Info("database connected", "driver", cfg.Driver, "dsn", MaskDSN(target))
	return gdb, nil
}
