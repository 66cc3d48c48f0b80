package db

import (
	"errors"
	"fmt"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/internal/config"
	"github.com/diewo77/gestion-chantier/internal/models"
)

// Models lists the entities managed by AutoMigrate.
func Models() []any {
	return []any{
		&models.User{},
		&models.Client{},
		&models.JobSite{},
		&models.ScheduleEvent{},
		&models.CompanySettings{},
	}
}

var requiredTables = []string{"users", "clients", "chantiers", "planning", "parametres"}

// Migrate brings the schema up to date. With app.Migrations on postgres the SQL
// files under app.MigrationsDir are applied; otherwise gorm AutoMigrate is used.
func Migrate(gdb *gorm.DB, dbCfg config.DatabaseConfig, app config.AppConfig) error {
	sqlMode := app.Migrations && dbCfg.Driver != "sqlite"
	if app.Migrations && !sqlMode {
		slog.Warn("sql migrations target postgres only, using AutoMigrate", "driver", dbCfg.Driver)
	}
	if sqlMode {
		if err := runSQLMigrations(app.MigrationsDir, PostgresDSN(dbCfg)); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if err := gdb.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func runSQLMigrations(dir, dsn string) error {
	if dir == "" {
		dir = "migrations"
	}
	m, err := migrate.New("file://"+dir, ToURLDSN(dsn))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, _ := m.Version()
	slog.Info("sql migrations applied", "version", version, "dirty", dirty)
	return nil
}
