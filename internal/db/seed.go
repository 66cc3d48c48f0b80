package db

import (
	"context"
	"log/slog"

	"github.com/diewo77/gestion-chantier/internal/config"
	"github.com/diewo77/gestion-chantier/internal/services"
)

// Seed creates or refreshes the admin password account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set. Running it again is harmless.
func Seed(ctx context.Context, users *services.UserService, cfg config.AuthConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		slog.Info("no admin credentials configured, seed skipped")
		return nil
	}
	u, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	if err != nil {
		return err
	}
	slog.Info("admin account ready", "email", u.Email)
	return nil
}
