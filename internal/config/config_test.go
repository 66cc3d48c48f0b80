package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080 got %s", cfg.Server.Port)
	}
	if cfg.Geo.BaseURL != "https://api-adresse.data.gouv.fr" {
		t.Fatalf("unexpected geocoder base %s", cfg.Geo.BaseURL)
	}
	if cfg.Storage.Driver != "local" {
		t.Fatalf("expected local storage by default")
	}
}

func TestFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  port: "9000"
database:
  driver: sqlite
  path: /tmp/test.db
auth:
  allowed_emails: [alain@acj.fr]
storage:
  driver: minio
  bucket: docs
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("AUTH_ALLOWED_EMAILS", "a@acj.fr, b@acj.fr ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Fatalf("env must override file, got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/test.db" {
		t.Fatalf("file values not applied: %+v", cfg.Database)
	}
	if cfg.Storage.Driver != "minio" || cfg.Storage.Bucket != "docs" {
		t.Fatalf("storage not applied: %+v", cfg.Storage)
	}
	if len(cfg.Auth.AllowedEmails) != 2 || cfg.Auth.AllowedEmails[1] != "b@acj.fr" {
		t.Fatalf("unexpected allowed emails %v", cfg.Auth.AllowedEmails)
	}
	// untouched sections keep their defaults
	if cfg.Server.IdleTimeout != 60 {
		t.Fatalf("expected default idle timeout")
	}
}

func TestLoadBadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	if d.DSN() != "host=db port=5432 user=u password=p dbname=n sslmode=disable" {
		t.Fatalf("unexpected dsn %s", d.DSN())
	}
	if d.URL() != "postgres://u:p@db:5432/n?sslmode=disable" {
		t.Fatalf("unexpected url %s", d.URL())
	}
}
