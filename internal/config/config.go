// Package config provides application configuration loaded from environment variables.
//
// Values are resolved in three layers: built-in defaults, an optional YAML file
// named by CONFIG_FILE, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	App      AppConfig      `yaml:"app"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Live     LiveConfig     `yaml:"live"`
	Geo      GeoConfig      `yaml:"geo"`
	CORS     CORSConfig     `yaml:"cors"`
	Brand    BrandConfig    `yaml:"brand"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout"`  // seconds
}

// DatabaseConfig selects the gorm dialect and its connection settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"` // sqlite file
	// RawDSN, when set, replaces the host/port/user fields for postgres.
	RawDSN   string `yaml:"dsn"`
	Debug    bool   `yaml:"debug"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev           bool   `yaml:"dev"`
	Migrations    bool   `yaml:"migrations"`
	MigrationsDir string `yaml:"migrations_dir"`
	Seed          bool   `yaml:"seed"`
	Timezone      string `yaml:"timezone"`
	LogLevel      string `yaml:"log_level"`
}

// AuthConfig holds session and identity provider settings.
type AuthConfig struct {
	SessionSecret      string   `yaml:"session_secret"`
	SessionTTLHours    int      `yaml:"session_ttl_hours"`
	SecureCookie       bool     `yaml:"secure_cookie"`
	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleClientSecret string   `yaml:"google_client_secret"`
	GoogleRedirectURL  string   `yaml:"google_redirect_url"`
	AllowedEmails      []string `yaml:"allowed_emails"`
	AdminEmail         string   `yaml:"admin_email"`
	AdminPassword      string   `yaml:"admin_password"`
	AdminName          string   `yaml:"admin_name"`
}

// StorageConfig selects where uploaded and generated files live.
type StorageConfig struct {
	Driver    string `yaml:"driver"` // local | minio
	Dir       string `yaml:"dir"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LiveConfig enables cross-instance change notifications through Redis.
type LiveConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type GeoConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BrandConfig customises generated documents.
type BrandConfig struct {
	LogoPath string `yaml:"logo_path"`
	Tagline  string `yaml:"tagline"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Location resolves the configured timezone, falling back to Europe/Paris then UTC.
func (a AppConfig) Location() *time.Location {
	for _, name := range []string{a.Timezone, "Europe/Paris"} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// SessionTTL returns the session lifetime.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// GoogleEnabled reports whether federated sign-in is configured.
func (a AuthConfig) GoogleEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}

// Timeout returns the geocoder HTTP timeout.
func (g GeoConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", ReadTimeout: 15, WriteTimeout: 30, IdleTimeout: 60},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			User:    "chantier",
			DBName:  "chantier",
			SSLMode: "disable",
			Path:    "chantier.db",
		},
		App: AppConfig{Dev: true, MigrationsDir: "migrations", Seed: true, Timezone: "Europe/Paris", LogLevel: "info"},
		Auth: AuthConfig{
			SessionTTLHours:   14 * 24,
			GoogleRedirectURL: "http://localhost:8080/auth/google/callback",
			AdminName:         "Administrateur",
		},
		Storage: StorageConfig{Driver: "local", Dir: "data/stockage", Bucket: "chantiers"},
		Geo:     GeoConfig{BaseURL: "https://api-adresse.data.gouv.fr", TimeoutSeconds: 5},
		Brand:   BrandConfig{Tagline: "Rénovation & Développement"},
	}
}

// Load reads configuration from CONFIG_FILE (if set) and environment variables.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvInt("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvInt("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvInt("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.RawDSN = getEnv("DATABASE_DSN", c.Database.RawDSN)
	c.Database.Debug = getEnvBool("DB_DEBUG", c.Database.Debug)

	c.App.Dev = getEnvBool("DEV", c.App.Dev)
	c.App.Migrations = getEnvBool("MIGRATIONS", c.App.Migrations)
	c.App.MigrationsDir = getEnv("MIGRATIONS_DIR", c.App.MigrationsDir)
	c.App.Seed = getEnvBool("DB_SEED", c.App.Seed)
	c.App.Timezone = getEnv("TZ", c.App.Timezone)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)

	c.Auth.SessionSecret = getEnv("SESSION_SECRET", c.Auth.SessionSecret)
	c.Auth.SessionTTLHours = getEnvInt("SESSION_TTL_HOURS", c.Auth.SessionTTLHours)
	c.Auth.SecureCookie = getEnvBool("SESSION_SECURE", c.Auth.SecureCookie)
	c.Auth.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.Auth.GoogleClientID)
	c.Auth.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.Auth.GoogleClientSecret)
	c.Auth.GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.Auth.GoogleRedirectURL)
	c.Auth.AllowedEmails = getEnvList("AUTH_ALLOWED_EMAILS", c.Auth.AllowedEmails)
	c.Auth.AdminEmail = getEnv("ADMIN_EMAIL", c.Auth.AdminEmail)
	c.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", c.Auth.AdminPassword)
	c.Auth.AdminName = getEnv("ADMIN_NAME", c.Auth.AdminName)

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Dir = getEnv("STORAGE_DIR", c.Storage.Dir)
	c.Storage.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = getEnvBool("MINIO_USE_SSL", c.Storage.UseSSL)

	c.Live.RedisAddr = getEnv("REDIS_ADDR", c.Live.RedisAddr)
	c.Live.RedisPassword = getEnv("REDIS_PASSWORD", c.Live.RedisPassword)
	c.Live.RedisDB = getEnvInt("REDIS_DB", c.Live.RedisDB)

	c.Geo.BaseURL = getEnv("GEO_BASE_URL", c.Geo.BaseURL)
	c.Geo.TimeoutSeconds = getEnvInt("GEO_TIMEOUT", c.Geo.TimeoutSeconds)

	c.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)

	c.Brand.LogoPath = getEnv("BRAND_LOGO", c.Brand.LogoPath)
	c.Brand.Tagline = getEnv("BRAND_TAGLINE", c.Brand.Tagline)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
