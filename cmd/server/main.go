package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/diewo77/gestion-chantier/auth"
	"github.com/diewo77/gestion-chantier/internal/config"
	"github.com/diewo77/gestion-chantier/internal/db"
	"github.com/diewo77/gestion-chantier/internal/geo"
	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/pdf"
	"github.com/diewo77/gestion-chantier/internal/services"
	"github.com/diewo77/gestion-chantier/internal/storage"
	"github.com/diewo77/gestion-chantier/view"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	middleware.InitLogger(cfg.App.LogLevel)
	view.SetDev(cfg.App.Dev)

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.Migrate(dbConn, cfg.Database, cfg.App); err != nil {
		return err
	}
	if *migrateOnlyFlag {
		slog.Info("migrations completed")
		return nil
	}

	users := services.NewUserService(dbConn, cfg.Auth.AllowedEmails)
	if *seedOnlyFlag || cfg.App.Seed {
		if err := db.Seed(ctx, users, cfg.Auth); err != nil {
			return err
		}
		if *seedOnlyFlag {
			slog.Info("seeding completed")
			return nil
		}
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	bus, closeBus, err := openBus(ctx, cfg.Live)
	if err != nil {
		return err
	}
	defer closeBus()

	sessions := auth.NewManager(auth.Config{
		Secret:   cfg.Auth.SessionSecret,
		TTL:      cfg.Auth.SessionTTL(),
		Secure:   cfg.Auth.SecureCookie,
		Verifier: users.Exists,
	})
	if cfg.Auth.SessionSecret == "" {
		slog.Warn("SESSION_SECRET not set, using the development secret")
	}
	app := NewApp(Deps{
		DB:            dbConn,
		Bus:           bus,
		Store:         store,
		Geo:           geo.NewClient(cfg.Geo.BaseURL, cfg.Geo.Timeout()),
		Location:      cfg.App.Location(),
		Sessions:      sessions,
		Google:        googleConfig(cfg.Auth),
		AllowedEmails: cfg.Auth.AllowedEmails,
		AllowedOrigin: cfg.CORS.AllowedOrigins,
		Brand:         pdf.Options{LogoPath: cfg.Brand.LogoPath, Tagline: cfg.Brand.Tagline},
		SecureCookie:  cfg.Auth.SecureCookie,
	})

	// Create server with config timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
		slog.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error during shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

func openStore(cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "minio":
		return storage.NewMinioStore(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
	case "", "local":
		return storage.NewFileStore(cfg.Dir)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}

// openBus uses Redis when configured so every instance sees every change.
func openBus(ctx context.Context, cfg config.LiveConfig) (live.Bus, func(), error) {
	if cfg.RedisAddr == "" {
		return live.NewMemoryBus(), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rb, err := live.NewRedisBus(ctx, live.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return nil, nil, err
	}
	return rb, func() { _ = rb.Close() }, nil
}

func googleConfig(cfg config.AuthConfig) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}
}
