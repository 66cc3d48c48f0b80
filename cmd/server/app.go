package main

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/auth"
	"github.com/diewo77/gestion-chantier/internal/handlers"
	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/pdf"
	"github.com/diewo77/gestion-chantier/internal/services"
	"github.com/diewo77/gestion-chantier/internal/storage"
	"github.com/diewo77/gestion-chantier/view"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	DB       *gorm.DB
	Bus      live.Bus
	Store    storage.ObjectStore
	Geo      handlers.Suggester
	Location *time.Location
	Sessions *auth.Manager
	// Google is nil when federated sign-in is disabled.
	Google        *oauth2.Config
	AllowedEmails []string
	AllowedOrigin []string
	Brand         pdf.Options
	SecureCookie  bool
	StaticDir     string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// App wires all handlers and middleware.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	deps    Deps

	users *services.UserService
}

// NewApp creates the application with all routes configured.
func NewApp(deps Deps) *App {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.StaticDir == "" {
		deps.StaticDir = "static"
	}
	a := &App{mux: http.NewServeMux(), deps: deps}
	a.setupRoutes()
	view.SetFlashResolver(func(w http.ResponseWriter, r *http.Request) any {
		if f, ok := middleware.TakeFlash(w, r); ok {
			return f
		}
		return nil
	})

	// outermost first: request id, client ip, access log, panic recovery,
	// language, then the session
	var h http.Handler = a.mux
	h = deps.Sessions.Middleware(h)
	h = middleware.Prefs(h)
	h = chimw.Recoverer(h)
	h = middleware.RequestLog(h)
	h = chimw.RealIP(h)
	h = chimw.RequestID(h)
	a.handler = h
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Users exposes the account service for seeding.
func (a *App) Users() *services.UserService { return a.users }

func (a *App) setupRoutes() {
	d := a.deps
	clients := services.NewClientService(d.DB, d.Bus)
	sites := services.NewJobSiteService(d.DB, d.Bus)
	sched := services.NewPlanningService(d.DB, d.Bus, d.Location)
	settings := services.NewSettingsService(d.DB, d.Bus)
	docs := services.NewDocumentService(sites, settings, d.Store, d.Brand)
	a.users = services.NewUserService(d.DB, d.AllowedEmails)
	if d.Now != nil {
		sites.Now = d.Now
		docs.Now = d.Now
	}

	guard := handlers.Guard(d.Sessions.Require)

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	(&handlers.PageHandler{DB: d.DB}).Register(a.mux)
	ah := handlers.NewAuthHandler(a.users, d.Sessions, d.Google)
	ah.Secure = d.SecureCookie
	ah.Register(a.mux)
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(d.StaticDir))))

	// ─────────────────────────────────────────────────────────────────────────
	// Back office (signed-in users)
	// ─────────────────────────────────────────────────────────────────────────
	(&handlers.DashboardHandler{Clients: clients, Sites: sites, Planning: sched, Location: d.Location, Now: d.Now}).Register(a.mux, guard)
	(&handlers.JobSiteHandler{Clients: clients, Sites: sites, Documents: docs, Location: d.Location}).Register(a.mux, guard)
	(&handlers.ClientHandler{Clients: clients}).Register(a.mux, guard)
	(&handlers.PlanningHandler{Planning: sched}).Register(a.mux, guard)
	(&handlers.SettingsHandler{Settings: settings}).Register(a.mux, guard)
	(&handlers.FileHandler{Store: d.Store}).Register(a.mux, guard)

	// ─────────────────────────────────────────────────────────────────────────
	// JSON and SSE API
	// ─────────────────────────────────────────────────────────────────────────
	api := http.NewServeMux()
	(&handlers.APIHandler{Geo: d.Geo, Clients: clients, Sites: sites, Planning: sched, Bus: d.Bus, Now: d.Now}).Register(api, guard)
	a.mux.Handle("/api/", withCORS(d.AllowedOrigin, api))
}

// withCORS allows the configured origins to call the API with the session cookie.
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(next)
}
