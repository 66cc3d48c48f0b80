package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/diewo77/gestion-chantier/auth"
	"github.com/diewo77/gestion-chantier/i18n"
	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/services"
)

// GoogleUserInfoURL returns the OpenID profile of the token owner.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

const stateCookie = "oauth_state"

type AuthHandler struct {
	Users    *services.UserService
	Sessions *auth.Manager
	// Google is nil when federated sign-in is not configured.
	Google      *oauth2.Config
	UserInfoURL string
	// HTTPClient, when set, is used for the token exchange and profile lookup.
	HTTPClient *http.Client
	Secure     bool
}

func NewAuthHandler(users *services.UserService, sessions *auth.Manager, google *oauth2.Config) *AuthHandler {
	return &AuthHandler{Users: users, Sessions: sessions, Google: google, UserInfoURL: GoogleUserInfoURL}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", h.loginPage)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /logout", h.logout)
	mux.HandleFunc("GET /auth/google", h.googleStart)
	mux.HandleFunc("GET /auth/google/callback", h.googleCallback)
}

func (h *AuthHandler) loginData(r *http.Request, email, errCode string) map[string]any {
	data := map[string]any{"GoogleEnabled": h.Google != nil, "Email": email}
	if errCode != "" {
		data["Error"] = i18n.T(middleware.LangFrom(r), errCode)
	}
	return data
}

func (h *AuthHandler) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, dashboardPath, statusSeeOther)
		return
	}
	renderTemplate(w, r, "login", h.loginData(r, "", ""))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	u, err := h.Users.Authenticate(r.Context(), email, r.FormValue("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		renderStatus(w, r, http.StatusUnauthorized, "login", h.loginData(r, email, "auth.invalid"))
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	h.begin(w, r, u)
}

func (h *AuthHandler) begin(w http.ResponseWriter, r *http.Request, u *models.User) {
	if err := h.Sessions.Begin(w, auth.Session{UserID: u.ID, Email: u.Email, Name: u.Name}); err != nil {
		serverError(w, r, err)
		return
	}
	slog.Info("signed in", "user", u.ID, "provider", u.Provider)
	http.Redirect(w, r, dashboardPath, statusSeeOther)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.End(w)
	http.Redirect(w, r, "/", statusSeeOther)
}

func (h *AuthHandler) googleStart(w http.ResponseWriter, r *http.Request) {
	if h.Google == nil {
		http.Redirect(w, r, "/login", statusSeeOther)
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.Google.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

type googleProfile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (h *AuthHandler) googleCallback(w http.ResponseWriter, r *http.Request) {
	if h.Google == nil {
		http.Redirect(w, r, "/login", statusSeeOther)
		return
	}
	c, err := r.Cookie(stateCookie)
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth/google", MaxAge: -1})
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		h.googleFailed(w, r, errors.New("state mismatch"))
		return
	}
	if e := r.URL.Query().Get("error"); e != "" {
		h.googleFailed(w, r, fmt.Errorf("provider error: %s", e))
		return
	}
	profile, err := h.fetchProfile(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.googleFailed(w, r, err)
		return
	}
	if !profile.EmailVerified {
		h.googleFailed(w, r, errors.New("email not verified"))
		return
	}
	u, err := h.Users.UpsertGoogle(r.Context(), profile.Email, profile.Name)
	if err != nil {
		h.googleFailed(w, r, err)
		return
	}
	h.begin(w, r, u)
}

func (h *AuthHandler) fetchProfile(ctx context.Context, code string) (*googleProfile, error) {
	if code == "" {
		return nil, errors.New("missing code")
	}
	if h.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.HTTPClient)
	}
	tok, err := h.Google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Google.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (h *AuthHandler) googleFailed(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("google sign-in failed", "error", err)
	middleware.FlashError(w, "auth.google_failed")
	http.Redirect(w, r, "/login", statusSeeOther)
}
