// Package auth issues and checks back-office sessions.
//
// A Manager is built once at startup and handed to the router; it owns the
// signing secret and the optional user verifier. The session itself travels as
// a signed JWT in an HttpOnly cookie and is exposed to handlers as a *Session
// stored in the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/diewo77/gestion-chantier/httpx"
)

const (
	defaultCookieName = "session"
	defaultTTL        = 14 * 24 * time.Hour
	issuer            = "gestion-chantier"
)

// ErrNoSession is returned by Parse when the request carries no usable session.
var ErrNoSession = errors.New("no session")

// Session is the identity attached to an authenticated request.
type Session struct {
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// UserVerifier checks that a session's user still exists.
type UserVerifier func(ctx context.Context, userID string) bool

// Config configures a Manager.
type Config struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
	Verifier   UserVerifier
}

// Manager creates, parses and clears session cookies.
type Manager struct {
	secret []byte
	ttl    time.Duration
	cookie string
	secure bool
	verify UserVerifier
	now    func() time.Time
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewManager returns a Manager; an empty secret falls back to a dev value.
func NewManager(cfg Config) *Manager {
	secret := cfg.Secret
	if secret == "" {
		secret = "devsessionsecret"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	name := cfg.CookieName
	if name == "" {
		name = defaultCookieName
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		cookie: name,
		secure: cfg.Secure,
		verify: cfg.Verifier,
		now:    time.Now,
	}
}

// Begin signs s and sets the session cookie.
func (m *Manager) Begin(w http.ResponseWriter, s Session) error {
	if s.UserID == "" {
		return errors.New("session without user id")
	}
	now := m.now()
	exp := now.Add(m.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: s.Email,
		Name:  s.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	return nil
}

// End deletes the session cookie.
func (m *Manager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Parse validates the session cookie on r.
func (m *Manager) Parse(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	var cl claims
	_, err = jwt.ParseWithClaims(c.Value, &cl, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if cl.Subject == "" {
		return nil, ErrNoSession
	}
	s := &Session{UserID: cl.Subject, Email: cl.Email, Name: cl.Name}
	if cl.ExpiresAt != nil {
		s.ExpiresAt = cl.ExpiresAt.Time
	}
	return s, nil
}

// Middleware attaches the session to the request context when the cookie is valid
// and the verifier, if any, still accepts the user. Stale cookies are cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Parse(r)
		if err == nil {
			if m.verify != nil && !m.verify(r.Context(), s.UserID) {
				m.End(w)
			} else {
				r = r.WithContext(WithSession(r.Context(), s))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require redirects anonymous HTML requests to /login and answers 401 to JSON callers.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			if httpx.WantsJSON(r) {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return s.UserID, true
}
