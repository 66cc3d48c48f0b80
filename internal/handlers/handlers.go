// Package handlers serves the pages, form actions and JSON API of the back office.
//
// Every form action follows Post/Redirect/Get: the outcome is stored as a flash
// message and the browser is sent back to a stable page.
package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/services"
	"github.com/diewo77/gestion-chantier/view"
)

// Explicit constant for 303 See Other (Post/Redirect/Get)
const statusSeeOther = http.StatusSeeOther

const dashboardPath = "/tableau-bord"

// Guard wraps routes that need a signed-in user.
type Guard func(http.Handler) http.Handler

func (g Guard) fn(f http.HandlerFunc) http.Handler {
	if g == nil {
		return f
	}
	return g(f)
}

// renderTemplate uses the shared view.Render to ensure layout, partials, funcs, and caching.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	renderStatus(w, r, http.StatusOK, name, data)
}

func renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if err := view.RenderStatus(w, r, status, name+".html", data); err != nil {
		slog.Error("render template", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// outcome names the flash codes of one action.
type outcome struct {
	ok       string
	invalid  string
	notFound string
}

// report stores the flash matching err and tells whether the action succeeded.
func report(w http.ResponseWriter, r *http.Request, err error, o outcome) bool {
	switch {
	case err == nil:
		middleware.Flash(w, o.ok)
		return true
	case errors.Is(err, services.ErrInvalid) && o.invalid != "":
		slog.Info("rejected form", "path", r.URL.Path, "error", err)
		middleware.FlashError(w, o.invalid)
	case errors.Is(err, services.ErrNotFound) && o.notFound != "":
		middleware.FlashError(w, o.notFound)
	case errors.Is(err, services.ErrReadOnly):
		middleware.FlashError(w, "event.read_only")
	default:
		slog.Error("action failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.FlashError(w, "error.generic")
	}
	return false
}

// backTo returns the local path posted in "retour", or fallback. Absolute and
// protocol-relative URLs are ignored.
func backTo(r *http.Request, fallback string) string {
	p := r.FormValue("retour")
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return fallback
	}
	return p
}

func formAmount(r *http.Request, key string) float64 {
	return services.ParseAmount(r.FormValue(key))
}

// formOptFloat returns nil for a blank, malformed or non-finite value.
func formOptFloat(r *http.Request, key string) *float64 {
	raw := strings.TrimSpace(strings.ReplaceAll(r.FormValue(key), ",", "."))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// formDate parses a yyyy-mm-dd value at midnight in loc; blank or malformed gives nil.
func formDate(r *http.Request, key string, loc *time.Location) *time.Time {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil
	}
	return &t
}
