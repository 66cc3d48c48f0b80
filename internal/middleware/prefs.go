// Package middleware holds the request-scoped helpers shared by every page:
// language preference, flash messages and structured request logs.
package middleware

import (
	"net/http"

	"github.com/diewo77/gestion-chantier/i18n"
)

const langCookie = "lang"

// Prefs resolves the UI language (query > cookie > Accept-Language) and stores
// it in the request context. A language given in the query is kept in a cookie
// for 30 days.
func Prefs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := ""
		if c, err := r.Cookie(langCookie); err == nil {
			lang = c.Value
		}
		if ql := r.URL.Query().Get("lang"); supported(ql) {
			lang = ql
			http.SetCookie(w, &http.Cookie{Name: langCookie, Value: lang, Path: "/", MaxAge: 86400 * 30, SameSite: http.SameSiteLaxMode})
		}
		if !supported(lang) {
			lang = i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

// LangFrom returns the language chosen by Prefs.
func LangFrom(r *http.Request) string { return i18n.LangFromContext(r.Context()) }

func supported(lang string) bool { return lang == "fr" || lang == "en" }
