package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/diewo77/gestion-chantier/i18n"
)

const flashCookie = "flash"

// Flash levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// FlashMessage is a one-shot notice shown on the next page.
type FlashMessage struct {
	Level string
	Text  string
}

// Flash stores a success notice for the next page. code is an i18n key.
func Flash(w http.ResponseWriter, code string) { setFlash(w, LevelSuccess, code) }

// FlashError stores an error notice for the next page.
func FlashError(w http.ResponseWriter, code string) { setFlash(w, LevelError, code) }

func setFlash(w http.ResponseWriter, level, code string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(level + ":" + code),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TakeFlash reads and clears the pending notice, translated for the request
// language. ok is false when there is none.
func TakeFlash(w http.ResponseWriter, r *http.Request) (FlashMessage, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return FlashMessage{}, false
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return FlashMessage{}, false
	}
	level, code, found := strings.Cut(raw, ":")
	if !found || (level != LevelSuccess && level != LevelError) {
		level, code = LevelSuccess, raw
	}
	return FlashMessage{Level: level, Text: i18n.T(LangFrom(r), code)}, true
}
