package view

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/gestion-chantier/auth"
	"github.com/diewo77/gestion-chantier/i18n"
	"github.com/diewo77/gestion-chantier/internal/models"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRenderWithLayoutAndPartials(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"layout.html":         `<html>{{template "badge" .}}|{{template "content" .}}|{{if .IsLoggedIn}}in{{else}}out{{end}}</html>`,
		"partials/badge.html": `{{define "badge"}}<b>{{t "nav.dashboard"}}</b>{{end}}`,
		"page.html":           `{{define "content"}}{{money .Amount}} {{status .Status}} {{bytes .Size}} {{.Name}}{{end}}`,
	})
	SetBaseDir(dir)
	defer ResetForTests()

	data := map[string]any{"Amount": 1234.5, "Status": models.StatusDone, "Size": int64(2048), "Name": "<script>"}
	for _, lang := range []string{"fr", "en"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(i18n.WithLang(r.Context(), lang))
		rr := httptest.NewRecorder()
		if err := Render(rr, r, "page.html", copyMap(data)); err != nil {
			t.Fatalf("render %s: %v", lang, err)
		}
		body := rr.Body.String()
		if strings.Contains(body, "<script>") {
			t.Fatalf("value not escaped: %s", body)
		}
		if !strings.Contains(body, "|out</html>") || !strings.Contains(body, "2.0 kB") {
			t.Fatalf("unexpected body: %s", body)
		}
		want := map[string]string{"fr": "Terminé", "en": "Done"}[lang]
		if !strings.Contains(body, want) {
			t.Fatalf("%s: missing %q in %s", lang, want, body)
		}
	}
}

func TestRenderInjectsSessionAndFlash(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"full.html": `<!DOCTYPE html>{{.Session.Email}} {{.Flash}}`,
	})
	SetBaseDir(dir)
	defer ResetForTests()
	SetFlashResolver(func(http.ResponseWriter, *http.Request) any { return "bravo" })
	defer SetFlashResolver(nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(auth.WithSession(r.Context(), &auth.Session{UserID: "u1", Email: "chef@acj.fr"}))
	rr := httptest.NewRecorder()
	if err := Render(rr, r, "full.html", nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := rr.Body.String(); got != "<!DOCTYPE html>chef@acj.fr bravo" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	SetBaseDir(t.TempDir())
	defer ResetForTests()
	err := Render(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "nope.html", nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDateFunc(t *testing.T) {
	date := Funcs(nil)["date"].(func(any) string)
	d := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
	if got := date(&d); got != i18n.Date("fr", d) {
		t.Fatalf("got %q", got)
	}
	var none *time.Time
	if got := date(none); got != "" {
		t.Fatalf("nil date rendered as %q", got)
	}
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
