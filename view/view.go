// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/diewo77/gestion-chantier/auth"
	"github.com/diewo77/gestion-chantier/i18n"
	"github.com/diewo77/gestion-chantier/internal/models"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
	assetManifest     map[string]string
	assetManifestOnce sync.Once

	devMode       = os.Getenv("DEV") == "1"
	flashResolver func(http.ResponseWriter, *http.Request) any
)

// SetFlashResolver sets the callback that pops the pending flash message for a page.
func SetFlashResolver(f func(http.ResponseWriter, *http.Request) any) {
	flashResolver = f
}

// SetDev toggles template reloading on every request.
func SetDev(dev bool) { devMode = dev }

// layoutBase walks upward from a template path to find the directory that contains layout.html.
// If none is found, it returns the template's own directory.
func layoutBase(mainPath string) string {
	d := filepath.Dir(mainPath)
	for {
		lp := filepath.Join(d, "layout.html")
		if fi, err := os.Stat(lp); err == nil && !fi.IsDir() {
			return d
		}
		p := filepath.Dir(d)
		if p == d {
			return filepath.Dir(mainPath)
		}
		d = p
	}
}

func detectBase() {
	for _, c := range []string{"templates", "../templates", "../../templates"} {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the template helpers bound to the request language.
func Funcs(r *http.Request) template.FuncMap {
	lang := i18n.DefaultLang
	if r != nil {
		lang = i18n.LangFromContext(r.Context())
	}
	return template.FuncMap{
		"t":     func(code string) string { return i18n.T(lang, code) },
		"lang":  func() string { return lang },
		"year":  func() int { return time.Now().Year() },
		"asset": resolveAsset,
		"money": func(v float64) string { return i18n.Money(lang, v) },
		"number": func(v float64) string {
			return i18n.Number(lang, v)
		},
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return i18n.Date(lang, v)
			case *time.Time:
				if v != nil {
					return i18n.Date(lang, *v)
				}
			}
			return ""
		},
		"isoDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(time.DateOnly)
		},
		"clock": func(t time.Time) string { return t.Format("15:04") },
		"bytes": func(n int64) string {
			if n < 0 {
				n = 0
			}
			return humanize.Bytes(uint64(n))
		},
		"ago":         humanize.Time,
		"status":      func(s models.Status) string { return i18n.T(lang, "status."+string(s)) },
		"statusClass": statusClass,
		"month":       func(y int, m time.Month) string { return i18n.MonthYearLong(lang, y, m) },
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
		"pct": func(part, whole float64) float64 {
			if whole <= 0 {
				return 0
			}
			return part / whole * 100
		},
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

func statusClass(s models.Status) string {
	switch s {
	case models.StatusDone:
		return "badge-done"
	case models.StatusUrgent:
		return "badge-urgent"
	case models.StatusQuote:
		return "badge-quote"
	default:
		return "badge-progress"
	}
}

// versionedAsset returns /static/<name>?v=<hash> for cache busting.
func versionedAsset(rel string) string {
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	b, err := os.ReadFile(filepath.Join("static", rel))
	if err != nil {
		return "/static/" + rel
	}
	h := sha1.Sum(b)
	return "/static/" + rel + "?v=" + fmt.Sprintf("%x", h[:8])
}

// resolveAsset prefers a hashed filename from manifest.json then falls back to query param versioning.
func resolveAsset(rel string) string {
	if devMode {
		parseManifest()
	} else {
		assetManifestOnce.Do(parseManifest)
	}
	if h, ok := assetManifest[rel]; ok {
		return "/static/" + h
	}
	return versionedAsset(rel)
}

func parseManifest() {
	b, err := os.ReadFile(filepath.Join("static", "manifest.json"))
	if err != nil {
		return
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return
	}
	assetManifest = m
}

// SetBaseDir overrides the template base directory (useful for tests or custom setups).
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = filepath.Clean(path)
	once = sync.Once{}
}

// ResetForTests clears caches and forces base dir detection to rerun.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = ""
	once = sync.Once{}
}

// Render executes the page template name (e.g. "dashboard.html") wrapped in
// layout.html unless the page is a full document. Common keys (Year, Session,
// IsLoggedIn, Flash) are injected when absent.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code. Nothing is written when
// the template fails, so the caller can still send an error page.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		s, ok := auth.FromContext(r.Context())
		data["IsLoggedIn"] = ok
		data["Session"] = s
	}
	if _, exists := data["Flash"]; !exists && flashResolver != nil {
		data["Flash"] = flashResolver(w, r)
	}

	t, err := lookup(name)
	if err != nil {
		return err
	}
	// funcs are rebound on a clone so the cached tree stays language neutral
	t, err = t.Clone()
	if err != nil {
		return err
	}
	t.Funcs(Funcs(r))

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func lookup(name string) (*template.Template, error) {
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[name]
		tplCache.RUnlock()
		if ok {
			return t, nil
		}
	}
	t, err := parse(name)
	if err != nil {
		return nil, err
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[name] = t
		tplCache.Unlock()
	}
	return t, nil
}

func parse(name string) (*template.Template, error) {
	if baseDir == "" {
		once.Do(detectBase)
	}
	mainPath := filepath.Join(baseDir, name)
	if _, err := os.Stat(mainPath); err != nil {
		return nil, err
	}
	root := layoutBase(mainPath)
	layoutPath := filepath.Join(root, "layout.html")
	content, err := os.ReadFile(mainPath)
	if err != nil {
		return nil, err
	}
	funcs := Funcs(nil)
	if bytes.Contains(bytes.ToLower(content), []byte("<!doctype")) {
		return template.New(name).Funcs(funcs).ParseFiles(mainPath)
	}
	files := []string{layoutPath, mainPath}
	partials, _ := filepath.Glob(filepath.Join(root, "partials", "*.html"))
	files = append(files, partials...)
	return template.New("layout.html").Funcs(funcs).ParseFiles(files...)
}
