package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/httpx"
)

// PageHandler serves the public landing page, the health check and the
// catch-all redirect.
type PageHandler struct {
	DB *gorm.DB
}

func (h *PageHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.landing)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

func (h *PageHandler) landing(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "index", nil)
}

func (h *PageHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
