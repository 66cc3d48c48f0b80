package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/diewo77/gestion-chantier/internal/storage"
)

// FileHandler serves stored objects back to signed-in users.
type FileHandler struct {
	Store storage.ObjectStore
}

func (h *FileHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("GET "+storage.URLPrefix+"{path...}", guard.fn(h.serve))
}

func (h *FileHandler) serve(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(r.PathValue("path"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	obj, err := h.Store.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	defer obj.Close()

	info := obj.Info()
	name := path.Base(key)
	disposition := "attachment"
	if previewable(info.ContentType) && r.URL.Query().Get("telecharger") != "1" {
		disposition = "inline"
	}
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "sandbox")
	http.ServeContent(w, r, name, info.ModTime, obj)
}

// previewable reports whether a browser may render ct in a tab. SVG can carry script.
func previewable(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/pdf" || (strings.HasPrefix(mt, "image/") && mt != "image/svg+xml")
}
