package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/pdf"
	"github.com/diewo77/gestion-chantier/internal/services"
)

type JobSiteHandler struct {
	Clients   *services.ClientService
	Sites     *services.JobSiteService
	Documents *services.DocumentService
	Location  *time.Location
}

func (h *JobSiteHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("POST /chantiers", guard.fn(h.create))
	mux.Handle("POST /chantiers/{id}/supprimer", guard.fn(h.delete))
	mux.Handle("GET /chantier/{id}", guard.fn(h.show))
	mux.Handle("POST /chantier/{id}", guard.fn(h.update))
	mux.Handle("POST /chantier/{id}/materiaux", guard.fn(h.addMaterial))
	mux.Handle("POST /chantier/{id}/materiaux/{mid}/supprimer", guard.fn(h.removeMaterial))
	mux.Handle("POST /chantier/{id}/documents", guard.fn(h.upload))
	mux.Handle("POST /chantier/{id}/documents/supprimer", guard.fn(h.deleteDocument))
	mux.Handle("POST /chantier/{id}/generer", guard.fn(h.generate))
}

func sitePath(id string) string { return "/chantier/" + id }

// siteGone sends the browser back to the dashboard when the site no longer exists.
func siteGone(w http.ResponseWriter, r *http.Request) {
	middleware.FlashError(w, "site.not_found")
	http.Redirect(w, r, dashboardPath, statusSeeOther)
}

// after redirects to the site page, or to the dashboard when err says the site is gone.
func (h *JobSiteHandler) after(w http.ResponseWriter, r *http.Request, err error, o outcome) {
	if errors.Is(err, services.ErrNotFound) {
		siteGone(w, r)
		return
	}
	report(w, r, err, o)
	http.Redirect(w, r, sitePath(r.PathValue("id")), statusSeeOther)
}

func (h *JobSiteHandler) siteInput(r *http.Request) services.JobSiteInput {
	return services.JobSiteInput{
		Name:        r.FormValue("nom"),
		City:        r.FormValue("ville"),
		ClientID:    r.FormValue("client"),
		Status:      models.Status(r.FormValue("statut")),
		Amount:      formAmount(r, "montant"),
		InvoiceDate: formDate(r, "date_facturation", h.Location),
		Latitude:    formOptFloat(r, "latitude"),
		Longitude:   formOptFloat(r, "longitude"),
	}
}

func (h *JobSiteHandler) create(w http.ResponseWriter, r *http.Request) {
	_, err := h.Sites.Create(r.Context(), h.siteInput(r))
	report(w, r, err, outcome{ok: "site.created", invalid: "site.invalid"})
	http.Redirect(w, r, backTo(r, dashboardPath), statusSeeOther)
}

func (h *JobSiteHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.Sites.Delete(r.Context(), r.PathValue("id"))
	report(w, r, err, outcome{ok: "site.deleted", notFound: "site.not_found"})
	http.Redirect(w, r, backTo(r, dashboardPath), statusSeeOther)
}

func (h *JobSiteHandler) show(w http.ResponseWriter, r *http.Request) {
	site, err := h.Sites.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, services.ErrNotFound) {
		siteGone(w, r)
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	clients, err := h.Clients.List(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	clientID := ""
	if site.ClientID != nil {
		clientID = *site.ClientID
	}
	renderTemplate(w, r, "chantier", map[string]any{
		"Site":     site,
		"ClientID": clientID,
		"Clients":  clients,
		"Statuses": models.Statuses,
		"Total":    site.MaterialsTotal(),
		"DocTypes": []pdf.DocType{pdf.Quote, pdf.Invoice},
		"MaxBytes": int64(services.MaxUploadBytes),
	})
}

func (h *JobSiteHandler) update(w http.ResponseWriter, r *http.Request) {
	_, err := h.Sites.Update(r.Context(), r.PathValue("id"), h.siteInput(r))
	h.after(w, r, err, outcome{ok: "site.saved", invalid: "site.invalid"})
}

func (h *JobSiteHandler) addMaterial(w http.ResponseWriter, r *http.Request) {
	_, err := h.Sites.AddMaterial(r.Context(), r.PathValue("id"), services.MaterialInput{
		Name:      r.FormValue("designation"),
		Quantity:  formAmount(r, "quantite"),
		UnitPrice: formAmount(r, "prix_unitaire"),
	})
	h.after(w, r, err, outcome{ok: "material.added", invalid: "material.invalid"})
}

func (h *JobSiteHandler) removeMaterial(w http.ResponseWriter, r *http.Request) {
	mid, err := strconv.ParseInt(r.PathValue("mid"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	err = h.Sites.RemoveMaterial(r.Context(), r.PathValue("id"), mid)
	h.after(w, r, err, outcome{ok: "material.removed"})
}

func (h *JobSiteHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			middleware.FlashError(w, "too_large")
		} else {
			slog.Warn("bad upload form", "error", err)
			middleware.FlashError(w, "file.upload_failed")
		}
		http.Redirect(w, r, sitePath(r.PathValue("id")), statusSeeOther)
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, hdr, err := r.FormFile("fichier")
	if err != nil {
		middleware.FlashError(w, "file.missing")
		http.Redirect(w, r, sitePath(r.PathValue("id")), statusSeeOther)
		return
	}
	defer file.Close()
	_, err = h.Documents.Upload(r.Context(), r.PathValue("id"), hdr.Filename, hdr.Header.Get("Content-Type"), hdr.Size, file)
	h.after(w, r, err, outcome{ok: "file.uploaded", invalid: "too_large"})
}

func (h *JobSiteHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.Documents.Delete(r.Context(), id, r.FormValue("path"))
	if errors.Is(err, services.ErrNotFound) {
		// the site may still exist while the file is already gone
		if _, gerr := h.Sites.Get(r.Context(), id); gerr == nil {
			middleware.FlashError(w, "file.not_found")
			http.Redirect(w, r, sitePath(id), statusSeeOther)
			return
		}
	}
	h.after(w, r, err, outcome{ok: "file.deleted"})
}

func (h *JobSiteHandler) generate(w http.ResponseWriter, r *http.Request) {
	_, err := h.Documents.Generate(r.Context(), r.PathValue("id"), pdf.DocType(r.FormValue("type")))
	if err != nil && !errors.Is(err, services.ErrNotFound) && !errors.Is(err, services.ErrInvalid) {
		slog.Error("document generation failed", "site", r.PathValue("id"), "error", err)
		middleware.FlashError(w, "pdf.failed")
		http.Redirect(w, r, sitePath(r.PathValue("id")), statusSeeOther)
		return
	}
	h.after(w, r, err, outcome{ok: "pdf.generated", invalid: "pdf.failed"})
}
