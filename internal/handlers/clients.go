package handlers

import (
	"net/http"
	"net/url"

	"github.com/diewo77/gestion-chantier/internal/services"
)

type ClientHandler struct {
	Clients *services.ClientService
}

func (h *ClientHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("POST /clients", guard.fn(h.create))
	mux.Handle("POST /clients/{id}/renommer", guard.fn(h.rename))
	mux.Handle("POST /clients/{id}/supprimer", guard.fn(h.delete))
}

func foldersPath(clientID string) string {
	q := url.Values{"vue": {ViewFolders}}
	if clientID != "" {
		q.Set("client", clientID)
	}
	return dashboardPath + "?" + q.Encode()
}

func (h *ClientHandler) create(w http.ResponseWriter, r *http.Request) {
	c, err := h.Clients.Create(r.Context(), r.FormValue("nom"))
	if report(w, r, err, outcome{ok: "client.created", invalid: "client.invalid"}) {
		http.Redirect(w, r, foldersPath(c.ID), statusSeeOther)
		return
	}
	http.Redirect(w, r, foldersPath(""), statusSeeOther)
}

func (h *ClientHandler) rename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.Clients.Rename(r.Context(), id, r.FormValue("nom"))
	report(w, r, err, outcome{ok: "client.renamed", invalid: "client.invalid", notFound: "client.not_found"})
	http.Redirect(w, r, foldersPath(id), statusSeeOther)
}

// delete keeps the client's job sites; they show up as unclassified afterwards.
func (h *ClientHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.Clients.Delete(r.Context(), r.PathValue("id"))
	report(w, r, err, outcome{ok: "client.deleted", notFound: "client.not_found"})
	http.Redirect(w, r, foldersPath(""), statusSeeOther)
}
