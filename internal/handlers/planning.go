package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/planning"
	"github.com/diewo77/gestion-chantier/internal/services"
)

type PlanningHandler struct {
	Planning *services.PlanningService
}

func (h *PlanningHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("POST /planning", guard.fn(h.create))
	mux.Handle("POST /planning/{id}/supprimer", guard.fn(h.delete))
}

func planningPath(month string) string {
	q := url.Values{"vue": {ViewPlanning}}
	if _, err := time.Parse("2006-01", month); err == nil {
		q.Set("mois", month)
	}
	return dashboardPath + "?" + q.Encode()
}

func (h *PlanningHandler) create(w http.ResponseWriter, r *http.Request) {
	d := planning.Draft{
		Title:     r.FormValue("titre"),
		Type:      models.EventType(r.FormValue("type")),
		StartDate: r.FormValue("date_debut"),
		StartTime: r.FormValue("heure_debut"),
		EndDate:   r.FormValue("date_fin"),
		EndTime:   r.FormValue("heure_fin"),
	}
	_, err := h.Planning.Create(r.Context(), d)
	report(w, r, err, outcome{ok: "event.created", invalid: "event.invalid"})
	month := ""
	if len(d.StartDate) >= 7 {
		month = d.StartDate[:7]
	}
	http.Redirect(w, r, planningPath(month), statusSeeOther)
}

// delete refuses computed holidays; only stored events can go.
func (h *PlanningHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.Planning.Delete(r.Context(), r.PathValue("id"))
	report(w, r, err, outcome{ok: "event.deleted", notFound: "error.generic"})
	http.Redirect(w, r, planningPath(r.FormValue("mois")), statusSeeOther)
}
