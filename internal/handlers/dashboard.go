package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/planning"
	"github.com/diewo77/gestion-chantier/internal/revenue"
	"github.com/diewo77/gestion-chantier/internal/services"
)

// Dashboard views selected by ?vue=.
const (
	ViewOverview = "tableau"
	ViewMap      = "carte"
	ViewPlanning = "planning"
	ViewFolders  = "dossiers"
)

var dashboardViews = []string{ViewOverview, ViewMap, ViewPlanning, ViewFolders}

type DashboardHandler struct {
	Clients  *services.ClientService
	Sites    *services.JobSiteService
	Planning *services.PlanningService
	Location *time.Location
	Now      func() time.Time
}

func (h *DashboardHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("GET "+dashboardPath, guard.fn(h.show))
}

func (h *DashboardHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().In(h.Location)
	}
	return time.Now().In(h.Location)
}

// marker is one job site placed on the map.
type marker struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (h *DashboardHandler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	vue := q.Get("vue")
	if !slices.Contains(dashboardViews, vue) {
		vue = ViewOverview
	}

	clients, err := h.Clients.List(ctx)
	if err != nil {
		serverError(w, r, err)
		return
	}
	sites, err := h.Sites.List(ctx)
	if err != nil {
		serverError(w, r, err)
		return
	}

	selection, selectedName := q.Get("client"), ""
	switch selection {
	case "":
	case services.OrphanSelection:
		selectedName = "Non classés"
	default:
		i := slices.IndexFunc(clients, func(c models.Client) bool { return c.ID == selection })
		if i < 0 {
			selection = ""
		} else {
			selectedName = clients[i].Name
		}
	}
	search := q.Get("q")
	visible := services.Filter(sites, clients, selection, search)
	now := h.now()

	data := map[string]any{
		"View":         vue,
		"Clients":      clients,
		"Sites":        visible,
		"Selection":    selection,
		"SelectedName": selectedName,
		"Orphan":       selection == services.OrphanSelection,
		"Query":        search,
		"Statuses":     models.Statuses,
		"Today":        now.Format(time.DateOnly),
		"Return":       r.URL.RequestURI(),
	}
	if selection != "" {
		data["Selected"] = revenue.Summarize(visible)
	}

	// the filters narrow the tables only; figures and the map cover every site
	switch vue {
	case ViewOverview:
		kpis := revenue.Summarize(sites)
		buckets := revenue.Monthly(sites, now, middleware.LangFrom(r))
		var peak float64
		for _, b := range buckets {
			peak = max(peak, b.Invoiced, b.Projected)
		}
		data["KPIs"] = kpis
		data["Chart"] = buckets
		data["ChartMax"] = peak
	case ViewMap:
		markers := make([]marker, 0, len(sites))
		for _, s := range sites {
			if s.HasCoordinates() {
				markers = append(markers, marker{ID: s.ID, Name: s.Name, City: s.City, Lat: *s.Latitude, Lon: *s.Longitude})
			}
		}
		data["Markers"] = markers
	case ViewPlanning:
		ref := now
		if m, err := time.ParseInLocation("2006-01", q.Get("mois"), h.Location); err == nil {
			ref = m
		}
		entries, err := h.Planning.Entries(ctx, ref.Year())
		if err != nil {
			serverError(w, r, err)
			return
		}
		data["Month"] = planning.Month(ref.Year(), ref.Month(), entries, now, h.Location)
		data["MonthKey"] = ref.Format("2006-01")
		data["EventTypes"] = models.EventTypes
		data["Legend"] = legend()
		if day, err := time.ParseInLocation(time.DateOnly, q.Get("nouveau"), h.Location); err == nil {
			data["Draft"] = planning.SlotDefaults(day, day)
		}
	}
	renderTemplate(w, r, "dashboard", data)
}

type legendItem struct {
	Type  models.EventType
	Style planning.Style
}

func legend() []legendItem {
	types := append(slices.Clone(models.EventTypes), models.EventHoliday)
	out := make([]legendItem, len(types))
	for i, t := range types {
		out[i] = legendItem{Type: t, Style: planning.StyleFor(t)}
	}
	return out
}
