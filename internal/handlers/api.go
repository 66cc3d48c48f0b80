package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/gestion-chantier/httpx"
	"github.com/diewo77/gestion-chantier/internal/geo"
	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/planning"
	"github.com/diewo77/gestion-chantier/internal/services"
)

// keepAlive is the interval of SSE comment frames on idle streams.
const keepAlive = 25 * time.Second

// Suggester finds municipalities for the autocomplete field.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]geo.Suggestion, error)
}

type APIHandler struct {
	Geo      Suggester
	Clients  *services.ClientService
	Sites    *services.JobSiteService
	Planning *services.PlanningService
	Bus      live.Bus
	Now      func() time.Time
}

func (h *APIHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("GET /api/communes", guard.fn(h.communes))
	mux.Handle("GET /api/planning", guard.fn(h.planning))
	mux.Handle("GET /api/flux/{collection}", guard.fn(h.stream))
}

func (h *APIHandler) communes(w http.ResponseWriter, r *http.Request) {
	out, err := h.Geo.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Warn("geocoding failed", "error", err)
		httpx.JSONError(w, http.StatusBadGateway, "geocoding_unavailable", nil)
		return
	}
	if out == nil {
		out = []geo.Suggestion{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *APIHandler) year(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("annee")
	if raw == "" {
		if h.Now != nil {
			return h.Now().Year(), true
		}
		return time.Now().Year(), true
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1 || y > 9998 {
		return 0, false
	}
	return y, true
}

func (h *APIHandler) planning(w http.ResponseWriter, r *http.Request) {
	year, ok := h.year(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_year", nil)
		return
	}
	entries, err := h.Planning.Entries(r.Context(), year)
	if err != nil {
		slog.Error("load planning", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *APIHandler) stream(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("collection") {
	case live.TopicClients:
		serveFeed(w, r, live.Feed[[]models.Client]{Bus: h.Bus, Topic: live.TopicClients, Load: h.Clients.List})
	case live.TopicJobSites:
		serveFeed(w, r, live.Feed[[]models.JobSite]{Bus: h.Bus, Topic: live.TopicJobSites, Load: h.Sites.List})
	case live.TopicPlanning:
		year, ok := h.year(r)
		if !ok {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_year", nil)
			return
		}
		serveFeed(w, r, live.Feed[[]planning.Entry]{Bus: h.Bus, Topic: live.TopicPlanning, Load: func(ctx context.Context) ([]planning.Entry, error) {
			return h.Planning.Entries(ctx, year)
		}})
	default:
		httpx.JSONError(w, http.StatusNotFound, "unknown_collection", nil)
	}
}

// serveFeed streams snapshots as "event: snapshot" frames until the client goes away.
func serveFeed[T any](w http.ResponseWriter, r *http.Request, feed live.Feed[T]) {
	sub, err := feed.Subscribe(r.Context())
	if err != nil {
		slog.Error("subscribe feed", "topic", feed.Topic, "error", err)
		httpx.JSONError(w, http.StatusServiceUnavailable, "live_unavailable", nil)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// long-lived stream: lift the server write timeout for this response only
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("write deadline not adjustable", "error", err)
	}
	httpx.SSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()
	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			if err := httpx.SSE(w, "snapshot", snap); err != nil {
				return
			}
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
