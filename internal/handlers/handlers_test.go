package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gestion-chantier/auth"
	"github.com/diewo77/gestion-chantier/internal/geo"
	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/pdf"
	"github.com/diewo77/gestion-chantier/internal/services"
	"github.com/diewo77/gestion-chantier/internal/storage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.JobSite{}, &models.ScheduleEvent{}, &models.CompanySettings{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeGeo struct {
	out []geo.Suggestion
	err error
}

func (f fakeGeo) Suggest(context.Context, string) ([]geo.Suggestion, error) { return f.out, f.err }

// env is a back office mounted without the session guard.
type env struct {
	mux      *http.ServeMux
	clients  *services.ClientService
	sites    *services.JobSiteService
	planning *services.PlanningService
	users    *services.UserService
	store    *storage.FileStore
	sessions *auth.Manager
	bus      *live.MemoryBus
}

var today = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newEnv(t *testing.T, suggester Suggester) *env {
	t.Helper()
	db := setupTestDB(t)
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	bus := live.NewMemoryBus()
	e := &env{
		mux:      http.NewServeMux(),
		clients:  services.NewClientService(db, bus),
		sites:    services.NewJobSiteService(db, bus),
		planning: services.NewPlanningService(db, bus, time.UTC),
		users:    services.NewUserService(db, []string{"chef@acj.fr"}),
		store:    store,
		sessions: auth.NewManager(auth.Config{Secret: "test-secret"}),
		bus:      bus,
	}
	settings := services.NewSettingsService(db, bus)
	docs := services.NewDocumentService(e.sites, settings, store, pdf.Options{})

	(&PageHandler{DB: db}).Register(e.mux)
	NewAuthHandler(e.users, e.sessions, nil).Register(e.mux)
	(&DashboardHandler{Clients: e.clients, Sites: e.sites, Planning: e.planning, Location: time.UTC, Now: func() time.Time { return today }}).Register(e.mux, nil)
	(&JobSiteHandler{Clients: e.clients, Sites: e.sites, Documents: docs, Location: time.UTC}).Register(e.mux, nil)
	(&ClientHandler{Clients: e.clients}).Register(e.mux, nil)
	(&PlanningHandler{Planning: e.planning}).Register(e.mux, nil)
	(&SettingsHandler{Settings: settings}).Register(e.mux, nil)
	(&FileHandler{Store: store}).Register(e.mux, nil)
	(&APIHandler{Geo: suggester, Clients: e.clients, Sites: e.sites, Planning: e.planning, Bus: bus, Now: func() time.Time { return today }}).Register(e.mux, nil)
	return e
}

func (e *env) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func (e *env) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

// flashOf returns the "level:code" flash set on the response, or "".
func flashOf(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.Value != "" {
			v, _ := url.QueryUnescape(c.Value)
			return v
		}
	}
	return ""
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q got %q", location, got)
	}
}

func TestJobSiteMissingRedirectsToDashboard(t *testing.T) {
	e := newEnv(t, nil)
	w := e.get(t, "/chantier/does-not-exist")
	expectRedirect(t, w, "/tableau-bord")
	if got := flashOf(w); got != "error:site.not_found" {
		t.Fatalf("flash = %q", got)
	}

	w = e.post(t, "/chantier/does-not-exist/materiaux", url.Values{"designation": {"Sable"}, "quantite": {"1"}, "prix_unitaire": {"10"}})
	expectRedirect(t, w, "/tableau-bord")
}

func TestJobSiteCreateShowAndUpdate(t *testing.T) {
	e := newEnv(t, nil)
	client, err := e.clients.Create(context.Background(), "Mairie de Mérignac")
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	w := e.post(t, "/chantiers", url.Values{
		"nom":              {"Réfection chaussée"},
		"ville":            {"Mérignac"},
		"client":           {client.ID},
		"statut":           {string(models.StatusInProgress)},
		"montant":          {"12 500,50"},
		"date_facturation": {"2026-11-02"},
		"latitude":         {"44.84"},
		"longitude":        {"-0.65"},
		"retour":           {"/tableau-bord?vue=carte"},
	})
	expectRedirect(t, w, "/tableau-bord?vue=carte")
	if got := flashOf(w); got != "success:site.created" {
		t.Fatalf("flash = %q", got)
	}

	sites, err := e.sites.List(context.Background())
	if err != nil || len(sites) != 1 {
		t.Fatalf("sites: %v %d", err, len(sites))
	}
	site := sites[0]
	if site.Amount != 12500.5 || site.ClientName != "Mairie de Mérignac" || !site.HasCoordinates() {
		t.Fatalf("unexpected site %+v", site)
	}
	if site.InvoiceDate == nil || site.InvoiceDate.Format(time.DateOnly) != "2026-11-02" {
		t.Fatalf("invoice date = %v", site.InvoiceDate)
	}

	show := e.get(t, "/chantier/"+site.ID)
	if show.Code != http.StatusOK {
		t.Fatalf("show: %d %s", show.Code, show.Body.String())
	}
	body := show.Body.String()
	for _, want := range []string{"Réfection chaussée", `value="12500.50"`, `value="2026-11-02"`, "Aucun matériau."} {
		if !strings.Contains(body, want) {
			t.Errorf("page misses %q", want)
		}
	}

	w = e.post(t, "/chantier/"+site.ID, url.Values{"nom": {"Réfection chaussée Nord"}, "statut": {string(models.StatusDone)}, "montant": {"13000"}})
	expectRedirect(t, w, "/chantier/"+site.ID)
	got, _ := e.sites.Get(context.Background(), site.ID)
	if got.Name != "Réfection chaussée Nord" || got.City != "" || got.Status != models.StatusDone || got.ClientID != nil {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestJobSiteCreateRejectsInvalidAndForeignReturn(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/chantiers", url.Values{"nom": {"  "}, "statut": {"Devis"}, "retour": {"//evil.example"}})
	expectRedirect(t, w, "/tableau-bord")
	if got := flashOf(w); got != "error:site.invalid" {
		t.Fatalf("flash = %q", got)
	}
	sites, _ := e.sites.List(context.Background())
	if len(sites) != 0 {
		t.Fatalf("invalid site stored")
	}
}

func TestJobSiteCreateIgnoresNonFiniteCoordinates(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/chantiers", url.Values{"nom": {"Quai"}, "statut": {string(models.StatusQuote)}, "latitude": {"NaN"}, "longitude": {"+Inf"}})
	expectRedirect(t, w, "/tableau-bord")
	sites, _ := e.sites.List(context.Background())
	if len(sites) != 1 || sites[0].Latitude != nil || sites[0].Longitude != nil {
		t.Fatalf("non-finite coordinates stored: %+v", sites)
	}
	if _, err := json.Marshal(sites[0]); err != nil {
		t.Fatalf("site no longer encodes: %v", err)
	}
}

func TestMaterialsRoutes(t *testing.T) {
	e := newEnv(t, nil)
	site, err := e.sites.Create(context.Background(), services.JobSiteInput{Name: "Cour d'école", Status: models.StatusQuote})
	if err != nil {
		t.Fatalf("site: %v", err)
	}
	w := e.post(t, "/chantier/"+site.ID+"/materiaux", url.Values{"designation": {"Enrobé"}, "quantite": {"2,5"}, "prix_unitaire": {"100"}})
	expectRedirect(t, w, "/chantier/"+site.ID)
	if got := flashOf(w); got != "success:material.added" {
		t.Fatalf("flash = %q", got)
	}
	got, _ := e.sites.Get(context.Background(), site.ID)
	if len(got.Materials) != 1 || got.MaterialsTotal() != 250 {
		t.Fatalf("materials = %+v", got.Materials)
	}

	w = e.post(t, fmt.Sprintf("/chantier/%s/materiaux/%d/supprimer", site.ID, got.Materials[0].ID), nil)
	expectRedirect(t, w, "/chantier/"+site.ID)
	got, _ = e.sites.Get(context.Background(), site.ID)
	if len(got.Materials) != 0 {
		t.Fatalf("material not removed")
	}

	w = e.post(t, "/chantier/"+site.ID+"/materiaux/abc/supprimer", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed material id, got %d", w.Code)
	}
}

func TestClientRoutes(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/clients", url.Values{"nom": {"Bordeaux Métropole"}})
	clients, _ := e.clients.List(context.Background())
	if len(clients) != 1 {
		t.Fatalf("clients = %d", len(clients))
	}
	id := clients[0].ID
	expectRedirect(t, w, "/tableau-bord?client="+id+"&vue=dossiers")

	w = e.post(t, "/clients/"+id+"/renommer", url.Values{"nom": {""}})
	if got := flashOf(w); got != "error:client.invalid" {
		t.Fatalf("flash = %q", got)
	}
	w = e.post(t, "/clients/unknown/renommer", url.Values{"nom": {"X"}})
	if got := flashOf(w); got != "error:client.not_found" {
		t.Fatalf("flash = %q", got)
	}
	w = e.post(t, "/clients/"+id+"/supprimer", nil)
	expectRedirect(t, w, "/tableau-bord?vue=dossiers")
	if got := flashOf(w); got != "success:client.deleted" {
		t.Fatalf("flash = %q", got)
	}
}

func TestPlanningRoutes(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/planning", url.Values{
		"titre":       {"Réunion de chantier"},
		"type":        {string(models.EventMeeting)},
		"date_debut":  {"2026-10-20"},
		"heure_debut": {"09:00"},
		"date_fin":    {"2026-10-20"},
		"heure_fin":   {"10:30"},
	})
	expectRedirect(t, w, "/tableau-bord?mois=2026-10&vue=planning")
	if got := flashOf(w); got != "success:event.created" {
		t.Fatalf("flash = %q", got)
	}

	w = e.post(t, "/planning/ferie-2026-0/supprimer", url.Values{"mois": {"2026-01"}})
	expectRedirect(t, w, "/tableau-bord?mois=2026-01&vue=planning")
	if got := flashOf(w); got != "error:event.read_only" {
		t.Fatalf("flash = %q", got)
	}

	events, _ := e.planning.List(context.Background())
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	w = e.post(t, "/planning/"+events[0].ID+"/supprimer", url.Values{"mois": {"nonsense"}})
	expectRedirect(t, w, "/tableau-bord?vue=planning")
	if got := flashOf(w); got != "success:event.deleted" {
		t.Fatalf("flash = %q", got)
	}
}

func TestDashboardViews(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	lat, lon := 44.84, -0.58
	if _, err := e.sites.Create(ctx, services.JobSiteInput{Name: "Place Gambetta", City: "Bordeaux", Status: models.StatusDone, Amount: 8000, Latitude: &lat, Longitude: &lon}); err != nil {
		t.Fatalf("site: %v", err)
	}

	cases := []struct {
		target string
		want   []string
	}{
		{"/tableau-bord", []string{"Place Gambetta", "Nouveau chantier"}},
		{"/tableau-bord?vue=carte", []string{`id="map"`, "Place Gambetta"}},
		{"/tableau-bord?vue=planning&mois=2026-05&nouveau=2026-05-12", []string{"Nouvel événement", `value="2026-05-12"`, `value="08:00"`, "Fête du Travail"}},
		{"/tableau-bord?vue=dossiers&client=orphan", []string{"Non classés", "Place Gambetta"}},
		{"/tableau-bord?vue=inconnue&q=zzz", []string{"Aucun chantier."}},
	}
	for _, tc := range cases {
		w := e.get(t, tc.target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", tc.target, w.Code, w.Body.String())
		}
		for _, want := range tc.want {
			if !strings.Contains(w.Body.String(), want) {
				t.Errorf("%s: body misses %q", tc.target, want)
			}
		}
	}
}

func TestDashboardFiguresIgnoreFilters(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	lat, lon := 44.84, -0.58
	for _, in := range []services.JobSiteInput{
		{Name: "Chantier Alpha", City: "Bordeaux", Status: models.StatusDone, Amount: 600, Latitude: &lat, Longitude: &lon},
		{Name: "Chantier Beta", City: "Talence", Status: models.StatusDone, Amount: 234},
	} {
		if _, err := e.sites.Create(ctx, in); err != nil {
			t.Fatalf("site: %v", err)
		}
	}

	for _, target := range []string{"/tableau-bord", "/tableau-bord?q=Beta", "/tableau-bord?client=orphan&q=Beta"} {
		body := e.get(t, target).Body.String()
		if !strings.Contains(body, "834,00") {
			t.Errorf("%s: invoiced total should cover every site", target)
		}
	}
	if body := e.get(t, "/tableau-bord?vue=carte&q=Beta").Body.String(); !strings.Contains(body, "Chantier Alpha") {
		t.Errorf("map lost a marker to the search filter")
	}
}

func TestSettingsRoutes(t *testing.T) {
	e := newEnv(t, nil)
	w := e.get(t, "/parametres")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ACJ DÉVELOPPEMENT") {
		t.Fatalf("defaults not shown: %d", w.Code)
	}

	w = e.post(t, "/parametres", url.Values{"nom": {""}, "email": {"nope"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `class="error"`) {
		t.Fatalf("violations not rendered")
	}

	w = e.post(t, "/parametres", url.Values{"nom": {"ACJ"}, "siret": {"123"}})
	expectRedirect(t, w, "/parametres")
	if got := flashOf(w); got != "success:settings.saved" {
		t.Fatalf("flash = %q", got)
	}
}

func TestFileServing(t *testing.T) {
	e := newEnv(t, nil)
	key := "chantiers/abc/1760431200000_note.txt"
	if err := e.store.Put(context.Background(), key, strings.NewReader("bon pour accord"), 15, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	w := e.get(t, "/stockage/"+key+"?telecharger=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=1760431200000_note.txt" {
		t.Fatalf("disposition = %q", got)
	}
	if w.Body.String() != "bon pour accord" {
		t.Fatalf("body = %q", w.Body.String())
	}

	for name, want := range map[string]string{
		"1760431200000_devis.pdf": "inline",
		"1760431200000_photo.png": "inline",
		"1760431200000_note.txt":  "attachment",
		"1760431200000_page.html": "attachment",
		"1760431200000_plan.svg":  "attachment",
	} {
		k := "chantiers/abc/" + name
		if err := e.store.Put(context.Background(), k, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
		w = e.get(t, "/stockage/"+k)
		if got := w.Header().Get("Content-Disposition"); !strings.HasPrefix(got, want+";") {
			t.Errorf("%s: disposition = %q, want %s", name, got, want)
		}
		if w.Header().Get("Content-Security-Policy") != "sandbox" {
			t.Errorf("%s: missing sandbox policy", name)
		}
	}
	if w := e.get(t, "/stockage/chantiers/abc/missing.pdf"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestCommunes(t *testing.T) {
	e := newEnv(t, fakeGeo{err: errors.New("timeout")})
	w := e.get(t, "/api/communes?q=Mérignac")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "geocoding_unavailable" {
		t.Fatalf("body = %s", w.Body.String())
	}

	e = newEnv(t, fakeGeo{})
	w = e.get(t, "/api/communes?q=Mé")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", w.Code, w.Body.String())
	}
}

func TestPlanningAPI(t *testing.T) {
	e := newEnv(t, nil)
	if w := e.get(t, "/api/planning?annee=deux-mille"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	w := e.get(t, "/api/planning?annee=2026")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var entries []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) == 0 || entries[0]["holiday"] != true {
		t.Fatalf("expected holidays first, got %v", entries)
	}
	if w := e.get(t, "/api/flux/factures"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestStreamSendsSnapshots(t *testing.T) {
	e := newEnv(t, nil)
	srv := httptest.NewServer(e.mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/flux/clients", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		for lines.Scan() {
			if d, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return d
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}
	if got := nextData(); got != "[]" {
		t.Fatalf("first snapshot = %s", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.bus.Subscribers(live.TopicClients) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := e.clients.Create(context.Background(), "Gironde Habitat"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := nextData(); !strings.Contains(got, "Gironde Habitat") {
		t.Fatalf("second snapshot = %s", got)
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t, nil)
	if _, err := e.users.EnsureAdmin(context.Background(), "admin@acj.fr", "motdepasse", "Admin"); err != nil {
		t.Fatalf("admin: %v", err)
	}

	if w := e.get(t, "/login"); w.Code != http.StatusOK {
		t.Fatalf("login page: %d", w.Code)
	}

	w := e.post(t, "/login", url.Values{"email": {"admin@acj.fr"}, "password": {"mauvais"}})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Email ou mot de passe incorrect.") || !strings.Contains(w.Body.String(), `value="admin@acj.fr"`) {
		t.Fatalf("error not rendered: %s", w.Body.String())
	}

	w = e.post(t, "/login", url.Values{"email": {" Admin@ACJ.fr "}, "password": {"motdepasse"}})
	expectRedirect(t, w, "/tableau-bord")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	s, err := e.sessions.Parse(req)
	if err != nil || s.Email != "admin@acj.fr" {
		t.Fatalf("session = %+v, %v", s, err)
	}

	w = e.post(t, "/logout", nil)
	expectRedirect(t, w, "/")
}

func TestLandingHealthAndCatchAll(t *testing.T) {
	e := newEnv(t, nil)
	if w := e.get(t, "/"); w.Code != http.StatusOK {
		t.Fatalf("landing: %d", w.Code)
	}
	if w := e.get(t, "/healthz"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	w := e.get(t, "/nimporte/quoi")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("catch-all: %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestGoogleSignIn(t *testing.T) {
	db := setupTestDB(t)
	provider := http.NewServeMux()
	provider.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	provider.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"email":"chef@acj.fr","email_verified":true,"name":"Chef de chantier"}`)
	})
	srv := httptest.NewServer(provider)
	defer srv.Close()

	users := services.NewUserService(db, []string{"chef@acj.fr"})
	sessions := auth.NewManager(auth.Config{Secret: "test-secret"})
	h := NewAuthHandler(users, sessions, &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		Scopes:       []string{"openid", "email", "profile"},
	})
	h.UserInfoURL = srv.URL + "/userinfo"
	h.HTTPClient = srv.Client()
	mux := http.NewServeMux()
	h.Register(mux)

	start := httptest.NewRecorder()
	mux.ServeHTTP(start, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	if start.Code != http.StatusFound {
		t.Fatalf("start: %d", start.Code)
	}
	loc, _ := url.Parse(start.Header().Get("Location"))
	var state *http.Cookie
	for _, c := range start.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	if state == nil || loc.Query().Get("state") != state.Value {
		t.Fatalf("state cookie does not match redirect %s", loc)
	}

	callback := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query, nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: state.Value})
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	w := callback("state=forged&code=good-code")
	expectRedirect(t, w, "/login")
	if got := flashOf(w); got != "error:auth.google_failed" {
		t.Fatalf("flash = %q", got)
	}

	w = callback("state=" + state.Value + "&code=bad-code")
	expectRedirect(t, w, "/login")

	w = callback("state=" + state.Value + "&code=good-code")
	expectRedirect(t, w, "/tableau-bord")
	var u models.User
	if err := db.Where("email = ?", "chef@acj.fr").First(&u).Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.Provider != models.ProviderGoogle || u.Name != "Chef de chantier" {
		t.Fatalf("user = %+v", u)
	}
}
