package handlers

import (
	"net/http"

	"github.com/diewo77/gestion-chantier/internal/middleware"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/services"
)

const settingsPath = "/parametres"

type SettingsHandler struct {
	Settings *services.SettingsService
}

func (h *SettingsHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.Handle("GET "+settingsPath, guard.fn(h.show))
	mux.Handle("POST "+settingsPath, guard.fn(h.save))
}

func (h *SettingsHandler) show(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Settings.Get(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	renderTemplate(w, r, "parametres", map[string]any{"Settings": cs})
}

func (h *SettingsHandler) save(w http.ResponseWriter, r *http.Request) {
	cs := models.CompanySettings{
		Name:          r.FormValue("nom"),
		Contact:       r.FormValue("contact"),
		Address:       r.FormValue("adresse"),
		Phone:         r.FormValue("telephone"),
		Email:         r.FormValue("email"),
		LegalStatus:   r.FormValue("forme_juridique"),
		SIRET:         r.FormValue("siret"),
		NAF:           r.FormValue("naf"),
		VATNumber:     r.FormValue("tva"),
		BankName:      r.FormValue("banque"),
		AccountHolder: r.FormValue("titulaire"),
		IBAN:          r.FormValue("iban"),
		BIC:           r.FormValue("bic"),
	}
	saved, err := h.Settings.Save(r.Context(), cs)
	if v, ok := services.Violations(err); ok {
		renderStatus(w, r, http.StatusUnprocessableEntity, "parametres", map[string]any{
			"Settings": saved,
			"Errors":   v,
		})
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	middleware.Flash(w, "settings.saved")
	http.Redirect(w, r, settingsPath, statusSeeOther)
}
