// Package i18n holds the UI catalog and locale-aware formatting helpers.
package i18n

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is used when nothing else matches.
const DefaultLang = "fr"

type langKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the language stored by WithLang, or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(langKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultLang
}

// DetectLanguage picks "en" or "fr" from an Accept-Language header.
func DetectLanguage(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return DefaultLang
	}
	first := strings.SplitN(h, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	if strings.HasPrefix(first, "en") {
		return "en"
	}
	return DefaultLang
}

// T translates code. Unknown languages fall back to French, unknown codes to the code itself.
func T(lang, code string) string {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalog[DefaultLang][code]; ok {
		return s
	}
	return code
}

var frMonths = [12]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."}

var frMonthsLong = [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}

// MonthYearShort renders "janv. 25" (fr) or "Jan 25" (en).
func MonthYearShort(lang string, year int, month time.Month) string {
	yy := ((year % 100) + 100) % 100
	if lang == "en" {
		return fmt.Sprintf("%s %02d", month.String()[:3], yy)
	}
	return fmt.Sprintf("%s %02d", frMonths[month-1], yy)
}

// MonthYearLong renders "octobre 2026" (fr) or "October 2026" (en).
func MonthYearLong(lang string, year int, month time.Month) string {
	if lang == "en" {
		return fmt.Sprintf("%s %d", month.String(), year)
	}
	return fmt.Sprintf("%s %d", frMonthsLong[month-1], year)
}

// Date formats t as dd/mm/yyyy (fr) or yyyy-mm-dd (en).
func Date(lang string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if lang == "en" {
		return t.Format("2006-01-02")
	}
	return t.Format("02/01/2006")
}

func tag(lang string) language.Tag {
	if lang == "en" {
		return language.English
	}
	return language.French
}

// Number formats v with two decimals and the locale's separators.
// Grouping spaces are normalized to U+00A0 so the output stays printable in PDF core fonts.
func Number(lang string, v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := message.NewPrinter(tag(lang)).Sprintf("%.2f", v)
	return strings.NewReplacer("\u202f", "\u00a0", " ", "\u00a0").Replace(s)
}

// Money formats v as a euro amount, e.g. "1 234,50 €".
func Money(lang string, v float64) string {
	if lang == "en" {
		return "€" + Number(lang, v)
	}
	return Number(lang, v) + " €"
}

var catalog = map[string]map[string]string{
	"fr": {
		"required":             "Requis",
		"invalid":              "Valeur invalide",
		"must_be_positive":     "Doit être positif",
		"must_not_be_negative": "Ne peut pas être négatif",
		"out_of_range":         "Hors limites",
		"invalid_date":         "Date invalide",
		"invalid_choice":       "Choix invalide",
		"too_short":            "Trop court",
		"too_large":            "Fichier trop volumineux",
		"client.invalid":       "Nom du client requis.",
		"client.not_found":     "Client introuvable.",
		"site.invalid":         "Nom et ville requis, montant positif.",
		"material.invalid":     "Désignation requise, quantité et prix positifs.",
		"settings.invalid":     "Raison sociale requise, email valide.",
		"nav.dashboard":        "Tableau de bord",
		"nav.map":              "Carte",
		"nav.planning":         "Planning",
		"nav.folders":          "Dossiers",
		"nav.settings":         "Paramètres",
		"nav.logout":           "Déconnexion",
		"nav.login":            "Espace pro",
		"unclassified":         "Non classé",
		"auth.invalid":         "Email ou mot de passe incorrect.",
		"auth.google_failed":   "Impossible de se connecter avec Google.",
		"client.created":       "Client créé.",
		"client.renamed":       "Client renommé.",
		"client.deleted":       "Client supprimé.",
		"site.created":         "Chantier créé.",
		"site.saved":           "Informations enregistrées.",
		"site.deleted":         "Chantier supprimé.",
		"site.not_found":       "Chantier introuvable.",
		"material.added":       "Matériel ajouté.",
		"material.removed":     "Matériel retiré.",
		"file.uploaded":        "Fichier ajouté.",
		"file.deleted":         "Fichier supprimé.",
		"file.upload_failed":   "Erreur lors de l'envoi du fichier.",
		"file.missing":         "Aucun fichier sélectionné.",
		"file.not_found":       "Fichier introuvable.",
		"pdf.generated":        "Document généré.",
		"pdf.failed":           "Erreur lors de la génération du document.",
		"event.created":        "Événement ajouté.",
		"event.deleted":        "Événement supprimé.",
		"event.read_only":      "Les jours fériés ne peuvent pas être modifiés.",
		"event.invalid":        "Titre et dates requis (la fin doit suivre le début).",
		"settings.saved":       "Paramètres enregistrés.",
		"error.generic":        "Une erreur est survenue.",
		"status.Devis":         "Devis",
		"status.En cours":      "En cours",
		"status.Urgent":        "Urgent",
		"status.Terminé":       "Terminé",
		"kpi.invoiced":         "CA facturé",
		"kpi.in_progress":      "CA en cours",
		"kpi.folders":          "Dossiers actifs",
		"chart.invoiced":       "Facturé",
		"chart.projected":      "Prévisionnel",
		"geo.unavailable":      "Recherche d'adresse indisponible.",
		"doc.Devis":            "Devis",
		"doc.Facture":          "Facture",
	},
	"en": {
		"required":             "Required",
		"invalid":              "Invalid value",
		"must_be_positive":     "Must be positive",
		"must_not_be_negative": "Must not be negative",
		"out_of_range":         "Out of range",
		"invalid_date":         "Invalid date",
		"invalid_choice":       "Invalid choice",
		"too_short":            "Too short",
		"too_large":            "File too large",
		"client.invalid":       "Client name is required.",
		"client.not_found":     "Client not found.",
		"site.invalid":         "Name and city are required, amount must be positive.",
		"material.invalid":     "Name is required, quantity and price must be positive.",
		"settings.invalid":     "Company name is required, email must be valid.",
		"nav.dashboard":        "Dashboard",
		"nav.map":              "Map",
		"nav.planning":         "Schedule",
		"nav.folders":          "Folders",
		"nav.settings":         "Settings",
		"nav.logout":           "Sign out",
		"nav.login":            "Staff area",
		"unclassified":         "Unclassified",
		"auth.invalid":         "Incorrect email or password.",
		"auth.google_failed":   "Unable to sign in with Google.",
		"client.created":       "Client created.",
		"client.renamed":       "Client renamed.",
		"client.deleted":       "Client deleted.",
		"site.created":         "Job site created.",
		"site.saved":           "Details saved.",
		"site.deleted":         "Job site deleted.",
		"site.not_found":       "Job site not found.",
		"material.added":       "Material added.",
		"material.removed":     "Material removed.",
		"file.uploaded":        "File uploaded.",
		"file.deleted":         "File deleted.",
		"file.upload_failed":   "File upload failed.",
		"file.missing":         "No file selected.",
		"file.not_found":       "File not found.",
		"pdf.generated":        "Document generated.",
		"pdf.failed":           "Document generation failed.",
		"event.created":        "Event added.",
		"event.deleted":        "Event deleted.",
		"event.read_only":      "Public holidays cannot be changed.",
		"event.invalid":        "Title and dates are required (end must follow start).",
		"settings.saved":       "Settings saved.",
		"error.generic":        "Something went wrong.",
		"status.Devis":         "Quote",
		"status.En cours":      "In progress",
		"status.Urgent":        "Urgent",
		"status.Terminé":       "Done",
		"kpi.invoiced":         "Invoiced revenue",
		"kpi.in_progress":      "Revenue in progress",
		"kpi.folders":          "Open folders",
		"chart.invoiced":       "Invoiced",
		"chart.projected":      "Projected",
		"geo.unavailable":      "Address search unavailable.",
		"doc.Devis":            "Quote",
		"doc.Facture":          "Invoice",
	},
}
