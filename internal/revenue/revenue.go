// Package revenue folds job sites into chart buckets and dashboard figures.
package revenue

import (
	"fmt"
	"sort"
	"time"

	"github.com/diewo77/gestion-chantier/i18n"
	"github.com/diewo77/gestion-chantier/internal/models"
)

// Bucket is one month of the revenue chart.
type Bucket struct {
	Year      int        `json:"year"`
	Month     time.Month `json:"month"`
	Key       string     `json:"key"`
	Label     string     `json:"name"`
	Invoiced  float64    `json:"facture"`
	Projected float64    `json:"previsionnel"`
}

// Monthly groups sites by the month of their invoice date (now when unset).
// Finished sites count as invoiced, every other status as projected.
// Buckets are returned in ascending (year, month) order.
func Monthly(sites []models.JobSite, now time.Time, lang string) []Bucket {
	type key struct {
		year  int
		month time.Month
	}
	acc := map[key]*Bucket{}
	for i := range sites {
		s := &sites[i]
		at := now
		if s.InvoiceDate != nil && !s.InvoiceDate.IsZero() {
			at = *s.InvoiceDate
		}
		k := key{at.Year(), at.Month()}
		b, ok := acc[k]
		if !ok {
			b = &Bucket{
				Year:  k.year,
				Month: k.month,
				Key:   fmt.Sprintf("%04d-%02d", k.year, int(k.month)),
				Label: i18n.MonthYearShort(lang, k.year, k.month),
			}
			acc[k] = b
		}
		if s.Status == models.StatusDone {
			b.Invoiced += s.SafeAmount()
		} else {
			b.Projected += s.SafeAmount()
		}
	}
	out := make([]Bucket, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// RecentCount is how many sites the dashboard lists as latest activity.
const RecentCount = 5

// KPIs are the headline dashboard figures.
type KPIs struct {
	Invoiced   float64          `json:"ca_facture"`
	InProgress float64          `json:"ca_en_cours"`
	Folders    int              `json:"dossiers"`
	Recent     []models.JobSite `json:"recents"`
}

// Summarize totals finished and in-progress amounts, counts every folder
// and keeps the most recently created sites.
func Summarize(sites []models.JobSite) KPIs {
	var k KPIs
	for i := range sites {
		s := &sites[i]
		switch s.Status {
		case models.StatusDone:
			k.Invoiced += s.SafeAmount()
		case models.StatusInProgress:
			k.InProgress += s.SafeAmount()
		}
	}
	recent := make([]models.JobSite, len(sites))
	copy(recent, sites)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > RecentCount {
		recent = recent[:RecentCount]
	}
	k.Folders = len(sites)
	k.Recent = recent
	return k
}
