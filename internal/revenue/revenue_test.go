package revenue

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/gestion-chantier/internal/models"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func site(status models.Status, amount float64, at *time.Time) models.JobSite {
	return models.JobSite{Status: status, Amount: amount, InvoiceDate: at}
}

var now = time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)

func TestMonthlySplitsInvoicedAndProjected(t *testing.T) {
	got := Monthly([]models.JobSite{
		site(models.StatusDone, 100, day(2026, time.March, 3)),
		site(models.StatusInProgress, 50, day(2026, time.March, 27)),
	}, now, "fr")

	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Invoiced)
	assert.Equal(t, 50.0, got[0].Projected)
	assert.Equal(t, "2026-03", got[0].Key)
	assert.Equal(t, "mars 26", got[0].Label)
}

func TestMonthlyOrdersByYearThenMonth(t *testing.T) {
	got := Monthly([]models.JobSite{
		site(models.StatusQuote, 1, day(2026, time.November, 1)),
		site(models.StatusQuote, 1, day(2025, time.December, 1)),
		site(models.StatusQuote, 1, day(2026, time.February, 1)),
		site(models.StatusQuote, 1, day(2026, time.October, 1)),
		site(models.StatusQuote, 1, day(2026, time.September, 1)),
	}, now, "fr")

	var keys []string
	for _, b := range got {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{"2025-12", "2026-02", "2026-09", "2026-10", "2026-11"}, keys)
}

func TestMonthlyMissingDateUsesNow(t *testing.T) {
	got := Monthly([]models.JobSite{site(models.StatusUrgent, 70, nil)}, now, "en")
	require.Len(t, got, 1)
	assert.Equal(t, 2026, got[0].Year)
	assert.Equal(t, time.October, got[0].Month)
	assert.Equal(t, "Oct 26", got[0].Label)
	assert.Equal(t, 70.0, got[0].Projected)
}

func TestMonthlyNonFiniteAmountCountsZero(t *testing.T) {
	got := Monthly([]models.JobSite{
		site(models.StatusDone, math.NaN(), day(2026, time.May, 2)),
		site(models.StatusDone, 30, day(2026, time.May, 9)),
		site(models.StatusQuote, math.Inf(1), day(2026, time.May, 9)),
	}, now, "fr")
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, got[0].Invoiced)
	assert.Equal(t, 0.0, got[0].Projected)
}

func TestMonthlyEmpty(t *testing.T) {
	assert.Empty(t, Monthly(nil, now, "fr"))
}

func TestSummarize(t *testing.T) {
	var sites []models.JobSite
	statuses := []models.Status{models.StatusDone, models.StatusInProgress, models.StatusInProgress, models.StatusQuote, models.StatusUrgent, models.StatusDone, models.StatusQuote}
	for i, st := range statuses {
		s := site(st, float64(10*(i+1)), nil)
		s.ID = string(rune('a' + i))
		s.CreatedAt = now.Add(time.Duration(i) * time.Hour)
		sites = append(sites, s)
	}

	k := Summarize(sites)
	assert.Equal(t, 10.0+60.0, k.Invoiced)
	assert.Equal(t, 20.0+30.0, k.InProgress)
	assert.Equal(t, 7, k.Folders)
	require.Len(t, k.Recent, RecentCount)
	assert.Equal(t, "g", k.Recent[0].ID)
	assert.Equal(t, "c", k.Recent[4].ID)
	// input left untouched
	assert.Equal(t, "a", sites[0].ID)
}
