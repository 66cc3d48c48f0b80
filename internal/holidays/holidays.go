// Package holidays computes French public holidays.
package holidays

import (
	"sort"
	"time"
)

// Holiday is a public holiday on a calendar day (UTC midnight).
type Holiday struct {
	Date time.Time
	Name string
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Easter returns the month and day of Gregorian Easter Sunday in year y
// (Gauss's method as published by Meeus).
func Easter(y int) (time.Month, int) {
	g := mod(y, 19)
	c := floorDiv(y, 100)
	h := mod(c-floorDiv(c, 4)-floorDiv(8*c+13, 25)+19*g+15, 30)
	i := h - floorDiv(h, 28)*(1-floorDiv(29, h+1)*floorDiv(21-g, 11))
	j := mod(y+floorDiv(y, 4)+i+2-c+floorDiv(c, 4), 7)
	l := i - j
	month := 3 + floorDiv(l+40, 44)
	day := l + 28 - 31*floorDiv(month, 4)
	return time.Month(month), day
}

// EasterDate returns Easter Sunday of year y at UTC midnight.
func EasterDate(y int) time.Time {
	m, d := Easter(y)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixed struct {
	month time.Month
	day   int
	name  string
}

var fixedDays = []fixed{
	{time.January, 1, "Jour de l'an"},
	{time.May, 1, "Fête du Travail"},
	{time.May, 8, "Victoire 1945"},
	{time.July, 14, "Fête Nationale"},
	{time.August, 15, "Assomption"},
	{time.November, 1, "Toussaint"},
	{time.November, 11, "Armistice 1918"},
	{time.December, 25, "Noël"},
}

type movable struct {
	offset int // days after Easter Sunday
	name   string
}

var movableDays = []movable{
	{1, "Lundi de Pâques"},
	{39, "Ascension"},
	{50, "Lundi de Pentecôte"},
}

// ForYear returns the 11 public holidays of year y ordered by date.
func ForYear(y int) []Holiday {
	out := make([]Holiday, 0, len(fixedDays)+len(movableDays))
	for _, f := range fixedDays {
		out = append(out, Holiday{Date: time.Date(y, f.month, f.day, 0, 0, 0, 0, time.UTC), Name: f.name})
	}
	easter := EasterDate(y)
	for _, m := range movableDays {
		out = append(out, Holiday{Date: easter.AddDate(0, 0, m.offset), Name: m.name})
	}
	// Ascension can fall on May 1 or May 8; keep the order stable in that case.
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}

// Lookup reports the holiday falling on the calendar day of t, if any.
func Lookup(t time.Time) (Holiday, bool) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for _, h := range ForYear(t.Year()) {
		if h.Date.Equal(day) {
			return h, true
		}
	}
	return Holiday{}, false
}
