package planning

import (
	"time"

	"github.com/diewo77/gestion-chantier/internal/holidays"
)

// Day is one cell of the month grid.
type Day struct {
	Date    time.Time
	InMonth bool
	Today   bool
	Holiday string
	Entries []Entry
}

// MonthView is a Monday-first grid covering a whole month.
type MonthView struct {
	Year  int
	Month time.Month
	Weeks [][]Day
	Prev  string // yyyy-mm
	Next  string // yyyy-mm
}

// Month lays entries out on the weeks spanning year/month in loc.
// An entry appears on every calendar day it touches; an end at exactly
// midnight does not spill onto that day.
func Month(year int, month time.Month, entries []Entry, today time.Time, loc *time.Location) MonthView {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -mondayOffset(first.Weekday()))
	end := last.AddDate(0, 0, 6-mondayOffset(last.Weekday()))

	t := today.In(loc)
	todayKey := dateKey(t)

	mv := MonthView{
		Year:  year,
		Month: month,
		Prev:  first.AddDate(0, -1, 0).Format("2006-01"),
		Next:  first.AddDate(0, 1, 0).Format("2006-01"),
	}
	var week []Day
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		cell := Day{
			Date:    d,
			InMonth: d.Month() == month,
			Today:   dateKey(d) == todayKey,
		}
		if h, ok := holidays.Lookup(d); ok {
			cell.Holiday = h.Name
		}
		next := d.AddDate(0, 0, 1)
		for _, e := range entries {
			if touches(e, d, next, loc) {
				cell.Entries = append(cell.Entries, e)
			}
		}
		week = append(week, cell)
		if len(week) == 7 {
			mv.Weeks = append(mv.Weeks, week)
			week = nil
		}
	}
	return mv
}

func touches(e Entry, dayStart, dayEnd time.Time, loc *time.Location) bool {
	s := e.Start.In(loc)
	if !s.Before(dayEnd) {
		return false
	}
	return e.End.In(loc).After(dayStart) || dateKey(s) == dateKey(dayStart)
}

func mondayOffset(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
