// Package planning merges stored schedule events with computed public holidays
// and lays them out on a month grid.
package planning

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diewo77/gestion-chantier/internal/holidays"
	"github.com/diewo77/gestion-chantier/internal/models"
)

const holidayPrefix = "ferie-"

// Style is the colour pair used to paint an entry.
type Style struct {
	Background string `json:"background"`
	Color      string `json:"color"`
}

var styles = map[models.EventType]Style{
	models.EventJobSite: {Background: "#005BBB", Color: "#FFFFFF"},
	models.EventVisit:   {Background: "#2E7D32", Color: "#FFFFFF"},
	models.EventMeeting: {Background: "#EF6C00", Color: "#FFFFFF"},
	models.EventOffice:  {Background: "#757575", Color: "#FFFFFF"},
	models.EventHoliday: {Background: "#FFCDD2", Color: "#B71C1C"},
}

// StyleFor returns the colours of an event type; unknown types use the job-site colours.
func StyleFor(t models.EventType) Style {
	if s, ok := styles[t]; ok {
		return s
	}
	return styles[models.EventJobSite]
}

// Entry is one renderable calendar item.
type Entry struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	AllDay     bool             `json:"allDay"`
	Type       models.EventType `json:"type"`
	Holiday    bool             `json:"holiday"`
	Selectable bool             `json:"selectable"`
	Draggable  bool             `json:"draggable"`
	Style      Style            `json:"style"`
}

// HolidayID builds the synthetic id of the index-th holiday of year.
func HolidayID(year, index int) string {
	return fmt.Sprintf("%s%d-%d", holidayPrefix, year, index)
}

// IsSyntheticID reports whether id names a computed holiday rather than a stored event.
func IsSyntheticID(id string) bool {
	return strings.HasPrefix(id, holidayPrefix)
}

// HolidayEntries returns the read-only entries for the public holidays of year, placed in loc.
func HolidayEntries(year int, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.UTC
	}
	hs := holidays.ForYear(year)
	out := make([]Entry, 0, len(hs))
	for i, h := range hs {
		d := time.Date(h.Date.Year(), h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, loc)
		out = append(out, Entry{
			ID:         HolidayID(year, i),
			Title:      "🇫🇷 " + h.Name,
			Start:      d,
			End:        d,
			AllDay:     true,
			Type:       models.EventHoliday,
			Holiday:    true,
			Selectable: false,
			Draggable:  false,
			Style:      StyleFor(models.EventHoliday),
		})
	}
	return out
}

// Merge returns the stored events plus the holidays of displayedYear-1, displayedYear
// and displayedYear+1, ordered by start.
func Merge(events []models.ScheduleEvent, displayedYear int, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Entry, 0, len(events)+33)
	for y := displayedYear - 1; y <= displayedYear+1; y++ {
		out = append(out, HolidayEntries(y, loc)...)
	}
	for _, e := range events {
		out = append(out, Entry{
			ID:         e.ID,
			Title:      e.Title,
			Start:      e.StartsAt.In(loc),
			End:        e.EndsAt.In(loc),
			Type:       e.Type,
			Selectable: true,
			Draggable:  true,
			Style:      StyleFor(e.Type),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Draft is the prefilled content of the "new event" form.
type Draft struct {
	Title     string
	Type      models.EventType
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
}

// SlotDefaults prefills a draft from a selected slot. A whole-day selection gets
// office hours (08:00 to 17:00); otherwise the slot's own times are kept.
func SlotDefaults(start, end time.Time) Draft {
	sTime := start.Format("15:04")
	if start.Hour() == 0 && start.Minute() == 0 && end.Hour() == 0 {
		sTime = "08:00"
	}
	eTime := end.Format("15:04")
	if end.Hour() == 0 && end.Minute() == 0 {
		eTime = "17:00"
	}
	return Draft{
		Type:      models.EventJobSite,
		StartDate: start.Format(time.DateOnly),
		StartTime: sTime,
		EndDate:   end.Format(time.DateOnly),
		EndTime:   eTime,
	}
}

// Times parses the draft's dates and times in loc. Missing times default to 08:00 and 17:00.
func (d Draft) Times(loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	st, et := d.StartTime, d.EndTime
	if st == "" {
		st = "08:00"
	}
	if et == "" {
		et = "17:00"
	}
	endDate := d.EndDate
	if endDate == "" {
		endDate = d.StartDate
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", d.StartDate+" "+st, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", endDate+" "+et, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}
