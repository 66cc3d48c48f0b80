package models

import "time"

// EventType classifies schedule entries.
type EventType string

const (
	EventJobSite EventType = "Chantier"
	EventVisit   EventType = "Visite"
	EventMeeting EventType = "Réunion"
	EventOffice  EventType = "Bureau"
	// EventHoliday is only used for computed public holidays, never stored.
	EventHoliday EventType = "Férié"
)

// EventTypes lists the types a user may create.
var EventTypes = []EventType{EventJobSite, EventVisit, EventMeeting, EventOffice}

// ScheduleEvent is a stored calendar entry.
type ScheduleEvent struct {
	Base
	Title    string    `gorm:"size:255;not null" json:"title"`
	StartsAt time.Time `gorm:"not null;index" json:"start"`
	EndsAt   time.Time `gorm:"not null" json:"end"`
	Type     EventType `gorm:"size:20;not null" json:"type"`
}

func (ScheduleEvent) TableName() string { return "planning" }
