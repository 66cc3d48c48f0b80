package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle stage of a job site.
type Status string

const (
	StatusQuote      Status = "Devis"
	StatusInProgress Status = "En cours"
	StatusUrgent     Status = "Urgent"
	StatusDone       Status = "Terminé"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusQuote, StatusInProgress, StatusUrgent, StatusDone}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Unclassified is the client label for job sites without a client.
const Unclassified = "Non classé"

// JobSite ("chantier") is a construction project.
type JobSite struct {
	Base

	Name string `gorm:"size:255;not null" json:"name"`
	City string `gorm:"size:255" json:"city"`

	// ClientID is not a foreign key: a deleted client leaves the reference dangling
	// and the site is then listed as unclassified.
	ClientID   *string `gorm:"size:36;index" json:"client_id,omitempty"`
	ClientName string  `gorm:"size:255" json:"client_name"`

	Status      Status     `gorm:"size:20;not null" json:"status"`
	Amount      float64    `json:"amount"`
	InvoiceDate *time.Time `json:"invoice_date,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Materials datatypes.JSONSlice[Material] `json:"materials"`
	Documents datatypes.JSONSlice[FileRef]  `json:"documents"`
}

func (JobSite) TableName() string { return "chantiers" }

// Material is one priced line of a job site.
type Material struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// LineTotal returns quantity × unit price.
func (m Material) LineTotal() float64 {
	return finite(m.Quantity) * finite(m.UnitPrice)
}

// FileRef points to a stored file attached to a job site.
type FileRef struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Path       string    `json:"path"`
}

// Equal compares two references field by field.
func (f FileRef) Equal(o FileRef) bool {
	return f.Name == o.Name && f.URL == o.URL && f.MimeType == o.MimeType &&
		f.Size == o.Size && f.UploadedAt.Equal(o.UploadedAt) && f.Path == o.Path
}

// MaterialsTotal sums the line totals.
func (j *JobSite) MaterialsTotal() float64 {
	var total float64
	for _, m := range j.Materials {
		total += m.LineTotal()
	}
	return total
}

// SafeAmount returns Amount, or 0 when it is not a finite number.
func (j *JobSite) SafeAmount() float64 { return finite(j.Amount) }

// HasCoordinates reports whether the site can be placed on the map.
func (j *JobSite) HasCoordinates() bool {
	return j.Latitude != nil && j.Longitude != nil
}

// ClientLabel returns the client name or the unclassified label.
func (j *JobSite) ClientLabel() string {
	if j.ClientName == "" {
		return Unclassified
	}
	return j.ClientName
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
