package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/validation"
)

// OrphanSelection selects the job sites that belong to no existing client.
const OrphanSelection = "orphan"

// JobSiteInput is the editable part of a job site.
type JobSiteInput struct {
	Name        string
	City        string
	ClientID    string
	Status      models.Status
	Amount      float64
	InvoiceDate *time.Time
	Latitude    *float64
	Longitude   *float64
}

// MaterialInput is a new line for a job site.
type MaterialInput struct {
	Name      string
	Quantity  float64
	UnitPrice float64
}

type JobSiteService struct {
	DB  *gorm.DB
	Now func() time.Time
	notifier
}

func NewJobSiteService(db *gorm.DB, bus live.Bus) *JobSiteService {
	return &JobSiteService{DB: db, notifier: notifier{bus: bus}}
}

// List returns every job site, newest first.
func (s *JobSiteService) List(ctx context.Context) ([]models.JobSite, error) {
	var out []models.JobSite
	if err := s.DB.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list job sites: %w", err)
	}
	return out, nil
}

func (s *JobSiteService) Get(ctx context.Context, id string) (*models.JobSite, error) {
	var site models.JobSite
	if err := s.DB.WithContext(ctx).First(&site, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &site, nil
}

func validateSite(in JobSiteInput) validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.OneOf("status", string(in.Status), statusNames(), v)
	validation.NonNegativeFloat("amount", in.Amount, v)
	if in.Latitude != nil {
		validation.RangeFloat("latitude", *in.Latitude, -90, 90, v)
	}
	if in.Longitude != nil {
		validation.RangeFloat("longitude", *in.Longitude, -180, 180, v)
	}
	return v
}

func statusNames() []string {
	out := make([]string, len(models.Statuses))
	for i, st := range models.Statuses {
		out[i] = string(st)
	}
	return out
}

// resolveClient returns the id and display name a site gets for clientID.
func resolveClient(tx *gorm.DB, clientID string, v validation.Violations) (*string, string) {
	if clientID == "" || clientID == OrphanSelection {
		return nil, models.Unclassified
	}
	var c models.Client
	if err := tx.First(&c, "id = ?", clientID).Error; err != nil {
		v["client_id"] = "invalid_choice"
		return nil, ""
	}
	return &c.ID, c.Name
}

// Create stores a new job site. Without a client it is listed as unclassified.
func (s *JobSiteService) Create(ctx context.Context, in JobSiteInput) (*models.JobSite, error) {
	in.Name, in.City = strings.TrimSpace(in.Name), strings.TrimSpace(in.City)
	if in.Status == "" {
		in.Status = models.StatusInProgress
	}
	db := s.DB.WithContext(ctx)
	v := validateSite(in)
	clientID, clientName := resolveClient(db, in.ClientID, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	site := models.JobSite{
		Name:        in.Name,
		City:        in.City,
		ClientID:    clientID,
		ClientName:  clientName,
		Status:      in.Status,
		Amount:      in.Amount,
		InvoiceDate: in.InvoiceDate,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Materials:   datatypes.JSONSlice[models.Material]{},
		Documents:   datatypes.JSONSlice[models.FileRef]{},
	}
	if err := db.Create(&site).Error; err != nil {
		return nil, fmt.Errorf("create job site: %w", err)
	}
	s.publish(ctx, live.TopicJobSites)
	return &site, nil
}

// Update replaces the editable fields of a site. Materials and documents are kept.
func (s *JobSiteService) Update(ctx context.Context, id string, in JobSiteInput) (*models.JobSite, error) {
	in.Name, in.City = strings.TrimSpace(in.Name), strings.TrimSpace(in.City)
	return s.mutate(ctx, id, func(tx *gorm.DB, site *models.JobSite) error {
		v := validateSite(in)
		if in.ClientID != "" || site.ClientID != nil {
			site.ClientID, site.ClientName = resolveClient(tx, in.ClientID, v)
		}
		if err := invalid(v); err != nil {
			return err
		}
		site.Name = in.Name
		site.City = in.City
		site.Status = in.Status
		site.Amount = in.Amount
		site.InvoiceDate = in.InvoiceDate
		if in.Latitude != nil && in.Longitude != nil {
			site.Latitude, site.Longitude = in.Latitude, in.Longitude
		}
		return nil
	})
}

func (s *JobSiteService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.JobSite{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete job site: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.publish(ctx, live.TopicJobSites)
	return nil
}

// AddMaterial appends one line. Its id is the current time in milliseconds,
// bumped if a line already uses it.
func (s *JobSiteService) AddMaterial(ctx context.Context, id string, in MaterialInput) (*models.Material, error) {
	in.Name = strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.PositiveFloat("quantity", in.Quantity, v)
	validation.NonNegativeFloat("unit_price", in.UnitPrice, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	var added models.Material
	_, err := s.mutate(ctx, id, func(_ *gorm.DB, site *models.JobSite) error {
		mid := clock(s.Now).now().UnixMilli()
		for _, m := range site.Materials {
			if m.ID >= mid {
				mid = m.ID + 1
			}
		}
		added = models.Material{ID: mid, Name: in.Name, Quantity: in.Quantity, UnitPrice: in.UnitPrice}
		site.Materials = append(site.Materials, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// RemoveMaterial drops every line with materialID. Removing an absent line is a no-op.
func (s *JobSiteService) RemoveMaterial(ctx context.Context, id string, materialID int64) error {
	_, err := s.mutate(ctx, id, func(_ *gorm.DB, site *models.JobSite) error {
		kept := site.Materials[:0]
		for _, m := range site.Materials {
			if m.ID != materialID {
				kept = append(kept, m)
			}
		}
		site.Materials = kept
		return nil
	})
	return err
}

// AttachDocument appends a file reference unless an equal one is already present.
func (s *JobSiteService) AttachDocument(ctx context.Context, id string, ref models.FileRef) error {
	_, err := s.mutate(ctx, id, func(_ *gorm.DB, site *models.JobSite) error {
		for _, d := range site.Documents {
			if d.Equal(ref) {
				return nil
			}
		}
		site.Documents = append(site.Documents, ref)
		return nil
	})
	return err
}

// DetachDocument removes the references stored at storagePath and returns the first one.
func (s *JobSiteService) DetachDocument(ctx context.Context, id, storagePath string) (*models.FileRef, error) {
	var removed *models.FileRef
	_, err := s.mutate(ctx, id, func(_ *gorm.DB, site *models.JobSite) error {
		kept := site.Documents[:0]
		for _, d := range site.Documents {
			if d.Path == storagePath {
				if removed == nil {
					r := d
					removed = &r
				}
				continue
			}
			kept = append(kept, d)
		}
		site.Documents = kept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// mutate loads a site under a row lock, applies fn and saves the whole row.
func (s *JobSiteService) mutate(ctx context.Context, id string, fn func(tx *gorm.DB, site *models.JobSite) error) (*models.JobSite, error) {
	var site models.JobSite
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&site, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := fn(tx, &site); err != nil {
			return err
		}
		return tx.Save(&site).Error
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, live.TopicJobSites)
	return &site, nil
}

// Filter narrows sites for the dashboard. A selection (client id or OrphanSelection)
// takes precedence over the text query, which matches name or city
// case-insensitively. A site is orphan when its client id is empty or unknown.
func Filter(sites []models.JobSite, clients []models.Client, selection, query string) []models.JobSite {
	known := make(map[string]bool, len(clients))
	for _, c := range clients {
		known[c.ID] = true
	}
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]models.JobSite, 0, len(sites))
	for _, site := range sites {
		switch {
		case selection == OrphanSelection:
			if site.ClientID != nil && *site.ClientID != "" && known[*site.ClientID] {
				continue
			}
		case selection != "":
			if site.ClientID == nil || *site.ClientID != selection {
				continue
			}
		case query != "":
			if !strings.Contains(strings.ToLower(site.Name), query) && !strings.Contains(strings.ToLower(site.City), query) {
				continue
			}
		}
		out = append(out, site)
	}
	return out
}

// ParseAmount reads a form amount. Anything unparsable or not finite counts as 0.
func ParseAmount(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	raw = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
