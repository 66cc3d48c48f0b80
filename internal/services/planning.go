package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/internal/planning"
	"github.com/diewo77/gestion-chantier/validation"
)

type PlanningService struct {
	DB       *gorm.DB
	Location *time.Location
	notifier
}

func NewPlanningService(db *gorm.DB, bus live.Bus, loc *time.Location) *PlanningService {
	if loc == nil {
		loc = time.UTC
	}
	return &PlanningService{DB: db, Location: loc, notifier: notifier{bus: bus}}
}

// List returns every stored event ordered by start.
func (s *PlanningService) List(ctx context.Context) ([]models.ScheduleEvent, error) {
	var out []models.ScheduleEvent
	if err := s.DB.WithContext(ctx).Order("starts_at asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// Entries returns the stored events merged with the holidays around year.
func (s *PlanningService) Entries(ctx context.Context, year int) ([]planning.Entry, error) {
	events, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return planning.Merge(events, year, s.Location), nil
}

// Create stores the event described by d.
func (s *PlanningService) Create(ctx context.Context, d planning.Draft) (*models.ScheduleEvent, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Type == "" {
		d.Type = models.EventJobSite
	}
	v := validation.Violations{}
	validation.Required("title", d.Title, v)
	validation.Required("start_date", d.StartDate, v)
	validation.Date("start_date", d.StartDate, v)
	validation.Date("end_date", d.EndDate, v)
	types := make([]string, len(models.EventTypes))
	for i, t := range models.EventTypes {
		types[i] = string(t)
	}
	validation.OneOf("type", string(d.Type), types, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	start, end, err := d.Times(s.Location)
	if err != nil {
		v["start_time"] = "invalid"
		return nil, invalid(v)
	}
	if end.Before(start) {
		v["end_date"] = "out_of_range"
		return nil, invalid(v)
	}

	ev := models.ScheduleEvent{Title: d.Title, StartsAt: start.UTC(), EndsAt: end.UTC(), Type: d.Type}
	if err := s.DB.WithContext(ctx).Create(&ev).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.publish(ctx, live.TopicPlanning)
	return &ev, nil
}

// Delete removes a stored event. Computed holidays are refused without touching the database.
func (s *PlanningService) Delete(ctx context.Context, id string) error {
	if planning.IsSyntheticID(id) {
		return ErrReadOnly
	}
	res := s.DB.WithContext(ctx).Delete(&models.ScheduleEvent{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.publish(ctx, live.TopicPlanning)
	return nil
}
