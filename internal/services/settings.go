package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/validation"
)

type SettingsService struct {
	DB *gorm.DB
	notifier
}

func NewSettingsService(db *gorm.DB, bus live.Bus) *SettingsService {
	return &SettingsService{DB: db, notifier: notifier{bus: bus}}
}

// Get returns the stored settings, or the firm defaults when none were saved.
func (s *SettingsService) Get(ctx context.Context) (models.CompanySettings, error) {
	var cs models.CompanySettings
	err := s.DB.WithContext(ctx).First(&cs, "id = ?", models.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultCompanySettings(), nil
	}
	if err != nil {
		return models.CompanySettings{}, fmt.Errorf("load settings: %w", err)
	}
	return cs, nil
}

// Save upserts the singleton row.
func (s *SettingsService) Save(ctx context.Context, cs models.CompanySettings) (models.CompanySettings, error) {
	cs.ID = models.SettingsID
	cs.Name = strings.TrimSpace(cs.Name)
	cs.Email = strings.TrimSpace(cs.Email)
	cs.SIRET = strings.TrimSpace(cs.SIRET)
	v := validation.Violations{}
	validation.Required("name", cs.Name, v)
	if cs.Email != "" && !strings.Contains(cs.Email, "@") {
		v["email"] = "invalid"
	}
	if err := invalid(v); err != nil {
		return cs, err
	}
	if err := s.DB.WithContext(ctx).Save(&cs).Error; err != nil {
		return cs, fmt.Errorf("save settings: %w", err)
	}
	s.publish(ctx, live.TopicSettings)
	return cs, nil
}
