package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/internal/live"
	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/validation"
)

type ClientService struct {
	DB *gorm.DB
	notifier
}

func NewClientService(db *gorm.DB, bus live.Bus) *ClientService {
	return &ClientService{DB: db, notifier: notifier{bus: bus}}
}

// List returns every client ordered by name.
func (s *ClientService) List(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := s.DB.WithContext(ctx).Order("name asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := s.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *ClientService) Create(ctx context.Context, name string) (*models.Client, error) {
	name = strings.TrimSpace(name)
	v := validation.Violations{}
	validation.Required("name", name, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	c := models.Client{Name: name}
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.publish(ctx, live.TopicClients)
	return &c, nil
}

// Rename changes a client's name and the copy held by each of its job sites,
// in one transaction.
func (s *ClientService) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	v := validation.Violations{}
	validation.Required("name", name, v)
	if err := invalid(v); err != nil {
		return err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Client{}).Where("id = ?", id).Update("name", name)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.JobSite{}).Where("client_id = ?", id).Update("client_name", name).Error
	})
	if err != nil {
		return err
	}
	s.publish(ctx, live.TopicClients, live.TopicJobSites)
	return nil
}

// Delete removes the client only. Its job sites keep their dangling client id
// and are listed as unclassified from then on.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Client{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.publish(ctx, live.TopicClients)
	return nil
}
