package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/gestion-chantier/internal/models"
	"github.com/diewo77/gestion-chantier/validation"
)

type UserService struct {
	DB *gorm.DB
	// AllowedEmails restricts Google sign-in; empty allows only known users.
	AllowedEmails []string
}

func NewUserService(db *gorm.DB, allowed []string) *UserService {
	norm := make([]string, 0, len(allowed))
	for _, e := range allowed {
		if e = normalizeEmail(e); e != "" {
			norm = append(norm, e)
		}
	}
	return &UserService{DB: db, AllowedEmails: norm}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Exists reports whether id still names a user.
func (s *UserService) Exists(ctx context.Context, id string) bool {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// Authenticate checks an email/password pair. Unknown emails, Google-only
// accounts and wrong passwords all yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.Password == "" || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// UpsertGoogle returns the user for a verified Google email, creating it when
// the email is on the allow-list.
func (s *UserService) UpsertGoogle(ctx context.Context, email, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	db := s.DB.WithContext(ctx)
	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	if err == nil {
		if u.Name == "" && name != "" {
			u.Name = name
			if err := db.Model(&u).Update("name", name).Error; err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !slices.Contains(s.AllowedEmails, email) {
		return nil, ErrNotAllowed
	}
	u = models.User{Email: email, Name: strings.TrimSpace(name), Provider: models.ProviderGoogle}
	if err := db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// EnsureAdmin creates the password account used for the first sign-in, or
// resets its password when it already exists. It is safe to run on every start.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	v := validation.Violations{}
	validation.Required("email", email, v)
	validation.Required("password", password, v)
	if len(password) > 0 && len(password) < 8 {
		v["password"] = "too_short"
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	db := s.DB.WithContext(ctx)
	var u models.User
	err = db.Where("email = ?", email).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = models.User{Email: email, Name: name, Password: string(hash), Provider: models.ProviderPassword}
		if err := db.Create(&u).Error; err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load admin: %w", err)
	default:
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			if err := db.Model(&u).Update("password", string(hash)).Error; err != nil {
				return nil, fmt.Errorf("update admin: %w", err)
			}
		}
	}
	return &u, nil
}
