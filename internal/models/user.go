package models

// Provider values for User.Provider.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User represents an authenticated back-office user.
type User struct {
	Base
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name     string `gorm:"size:255" json:"name,omitempty"`
	Password string `gorm:"size:255" json:"-"` // bcrypt hash, empty for Google-only accounts
	Provider string `gorm:"size:20;not null" json:"provider"`
}

func (User) TableName() string { return "users" }
