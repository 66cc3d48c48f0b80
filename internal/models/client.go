package models

// Client is a customer of the firm. Deleting one leaves its job sites in place.
type Client struct {
	Base
	Name string `gorm:"size:255;not null" json:"name"`
}

func (Client) TableName() string { return "clients" }
