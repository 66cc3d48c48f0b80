package models

import "time"

// SettingsID is the primary key of the single settings row.
const SettingsID = "entreprise"

// CompanySettings holds the issuer identity printed on quotes and invoices.
type CompanySettings struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identity
	Name    string `gorm:"size:255" json:"name"`
	Contact string `gorm:"size:255" json:"contact,omitempty"`
	Address string `gorm:"size:500" json:"address,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Email   string `gorm:"size:255" json:"email,omitempty"`

	// Legal
	LegalStatus string `gorm:"size:255" json:"legal_status,omitempty"`
	SIRET       string `gorm:"size:20" json:"siret,omitempty"`
	NAF         string `gorm:"size:10" json:"naf,omitempty"`
	VATNumber   string `gorm:"size:20" json:"vat_number,omitempty"`

	// Bank
	BankName      string `gorm:"size:255" json:"bank_name,omitempty"`
	AccountHolder string `gorm:"size:255" json:"account_holder,omitempty"`
	IBAN          string `gorm:"size:50" json:"iban,omitempty"`
	BIC           string `gorm:"size:20" json:"bic,omitempty"`
}

func (CompanySettings) TableName() string { return "parametres" }

// DefaultCompanySettings is shown until the settings form is saved once.
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		ID:          SettingsID,
		Name:        "ACJ DÉVELOPPEMENT",
		Contact:     "ALAIN BONO",
		Address:     "24 Avenue de la Libération, 33110 LE BOUSCAT",
		Phone:       "06 00 00 00 00",
		Email:       "contact@acj-developpement.fr",
		LegalStatus: "SASU au capital de 1000€",
		IBAN:        "FR76 ...",
	}
}
