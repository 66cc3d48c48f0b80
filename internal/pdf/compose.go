// Package pdf builds quotes and invoices for a job site.
//
// Compose turns stored records into a Document without side effects;
// Render lays a Document out on A4 pages.
package pdf

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/gestion-chantier/i18n"
	"github.com/diewo77/gestion-chantier/internal/models"
)

// DocType is the kind of document produced.
type DocType string

const (
	Quote   DocType = "Devis"
	Invoice DocType = "Facture"
)

// Valid reports whether t is a known document type.
func (t DocType) Valid() bool { return t == Quote || t == Invoice }

// VATRate applies to every line; it is not configurable.
const VATRate = 0.20

// QuoteValidity is how long a quote stays valid after it is issued.
const QuoteValidity = 30 * 24 * time.Hour

const (
	defaultRecipient = "Client Inconnu"
	defaultAddress   = "Adresse non renseignée"
	defaultSubject   = "Travaux divers"
	signatureCaption = "Bon pour accord (Date et Signature)"
	paymentTitle     = "Règlement par virement"
)

var paymentTerms = []string{
	"Paiement à réception de facture.",
	"Aucun escompte pour paiement anticipé.",
}

var vatRate = decimal.NewFromFloat(VATRate)

// Input is everything Compose needs.
type Input struct {
	Type    DocType
	Site    models.JobSite
	Company models.CompanySettings
	Items   []models.Material
	Total   float64
	Now     time.Time
}

// Issuer is the firm issuing the document.
type Issuer struct {
	Name    string
	Address string
	Contact string
	Phone   string
	Email   string
}

// Recipient is the billed party.
type Recipient struct {
	Name string
	City string
}

// Line is one priced row of the table.
type Line struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	VATRate     float64
	Total       float64
}

// Totals are rounded to the cent.
type Totals struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Grand    decimal.Decimal
}

// PaymentBlock holds bank-transfer details, printed on invoices only.
type PaymentBlock struct {
	Title         string
	BankName      string
	AccountHolder string
	IBAN          string
	BIC           string
	Terms         []string
}

// SignatureBlock is the blank approval box printed on quotes only.
type SignatureBlock struct {
	Caption string
}

// Footer carries the legal identifiers of the issuer.
type Footer struct {
	LegalStatus string
	SIRET       string
	NAF         string
	VATNumber   string
}

// Items returns the non-empty footer entries, labelled.
func (f Footer) Items() []string {
	var out []string
	if f.LegalStatus != "" {
		out = append(out, f.LegalStatus)
	}
	if f.SIRET != "" {
		out = append(out, "SIRET : "+f.SIRET)
	}
	if f.NAF != "" {
		out = append(out, "NAF : "+f.NAF)
	}
	if f.VATNumber != "" {
		out = append(out, "TVA Intracommunautaire : "+f.VATNumber)
	}
	return out
}

// Document is a fully described quote or invoice.
type Document struct {
	Type       DocType
	Reference  string
	Date       time.Time
	ValidUntil *time.Time

	Issuer    Issuer
	Recipient Recipient
	Subject   string

	Lines  []Line
	Totals Totals

	Payment   *PaymentBlock
	Signature *SignatureBlock
	Footer    Footer
}

// Compose describes the document for in. It reads nothing but its input.
// A type other than Quote or Invoice gets neither the signature nor the payment block.
func Compose(in Input) Document {
	doc := Document{
		Type:      in.Type,
		Reference: Reference(in.Type, in.Site.ID, in.Now),
		Date:      in.Now,
		Issuer: Issuer{
			Name:    in.Company.Name,
			Address: in.Company.Address,
			Contact: in.Company.Contact,
			Phone:   in.Company.Phone,
			Email:   in.Company.Email,
		},
		Recipient: Recipient{
			Name: orDefault(in.Site.ClientName, defaultRecipient),
			City: orDefault(in.Site.City, defaultAddress),
		},
		Subject: orDefault(in.Site.Name, defaultSubject),
		Totals:  ComputeTotals(in.Total),
		Footer: Footer{
			LegalStatus: in.Company.LegalStatus,
			SIRET:       in.Company.SIRET,
			NAF:         in.Company.NAF,
			VATNumber:   in.Company.VATNumber,
		},
	}

	for _, it := range in.Items {
		doc.Lines = append(doc.Lines, Line{
			Description: orDefault(it.Name, defaultSubject),
			Quantity:    finite(it.Quantity),
			UnitPrice:   finite(it.UnitPrice),
			VATRate:     VATRate,
			Total:       it.LineTotal(),
		})
	}

	switch in.Type {
	case Quote:
		until := in.Now.Add(QuoteValidity)
		doc.ValidUntil = &until
		doc.Signature = &SignatureBlock{Caption: signatureCaption}
	case Invoice:
		doc.Payment = &PaymentBlock{
			Title:         paymentTitle,
			BankName:      in.Company.BankName,
			AccountHolder: in.Company.AccountHolder,
			IBAN:          in.Company.IBAN,
			BIC:           in.Company.BIC,
			Terms:         append([]string(nil), paymentTerms...),
		}
	}
	return doc
}

// ComputeTotals rounds total to the cent and derives VAT and grand total from it.
func ComputeTotals(total float64) Totals {
	sub := decimal.NewFromFloat(finite(total)).Round(2)
	vat := sub.Mul(vatRate).Round(2)
	return Totals{Subtotal: sub, VAT: vat, Grand: sub.Add(vat)}
}

// Reference builds "DEV-2026-AB12": a type prefix, the year and the first four
// characters of the site id ("000" without an id).
func Reference(t DocType, siteID string, now time.Time) string {
	prefix := []rune(strings.ToUpper(string(t)))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	suffix := "000"
	if siteID != "" {
		r := []rune(siteID)
		if len(r) > 4 {
			r = r[:4]
		}
		suffix = strings.ToUpper(string(r))
	}
	return fmt.Sprintf("%s-%d-%s", string(prefix), now.Year(), suffix)
}

// FileName is the stored name of a generated document, e.g. "Devis_Maison_Dupont_2026-10-14.pdf".
func FileName(t DocType, siteName string, now time.Time) string {
	name := strings.Join(strings.Fields(siteName), "_")
	return fmt.Sprintf("%s_%s_%s.pdf", t, name, now.Format(time.DateOnly))
}

// Money formats d with two decimals and French separators.
func Money(d decimal.Decimal) string {
	return i18n.Money(i18n.DefaultLang, d.InexactFloat64())
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
