package pdf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/diewo77/gestion-chantier/i18n"
)

// Options tune the rendering of a document.
type Options struct {
	// LogoPath is an optional PNG or JPEG printed in the header instead of the initials.
	LogoPath string
	// Tagline is printed under the initials.
	Tagline string
}

var (
	primary    = props.Color{Red: 0, Green: 45, Blue: 90}
	accent     = props.Color{Red: 212, Green: 175, Blue: 55}
	muted      = props.Color{Red: 102, Green: 102, Blue: 102}
	faint      = props.Color{Red: 153, Green: 153, Blue: 153}
	white      = props.Color{Red: 255, Green: 255, Blue: 255}
	stripe     = props.Color{Red: 251, Green: 252, Blue: 253}
	boxGrey    = props.Color{Red: 245, Green: 245, Blue: 245}
	borderGrey = props.Color{Red: 224, Green: 224, Blue: 224}
)

// Render lays doc out on A4 pages and returns the PDF bytes.
func Render(doc Document, opts Options) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithPageNumber().
		Build()

	m := maroto.New(cfg)
	if err := m.RegisterFooter(footerRows(doc.Footer, doc.Issuer)...); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(headerRows(doc, opts)...)
	m.AddRows(recipientRows(doc)...)
	m.AddRows(tableRows(doc.Lines)...)
	m.AddRows(totalRows(doc.Totals)...)
	switch {
	case doc.Signature != nil:
		m.AddRows(signatureRows(*doc.Signature)...)
	case doc.Payment != nil:
		m.AddRows(paymentRows(*doc.Payment)...)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func headerRows(doc Document, opts Options) []core.Row {
	var brand core.Col
	if opts.LogoPath != "" && fileExists(opts.LogoPath) {
		brand = image.NewFromFileCol(7, opts.LogoPath, props.Rect{Percent: 90})
	} else {
		brand = col.New(7).Add(
			text.New(initials(doc.Issuer.Name), props.Text{Size: 20, Style: fontstyle.Bold, Color: &primary}),
			text.New(strings.ToUpper(opts.Tagline), props.Text{Top: 9, Size: 7, Color: &accent}),
		)
	}

	var issuer []core.Component
	for i, s := range []string{
		doc.Issuer.Name,
		doc.Issuer.Address,
		doc.Issuer.Contact,
		joinNonEmpty(" | ", doc.Issuer.Phone, doc.Issuer.Email),
	} {
		if s == "" {
			continue
		}
		issuer = append(issuer, text.New(s, props.Text{Top: float64(i) * 4, Size: 8, Color: &muted}))
	}

	meta := col.New(5).Add(
		text.New(strings.ToUpper(string(doc.Type)), props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right, Color: &primary}),
		text.New("N° "+doc.Reference, props.Text{Top: 10, Size: 9, Align: align.Right, Color: &muted}),
		text.New("Date : "+i18n.Date(i18n.DefaultLang, doc.Date), props.Text{Top: 15, Size: 9, Align: align.Right, Color: &muted}),
	)
	if doc.ValidUntil != nil {
		meta.Add(text.New("Valable jusqu'au : "+i18n.Date(i18n.DefaultLang, *doc.ValidUntil),
			props.Text{Top: 20, Size: 9, Align: align.Right, Color: &muted}))
	}

	rows := []core.Row{
		row.New(26).Add(brand, meta),
	}
	if len(issuer) > 0 {
		rows = append(rows, row.New(18).Add(col.New(7).Add(issuer...), col.New(5)))
	}
	rows = append(rows, line.NewRow(6, props.Line{Color: &primary, Thickness: 0.4}))
	return rows
}

func recipientRows(doc Document) []core.Row {
	box := &props.Cell{BackgroundColor: &boxGrey}
	return []core.Row{
		row.New(24).Add(
			col.New(6),
			col.New(6).WithStyle(box).Add(
				text.New("FACTURÉ À :", props.Text{Top: 2, Left: 3, Size: 7, Style: fontstyle.Bold, Color: &faint}),
				text.New(doc.Recipient.Name, props.Text{Top: 7, Left: 3, Size: 11, Style: fontstyle.Bold, Color: &primary}),
				text.New(doc.Recipient.City, props.Text{Top: 14, Left: 3, Size: 9, Color: &muted}),
			),
		),
		row.New(6),
		row.New(12).Add(col.New(12).Add(
			text.New("INTITULÉ DU CHANTIER", props.Text{Size: 7, Style: fontstyle.Bold, Color: &faint}),
			text.New(doc.Subject, props.Text{Top: 4, Size: 10, Style: fontstyle.Bold}),
		)),
	}
}

func tableRows(lines []Line) []core.Row {
	head := props.Text{Top: 2, Size: 8, Style: fontstyle.Bold, Color: &white}
	rows := []core.Row{
		row.New(8).WithStyle(&props.Cell{BackgroundColor: &primary}).Add(
			text.NewCol(6, "DÉSIGNATION", withLeft(head, 2)),
			text.NewCol(1, "QTÉ", withAlign(head, align.Center)),
			text.NewCol(2, "TVA", withAlign(head, align.Center)),
			text.NewCol(1, "P.U. HT", withAlign(head, align.Right)),
			text.NewCol(2, "TOTAL HT", withRight(withAlign(head, align.Right), 2)),
		),
	}
	cell := props.Text{Top: 2, Size: 9}
	for i, l := range lines {
		r := row.New(8).Add(
			text.NewCol(6, l.Description, withLeft(cell, 2)),
			text.NewCol(1, quantity(l.Quantity), withAlign(cell, align.Center)),
			text.NewCol(2, percent(l.VATRate), withAlign(cell, align.Center)),
			text.NewCol(1, i18n.Money(i18n.DefaultLang, l.UnitPrice), withAlign(cell, align.Right)),
			text.NewCol(2, i18n.Money(i18n.DefaultLang, l.Total), withRight(props.Text{Top: 2, Size: 9, Style: fontstyle.Bold, Align: align.Right}, 2)),
		)
		if i%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: &stripe})
		}
		rows = append(rows, r)
	}
	return append(rows, row.New(6))
}

func totalRows(t Totals) []core.Row {
	label := props.Text{Size: 9, Color: &muted}
	value := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	grand := props.Text{Top: 2, Size: 11, Style: fontstyle.Bold, Color: &primary}
	return []core.Row{
		row.New(6).Add(col.New(7), text.NewCol(3, "Total HT", label), text.NewCol(2, Money(t.Subtotal), value)),
		row.New(6).Add(col.New(7), text.NewCol(3, "TVA ("+percent(VATRate)+")", label), text.NewCol(2, Money(t.VAT), value)),
		row.New(2).Add(col.New(7), line.NewCol(5, props.Line{Color: &primary, Thickness: 0.6})),
		row.New(9).Add(col.New(7), text.NewCol(3, "Total TTC", grand), text.NewCol(2, Money(t.Grand), withAlign(grand, align.Right))),
		row.New(10),
	}
}

func signatureRows(s SignatureBlock) []core.Row {
	return []core.Row{
		row.New(6).Add(text.NewCol(6, s.Caption, props.Text{Size: 9, Style: fontstyle.Italic})),
		row.New(24).Add(
			col.New(6).WithStyle(&props.Cell{BorderType: border.Full, BorderColor: &borderGrey}),
			col.New(6),
		),
	}
}

func paymentRows(p PaymentBlock) []core.Row {
	title := props.Text{Size: 9, Style: fontstyle.Bold, Color: &primary}
	body := props.Text{Size: 8, Color: &muted}

	bank := col.New(6).Add(text.New(p.Title, withLeft(withTop(title, 2), 3)))
	top := 7.0
	for _, s := range []string{
		labelled("Titulaire", p.AccountHolder),
		labelled("IBAN", p.IBAN),
		labelled("BIC", p.BIC),
		labelled("Banque", p.BankName),
	} {
		if s == "" {
			continue
		}
		bank.Add(text.New(s, withLeft(withTop(body, top), 3)))
		top += 4
	}

	terms := col.New(6).Add(text.New("Conditions", withTop(title, 2)))
	for i, s := range p.Terms {
		terms.Add(text.New(s, withTop(body, 7+float64(i)*4)))
	}

	return []core.Row{
		row.New(26).WithStyle(&props.Cell{BackgroundColor: &boxGrey}).Add(bank, terms),
	}
}

func footerRows(f Footer, issuer Issuer) []core.Row {
	parts := append([]string{issuer.Name}, f.Items()...)
	legal := joinNonEmpty(" - ", parts...)
	return []core.Row{
		line.NewRow(3, props.Line{Color: &borderGrey, Thickness: 0.2}),
		row.New(6).Add(text.NewCol(12, legal, props.Text{Size: 7, Align: align.Center, Color: &faint})),
	}
}

func initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func quantity(q float64) string {
	return strings.Replace(strconv.FormatFloat(q, 'f', -1, 64), ".", ",", 1)
}

func percent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', -1, 64) + "%"
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + " : " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	var keep []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}

func withTop(p props.Text, top float64) props.Text     { p.Top = top; return p }
func withLeft(p props.Text, left float64) props.Text   { p.Left = left; return p }
func withRight(p props.Text, right float64) props.Text { p.Right = right; return p }
func withAlign(p props.Text, a align.Type) props.Text  { p.Align = a; return p }

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
