// Package render turns an extracted invoice into page descriptions: one
// page per installment, every value already localized and formatted. It
// never fails; unsupported display inputs are replaced by defaults and
// reported as model.RenderFallback values.
package render

import (
	"strconv"
	"strings"

	"github.com/rezonia/fattura-renderer/internal/model"
)

// DisplayConfig holds the recognized display options
type DisplayConfig struct {
	Locale string `json:"locale"`
	Footer bool   `json:"footer"`
	Colors Colors `json:"colors"`
}

// DefaultDisplayConfig returns {locale: "it", footer: true, colors: {}}
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{Locale: DefaultLocale, Footer: true}
}

// Line table column widths as fractions of the content width
var lineColumnWidths = [6]float64{0.10, 0.32, 0.10, 0.20, 0.20, 0.08}

// Render builds the page descriptions of inv
func Render(inv *model.Invoice, cfg DisplayConfig) Document {
	catalog, tag, ok := resolveLocale(cfg.Locale)
	var fallbacks []model.RenderFallback
	if !ok {
		fallbacks = append(fallbacks, model.RenderFallback{
			Kind:      model.FallbackLocale,
			Requested: cfg.Locale,
			Used:      catalog.Tag.String(),
		})
	}

	colors, colorFallbacks := MergeColors(cfg.Colors)
	fallbacks = append(fallbacks, colorFallbacks...)

	doc := Document{Pages: make([]Page, 0, len(inv.Installments))}
	seen := make(map[string]bool)

	for i := range inv.Installments {
		in := &inv.Installments[i]

		symbol, known := CurrencySymbol(in.Currency)
		if !known && !seen[in.Currency] {
			seen[in.Currency] = true
			fallbacks = append(fallbacks, model.RenderFallback{
				Kind:      model.FallbackCurrency,
				Requested: in.Currency,
				Used:      strings.TrimSpace(symbol),
			})
		}

		r := &pageRenderer{
			t:      catalog,
			f:      newFormatter(catalog, tag, symbol),
			colors: colors,
			footer: cfg.Footer,
		}
		doc.Pages = append(doc.Pages, r.page(inv, in))
	}

	doc.Fallbacks = fallbacks
	return doc
}

type pageRenderer struct {
	t      *Catalog
	f      *formatter
	colors Colors
	footer bool
}

func (r *pageRenderer) page(inv *model.Invoice, in *model.Installment) Page {
	p := Page{
		Key:   in.PageKey(),
		Title: r.t.Label("invoice"),
		Summary: []Entry{
			{Label: r.t.Label("number"), Value: in.Number},
			{Label: r.t.Label("date"), Value: r.f.Date(in.IssueDate)},
		},
		Parties: r.parties(inv),
		Lines:   r.lines(in.Lines),
		Recap:   r.recap(in),
		Colors:  r.colors,
	}

	if in.Description != nil {
		p.Cause = &TextBlock{Title: r.t.Label("cause"), Text: *in.Description}
	}
	if in.Attachments != nil {
		p.Attachments = r.attachments(in.Attachments)
	}
	if in.StampDuty != nil {
		p.StampDuty = &TextBlock{Title: r.t.Label("stampDuty"), Text: r.f.Money(*in.StampDuty)}
	}
	if in.Payment != nil {
		p.Payment = r.payment(in.Payment)
	}
	if r.footer {
		p.Attribution = r.t.Label("generatedBy")
	}

	return p
}

// parties wraps the party blocks two per row
func (r *pageRenderer) parties(inv *model.Invoice) []PartyRow {
	blocks := []Party{
		r.party(r.t.Label("supplier"), &inv.Invoicer),
		r.party(r.t.Label("customer"), &inv.Invoicee),
	}
	if inv.ThirdParty != nil {
		blocks = append(blocks, r.party(r.t.Label("intermediary"), inv.ThirdParty))
	}

	var rows []PartyRow
	for len(blocks) > 0 {
		n := min(2, len(blocks))
		rows = append(rows, PartyRow(blocks[:n]))
		blocks = blocks[n:]
	}
	return rows
}

func (r *pageRenderer) party(role string, c *model.Company) Party {
	details := []string{r.t.Label("vatNumber") + ": " + c.VAT}

	if o := c.Office; o != nil {
		details = appendJoined(details, o.Address, o.Number)
		details = appendJoined(details, o.PostalCode, o.City, provinceOf(o), o.Country)
	}
	if ct := c.Contacts; ct != nil {
		if ct.Phone != "" {
			details = append(details, r.t.Label("phone")+": "+ct.Phone)
		}
		if ct.Email != "" {
			details = append(details, ct.Email)
		}
	}

	return Party{Role: role, Name: c.Name, Details: details}
}

func provinceOf(o *model.Office) string {
	if o.Province == "" {
		return ""
	}
	return "(" + o.Province + ")"
}

// appendJoined appends the non-empty parts joined by a space, if any
func appendJoined(lines []string, parts ...string) []string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return lines
	}
	return append(lines, strings.Join(kept, " "))
}

func (r *pageRenderer) lines(lines []model.Line) Table {
	titles := []string{"lineNumber", "description", "quantity", "price", "total", "vat"}
	columns := make([]Column, len(titles))
	for i, key := range titles {
		align := AlignRight
		if i < 2 {
			align = AlignLeft
		}
		columns[i] = Column{Title: r.t.Label(key), Width: lineColumnWidths[i], Align: align}
	}

	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = []string{
			strconv.Itoa(l.Number),
			l.Description,
			r.f.Quantity(l.Quantity),
			r.f.Money(l.SinglePrice),
			r.f.Money(l.Amount),
			r.f.Percent(l.Tax),
		}
	}

	return Table{Title: r.t.Label("productsAndServices"), Columns: columns, Rows: rows}
}

func (r *pageRenderer) attachments(attachments []model.Attachment) *Table {
	rows := make([][]string, len(attachments))
	for i, a := range attachments {
		rows[i] = []string{a.Name, a.Description}
	}
	return &Table{
		Title: r.t.Label("attachedDocs"),
		Columns: []Column{
			{Title: r.t.Label("name"), Width: 0.5},
			{Title: r.t.Label("description"), Width: 0.5},
		},
		Rows: rows,
	}
}

func (r *pageRenderer) payment(p *model.Payment) *PaymentBlock {
	var entries []Entry
	if p.Method != "" {
		entries = append(entries, Entry{Label: r.t.Label("paymentMethod"), Value: r.t.PaymentMethod(p.Method)})
	}
	if p.Bank != "" {
		entries = append(entries, Entry{Label: r.t.Label("bank"), Value: p.Bank})
	}
	entries = append(entries, Entry{Label: "IBAN", Value: p.IBAN})
	if p.RegularPaymentDate != nil {
		entries = append(entries, Entry{Label: r.t.Label("dueDate"), Value: r.f.Date(*p.RegularPaymentDate)})
	}
	entries = append(entries, Entry{Label: r.t.Label("amount"), Value: r.f.Money(p.Amount)})

	return &PaymentBlock{Title: r.t.Label("paymentDetails"), Entries: entries}
}

func (r *pageRenderer) recap(in *model.Installment) Recap {
	return Recap{
		Taxable: Entry{Label: r.t.Label("totalProductsServices"), Value: r.f.Money(in.TaxSummary.PaymentAmount)},
		Tax:     Entry{Label: r.t.Label("totalVat"), Value: r.f.Money(in.TaxSummary.TaxAmount)},
		Total:   Entry{Label: r.t.Label("total"), Value: r.f.Money(in.TotalAmount)},
	}
}
