// Package invoicelib provides a public API for converting FatturaPA
// electronic invoices.
//
// The three entry points mirror the conversion stages: XMLToTree returns the
// generic element tree, XMLToInvoice the strict invoice model and XMLToPDF
// a PDF stream with one page per installment.
//
// Example usage:
//
//	pdf, err := invoicelib.XMLToPDF(ctx, file, invoicelib.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pdf.Close()
//	io.Copy(out, pdf)
package invoicelib

import (
	"github.com/rezonia/fattura-renderer/internal/model"
	xmlparser "github.com/rezonia/fattura-renderer/internal/parser/xml"
	"github.com/rezonia/fattura-renderer/internal/render"
)

// Re-export core types for public API
type (
	Invoice     = model.Invoice
	Company     = model.Company
	Office      = model.Office
	Contacts    = model.Contacts
	Installment = model.Installment
	Line        = model.Line
	Attachment  = model.Attachment
	TaxSummary  = model.TaxSummary
	Payment     = model.Payment
	Tree        = xmlparser.Node
)

// Re-export display types
type (
	DisplayConfig = render.DisplayConfig
	Colors        = render.Colors
	Document      = render.Document
	Page          = render.Page
)

// Re-export diagnostics
type (
	ToleranceWarning = model.ToleranceWarning
	RenderFallback   = model.RenderFallback
)

// Re-export error types
type (
	ParseError            = model.ParseError
	MalformedInvoiceError = model.MalformedInvoiceError
	ValidationError       = model.ValidationError
	RenderError           = model.RenderError
)

// DefaultLocale is used when no locale is given
const DefaultLocale = render.DefaultLocale

// SupportedLocales lists the locales with a translation catalog
func SupportedLocales() []string {
	return render.SupportedLocales()
}
