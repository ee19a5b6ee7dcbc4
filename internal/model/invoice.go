package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/fattura-renderer/internal/decimal"
)

// Invoice is the root aggregate built from one electronic invoice document.
// It owns every nested entity and is never mutated after extraction.
type Invoice struct {
	Invoicer           Company       `json:"invoicer"`
	Invoicee           Company       `json:"invoicee"`
	ThirdParty         *Company      `json:"thirdParty,omitempty"`
	Installments       []Installment `json:"installments"`
	TransmissionFormat string        `json:"transmissionFormat,omitempty"`
}

// Company is a party to the invoice
type Company struct {
	Name     string    `json:"name"`
	VAT      string    `json:"vat"`
	Office   *Office   `json:"office,omitempty"`
	Contacts *Contacts `json:"contacts,omitempty"`
}

// Office is the registered address of a company
type Office struct {
	Address    string `json:"address"`
	Number     string `json:"number,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Contacts holds optional contact channels
type Contacts struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Installment is one billing document of the invoice and one rendered page
type Installment struct {
	Number      string           `json:"number"`
	IssueDate   time.Time        `json:"issueDate"`
	Currency    string           `json:"currency"`
	Description *string          `json:"description,omitempty"`
	Lines       []Line           `json:"lines"`
	Attachments []Attachment     `json:"attachments,omitempty"`
	StampDuty   *decimal.Decimal `json:"stampDuty,omitempty"`
	Payment     *Payment         `json:"payment,omitempty"`
	TaxSummary  TaxSummary       `json:"taxSummary"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`

	// DeclaredTotal is the document total as stated by the source, if any
	DeclaredTotal *decimal.Decimal `json:"declaredTotal,omitempty"`
}

// Line is one billed item
type Line struct {
	Number      int             `json:"number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	SinglePrice decimal.Decimal `json:"singlePrice"`
	Amount      decimal.Decimal `json:"amount"`
	Tax         decimal.Decimal `json:"tax"`
}

// Attachment is a document attached to an installment
type Attachment struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TaxSummary aggregates the taxable amount and the tax owed
type TaxSummary struct {
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
}

// Payment holds the payment terms of an installment
type Payment struct {
	Method             string          `json:"method,omitempty"`
	Bank               string          `json:"bank,omitempty"`
	IBAN               string          `json:"iban"`
	RegularPaymentDate *time.Time      `json:"regularPaymentDate,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
}

// PageKey identifies the rendered page of the installment
func (in *Installment) PageKey() string {
	return "installment-" + in.Number
}

// Calculate computes the line amount from quantity and unit price
func (l *Line) Calculate() {
	l.Amount = money.Mul(l.Quantity, l.SinglePrice)
}

// CalculateTaxSummary derives the tax summary from lines. Tax is computed
// once per rate bucket so that rounding matches the per-rate recap of the
// source document.
func CalculateTaxSummary(lines []Line) TaxSummary {
	buckets := make(map[string]decimal.Decimal)
	rates := make(map[string]decimal.Decimal)
	amounts := make([]decimal.Decimal, 0, len(lines))

	for _, l := range lines {
		amounts = append(amounts, l.Amount)
		key := l.Tax.String()
		buckets[key] = buckets[key].Add(l.Amount)
		rates[key] = l.Tax
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	taxes := make([]decimal.Decimal, 0, len(keys))
	for _, k := range keys {
		taxes = append(taxes, money.CalculateTax(buckets[k], rates[k]))
	}

	return TaxSummary{
		PaymentAmount: money.Sum(amounts),
		TaxAmount:     money.Sum(taxes),
	}
}

// CalculateTotals recomputes the tax summary and the total amount
func (in *Installment) CalculateTotals() {
	in.TaxSummary = CalculateTaxSummary(in.Lines)
	total := in.TaxSummary.PaymentAmount.Add(in.TaxSummary.TaxAmount)
	if in.StampDuty != nil {
		total = total.Add(*in.StampDuty)
	}
	in.TotalAmount = total
}

// Validate checks the structural invariants of the invoice graph
func (inv *Invoice) Validate() error {
	if inv.Invoicer.VAT == "" {
		return NewMalformedInvoiceError("invoicer.vat", "required field missing", nil)
	}
	if inv.Invoicee.VAT == "" {
		return NewMalformedInvoiceError("invoicee.vat", "required field missing", nil)
	}
	if inv.Invoicer.VAT == inv.Invoicee.VAT {
		return NewMalformedInvoiceError("invoicee.vat", "invoicee must differ from invoicer", nil)
	}
	if len(inv.Installments) == 0 {
		return NewMalformedInvoiceError("installments", "at least one installment is required", nil)
	}

	seen := make(map[string]bool, len(inv.Installments))
	for i := range inv.Installments {
		in := &inv.Installments[i]
		field := fmt.Sprintf("installments[%d]", i)
		if seen[in.Number] {
			return NewMalformedInvoiceError(field+".number", fmt.Sprintf("duplicate installment number %q", in.Number), nil)
		}
		seen[in.Number] = true

		if len(in.Lines) == 0 {
			return NewMalformedInvoiceError(field+".lines", "at least one line is required", nil)
		}
		for j, l := range in.Lines {
			if l.Number != j+1 {
				return NewMalformedInvoiceError(fmt.Sprintf("%s.lines[%d].number", field, j), "line numbers must start at 1 and increase by one", nil)
			}
		}
		if !money.IsNonNegative(in.TotalAmount) {
			return NewMalformedInvoiceError(field+".totalAmount", "must be non-negative", nil)
		}
	}
	return nil
}
