// Package extractor maps the generic tree of a FatturaPA document onto the
// strict invoice model.
//
// Every list-valued element goes through xml.AsSequence, numeric leaves are
// parsed as decimals and aggregates are recomputed from the lines. Declared
// aggregates that disagree with the recomputed ones are reported as
// model.ToleranceWarning values in the Result.
package extractor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	money "github.com/rezonia/fattura-renderer/internal/decimal"
	"github.com/rezonia/fattura-renderer/internal/model"
	xmlparser "github.com/rezonia/fattura-renderer/internal/parser/xml"
)

// RootElement is the document element of a FatturaPA invoice
const RootElement = "FatturaElettronica"

// Result holds the extracted invoice and the non-fatal discrepancies found
type Result struct {
	Invoice  *model.Invoice
	Warnings []model.ToleranceWarning
}

// Extractor converts generic trees into invoices. It holds no per-call state
// and is safe for concurrent use.
type Extractor struct {
	tolerance decimal.Decimal
	logger    *zap.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithTolerance sets the maximum accepted gap between declared and computed amounts
func WithTolerance(tolerance decimal.Decimal) Option {
	return func(e *Extractor) {
		e.tolerance = tolerance.Abs()
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an extractor
func New(opts ...Option) *Extractor {
	e := &Extractor{
		tolerance: money.DefaultTolerance,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanExtract reports whether the tree looks like a FatturaPA document
func CanExtract(tree *xmlparser.Node) bool {
	return rootField(tree).child(RootElement).node() != nil
}

// Extract builds the invoice model from tree
func (e *Extractor) Extract(tree *xmlparser.Node) (*Result, error) {
	root := rootField(tree).child(RootElement)
	if root.node() == nil {
		return nil, model.NewMalformedInvoiceError(RootElement, "document is not an electronic invoice", nil)
	}

	header := root.child("FatturaElettronicaHeader")
	if header.node() == nil {
		return nil, header.missing()
	}

	run := &extraction{tolerance: e.tolerance, logger: e.logger}

	invoicer, err := run.company(header.child("CedentePrestatore"))
	if err != nil {
		return nil, err
	}
	invoicee, err := run.company(header.child("CessionarioCommittente"))
	if err != nil {
		return nil, err
	}

	var thirdParty *model.Company
	if tp := header.child("TerzoIntermediarioOSoggettoEmittente"); tp.node() != nil {
		c, err := run.company(tp)
		if err != nil {
			return nil, err
		}
		thirdParty = &c
	}

	bodies := root.each("FatturaElettronicaBody")
	if len(bodies) == 0 {
		return nil, model.NewMalformedInvoiceError(root.child("FatturaElettronicaBody").path, "at least one installment is required", nil)
	}

	installments := make([]model.Installment, 0, len(bodies))
	for _, body := range bodies {
		in, err := run.installment(body)
		if err != nil {
			return nil, err
		}
		installments = append(installments, in)
	}

	format, _ := header.child("DatiTrasmissione").child("FormatoTrasmissione").text()

	inv := &model.Invoice{
		Invoicer:           invoicer,
		Invoicee:           invoicee,
		ThirdParty:         thirdParty,
		Installments:       installments,
		TransmissionFormat: format,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	e.logger.Debug("invoice extracted",
		zap.Int("installments", len(installments)),
		zap.Int("warnings", len(run.warnings)),
	)

	return &Result{Invoice: inv, Warnings: run.warnings}, nil
}

// extraction carries the state of a single Extract call
type extraction struct {
	tolerance decimal.Decimal
	logger    *zap.Logger
	warnings  []model.ToleranceWarning
}

func (x *extraction) company(f field) (model.Company, error) {
	if f.node() == nil {
		return model.Company{}, f.missing()
	}

	personal := f.child("DatiAnagrafici")
	vat, err := vatNumber(personal)
	if err != nil {
		return model.Company{}, err
	}

	return model.Company{
		Name:     companyName(personal.child("Anagrafica")),
		VAT:      vat,
		Office:   office(f.child("Sede")),
		Contacts: contacts(f.child("Contatti")),
	}, nil
}

// vatNumber prefers the VAT id and falls back to the fiscal code, which is
// all private customers have.
func vatNumber(personal field) (string, error) {
	id := personal.child("IdFiscaleIVA")
	if id.node() != nil {
		code, err := id.child("IdCodice").requiredText()
		if err != nil {
			return "", err
		}
		country, _ := id.child("IdPaese").text()
		return strings.ToUpper(country) + code, nil
	}
	if cf, ok := personal.child("CodiceFiscale").text(); ok {
		return cf, nil
	}
	return "", id.child("IdCodice").missing()
}

func companyName(registry field) string {
	if name, ok := registry.child("Denominazione").text(); ok {
		return name
	}
	first, _ := registry.child("Nome").text()
	last, _ := registry.child("Cognome").text()
	return strings.TrimSpace(first + " " + last)
}

func office(f field) *model.Office {
	if f.node() == nil {
		return nil
	}
	o := &model.Office{}
	o.Address, _ = f.child("Indirizzo").text()
	o.Number, _ = f.child("NumeroCivico").text()
	o.PostalCode, _ = f.child("CAP").text()
	o.City, _ = f.child("Comune").text()
	o.Province, _ = f.child("Provincia").text()
	o.Country, _ = f.child("Nazione").text()
	return o
}

func contacts(f field) *model.Contacts {
	if f.node() == nil {
		return nil
	}
	c := &model.Contacts{}
	c.Phone, _ = f.child("Telefono").text()
	c.Email, _ = f.child("Email").text()
	if c.Phone == "" && c.Email == "" {
		return nil
	}
	return c
}

func (x *extraction) installment(body field) (model.Installment, error) {
	doc := body.child("DatiGenerali").child("DatiGeneraliDocumento")
	if doc.node() == nil {
		return model.Installment{}, doc.missing()
	}

	var in model.Installment
	var err error

	if in.Number, err = doc.child("Numero").requiredText(); err != nil {
		return in, err
	}
	if in.IssueDate, err = doc.child("Data").requiredDate(); err != nil {
		return in, err
	}
	currency, err := doc.child("Divisa").requiredText()
	if err != nil {
		return in, err
	}
	in.Currency = strings.ToUpper(currency)
	in.Description = cause(doc.each("Causale"))

	stamp := doc.child("DatiBollo").child("ImportoBollo")
	if in.StampDuty, err = stamp.decimal(); err != nil {
		return in, err
	}
	if in.StampDuty != nil && !money.IsNonNegative(*in.StampDuty) {
		return in, model.NewMalformedInvoiceError(stamp.path, "stamp duty must be non-negative", nil)
	}
	declared := doc.child("ImportoTotaleDocumento")
	if in.DeclaredTotal, err = declared.decimal(); err != nil {
		return in, err
	}

	goods := body.child("DatiBeniServizi")
	lineFields := goods.each("DettaglioLinee")
	if len(lineFields) == 0 {
		return in, model.NewMalformedInvoiceError(goods.child("DettaglioLinee").path, "at least one line is required", nil)
	}
	in.Lines = make([]model.Line, 0, len(lineFields))
	for i, lf := range lineFields {
		line, err := x.line(lf, i+1)
		if err != nil {
			return in, err
		}
		in.Lines = append(in.Lines, line)
	}

	if in.Attachments, err = attachments(body.each("Allegati")); err != nil {
		return in, err
	}

	in.CalculateTotals()
	if !money.IsNonNegative(in.TotalAmount) {
		return in, model.NewMalformedInvoiceError(goods.path, "installment total must be non-negative", nil)
	}

	if in.Payment, err = x.payment(body.each("DatiPagamento"), in.TotalAmount); err != nil {
		return in, err
	}

	if in.DeclaredTotal != nil {
		x.check(declared.path, *in.DeclaredTotal, in.TotalAmount)
	}
	if err := x.checkRecap(goods.each("DatiRiepilogo"), goods.child("DatiRiepilogo").path, in.TaxSummary); err != nil {
		return in, err
	}

	return in, nil
}

// cause joins the repeated Causale chunks a long description is split into
func cause(chunks []field) *string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if s, ok := c.text(); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, " ")
	return &joined
}

func (x *extraction) line(f field, number int) (model.Line, error) {
	l := model.Line{Number: number}

	var err error
	if l.Description, err = f.child("Descrizione").requiredText(); err != nil {
		return l, err
	}

	qty, err := f.child("Quantita").decimal()
	if err != nil {
		return l, err
	}
	l.Quantity = decimal.NewFromInt(1)
	if qty != nil {
		l.Quantity = *qty
	}

	if l.SinglePrice, err = f.child("PrezzoUnitario").requiredDecimal(); err != nil {
		return l, err
	}

	rate := f.child("AliquotaIVA")
	if l.Tax, err = rate.requiredDecimal(); err != nil {
		return l, err
	}
	if !money.IsNonNegative(l.Tax) {
		return l, model.NewMalformedInvoiceError(rate.path, "tax rate must be non-negative", nil)
	}

	l.Calculate()

	total := f.child("PrezzoTotale")
	declared, err := total.decimal()
	if err != nil {
		return l, err
	}
	if declared != nil && x.check(total.path, *declared, l.Amount) {
		// discounts and surcharges only show up in the declared total
		l.Amount = *declared
	}

	return l, nil
}

func attachments(fields []field) ([]model.Attachment, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]model.Attachment, 0, len(fields))
	for _, f := range fields {
		name, err := f.child("NomeAttachment").requiredText()
		if err != nil {
			return nil, err
		}
		desc, _ := f.child("DescrizioneAttachment").text()
		out = append(out, model.Attachment{Name: name, Description: desc})
	}
	return out, nil
}

// payment reads the first payment detail. An installment paid in several
// tranches keeps only the first one.
func (x *extraction) payment(blocks []field, total decimal.Decimal) (*model.Payment, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	details := blocks[0].each("DettaglioPagamento")
	if len(details) == 0 {
		return nil, blocks[0].child("DettaglioPagamento").missing()
	}
	if len(blocks) > 1 || len(details) > 1 {
		x.logger.Debug("additional payment details ignored",
			zap.String("field", blocks[0].path),
			zap.Int("blocks", len(blocks)),
			zap.Int("details", len(details)),
		)
	}

	d := details[0]
	p := &model.Payment{}
	var err error

	if p.IBAN, err = d.child("IBAN").requiredText(); err != nil {
		return nil, err
	}
	amount := d.child("ImportoPagamento")
	if p.Amount, err = amount.requiredDecimal(); err != nil {
		return nil, err
	}
	if p.RegularPaymentDate, err = d.child("DataScadenzaPagamento").date(); err != nil {
		return nil, err
	}
	p.Method, _ = d.child("ModalitaPagamento").text()
	p.Bank, _ = d.child("IstitutoFinanziario").text()

	x.check(amount.path, p.Amount, total)
	return p, nil
}

func (x *extraction) checkRecap(recaps []field, path string, summary model.TaxSummary) error {
	if len(recaps) == 0 {
		return nil
	}

	taxable := make([]decimal.Decimal, 0, len(recaps))
	taxes := make([]decimal.Decimal, 0, len(recaps))
	for _, r := range recaps {
		base, err := r.child("ImponibileImporto").requiredDecimal()
		if err != nil {
			return err
		}
		tax, err := r.child("Imposta").decimal()
		if err != nil {
			return err
		}
		taxable = append(taxable, base)
		if tax != nil {
			taxes = append(taxes, *tax)
		}
	}

	x.check(path+".ImponibileImporto", money.Sum(taxable), summary.PaymentAmount)
	x.check(path+".Imposta", money.Sum(taxes), summary.TaxAmount)
	return nil
}

// check records a warning when declared and computed disagree beyond the
// tolerance and reports whether it did.
func (x *extraction) check(path string, declared, computed decimal.Decimal) bool {
	if money.WithinTolerance(declared, computed, x.tolerance) {
		return false
	}
	w := model.ToleranceWarning{
		Field:     path,
		Declared:  declared,
		Computed:  computed,
		Tolerance: x.tolerance,
	}
	x.warnings = append(x.warnings, w)
	x.logger.Warn("declared amount differs from computed",
		zap.String("field", path),
		zap.Stringer("declared", declared),
		zap.Stringer("computed", computed),
	)
	return true
}

// String describes the extractor configuration
func (e *Extractor) String() string {
	return fmt.Sprintf("fatturapa extractor (tolerance %s)", e.tolerance.String())
}
