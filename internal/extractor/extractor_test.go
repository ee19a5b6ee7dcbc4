package extractor_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-renderer/internal/extractor"
	"github.com/rezonia/fattura-renderer/internal/model"
	xmlparser "github.com/rezonia/fattura-renderer/internal/parser/xml"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func extract(t *testing.T, data []byte) (*extractor.Result, error) {
	t.Helper()
	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)
	return extractor.New().Extract(tree)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestExtract_SingleLine(t *testing.T) {
	result, err := extract(t, loadFixture(t, "single_line.xml"))
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	inv := result.Invoice
	assert.Equal(t, "FPR12", inv.TransmissionFormat)
	assert.Nil(t, inv.ThirdParty)

	assert.Equal(t, "Acme Servizi S.r.l.", inv.Invoicer.Name)
	assert.Equal(t, "IT01234567897", inv.Invoicer.VAT)
	require.NotNil(t, inv.Invoicer.Office)
	assert.Equal(t, "00100", inv.Invoicer.Office.PostalCode)
	assert.Equal(t, "RM", inv.Invoicer.Office.Province)
	require.NotNil(t, inv.Invoicer.Contacts)
	assert.Equal(t, "0612345678", inv.Invoicer.Contacts.Phone)
	assert.Equal(t, "info@acme.example", inv.Invoicer.Contacts.Email)

	assert.Equal(t, "Mario Rossi", inv.Invoicee.Name)
	assert.Equal(t, "IT09876543217", inv.Invoicee.VAT)
	assert.Nil(t, inv.Invoicee.Contacts)

	require.Len(t, inv.Installments, 1)
	in := inv.Installments[0]
	assert.Equal(t, "FPR 1/24", in.Number)
	assert.Equal(t, "EUR", in.Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), in.IssueDate)
	assert.Nil(t, in.Description)
	assert.Nil(t, in.Attachments)
	assert.Nil(t, in.StampDuty)

	require.Len(t, in.Lines, 1)
	line := in.Lines[0]
	assert.Equal(t, 1, line.Number)
	assert.True(t, line.Quantity.Equal(dec("2")))
	assert.True(t, line.SinglePrice.Equal(dec("10")))
	assert.True(t, line.Amount.Equal(dec("20.00")), "amount %s", line.Amount)
	assert.True(t, line.Tax.Equal(dec("22")))

	assert.True(t, in.TaxSummary.PaymentAmount.Equal(dec("20.00")))
	assert.True(t, in.TaxSummary.TaxAmount.Equal(dec("4.40")))
	assert.True(t, in.TotalAmount.Equal(dec("24.40")), "total %s", in.TotalAmount)
}

func TestExtract_MultiInstallment(t *testing.T) {
	result, err := extract(t, loadFixture(t, "multi_installment.xml"))
	require.NoError(t, err)

	inv := result.Invoice
	assert.Equal(t, "FPA12", inv.TransmissionFormat)
	assert.Equal(t, "RSSMRA80A01H501U", inv.Invoicee.VAT, "fiscal code is used when there is no VAT id")
	require.NotNil(t, inv.ThirdParty)
	assert.Equal(t, "Studio Contabile Bianchi", inv.ThirdParty.Name)
	assert.Equal(t, "IT11111111115", inv.ThirdParty.VAT)
	assert.Nil(t, inv.ThirdParty.Office)

	require.Len(t, inv.Installments, 2)

	first := inv.Installments[0]
	assert.Equal(t, "A-1", first.Number)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Canone di manutenzione primo trimestre 2024", *first.Description)
	require.NotNil(t, first.StampDuty)
	assert.True(t, first.StampDuty.Equal(dec("2.00")))

	require.Len(t, first.Lines, 2)
	assert.True(t, first.Lines[0].Quantity.Equal(dec("1")), "missing quantity defaults to one")
	assert.True(t, first.Lines[1].Amount.Equal(dec("60.00")))
	assert.Equal(t, 2, first.Lines[1].Number)

	assert.True(t, first.TaxSummary.PaymentAmount.Equal(dec("160.00")))
	assert.True(t, first.TaxSummary.TaxAmount.Equal(dec("22.00")))
	assert.True(t, first.TotalAmount.Equal(dec("184.00")))

	require.NotNil(t, first.Payment)
	assert.Equal(t, "MP05", first.Payment.Method)
	assert.Equal(t, "Banca Esempio", first.Payment.Bank)
	assert.Equal(t, "IT60X0542811101000000123456", first.Payment.IBAN)
	assert.True(t, first.Payment.Amount.Equal(dec("184.00")))
	require.NotNil(t, first.Payment.RegularPaymentDate)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *first.Payment.RegularPaymentDate)

	require.Len(t, first.Attachments, 1)
	assert.Equal(t, model.Attachment{Name: "contratto.pdf", Description: "Contratto di manutenzione"}, first.Attachments[0])

	second := inv.Installments[1]
	assert.Equal(t, "A-2", second.Number)
	assert.Nil(t, second.Payment)
	assert.Nil(t, second.Description)
	assert.True(t, second.TotalAmount.Equal(dec("122.00")))
	require.Len(t, second.Attachments, 2)
	assert.Equal(t, "rapporto.pdf", second.Attachments[0].Name)
	assert.Empty(t, second.Attachments[0].Description)
	assert.Equal(t, "Foto intervento", second.Attachments[1].Description)

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, "FatturaElettronica.FatturaElettronicaBody[1].DatiGenerali.DatiGeneraliDocumento.ImportoTotaleDocumento", w.Field)
	assert.True(t, w.Declared.Equal(dec("130.00")))
	assert.True(t, w.Computed.Equal(dec("122.00")))
}

func TestExtract_Idempotent(t *testing.T) {
	data := loadFixture(t, "multi_installment.xml")

	first, err := extract(t, data)
	require.NoError(t, err)
	second, err := extract(t, data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtract_SingleAndListShapesAgree(t *testing.T) {
	// The same line once as the only child and once repeated: the first line
	// of each document must come out identical.
	single := string(loadFixture(t, "single_line.xml"))

	start := strings.Index(single, "<DettaglioLinee>")
	end := strings.Index(single, "</DettaglioLinee>") + len("</DettaglioLinee>")
	require.True(t, start > 0 && end > start)

	block := single[start:end]
	second := strings.Replace(block, "<NumeroLinea>1</NumeroLinea>", "<NumeroLinea>2</NumeroLinea>", 1)
	doubled := single[:end] + second + single[end:]

	one, err := extract(t, []byte(single))
	require.NoError(t, err)
	two, err := extract(t, []byte(doubled))
	require.NoError(t, err)

	require.Len(t, two.Invoice.Installments[0].Lines, 2)
	assert.Equal(t, one.Invoice.Installments[0].Lines[0], two.Invoice.Installments[0].Lines[0])
	assert.Equal(t, 2, two.Invoice.Installments[0].Lines[1].Number)
}

func TestExtract_Malformed(t *testing.T) {
	fixture := string(loadFixture(t, "single_line.xml"))

	tests := []struct {
		name      string
		edit      func(string) string
		wantField string
	}{
		{
			name: "missing invoicee VAT code",
			edit: func(s string) string {
				return strings.Replace(s, "<IdCodice>09876543217</IdCodice>", "", 1)
			},
			wantField: "FatturaElettronica.FatturaElettronicaHeader.CessionarioCommittente.DatiAnagrafici.IdFiscaleIVA.IdCodice",
		},
		{
			name: "non numeric unit price",
			edit: func(s string) string {
				return strings.Replace(s, "<PrezzoUnitario>10.00</PrezzoUnitario>", "<PrezzoUnitario>ten</PrezzoUnitario>", 1)
			},
			wantField: "FatturaElettronica.FatturaElettronicaBody[0].DatiBeniServizi.DettaglioLinee[0].PrezzoUnitario",
		},
		{
			name: "invalid issue date",
			edit: func(s string) string {
				return strings.Replace(s, "<Data>2024-03-01</Data>", "<Data>01/03/2024</Data>", 1)
			},
			wantField: "FatturaElettronica.FatturaElettronicaBody[0].DatiGenerali.DatiGeneraliDocumento.Data",
		},
		{
			name: "missing currency",
			edit: func(s string) string {
				return strings.Replace(s, "<Divisa>EUR</Divisa>", "", 1)
			},
			wantField: "FatturaElettronica.FatturaElettronicaBody[0].DatiGenerali.DatiGeneraliDocumento.Divisa",
		},
		{
			name: "missing invoicee",
			edit: func(s string) string {
				start := strings.Index(s, "<CessionarioCommittente>")
				end := strings.Index(s, "</CessionarioCommittente>") + len("</CessionarioCommittente>")
				return s[:start] + s[end:]
			},
			wantField: "FatturaElettronica.FatturaElettronicaHeader.CessionarioCommittente",
		},
		{
			name: "same party on both sides",
			edit: func(s string) string {
				return strings.Replace(s, "<IdCodice>09876543217</IdCodice>", "<IdCodice>01234567897</IdCodice>", 1)
			},
			wantField: "invoicee.vat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract(t, []byte(tt.edit(fixture)))
			require.Error(t, err)

			var malformed *model.MalformedInvoiceError
			require.True(t, errors.As(err, &malformed), "got %T: %v", err, err)
			assert.Equal(t, tt.wantField, malformed.Field)
		})
	}
}

func TestExtract_NotAnInvoice(t *testing.T) {
	tree, err := xmlparser.Parse([]byte(`<Order><Id>1</Id></Order>`))
	require.NoError(t, err)

	assert.False(t, extractor.CanExtract(tree))

	_, err = extractor.New().Extract(tree)
	var malformed *model.MalformedInvoiceError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, extractor.RootElement, malformed.Field)
}

func TestExtract_DeclaredLineTotalWins(t *testing.T) {
	fixture := string(loadFixture(t, "single_line.xml"))
	discounted := strings.Replace(fixture, "<PrezzoTotale>20.00</PrezzoTotale>", "<PrezzoTotale>18.00</PrezzoTotale>", 1)

	result, err := extract(t, []byte(discounted))
	require.NoError(t, err)

	in := result.Invoice.Installments[0]
	assert.True(t, in.Lines[0].Amount.Equal(dec("18.00")))
	assert.True(t, in.TaxSummary.TaxAmount.Equal(dec("3.96")))

	fields := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		fields[i] = w.Field
	}
	assert.Contains(t, fields, "FatturaElettronica.FatturaElettronicaBody[0].DatiBeniServizi.DettaglioLinee[0].PrezzoTotale")
}

func TestExtract_Tolerance(t *testing.T) {
	fixture := string(loadFixture(t, "single_line.xml"))
	offByFive := strings.Replace(fixture, "<ImportoTotaleDocumento>24.40</ImportoTotaleDocumento>", "<ImportoTotaleDocumento>24.45</ImportoTotaleDocumento>", 1)

	tree, err := xmlparser.Parse([]byte(offByFive))
	require.NoError(t, err)

	strict, err := extractor.New().Extract(tree)
	require.NoError(t, err)
	assert.Len(t, strict.Warnings, 1)

	lenient, err := extractor.New(extractor.WithTolerance(dec("0.10"))).Extract(tree)
	require.NoError(t, err)
	assert.Empty(t, lenient.Warnings)
	assert.True(t, lenient.Invoice.Installments[0].TotalAmount.Equal(dec("24.40")))
}

// Benchmark tests

func BenchmarkExtract(b *testing.B) {
	data, err := os.ReadFile(filepath.Join("testdata", "multi_installment.xml"))
	if err != nil {
		b.Fatal(err)
	}
	tree, err := xmlparser.Parse(data)
	if err != nil {
		b.Fatal(err)
	}
	e := extractor.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Extract(tree)
	}
}
