// Package export writes extracted invoices as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rezonia/fattura-renderer/internal/model"
)

// Sheet names of the workbook
const (
	InstallmentsSheet = "Installments"
	LinesSheet        = "Lines"
)

// builtin number format 4 is #,##0.00
const amountFormat = 4

var (
	installmentHeader = []any{
		"File", "Number", "Date", "Currency",
		"Invoicer", "Invoicer VAT", "Invoicee", "Invoicee VAT",
		"Taxable", "Tax", "Stamp duty", "Total", "Declared total",
		"IBAN", "Due date", "Warnings",
	}
	lineHeader = []any{
		"File", "Installment", "Line", "Description",
		"Quantity", "Unit price", "Amount", "VAT %",
	}
)

// Entry is one extracted invoice and where it came from
type Entry struct {
	Source   string
	Invoice  *model.Invoice
	Warnings []model.ToleranceWarning
}

// WriteXLSX writes one row per installment and one row per line
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InstallmentsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(LinesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return err
	}

	if err := writeRow(f, InstallmentsSheet, 1, installmentHeader); err != nil {
		return err
	}
	if err := writeRow(f, LinesSheet, 1, lineHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(InstallmentsSheet, 1, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(LinesSheet, 1, 1, header); err != nil {
		return err
	}

	inRow, lineRow := 2, 2
	for _, e := range entries {
		if e.Invoice == nil {
			continue
		}
		inv := e.Invoice
		for i := range inv.Installments {
			in := &inv.Installments[i]
			if err := writeRow(f, InstallmentsSheet, inRow, installmentRow(e, inv, in, i)); err != nil {
				return err
			}
			inRow++

			for _, l := range in.Lines {
				row := []any{
					e.Source, in.Number, l.Number, l.Description,
					l.Quantity.InexactFloat64(), l.SinglePrice.InexactFloat64(),
					l.Amount.InexactFloat64(), l.Tax.InexactFloat64(),
				}
				if err := writeRow(f, LinesSheet, lineRow, row); err != nil {
					return err
				}
				lineRow++
			}
		}
	}

	if inRow > 2 {
		if err := f.SetCellStyle(InstallmentsSheet, "I2", fmt.Sprintf("M%d", inRow-1), amount); err != nil {
			return err
		}
	}
	if lineRow > 2 {
		if err := f.SetCellStyle(LinesSheet, "F2", fmt.Sprintf("G%d", lineRow-1), amount); err != nil {
			return err
		}
	}

	if err := f.SetPanes(InstallmentsSheet, frozenHeader()); err != nil {
		return err
	}
	if err := f.SetPanes(LinesSheet, frozenHeader()); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func installmentRow(e Entry, inv *model.Invoice, in *model.Installment, index int) []any {
	row := []any{
		e.Source, in.Number, in.IssueDate.Format("2006-01-02"), in.Currency,
		inv.Invoicer.Name, inv.Invoicer.VAT, inv.Invoicee.Name, inv.Invoicee.VAT,
		in.TaxSummary.PaymentAmount.InexactFloat64(),
		in.TaxSummary.TaxAmount.InexactFloat64(),
		nil,
		in.TotalAmount.InexactFloat64(),
		nil,
		"", "", countWarnings(e.Warnings, index),
	}
	if in.StampDuty != nil {
		row[10] = in.StampDuty.InexactFloat64()
	}
	if in.DeclaredTotal != nil {
		row[12] = in.DeclaredTotal.InexactFloat64()
	}
	if in.Payment != nil {
		row[13] = in.Payment.IBAN
		if in.Payment.RegularPaymentDate != nil {
			row[14] = in.Payment.RegularPaymentDate.Format("2006-01-02")
		}
	}
	return row
}

// countWarnings counts the warnings raised inside the index-th body
func countWarnings(warnings []model.ToleranceWarning, index int) int {
	prefix := fmt.Sprintf("FatturaElettronicaBody[%d].", index)
	n := 0
	for _, w := range warnings {
		if strings.Contains(w.Field, prefix) {
			n++
		}
	}
	return n
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func frozenHeader() *excelize.Panes {
	return &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}
}
