package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-renderer/internal/export"
	"github.com/rezonia/fattura-renderer/internal/model"
)

var (
	outputFile string
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract the invoice model from XML files",
	Long: `Extract the strict invoice model from one or more FatturaPA XML files.

Output formats:
  - json:  the compact invoice model with amount warnings
  - table: one row per installment
  - csv:   one row per installment
  - xlsx:  a workbook with an installments sheet and a lines sheet (requires -o)

Examples:
  fattura-renderer extract invoice.xml
  fattura-renderer extract invoices/ -f table
  fattura-renderer extract *.xml -f xlsx -o invoices.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
}

// ExtractResult holds the result of extracting a single file
type ExtractResult struct {
	File     string                   `json:"file"`
	Invoice  *model.Invoice           `json:"invoice,omitempty"`
	Warnings []model.ToleranceWarning `json:"warnings,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}
	if outputFormat == "xlsx" && outputFile == "" {
		return fmt.Errorf("xlsx output requires --output")
	}

	results := make([]*ExtractResult, 0, len(files))
	for _, file := range files {
		result := extractFile(cmd, file)
		if result.Error != "" {
			log.Sugar().Debugf("extraction failed for %s: %s", file, result.Error)
		}
		results = append(results, result)
	}

	return outputResults(cmd.OutOrStdout(), results)
}

func extractFile(cmd *cobra.Command, file string) *ExtractResult {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	result := &ExtractResult{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	extracted := pipeline.ProcessXMLBytes(ctx, data)
	if extracted.Error != nil {
		result.Error = extracted.Error.Error()
		return result
	}

	result.Invoice = extracted.Invoice
	result.Warnings = extracted.Warnings
	return result
}

func outputResults(stdout io.Writer, results []*ExtractResult) error {
	w := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(w, results)
	case "table":
		return outputTable(w, results)
	case "csv":
		return outputCSV(w, results)
	case "xlsx":
		entries := make([]export.Entry, 0, len(results))
		for _, r := range results {
			entries = append(entries, export.Entry{Source: r.File, Invoice: r.Invoice, Warnings: r.Warnings})
		}
		return export.WriteXLSX(w, entries)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputTable(w io.Writer, results []*ExtractResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNUMBER\tDATE\tINVOICER\tINVOICEE\tTAXABLE\tTAX\tTOTAL\tCURRENCY\tWARNINGS")
	fmt.Fprintln(tw, "----\t------\t----\t--------\t--------\t-------\t---\t-----\t--------\t--------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\t\t\t\n", r.File, r.Error)
			continue
		}

		inv := r.Invoice
		for _, in := range inv.Installments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
				r.File,
				in.Number,
				in.IssueDate.Format("2006-01-02"),
				inv.Invoicer.Name,
				inv.Invoicee.Name,
				in.TaxSummary.PaymentAmount.StringFixed(2),
				in.TaxSummary.TaxAmount.StringFixed(2),
				in.TotalAmount.StringFixed(2),
				in.Currency,
				len(r.Warnings),
			)
		}
	}

	return tw.Flush()
}

func outputCSV(w io.Writer, results []*ExtractResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"file", "number", "date", "invoicer_name", "invoicer_vat", "invoicee_name", "invoicee_vat",
		"taxable_amount", "tax_amount", "total_amount", "currency", "error",
	}); err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != "" {
			if err := cw.Write([]string{r.File, "", "", "", "", "", "", "", "", "", "", r.Error}); err != nil {
				return err
			}
			continue
		}

		inv := r.Invoice
		for _, in := range inv.Installments {
			if err := cw.Write([]string{
				r.File,
				in.Number,
				in.IssueDate.Format("2006-01-02"),
				inv.Invoicer.Name,
				inv.Invoicer.VAT,
				inv.Invoicee.Name,
				inv.Invoicee.VAT,
				in.TaxSummary.PaymentAmount.StringFixed(2),
				in.TaxSummary.TaxAmount.StringFixed(2),
				in.TotalAmount.StringFixed(2),
				in.Currency,
				"",
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
