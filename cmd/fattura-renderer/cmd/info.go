package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-renderer/internal/extractor"
	"github.com/rezonia/fattura-renderer/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about invoice files",
	Long: `Display information about invoice files without rendering them.

Shows:
  - Detected file format (XML, signed p7m, PDF)
  - Root element and transmission format
  - Installments with their number, date and line count

Examples:
  fattura-renderer info invoice.xml
  fattura-renderer info invoices/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	out := cmd.OutOrStdout()
	for _, file := range files {
		printFileInfo(cmd, out, file)
		fmt.Fprintln(out)
	}
	return nil
}

func printFileInfo(cmd *cobra.Command, out io.Writer, filePath string) {
	fmt.Fprintf(out, "File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Fprintf(out, "  Error: %v\n", err)
		return
	}

	fmt.Fprintf(out, "  Size: %d bytes\n", info.Size())
	fmt.Fprintf(out, "  Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(out, "  Error reading file: %v\n", err)
		return
	}

	format := processor.DetectFormat(data)
	fmt.Fprintf(out, "  Format: %s\n", format)
	if format != processor.FormatXML {
		return
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	tree, err := pipeline.ParseTree(ctx, data)
	if err != nil {
		fmt.Fprintf(out, "  Error: %v\n", err)
		return
	}
	if keys := tree.Keys(); len(keys) > 0 {
		fmt.Fprintf(out, "  Root: %s\n", keys[0])
	}
	if !extractor.CanExtract(tree) {
		fmt.Fprintln(out, "  FatturaPA: no")
		return
	}
	fmt.Fprintln(out, "  FatturaPA: yes")

	result := pipeline.ProcessXMLBytes(ctx, data)
	if result.Error != nil {
		fmt.Fprintf(out, "  Error: %v\n", result.Error)
		return
	}

	inv := result.Invoice
	if inv.TransmissionFormat != "" {
		fmt.Fprintf(out, "  Transmission: %s\n", inv.TransmissionFormat)
	}
	fmt.Fprintf(out, "  Invoicer: %s (%s)\n", inv.Invoicer.Name, inv.Invoicer.VAT)
	fmt.Fprintf(out, "  Invoicee: %s (%s)\n", inv.Invoicee.Name, inv.Invoicee.VAT)
	fmt.Fprintf(out, "  Installments: %d\n", len(inv.Installments))
	for _, in := range inv.Installments {
		fmt.Fprintf(out, "    - %s  %s  %d lines  %s %s\n",
			in.Number, in.IssueDate.Format("2006-01-02"), len(in.Lines),
			in.TotalAmount.StringFixed(2), in.Currency)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(out, "  Warnings: %d\n", len(result.Warnings))
	}
}
