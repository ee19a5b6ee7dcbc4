package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-renderer/internal/model"
)

var (
	strictValidation bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice files",
	Long: `Validate one or more invoice files for completeness and correctness.

Checks performed:
  - The document parses and maps onto the invoice model
  - Italian VAT numbers carry a valid check digit
  - Payment IBANs pass the mod-97 check
  - Declared totals match the amounts recomputed from the lines

Amount mismatches are warnings unless --strict is given.

Examples:
  fattura-renderer validate invoice.xml
  fattura-renderer validate *.xml --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat amount mismatches as errors")
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	results := make([]*ValidationResult, 0, len(files))
	allValid := true
	for _, file := range files {
		result := validateFile(cmd, file)
		results = append(results, result)
		if !result.Valid {
			allValid = false
		}
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		if err := outputJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(out, "✓ %s: VALID\n", r.File)
			} else {
				fmt.Fprintf(out, "✗ %s: INVALID\n", r.File)
				for _, e := range r.Errors {
					fmt.Fprintf(out, "  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Fprintf(out, "  ⚠ %s\n", w)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(cmd *cobra.Command, file string) *ValidationResult {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	result := &ValidationResult{File: file, Valid: true}

	data, err := os.ReadFile(file)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	extracted := pipeline.ProcessXMLBytes(ctx, data)
	if extracted.Error != nil {
		result.Valid = false
		result.Errors = append(result.Errors, extracted.Error.Error())
		return result
	}

	for _, f := range model.CheckInvoice(extracted.Invoice) {
		result.Valid = false
		result.Errors = append(result.Errors, f.Error())
	}

	for _, w := range extracted.Warnings {
		if strictValidation {
			result.Valid = false
			result.Errors = append(result.Errors, w.String())
		} else {
			result.Warnings = append(result.Warnings, w.String())
		}
	}

	return result
}
