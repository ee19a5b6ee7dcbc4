package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outputDir string
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert invoice XML files to PDF",
	Long: `Convert one or more FatturaPA XML files to PDF.

Each input produces <name>.pdf in the output directory with one page per
installment (FatturaElettronicaBody). Parse and extraction errors are
reported per file and no PDF is written for them.

Examples:
  fattura-renderer convert invoice.xml
  fattura-renderer convert invoices/ -o pdf/ --locale en
  fattura-renderer convert *.xml --no-footer`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
}

func runConvert(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to convert")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	failed := 0
	for _, file := range files {
		out := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))+".pdf")

		pages, warnings, err := convertFile(cmd, file, out)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", file, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s (%d pages, %d warnings)\n", file, out, pages, warnings)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func convertFile(cmd *cobra.Command, file, out string) (int, int, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	data, err := os.ReadFile(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read file: %w", err)
	}

	conv, err := pipeline.ConvertXML(ctx, data, pipeline.DisplayConfig())
	if err != nil {
		return 0, 0, err
	}
	defer conv.PDF.Close()

	for _, w := range conv.Warnings {
		log.Warn("amount mismatch", zap.String("file", file), zap.String("warning", w.String()))
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(f, conv.PDF); err != nil {
		f.Close()
		os.Remove(out)
		return 0, 0, err
	}
	if err := f.Close(); err != nil {
		return 0, 0, err
	}

	return conv.Pages, len(conv.Warnings), nil
}
