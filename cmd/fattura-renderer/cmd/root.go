package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/fattura-renderer/internal/config"
	"github.com/rezonia/fattura-renderer/internal/logger"
	"github.com/rezonia/fattura-renderer/internal/processor"
)

var (
	version = "1.0.0"

	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
	locale       string
	noFooter     bool

	// Set up by PersistentPreRunE
	appConfig *config.Config
	log       *zap.Logger
	pipeline  *processor.Pipeline
)

var rootCmd = &cobra.Command{
	Use:   "fattura-renderer",
	Short: "Render FatturaPA electronic invoices as PDF",
	Long: `fattura-renderer converts FatturaPA electronic invoices (XML) into
printable PDF documents, one page per installment.

Examples:
  # Convert an invoice to PDF
  fattura-renderer convert invoice.xml -o out/

  # Extract the invoice model as a table
  fattura-renderer extract invoices/ -f table

  # Dump the generic element tree
  fattura-renderer tree invoice.xml

  # Validate VAT numbers and IBANs
  fattura-renderer validate *.xml --strict`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./fattura.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table, csv, xlsx)")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "Display locale (env: FATTURA_RENDER_LOCALE)")
	rootCmd.PersistentFlags().BoolVar(&noFooter, "no-footer", false, "Omit the attribution footer")
}

// setup loads configuration, applies flag overrides and builds the logger
// and the pipeline shared by every command
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("locale") {
		cfg.Render.Locale = locale
	}
	if noFooter {
		cfg.Render.Footer = false
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	l, err := logger.New(cfg.Log.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appConfig = cfg
	log = l
	pipeline = processor.NewPipeline(
		processor.WithLogger(log),
		processor.WithTolerance(cfg.Extract.Tolerance),
		processor.WithDisplayConfig(cfg.Render.DisplayConfig()),
	)
	return nil
}

// commandContext bounds one file by the configured pipeline timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if appConfig.Pipeline.Timeout > 0 {
		return context.WithTimeout(ctx, appConfig.Pipeline.Timeout)
	}
	return context.WithCancel(ctx)
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			return nil, fmt.Errorf("file not found: %s", arg)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				files = append(files, match)
				continue
			}

			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSupportedFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
