package invoicelib

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	money "github.com/rezonia/fattura-renderer/internal/decimal"
	"github.com/rezonia/fattura-renderer/internal/model"
	"github.com/rezonia/fattura-renderer/internal/processor"
	"github.com/rezonia/fattura-renderer/internal/render"
)

// Options configures the library entry points
type Options struct {
	// Display controls locale, footer and colors of the PDF
	Display DisplayConfig
	// Tolerance is the accepted gap between declared and computed amounts
	Tolerance decimal.Decimal
	// Concurrency bounds ProcessBatch, zero means one worker per input
	Concurrency int
	Logger      *zap.Logger
}

// DefaultOptions returns {locale: "it", footer: true, colors: {}} with the
// default tolerance
func DefaultOptions() Options {
	return Options{
		Display:   render.DefaultDisplayConfig(),
		Tolerance: money.DefaultTolerance,
	}
}

func (o Options) pipeline() *processor.Pipeline {
	return processor.NewPipeline(
		processor.WithLogger(o.Logger),
		processor.WithTolerance(o.Tolerance),
		processor.WithDisplayConfig(o.Display),
	)
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("document", "failed to read input", err)
	}
	return data, nil
}

// XMLToTree parses r into the generic element tree. The tree marshals to
// JSON with element names as keys and attributes under "attributes".
func XMLToTree(ctx context.Context, r io.Reader) (*Tree, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return processor.NewPipeline().ParseTree(ctx, data)
}

// XMLToInvoice parses and extracts the invoice model from r
func XMLToInvoice(ctx context.Context, r io.Reader, opts Options) (*Invoice, []ToleranceWarning, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}
	result := opts.pipeline().ProcessXMLBytes(ctx, data)
	if result.Error != nil {
		return nil, nil, result.Error
	}
	return result.Invoice, result.Warnings, nil
}

// XMLToPDF converts r to a PDF stream. Parse and extraction failures are
// returned before any byte is streamed. The caller must close the stream.
func XMLToPDF(ctx context.Context, r io.Reader, opts Options) (io.ReadCloser, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	p := opts.pipeline()
	conv, err := p.ConvertXML(ctx, data, p.DisplayConfig())
	if err != nil {
		return nil, err
	}
	return conv.PDF, nil
}
