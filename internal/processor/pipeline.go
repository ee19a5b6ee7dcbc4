// Package processor chains the conversion stages: XML text to generic tree,
// tree to invoice, invoice to page descriptions and pages to PDF.
package processor

import (
	"bytes"
	"context"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	money "github.com/rezonia/fattura-renderer/internal/decimal"
	"github.com/rezonia/fattura-renderer/internal/extractor"
	"github.com/rezonia/fattura-renderer/internal/layout"
	"github.com/rezonia/fattura-renderer/internal/model"
	xmlparser "github.com/rezonia/fattura-renderer/internal/parser/xml"
	"github.com/rezonia/fattura-renderer/internal/render"
)

// Format represents a detected input format
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatSigned
	FormatPDF
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatSigned:
		return "p7m"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat detects the input format from its leading bytes
func DetectFormat(data []byte) Format {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return FormatUnknown
	}

	switch {
	case data[0] == '<':
		return FormatXML
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case len(data) >= 2 && data[0] == 0x30 && (data[1] == 0x80 || (data[1] >= 0x81 && data[1] <= 0x84)):
		// DER SEQUENCE of a PKCS#7 envelope
		return FormatSigned
	case bytes.HasPrefix(data, []byte("MII")):
		// same envelope, base64 encoded
		return FormatSigned
	}
	return FormatUnknown
}

// Result represents an extraction result
type Result struct {
	Invoice  *model.Invoice
	Warnings []model.ToleranceWarning
	Error    error
}

// Conversion is a started XML to PDF conversion. PDF streams the document
// and must be closed by the caller. Errors raised while writing surface from
// PDF.Read.
type Conversion struct {
	Invoice   *model.Invoice
	Warnings  []model.ToleranceWarning
	Fallbacks []model.RenderFallback
	Pages     int
	PDF       io.ReadCloser
}

// Pipeline orchestrates the conversion stages
type Pipeline struct {
	extractor *extractor.Extractor
	engine    layout.Engine
	display   render.DisplayConfig
	tolerance decimal.Decimal
	logger    *zap.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used by every stage
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTolerance sets the accepted gap between declared and computed amounts
func WithTolerance(tolerance decimal.Decimal) PipelineOption {
	return func(p *Pipeline) {
		p.tolerance = tolerance
	}
}

// WithEngine replaces the PDF layout engine
func WithEngine(engine layout.Engine) PipelineOption {
	return func(p *Pipeline) {
		if engine != nil {
			p.engine = engine
		}
	}
}

// WithDisplayConfig sets the display options used when none are given
func WithDisplayConfig(cfg render.DisplayConfig) PipelineOption {
	return func(p *Pipeline) {
		p.display = cfg
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		display:   render.DefaultDisplayConfig(),
		tolerance: money.DefaultTolerance,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.extractor = extractor.New(
		extractor.WithTolerance(p.tolerance),
		extractor.WithLogger(p.logger.Named("extractor")),
	)
	if p.engine == nil {
		p.engine = layout.NewPDFEngine(layout.WithLogger(p.logger.Named("layout")))
	}
	return p
}

// DisplayConfig returns the default display options
func (p *Pipeline) DisplayConfig() render.DisplayConfig {
	return p.display
}

// ParseTree converts XML text into the generic tree
func (p *Pipeline) ParseTree(ctx context.Context, data []byte) (*xmlparser.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch DetectFormat(data) {
	case FormatSigned:
		return nil, model.NewParseError("document", "signed p7m envelope, extract the XML payload first", nil)
	case FormatPDF:
		return nil, model.NewParseError("document", "input is a PDF, expected XML", nil)
	}

	tree, err := xmlparser.Parse(data)
	if err != nil {
		p.logger.Debug("xml parsing failed", zap.Error(err))
		return nil, err
	}
	return tree, nil
}

// ProcessXML reads and extracts an invoice from r
func (p *Pipeline) ProcessXML(ctx context.Context, r io.Reader) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Error: model.NewParseError("document", "failed to read input", err)}
	}
	return p.ProcessXMLBytes(ctx, data)
}

// ProcessXMLBytes extracts an invoice from XML bytes
func (p *Pipeline) ProcessXMLBytes(ctx context.Context, data []byte) *Result {
	tree, err := p.ParseTree(ctx, data)
	if err != nil {
		return &Result{Error: err}
	}
	if err := ctx.Err(); err != nil {
		return &Result{Error: err}
	}

	res, err := p.extractor.Extract(tree)
	if err != nil {
		p.logger.Debug("extraction failed", zap.Error(err))
		return &Result{Error: err}
	}

	p.logger.Info("invoice extracted",
		zap.String("invoicer", res.Invoice.Invoicer.VAT),
		zap.Int("installments", len(res.Invoice.Installments)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return &Result{Invoice: res.Invoice, Warnings: res.Warnings}
}

// Render builds the page descriptions of inv
func (p *Pipeline) Render(inv *model.Invoice, cfg render.DisplayConfig) render.Document {
	doc := render.Render(inv, cfg)
	for _, f := range doc.Fallbacks {
		p.logger.Warn("display fallback",
			zap.String("kind", string(f.Kind)),
			zap.String("requested", f.Requested),
			zap.String("used", f.Used),
		)
	}
	return doc
}

// WritePDF renders pages to w
func (p *Pipeline) WritePDF(ctx context.Context, pages []render.Page, w io.Writer) error {
	return p.engine.Render(ctx, pages, w)
}

// ConvertXML runs every stage up to the page descriptions synchronously, so
// that parse and extraction failures are reported before any PDF byte is
// produced, and then streams the PDF from a background writer.
func (p *Pipeline) ConvertXML(ctx context.Context, data []byte, cfg render.DisplayConfig) (*Conversion, error) {
	res := p.ProcessXMLBytes(ctx, data)
	if res.Error != nil {
		return nil, res.Error
	}

	doc := p.Render(res.Invoice, cfg)
	if err := ctx.Err(); err != nil {
		return nil, model.NewRenderError(model.ErrCodeCanceled, "render canceled", err)
	}

	pr, pw := io.Pipe()
	go func() {
		err := p.engine.Render(ctx, doc.Pages, pw)
		if err != nil {
			p.logger.Error("pdf stream failed", zap.Error(err))
		}
		pw.CloseWithError(err)
	}()

	return &Conversion{
		Invoice:   res.Invoice,
		Warnings:  res.Warnings,
		Fallbacks: doc.Fallbacks,
		Pages:     len(doc.Pages),
		PDF:       pr,
	}, nil
}
