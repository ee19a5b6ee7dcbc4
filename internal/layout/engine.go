// Package layout places rendered pages on A4 sheets and writes them as PDF.
package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/rezonia/fattura-renderer/internal/model"
	"github.com/rezonia/fattura-renderer/internal/render"
)

func init() {
	// pdfcpu would otherwise create a config dir in the user's home
	api.DisableConfigDir()
}

// Engine turns page descriptions into a binary document
type Engine interface {
	Render(ctx context.Context, pages []render.Page, w io.Writer) error
}

// PDFEngine writes pages through pdfcpu's JSON content model
type PDFEngine struct {
	logger *zap.Logger
}

// Option configures a PDFEngine
type Option func(*PDFEngine)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *PDFEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewPDFEngine creates a PDF engine
func NewPDFEngine(opts ...Option) *PDFEngine {
	e := &PDFEngine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pdfcpu create document
type document struct {
	Paper string                   `json:"paper"`
	Pages map[string]*sheetContent `json:"pages"`
}

type sheetContent struct {
	Content content `json:"content"`
}

type content struct {
	Text []textItem `json:"text,omitempty"`
	Box  []boxItem  `json:"box,omitempty"`
}

type textItem struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  fontSpec   `json:"font"`
}

type fontSpec struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Color string `json:"col"`
}

type boxItem struct {
	Pos       [2]float64 `json:"pos"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	FillColor string     `json:"fillCol"`
}

// Describe returns the pdfcpu JSON description of pages
func Describe(logical []render.Page) ([]byte, int, error) {
	sheets := compose(logical)

	doc := document{Paper: "A4", Pages: make(map[string]*sheetContent, len(sheets))}
	for i, s := range sheets {
		doc.Pages[strconv.Itoa(i+1)] = &sheetContent{Content: content{Text: s.Texts, Box: s.Boxes}}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, 0, err
	}
	return data, len(sheets), nil
}

// Render writes pages to w as a PDF document
func (e *PDFEngine) Render(ctx context.Context, logical []render.Page, w io.Writer) error {
	if len(logical) == 0 {
		return model.NewRenderError(model.ErrCodeLayoutFailed, "no pages to render", nil)
	}
	if err := ctx.Err(); err != nil {
		return model.NewRenderError(model.ErrCodeCanceled, "render canceled", err)
	}

	data, sheets, err := Describe(logical)
	if err != nil {
		return model.NewRenderError(model.ErrCodeLayoutFailed, "failed to describe pages", err)
	}

	if err := ctx.Err(); err != nil {
		return model.NewRenderError(model.ErrCodeCanceled, "render canceled", err)
	}

	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.Create(nil, bytes.NewReader(data), w, conf); err != nil {
		return model.NewRenderError(model.ErrCodeWriteFailed, "failed to write PDF", err)
	}

	e.logger.Debug("pdf rendered",
		zap.Int("pages", len(logical)),
		zap.Int("sheets", sheets),
	)
	return nil
}
