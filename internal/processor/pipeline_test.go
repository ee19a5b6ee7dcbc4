package processor_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rezonia/fattura-renderer/internal/model"
	"github.com/rezonia/fattura-renderer/internal/processor"
	"github.com/rezonia/fattura-renderer/internal/render"
)

func loadFixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../extractor/testdata/" + name)
	require.NoError(t, err)
	return data
}

type fakeEngine struct {
	pages []render.Page
	err   error
}

func (f *fakeEngine) Render(_ context.Context, pages []render.Page, w io.Writer) error {
	f.pages = pages
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "%PDF-fake")
	return err
}

func TestNewPipeline(t *testing.T) {
	p := processor.NewPipeline()
	require.NotNil(t, p)
	assert.Equal(t, render.DefaultDisplayConfig(), p.DisplayConfig())
}

func TestNewPipeline_WithOptions(t *testing.T) {
	cfg := render.DisplayConfig{Locale: "en"}
	p := processor.NewPipeline(
		processor.WithLogger(zap.NewNop()),
		processor.WithTolerance(decimal.RequireFromString("0.5")),
		processor.WithEngine(&fakeEngine{}),
		processor.WithDisplayConfig(cfg),
	)
	require.NotNil(t, p)
	assert.Equal(t, cfg, p.DisplayConfig())
}

func TestProcessXML(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessXML(ctx, bytes.NewReader(loadFixture(t, "single_line.xml")))
	require.NoError(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, "IT01234567897", result.Invoice.Invoicer.VAT)
	require.Len(t, result.Invoice.Installments, 1)
	assert.Equal(t, "FPR 1/24", result.Invoice.Installments[0].Number)
	assert.True(t, result.Invoice.Installments[0].TotalAmount.Equal(decimal.RequireFromString("24.40")))
	assert.Empty(t, result.Warnings)
}

func TestProcessXML_Invalid(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessXML(ctx, strings.NewReader("<Fattura><unclosed></Fattura>"))
	require.Error(t, result.Error)
	assert.Nil(t, result.Invoice)

	var parseErr *model.ParseError
	assert.True(t, errors.As(result.Error, &parseErr))
}

func TestProcessXMLBytes_Warnings(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessXMLBytes(ctx, loadFixture(t, "multi_installment.xml"))
	require.NoError(t, result.Error)
	assert.Len(t, result.Invoice.Installments, 2)
	assert.Len(t, result.Warnings, 1)
}

func TestProcessXMLBytes_Malformed(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessXMLBytes(ctx, []byte(`<Invoice><Number>1</Number></Invoice>`))
	require.Error(t, result.Error)

	var malformed *model.MalformedInvoiceError
	require.True(t, errors.As(result.Error, &malformed))
	assert.Equal(t, "FatturaElettronica", malformed.Field)
}

func TestProcessXMLBytes_RejectsOtherFormats(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	for _, data := range [][]byte{
		[]byte("%PDF-1.4\n"),
		{0x30, 0x82, 0x01, 0x00},
	} {
		result := p.ProcessXMLBytes(ctx, data)
		var parseErr *model.ParseError
		assert.True(t, errors.As(result.Error, &parseErr))
	}
}

func TestProcessXMLBytes_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := processor.NewPipeline().ProcessXMLBytes(ctx, loadFixture(t, "single_line.xml"))
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestProcessXMLBytes_LogsExtraction(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	p := processor.NewPipeline(processor.WithLogger(zap.New(core)))

	result := p.ProcessXMLBytes(context.Background(), loadFixture(t, "single_line.xml"))
	require.NoError(t, result.Error)

	entries := recorded.FilterMessage("invoice extracted").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].ContextMap()["installments"])
}

func TestRender_LogsFallbacks(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	p := processor.NewPipeline(processor.WithLogger(zap.New(core)))

	result := p.ProcessXMLBytes(context.Background(), loadFixture(t, "single_line.xml"))
	require.NoError(t, result.Error)

	doc := p.Render(result.Invoice, render.DisplayConfig{Locale: "de", Footer: true})
	assert.Len(t, doc.Pages, 1)
	require.Len(t, doc.Fallbacks, 1)
	assert.Equal(t, 1, recorded.FilterMessage("display fallback").Len())
}

func TestConvertXML(t *testing.T) {
	engine := &fakeEngine{}
	p := processor.NewPipeline(processor.WithEngine(engine))

	conv, err := p.ConvertXML(context.Background(), loadFixture(t, "multi_installment.xml"), p.DisplayConfig())
	require.NoError(t, err)
	defer conv.PDF.Close()

	data, err := io.ReadAll(conv.PDF)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(data))

	assert.Equal(t, 2, conv.Pages)
	assert.Len(t, conv.Warnings, 1)
	require.Len(t, engine.pages, 2)
	assert.Equal(t, "installment-A-1", engine.pages[0].Key)
	assert.Equal(t, "installment-A-2", engine.pages[1].Key)
}

func TestConvertXML_ErrorsBeforeStreaming(t *testing.T) {
	engine := &fakeEngine{}
	p := processor.NewPipeline(processor.WithEngine(engine))

	conv, err := p.ConvertXML(context.Background(), []byte("not xml"), p.DisplayConfig())
	require.Error(t, err)
	assert.Nil(t, conv)
	assert.Nil(t, engine.pages)
}

func TestConvertXML_EngineFailureSurfacesOnRead(t *testing.T) {
	engine := &fakeEngine{err: model.NewRenderError(model.ErrCodeWriteFailed, "disk full", nil)}
	p := processor.NewPipeline(processor.WithEngine(engine))

	conv, err := p.ConvertXML(context.Background(), loadFixture(t, "single_line.xml"), p.DisplayConfig())
	require.NoError(t, err)
	defer conv.PDF.Close()

	_, err = io.ReadAll(conv.PDF)
	var renderErr *model.RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, model.ErrCodeWriteFailed, renderErr.Code)
}

func TestConvertXML_PDF(t *testing.T) {
	p := processor.NewPipeline()

	conv, err := p.ConvertXML(context.Background(), loadFixture(t, "single_line.xml"), p.DisplayConfig())
	require.NoError(t, err)
	defer conv.PDF.Close()

	data, err := io.ReadAll(conv.PDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected processor.Format
	}{
		{"XML with declaration", []byte(`<?xml version="1.0"?><Invoice/>`), processor.FormatXML},
		{"XML without declaration", []byte(`<Invoice><Number>1</Number></Invoice>`), processor.FormatXML},
		{"XML with BOM and whitespace", append([]byte{0xEF, 0xBB, 0xBF}, []byte("\n  <a/>")...), processor.FormatXML},
		{"PDF", []byte("%PDF-1.4\n%some content"), processor.FormatPDF},
		{"DER p7m", []byte{0x30, 0x80, 0x06, 0x09}, processor.FormatSigned},
		{"base64 p7m", []byte("MIIbZQYJKoZIhvcNAQcCoIIbVjCCG1ICAQEx"), processor.FormatSigned},
		{"Unknown format", []byte("some random text"), processor.FormatUnknown},
		{"Empty data", []byte{}, processor.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, processor.DetectFormat(tt.data))
		})
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format   processor.Format
		expected string
	}{
		{processor.FormatXML, "xml"},
		{processor.FormatSigned, "p7m"},
		{processor.FormatPDF, "pdf"},
		{processor.FormatUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.String())
		})
	}
}

// Benchmark tests

func BenchmarkDetectFormat_XML(b *testing.B) {
	data := []byte(`<?xml version="1.0"?><Invoice><Number>1</Number></Invoice>`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.DetectFormat(data)
	}
}

func BenchmarkProcessXMLBytes(b *testing.B) {
	ctx := context.Background()
	p := processor.NewPipeline()
	data := loadFixture(b, "multi_installment.xml")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ProcessXMLBytes(ctx, data)
	}
}
