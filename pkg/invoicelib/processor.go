package invoicelib

import (
	"context"
	"io"

	"github.com/rezonia/fattura-renderer/internal/processor"
)

// ExtractionResult represents extraction result with metadata
type ExtractionResult struct {
	Invoice  *Invoice
	Warnings []ToleranceWarning
}

// Processor runs conversions with a fixed set of options. It is safe for
// concurrent use.
type Processor struct {
	pipeline *processor.Pipeline
	options  Options
}

// NewProcessor creates a new invoice processor with the given options
func NewProcessor(opts Options) *Processor {
	return &Processor{
		pipeline: opts.pipeline(),
		options:  opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultOptions())
}

// Process extracts the invoice from r
func (p *Processor) Process(ctx context.Context, r io.Reader) (*ExtractionResult, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}

	result := p.pipeline.ProcessXMLBytes(ctx, data)
	if result.Error != nil {
		return nil, result.Error
	}

	return &ExtractionResult{
		Invoice:  result.Invoice,
		Warnings: result.Warnings,
	}, nil
}

// Convert extracts the invoice from r and writes its PDF to w
func (p *Processor) Convert(ctx context.Context, r io.Reader, w io.Writer) (*ExtractionResult, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}

	conv, err := p.pipeline.ConvertXML(ctx, data, p.options.Display)
	if err != nil {
		return nil, err
	}
	defer conv.PDF.Close()

	if _, err := io.Copy(w, conv.PDF); err != nil {
		return nil, err
	}

	return &ExtractionResult{
		Invoice:  conv.Invoice,
		Warnings: conv.Warnings,
	}, nil
}

// ProcessBatch processes multiple inputs concurrently. Results keep the
// order of inputs; a failed input leaves a nil entry and the first error is
// returned.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*ExtractionResult, error) {
	results := make([]*ExtractionResult, len(inputs))
	errCh := make(chan error, len(inputs))

	workers := p.options.Concurrency
	if workers <= 0 || workers > len(inputs) {
		workers = len(inputs)
	}
	sem := make(chan struct{}, max(workers, 1))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := p.Process(ctx, r)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = result
			errCh <- nil
		}(i, input)
	}

	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
