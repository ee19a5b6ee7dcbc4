package model

import "fmt"

// ParseError reports input that is not well-formed markup
type ParseError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error [%s]: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error [%s]: %s", e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(field, message string, cause error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// MalformedInvoiceError reports markup that parsed but does not describe a
// usable invoice. Field is the dotted path of the offending element.
type MalformedInvoiceError struct {
	Field   string
	Message string
	Cause   error
}

func (e *MalformedInvoiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed invoice: %s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed invoice: %s: %s", e.Field, e.Message)
}

func (e *MalformedInvoiceError) Unwrap() error {
	return e.Cause
}

// NewMalformedInvoiceError creates a new malformed invoice error
func NewMalformedInvoiceError(field, message string, cause error) *MalformedInvoiceError {
	return &MalformedInvoiceError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents advisory validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// Render error codes
const (
	ErrCodeLayoutFailed = "LAYOUT_FAILED"
	ErrCodeWriteFailed  = "WRITE_FAILED"
	ErrCodeCanceled     = "CANCELED"
)

// RenderError represents a failure of the layout engine
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render failed [%s]: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("render failed [%s]: %s", e.Code, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new render error
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
