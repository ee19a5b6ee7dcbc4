package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToleranceWarning records a source-declared aggregate that disagrees with
// the recomputed one by more than the allowed tolerance. It never aborts
// extraction.
type ToleranceWarning struct {
	Field     string          `json:"field"`
	Declared  decimal.Decimal `json:"declared"`
	Computed  decimal.Decimal `json:"computed"`
	Tolerance decimal.Decimal `json:"tolerance"`
}

func (w ToleranceWarning) String() string {
	return fmt.Sprintf("%s: declared %s differs from computed %s (tolerance %s)",
		w.Field, w.Declared.String(), w.Computed.String(), w.Tolerance.String())
}

// Difference returns the absolute gap between declared and computed values
func (w ToleranceWarning) Difference() decimal.Decimal {
	return w.Declared.Sub(w.Computed).Abs()
}

// FallbackKind identifies what the renderer had to substitute
type FallbackKind string

const (
	FallbackLocale   FallbackKind = "locale"
	FallbackCurrency FallbackKind = "currency"
	FallbackColor    FallbackKind = "color"
)

// RenderFallback records an unrecognized display input and the default that
// replaced it.
type RenderFallback struct {
	Kind      FallbackKind `json:"kind"`
	Requested string       `json:"requested"`
	Used      string       `json:"used"`
}

func (f RenderFallback) String() string {
	return fmt.Sprintf("unsupported %s %q, using %q", f.Kind, f.Requested, f.Used)
}

// WarningStrings flattens tolerance warnings for transport responses
func WarningStrings(warnings []ToleranceWarning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
