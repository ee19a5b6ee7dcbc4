package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// formatter turns model values into display strings for one locale and
// one currency
type formatter struct {
	printer    *message.Printer
	decimalSep string
	dateLayout string
	symbol     string
}

func newFormatter(c *Catalog, tag language.Tag, symbol string) *formatter {
	printer := message.NewPrinter(tag)
	sep := strings.Trim(printer.Sprint(number.Decimal(1.5, number.MinFractionDigits(1))), "15")
	if sep == "" {
		sep = "."
	}
	return &formatter{
		printer:    printer,
		decimalSep: sep,
		dateLayout: c.DateLayoutFor(tag),
		symbol:     symbol,
	}
}

// localize renders a plain decimal string such as "-1234.5" with locale
// grouping and decimal separator. Only the integer part goes through the
// printer, the fraction digits are copied as they are.
func (f *formatter) localize(s string) string {
	neg := strings.HasPrefix(s, "-")
	intPart, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")

	out := intPart
	if n, err := strconv.ParseUint(intPart, 10, 64); err == nil {
		out = f.printer.Sprint(number.Decimal(n))
	}
	if frac != "" {
		out += f.decimalSep + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Number formats d with locale grouping and exactly two fraction digits
func (f *formatter) Number(d decimal.Decimal) string {
	return f.localize(d.StringFixed(2))
}

// Money appends the currency symbol without a separator, "20,00€"
func (f *formatter) Money(d decimal.Decimal) string {
	return f.Number(d) + f.symbol
}

// Quantity keeps up to eight fraction digits and drops trailing zeros
func (f *formatter) Quantity(d decimal.Decimal) string {
	return f.localize(d.Round(8).String())
}

// Percent formats a tax rate, "22%"
func (f *formatter) Percent(d decimal.Decimal) string {
	return f.localize(d.Round(2).String()) + "%"
}

// Date renders a calendar date with zero padded day and month
func (f *formatter) Date(t time.Time) string {
	return t.Format(f.dateLayout)
}
