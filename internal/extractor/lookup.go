package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/fattura-renderer/internal/model"
	xmlparser "github.com/rezonia/fattura-renderer/internal/parser/xml"
)

const dateLayout = "2006-01-02"

// field is a position in the generic tree together with its dotted path,
// so that every failure can name the element it comes from.
type field struct {
	path  string
	value any
	found bool
}

func rootField(tree *xmlparser.Node) field {
	return field{value: tree, found: tree != nil}
}

func (f field) child(name string) field {
	path := name
	if f.path != "" {
		path = f.path + "." + name
	}
	n := f.node()
	if n == nil {
		return field{path: path}
	}
	v, ok := n.Get(name)
	return field{path: path, value: v, found: ok}
}

// each returns the children named name as a sequence, whether the source
// holds none, a bare element or a repeated one.
func (f field) each(name string) []field {
	c := f.child(name)
	seq := xmlparser.AsSequence(c.value)
	out := make([]field, len(seq))
	for i, v := range seq {
		out[i] = field{path: fmt.Sprintf("%s[%d]", c.path, i), value: v, found: true}
	}
	return out
}

// node returns the element at f. A repeated element where a single one is
// expected resolves to its first occurrence.
func (f field) node() *xmlparser.Node {
	switch v := f.value.(type) {
	case *xmlparser.Node:
		return v
	case []any:
		if len(v) > 0 {
			if n, ok := v[0].(*xmlparser.Node); ok {
				return n
			}
		}
	}
	return nil
}

func (f field) text() (string, bool) {
	switch v := f.value.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case xmlparser.Number:
		return v.Text, true
	case *xmlparser.Node:
		if t, ok := v.Get(xmlparser.TextKey); ok {
			return field{path: f.path, value: t}.text()
		}
	case []any:
		if len(v) > 0 {
			return field{path: f.path, value: v[0]}.text()
		}
	}
	return "", false
}

func (f field) requiredText() (string, error) {
	s, ok := f.text()
	if !ok {
		return "", f.missing()
	}
	return s, nil
}

// decimal returns nil when the field is absent
func (f field) decimal() (*decimal.Decimal, error) {
	if !f.found {
		return nil, nil
	}
	if n, ok := f.value.(xmlparser.Number); ok {
		d := n.Value
		return &d, nil
	}
	s, ok := f.text()
	if !ok {
		if _, isNode := f.value.(*xmlparser.Node); isNode {
			return nil, model.NewMalformedInvoiceError(f.path, "expected a number, found an element", nil)
		}
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, model.NewMalformedInvoiceError(f.path, fmt.Sprintf("%q is not a valid number", s), err)
	}
	return &d, nil
}

func (f field) requiredDecimal() (decimal.Decimal, error) {
	d, err := f.decimal()
	if err != nil {
		return decimal.Zero, err
	}
	if d == nil {
		return decimal.Zero, f.missing()
	}
	return *d, nil
}

// date parses a calendar date in UTC so that the day never shifts
func (f field) date() (*time.Time, error) {
	s, ok := f.text()
	if !ok {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, model.NewMalformedInvoiceError(f.path, fmt.Sprintf("%q is not a valid date", s), err)
	}
	return &t, nil
}

func (f field) requiredDate() (time.Time, error) {
	t, err := f.date()
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, f.missing()
	}
	return *t, nil
}

func (f field) missing() error {
	return model.NewMalformedInvoiceError(f.path, "required field missing", nil)
}
