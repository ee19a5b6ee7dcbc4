package xml

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/shopspring/decimal"
)

// Reserved keys of a Node. They cannot clash with element names because
// neither is a valid XML name once prefixes are stripped.
const (
	AttributesKey = "attributes"
	TextKey       = "_"
)

// Node is one element of the generic tree. A child value is a *Node, a
// []any when the tag repeats, a string or a Number. Keys keep document order.
type Node struct {
	keys   []string
	values map[string]any
}

// NewNode creates an empty node
func NewNode() *Node {
	return &Node{values: make(map[string]any)}
}

// Get returns the value stored under key
func (n *Node) Get(key string) (any, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.values[key]
	return v, ok
}

// Keys returns child keys in document order
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Len returns the number of distinct keys
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.keys)
}

// Attributes returns the element attributes, or nil when there are none
func (n *Node) Attributes() map[string]string {
	v, ok := n.Get(AttributesKey)
	if !ok {
		return nil
	}
	attrs, ok := v.(*Node)
	if !ok {
		return nil
	}
	out := make(map[string]string, attrs.Len())
	for _, k := range attrs.keys {
		if s, ok := attrs.values[k].(string); ok {
			out[k] = s
		}
	}
	return out
}

// add stores v under key, turning the value into a sequence when the key
// repeats.
func (n *Node) add(key string, v any) {
	existing, ok := n.values[key]
	if !ok {
		n.keys = append(n.keys, key)
		n.values[key] = v
		return
	}
	if seq, ok := existing.([]any); ok {
		n.values[key] = append(seq, v)
		return
	}
	n.values[key] = []any{existing, v}
}

// set stores v under key, replacing any previous value
func (n *Node) set(key string, v any) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = v
}

// MarshalJSON encodes the node as an object preserving key order
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range n.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(n.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsSequence normalizes a value that may be absent, a single bare value or a
// repeated sequence into a sequence. Every consumer that expects a list goes
// through here.
func AsSequence(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{v}
	}
}

// Number is a leaf coerced to a decimal. Text keeps the source literal.
type Number struct {
	Value decimal.Decimal
	Text  string
}

func (n Number) String() string {
	return n.Text
}

// MarshalJSON writes the source literal as a JSON number
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Text), nil
}

// Literals with a leading zero (VAT ids, postal codes) are not numbers.
var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// scalar coerces leaf text to a Number when it is a plain decimal literal
func scalar(text string) any {
	if !numberPattern.MatchString(text) {
		return text
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return text
	}
	return Number{Value: d, Text: text}
}
