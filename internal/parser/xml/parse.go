package xml

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/rezonia/fattura-renderer/internal/model"
)

// Parse converts raw XML into a generic tree. The returned node has a single
// key, the root element name. Namespace prefixes are stripped from element
// and attribute names.
func Parse(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewParseError("document", "malformed XML", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, model.NewParseError("document", "no root element", nil)
	}

	tree := NewNode()
	tree.add(root.Tag, convert(root))
	return tree, nil
}

// ParseReader reads r fully and parses it
func ParseReader(r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("document", "failed to read input", err)
	}
	return Parse(data)
}

func convert(el *etree.Element) any {
	children := el.ChildElements()
	text := strings.TrimSpace(el.Text())

	if len(el.Attr) == 0 && len(children) == 0 {
		return scalar(text)
	}

	n := NewNode()
	if len(el.Attr) > 0 {
		attrs := NewNode()
		for _, a := range el.Attr {
			attrs.set(a.Key, a.Value)
		}
		n.set(AttributesKey, attrs)
	}
	if text != "" {
		n.set(TextKey, scalar(text))
	}
	for _, child := range children {
		n.add(child.Tag, convert(child))
	}
	return n
}

// charsetReader decodes documents declaring a non UTF-8 encoding, which is
// common for invoices exported as ISO-8859-1 or windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
