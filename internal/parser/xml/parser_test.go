package xml_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-renderer/internal/model"
	xmlparser "github.com/rezonia/fattura-renderer/internal/parser/xml"
)

func child(t *testing.T, n *xmlparser.Node, key string) any {
	t.Helper()
	v, ok := n.Get(key)
	require.True(t, ok, "missing key %s", key)
	return v
}

func TestParse_StripsPrefixesAndExposesAttributes(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<p:FatturaElettronica versione="FPR12" xmlns:p="http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2">
	<FatturaElettronicaHeader>
		<p:Marker>yes</p:Marker>
	</FatturaElettronicaHeader>
</p:FatturaElettronica>`)

	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"FatturaElettronica"}, tree.Keys())

	root, ok := child(t, tree, "FatturaElettronica").(*xmlparser.Node)
	require.True(t, ok)

	attrs := root.Attributes()
	assert.Equal(t, "FPR12", attrs["versione"])
	assert.Contains(t, attrs, "p")

	header, ok := child(t, root, "FatturaElettronicaHeader").(*xmlparser.Node)
	require.True(t, ok)
	assert.Equal(t, "yes", child(t, header, "Marker"))
}

func TestParse_RepeatedTagsBecomeSequences(t *testing.T) {
	data := []byte(`<Body>
	<Line><N>1</N></Line>
	<Line><N>2</N></Line>
	<Single><N>3</N></Single>
</Body>`)

	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)

	body := child(t, tree, "Body").(*xmlparser.Node)

	lines, ok := child(t, body, "Line").([]any)
	require.True(t, ok)
	assert.Len(t, lines, 2)

	_, ok = child(t, body, "Single").(*xmlparser.Node)
	assert.True(t, ok, "a single occurrence stays a bare node")
}

func TestParse_NumericCoercion(t *testing.T) {
	data := []byte(`<Root>
	<Price>10.50</Price>
	<Qty>2</Qty>
	<Negative>-3.25</Negative>
	<VAT>01234567890</VAT>
	<CAP>00100</CAP>
	<Date>2024-03-01</Date>
	<Text>  padded  </Text>
	<Empty/>
</Root>`)

	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)
	root := child(t, tree, "Root").(*xmlparser.Node)

	price, ok := child(t, root, "Price").(xmlparser.Number)
	require.True(t, ok)
	assert.True(t, price.Value.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, "10.50", price.Text)

	qty, ok := child(t, root, "Qty").(xmlparser.Number)
	require.True(t, ok)
	assert.True(t, qty.Value.Equal(decimal.NewFromInt(2)))

	neg, ok := child(t, root, "Negative").(xmlparser.Number)
	require.True(t, ok)
	assert.True(t, neg.Value.Equal(decimal.RequireFromString("-3.25")))

	assert.Equal(t, "01234567890", child(t, root, "VAT"))
	assert.Equal(t, "00100", child(t, root, "CAP"))
	assert.Equal(t, "2024-03-01", child(t, root, "Date"))
	assert.Equal(t, "padded", child(t, root, "Text"))
	assert.Equal(t, "", child(t, root, "Empty"))
}

func TestParse_TextWithAttributes(t *testing.T) {
	data := []byte(`<Root><Amount currency="EUR">12.00</Amount></Root>`)

	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)
	root := child(t, tree, "Root").(*xmlparser.Node)

	amount := child(t, root, "Amount").(*xmlparser.Node)
	assert.Equal(t, "EUR", amount.Attributes()["currency"])
	text, ok := child(t, amount, xmlparser.TextKey).(xmlparser.Number)
	require.True(t, ok)
	assert.Equal(t, "12.00", text.Text)
}

func TestParse_Latin1Declaration(t *testing.T) {
	// "Città" encoded as ISO-8859-1
	data := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><Root><City>Citt`), 0xE0, '<', '/', 'C', 'i', 't', 'y', '>', '<', '/', 'R', 'o', 'o', 't', '>')

	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)
	root := child(t, tree, "Root").(*xmlparser.Node)
	assert.Equal(t, "Città", child(t, root, "City"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"plain text", "not xml"},
		{"empty", ""},
		{"unclosed element", "<Root><Child></Root>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := xmlparser.Parse([]byte(tt.data))
			require.Error(t, err)

			var parseErr *model.ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestNode_MarshalJSONKeepsOrder(t *testing.T) {
	data := []byte(`<Root b="1"><Zeta>z</Zeta><Alpha>1.50</Alpha><Zeta>y</Zeta></Root>`)

	tree, err := xmlparser.Parse(data)
	require.NoError(t, err)

	out, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, `{"Root":{"attributes":{"b":"1"},"Zeta":["z","y"],"Alpha":1.50}}`, string(out))
}

func TestAsSequence(t *testing.T) {
	single := xmlparser.NewNode()

	assert.Nil(t, xmlparser.AsSequence(nil))
	assert.Equal(t, []any{single}, xmlparser.AsSequence(single))
	assert.Equal(t, []any{"a"}, xmlparser.AsSequence("a"))

	seq := []any{"a", "b"}
	assert.Equal(t, seq, xmlparser.AsSequence(seq))
}

func TestNode_NilSafe(t *testing.T) {
	var n *xmlparser.Node
	_, ok := n.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, n.Len())
	assert.Nil(t, n.Keys())
	assert.Nil(t, n.Attributes())
}

// Benchmark tests

func BenchmarkParse(b *testing.B) {
	data := []byte(`<Root><Line><N>1</N><P>10.00</P></Line><Line><N>2</N><P>5.00</P></Line></Root>`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = xmlparser.Parse(data)
	}
}
