package huml

import (
	"bytes"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, "", doc.Version)
	assert.True(t, doc.Root.IsNull())
}

func TestParseVersionHeader(t *testing.T) {
	doc, err := Parse([]byte("%HUML v0.1.0\nname: \"ok\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", doc.Version)
}

func TestParseVersionHeaderRejectsOtherVersions(t *testing.T) {
	_, err := Parse([]byte("%HUML v0.2.0\nname: \"ok\"\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, VersionFormat, pe.Kind)
}

func TestParseScalarRoot(t *testing.T) {
	f := func(name, input string, want Value) {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse([]byte(input))
			require.NoError(t, err)
			assert.True(t, want.EqualOrdered(doc.Root), "got %v", doc.Root)
		})
	}

	f("string", `"hello"`+"\n", String("hello"))
	f("true", "true\n", Bool(true))
	f("false", "false\n", Bool(false))
	f("null", "null\n", Null())
	f("int", "42\n", Int(42))
	f("negative int", "-7\n", Int(-7))
	f("hex", "0xFF\n", IntWithBase(255, BaseHex))
	f("octal", "0o17\n", IntWithBase(15, BaseOctal))
	f("binary", "0b101\n", IntWithBase(5, BaseBinary))
	f("float", "3.5\n", Float(3.5))
	f("inf", "inf\n", Float(math.Inf(1)))
	f("neg inf", "-inf\n", Float(math.Inf(-1)))
	f("nan", "nan\n", Float(math.NaN()))
	f("underscored int", "1_000_000\n", Int(1000000))
	f("empty list", "[]\n", List(nil))
	f("empty dict", "{}\n", FromDict(NewDict()))
}

func TestParseMultilineDict(t *testing.T) {
	input := "name: \"Alice\"\nage: 30\nactive: true\n"
	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	d, ok := doc.Root.AsDict()
	require.True(t, ok)
	assert.Equal(t, []string{"name", "age", "active"}, d.Keys())

	name, _ := d.Get("name")
	n, _ := name.AsString()
	assert.Equal(t, "Alice", n)
}

func TestParseNestedDict(t *testing.T) {
	input := "user::\n  name: \"Bob\"\n  tags::\n    - \"a\"\n    - \"b\"\n"
	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	d, ok := doc.Root.AsDict()
	require.True(t, ok)
	user, ok := d.Get("user")
	require.True(t, ok)
	ud, ok := user.AsDict()
	require.True(t, ok)
	tags, ok := ud.Get("tags")
	require.True(t, ok)
	items, ok := tags.AsList()
	require.True(t, ok)
	require.Len(t, items, 2)
}

func TestParseInlineCollections(t *testing.T) {
	doc, err := Parse([]byte("point:: 1, 2, 3\n"))
	require.NoError(t, err)
	d, _ := doc.Root.AsDict()
	point, ok := d.Get("point")
	require.True(t, ok)
	items, ok := point.AsList()
	require.True(t, ok)
	require.Len(t, items, 3)

	doc2, err := Parse([]byte("pair:: x: 1, y: 2\n"))
	require.NoError(t, err)
	d2, _ := doc2.Root.AsDict()
	pair, ok := d2.Get("pair")
	require.True(t, ok)
	pd, ok := pair.AsDict()
	require.True(t, ok)
	assert.Equal(t, 2, pd.Len())
}

func TestParseDuplicateKeyErrors(t *testing.T) {
	_, err := Parse([]byte("name: \"a\"\nname: \"b\"\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, DuplicateKey, pe.Kind)
}

func TestParseMixedCollectionFormErrors(t *testing.T) {
	_, err := Parse([]byte("pair:: x:: 1\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, MixedCollectionForm, pe.Kind)
}

func TestParseInvalidIndentErrors(t *testing.T) {
	f := func(name, input string) {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			require.Error(t, err)
			pe, ok := err.(*ParseError)
			require.True(t, ok)
			assert.Equal(t, InvalidIndent, pe.Kind)
		})
	}
	f("odd indent", "user::\n   name: \"x\"\n")
	f("tab indent", "user::\n\tname: \"x\"\n")
}

func TestParseTrailingWhitespaceErrors(t *testing.T) {
	_, err := Parse([]byte("name: \"a\" \n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, TrailingWhitespace, pe.Kind)
}

func TestParseQuotedStringEscapes(t *testing.T) {
	doc, err := Parse([]byte(`"line\n\ttab\u00e9"` + "\n"))
	require.NoError(t, err)
	s, ok := doc.Root.AsString()
	require.True(t, ok)
	assert.Equal(t, "line\n\ttab\u00e9", s)
}

func TestParseUnknownEscapeErrors(t *testing.T) {
	_, err := Parse([]byte(`"bad\vescape"` + "\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, InvalidEscape, pe.Kind)
}

func TestParseWhitespacePreservingMultilineString(t *testing.T) {
	input := "text: ```\n  line one\n    indented\n```\n"
	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	d, _ := doc.Root.AsDict()
	text, ok := d.Get("text")
	require.True(t, ok)
	s, _ := text.AsString()
	assert.Equal(t, "line one\n  indented", s)
}

func TestParseWhitespaceStrippingMultilineString(t *testing.T) {
	input := "text: \"\"\"\n    line one\n      indented\n\n\"\"\"\n"
	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	d, _ := doc.Root.AsDict()
	text, ok := d.Get("text")
	require.True(t, ok)
	s, _ := text.AsString()
	assert.Equal(t, "line one\n  indented", s)
}

func TestParseRootScalarFollowedByCommentContainingComma(t *testing.T) {
	doc, err := Parse([]byte(`"x" # a, b` + "\n"))
	require.NoError(t, err)
	s, ok := doc.Root.AsString()
	require.True(t, ok)
	assert.Equal(t, "x", s)
}

func TestParseDigitSeparatorPlacementErrors(t *testing.T) {
	f := func(name, input string) {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			require.Error(t, err)
		})
	}
	f("leading underscore", "_100\n")
	f("trailing underscore", "100_\n")
	f("double underscore", "1__000\n")
}

func TestParseRecursionDepthExceeded(t *testing.T) {
	var b []byte
	for i := 0; i < 300; i++ {
		b = append(b, bytes.Repeat([]byte(" "), 2*i)...)
		b = append(b, []byte("a::\n")...)
	}
	_, err := Parse(b)
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, InternalInvariant, pe.Kind)
}

func TestRoundTripSerializeThenParse(t *testing.T) {
	input := "name: \"Alice\"\nage: 30\ntags:: \"a\", \"b\", \"c\"\nempty_dict:: {}\nempty_list:: []\n"
	doc, err := Parse([]byte(input))
	require.NoError(t, err)

	out, err := Serialize(doc)
	require.NoError(t, err)

	doc2, err := Parse(out)
	require.NoError(t, err)

	assert.True(t, doc.Root.EqualOrdered(doc2.Root))
}

func TestDecoderWithDifferentReaderTypes(t *testing.T) {
	data := []byte("name: \"a\"\n")

	f := func(name string, r io.Reader) {
		t.Run(name, func(t *testing.T) {
			doc, err := NewDecoder(r).Decode()
			require.NoError(t, err)
			d, _ := doc.Root.AsDict()
			v, ok := d.Get("name")
			require.True(t, ok)
			s, _ := v.AsString()
			assert.Equal(t, "a", s)
		})
	}

	f("strings.Reader", strings.NewReader(string(data)))
	f("bytes.Buffer", bytes.NewBuffer(data))
	f("bytes.Reader", bytes.NewReader(data))
}
