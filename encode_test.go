package huml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeScalarRoot(t *testing.T) {
	f := func(name string, v Value, want string) {
		t.Run(name, func(t *testing.T) {
			out, err := Serialize(&Document{Root: v})
			require.NoError(t, err)
			assert.Equal(t, want, string(out))
		})
	}

	f("string", String("hi"), "\"hi\"\n")
	f("int", Int(42), "42\n")
	f("hex int always decimal", IntWithBase(255, BaseHex), "255\n")
	f("bool", Bool(true), "true\n")
	f("null", Null(), "null\n")
	f("float with point", Float(3.0), "3.0\n")
	f("empty list", List(nil), "[]\n")
	f("empty dict", FromDict(NewDict()), "{}\n")
}

func TestSerializeDict(t *testing.T) {
	d := NewDict()
	d.Append("name", String("Alice"))
	d.Append("age", Int(30))

	out, err := Serialize(&Document{Root: FromDict(d)})
	require.NoError(t, err)
	assert.Equal(t, "name: \"Alice\"\nage: 30\n", string(out))
}

func TestSerializeInlineListWithinBudget(t *testing.T) {
	d := NewDict()
	d.Append("tags", List([]Value{String("a"), String("b"), String("c")}))

	out, err := Serialize(&Document{Root: FromDict(d)})
	require.NoError(t, err)
	assert.Equal(t, "tags:: \"a\", \"b\", \"c\"\n", string(out))
}

func TestSerializeListExceedingBudgetGoesMultiline(t *testing.T) {
	items := make([]Value, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, String("a-fairly-long-repeated-element-value"))
	}
	d := NewDict()
	d.Append("tags", List(items))

	out, err := Serialize(&Document{Root: FromDict(d)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "tags::\n")
	assert.Contains(t, string(out), "  - \"a-fairly-long-repeated-element-value\"\n")
}

func TestSerializeNestedDict(t *testing.T) {
	inner := NewDict()
	inner.Append("bar", Int(1))
	outer := NewDict()
	outer.Append("foo", FromDict(inner))

	out, err := Serialize(&Document{Root: FromDict(outer)})
	require.NoError(t, err)
	assert.Equal(t, "foo::\n  bar: 1\n", string(out))
}

func TestSerializeQuotesNonBareKeys(t *testing.T) {
	d := NewDict()
	d.Append("has space", Int(1))
	d.Append("bare_key", Int(2))

	out, err := Serialize(&Document{Root: FromDict(d)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"has space": 1`)
	assert.Contains(t, string(out), "bare_key: 2")
}

func TestSerializeRejectsLeadingDigitAsBareKey(t *testing.T) {
	// A key starting with a digit is not a valid bare key, unlike the
	// teacher's original (buggy) regex.
	assert.False(t, bareKeyRegex.MatchString("1abc"))
	assert.True(t, bareKeyRegex.MatchString("_1abc"))
	assert.True(t, bareKeyRegex.MatchString("abc1"))
}

func TestSerializeMultilineString(t *testing.T) {
	d := NewDict()
	d.Append("text", String("line one\nline two"))

	out, err := Serialize(&Document{Root: FromDict(d)})
	require.NoError(t, err)
	assert.Equal(t, "text: ```\n  line one\n  line two\n```\n", string(out))
}

func TestSerializeWithVersionHeader(t *testing.T) {
	out, err := Serialize(&Document{Version: "0.1.0", Root: Int(1)})
	require.NoError(t, err)
	assert.Equal(t, "%HUML v0.1.0\n1\n", string(out))
}

func TestRoundTripArbitraryDocuments(t *testing.T) {
	f := func(name string, v Value) {
		t.Run(name, func(t *testing.T) {
			out, err := Serialize(&Document{Root: v})
			require.NoError(t, err)

			doc2, err := Parse(out)
			require.NoError(t, err)
			assert.True(t, v.EqualOrdered(doc2.Root), "serialized:\n%s", out)
		})
	}

	d := NewDict()
	d.Append("name", String("Alice"))
	d.Append("nested", FromDict(func() *Dict {
		nd := NewDict()
		nd.Append("a", Int(1))
		nd.Append("b", List([]Value{Int(1), Int(2), Int(3)}))
		return nd
	}()))
	d.Append("multi", String("line one\nline two"))

	f("mixed document", FromDict(d))
	f("root list", List([]Value{Int(1), Int(2)}))
	f("root scalar", Float(1.5))
	f("list of inlinable list", List([]Value{List([]Value{Int(1), Int(2), Int(3)})}))
	f("list of non-inlinable list", List([]Value{List([]Value{String("line one\nline two")})}))
}
