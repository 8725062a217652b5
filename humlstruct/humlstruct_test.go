package humlstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `huml:"city"`
	Zip  string `huml:"zip,omitempty"`
}

type person struct {
	Name     string   `huml:"name"`
	Age      int      `huml:"age"`
	Tags     []string `huml:"tags"`
	Address  address  `huml:"address"`
	Secret   string   `huml:"-"`
	Nickname string   `huml:"nickname,omitempty"`
}

func TestMarshalStruct(t *testing.T) {
	p := person{
		Name: "Alice",
		Age:  30,
		Tags: []string{"a", "b"},
		Address: address{
			City: "Springfield",
		},
		Secret: "hidden",
	}

	out, err := Marshal(p)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `name: "Alice"`)
	assert.Contains(t, s, "age: 30")
	assert.Contains(t, s, `tags:: "a", "b"`)
	assert.Contains(t, s, `city: "Springfield"`)
	assert.NotContains(t, s, "hidden")
	assert.NotContains(t, s, "nickname")
}

func TestUnmarshalStruct(t *testing.T) {
	input := []byte("name: \"Bob\"\nage: 42\ntags:: \"x\", \"y\"\naddress::\n  city: \"Shelbyville\"\n  zip: \"00000\"\n")

	var p person
	require.NoError(t, Unmarshal(input, &p))

	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, 42, p.Age)
	assert.Equal(t, []string{"x", "y"}, p.Tags)
	assert.Equal(t, "Shelbyville", p.Address.City)
	assert.Equal(t, "00000", p.Address.Zip)
}

func TestRoundTripStruct(t *testing.T) {
	p := person{
		Name: "Carol",
		Age:  19,
		Tags: []string{"x"},
		Address: address{
			City: "Ogdenville",
			Zip:  "11111",
		},
	}

	out, err := Marshal(p)
	require.NoError(t, err)

	var got person
	require.NoError(t, Unmarshal(out, &got))
	assert.Equal(t, p, got)
}

func TestUnmarshalIntoMap(t *testing.T) {
	input := []byte("a: 1\nb: 2\n")

	var m map[string]int
	require.NoError(t, Unmarshal(input, &m))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m)
}

func TestUnmarshalIntoInterface(t *testing.T) {
	input := []byte("name: \"x\"\ncount: 3\n")

	var v any
	require.NoError(t, Unmarshal(input, &v))

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", m["name"])
	assert.EqualValues(t, 3, m["count"])
}

func TestUnmarshalRejectsNonPointer(t *testing.T) {
	var p person
	err := Unmarshal([]byte("name: \"x\"\n"), p)
	assert.Error(t, err)
}

func TestMarshalRejectsNonStringMapKey(t *testing.T) {
	_, err := Marshal(map[int]string{1: "a"})
	assert.Error(t, err)
}
