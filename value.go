package huml

import "math"

// Kind identifies the tag of a Value in the document tree.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// IntBase records the textual base an integer literal was written in. The
// canonical serializer always emits decimal regardless of this field; it
// exists for introspection by callers that want to inspect source form.
type IntBase int

const (
	BaseDecimal IntBase = iota
	BaseHex
	BaseOctal
	BaseBinary
)

// Value is a node in the HUML document tree: a tagged union of
// Null, Bool, Int, Float, String, List, and Dict.
type Value struct {
	kind Kind

	b     bool
	i     int64
	ibase IntBase
	f     float64
	s     string
	list  []Value
	dict  *Dict
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an Int value in decimal base.
func Int(i int64) Value { return Value{kind: KindInt, i: i, ibase: BaseDecimal} }

// IntWithBase returns an Int value, recording its source base.
func IntWithBase(i int64, base IntBase) Value { return Value{kind: KindInt, i: i, ibase: base} }

// Float returns a Float value. NaN and +/-Inf are valid.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a String value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a List value wrapping the given elements.
func List(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// FromDict returns a Dict value wrapping d. d must not be nil.
func FromDict(d *Dict) Value {
	if d == nil {
		d = NewDict()
	}
	return Value{kind: KindDict, dict: d}
}

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns v's boolean content, if v is a Bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns v's integer content, if v is an Int. The source base is
// reported by IntBase.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// IntBase returns the source base recorded for an Int value.
func (v Value) IntBase() IntBase { return v.ibase }

// AsFloat returns v's float content, if v is a Float.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsString returns v's string content, if v is a String.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsList returns v's elements, if v is a List.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsDict returns v's backing Dict, if v is a Dict.
func (v Value) AsDict() (*Dict, bool) {
	if v.kind != KindDict {
		return nil, false
	}
	return v.dict, true
}

// Equal reports whether v and other are structurally equal. For Dicts,
// key order is not significant (semantic equality, per the spec's note
// that entry order matters for canonical serialization but not equality).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindDict:
		return v.dict.equalUnordered(other.dict)
	default:
		return false
	}
}

// EqualOrdered is like Equal but additionally requires Dict entries to
// appear in the same insertion order.
func (v Value) EqualOrdered(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindDict {
		return v.dict.equalOrdered(other.dict)
	}
	if v.kind == KindList {
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].EqualOrdered(other.list[i]) {
				return false
			}
		}
		return true
	}
	return v.Equal(other)
}

// DictEntry is a single key/value pair of a Dict, in insertion order.
type DictEntry struct {
	Key   string
	Value Value
}

// Dict is an ordered mapping from unique string keys to Values. It
// preserves insertion order, which is semantically meaningful for
// canonical serialization (see the Data Model invariants).
type Dict struct {
	entries []DictEntry
	index   map[string]int
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Get returns the value for key, and whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.entries[i].Value, true
}

// Append adds a new key/value pair. The caller is responsible for ensuring
// key is not already present; use Has to check. Appending a duplicate key
// will shadow the earlier entry in index lookups but keep both in Entries.
func (d *Dict) Append(key string, v Value) {
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, DictEntry{Key: key, Value: v})
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.entries) }

// Entries returns the Dict's entries in insertion order. The returned
// slice must not be mutated by the caller.
func (d *Dict) Entries() []DictEntry { return d.entries }

// Keys returns the Dict's keys in insertion order.
func (d *Dict) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key
	}
	return keys
}

func (d *Dict) equalUnordered(other *Dict) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, e := range d.entries {
		ov, ok := other.Get(e.Key)
		if !ok || !e.Value.Equal(ov) {
			return false
		}
	}
	return true
}

func (d *Dict) equalOrdered(other *Dict) bool {
	if d.Len() != other.Len() {
		return false
	}
	for i, e := range d.entries {
		oe := other.entries[i]
		if e.Key != oe.Key || !e.Value.EqualOrdered(oe.Value) {
			return false
		}
	}
	return true
}

// Document is the top-level parsed object: an optional version string
// (from a "%HUML v<version>" header) plus a root value.
type Document struct {
	Version string
	Root    Value
}
