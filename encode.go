package huml

import (
	"bytes"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// inlineListBudget is the column width, measured from the start of the
// line containing a scalar-only list, within which the list is rendered
// inline rather than one "- v" per line.
const inlineListBudget = 80

// Serialize returns the canonical HUML encoding of doc, including its
// version header if doc.Version is non-empty, ending with a single
// trailing newline.
func Serialize(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if doc.Version != "" {
		buf.WriteString("%HUML v")
		buf.WriteString(doc.Version)
		buf.WriteByte('\n')
	}
	if err := NewEncoder(&buf).Encode(doc.Root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// An Encoder writes the canonical HUML encoding of a Value to an output
// stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the canonical HUML encoding of v, followed by a newline.
func (enc *Encoder) Encode(v Value) error {
	s := newEncState(enc.w)
	s.writeRoot(v)
	err := s.err
	putEncState(s)
	return err
}

// encState holds the encoding state for a single Encode call, pooled like
// the teacher's marshal state.
type encState struct {
	w   io.Writer
	err error
}

var encStatePool = sync.Pool{New: func() any { return new(encState) }}

func newEncState(w io.Writer) *encState {
	s := encStatePool.Get().(*encState)
	s.w = w
	return s
}

func putEncState(s *encState) {
	s.w = nil
	s.err = nil
	encStatePool.Put(s)
}

func (s *encState) write(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

// writeRoot renders the root value. A root Dict or List is rendered as a
// bare sequence of entries/items with no enclosing indent; a root scalar
// is rendered by itself.
func (s *encState) writeRoot(v Value) {
	switch v.Kind() {
	case KindDict:
		d, _ := v.AsDict()
		if d.Len() == 0 {
			s.write("{}")
		} else {
			s.writeDictBody(d, 0)
		}
	case KindList:
		items, _ := v.AsList()
		if len(items) == 0 {
			s.write("[]")
		} else {
			s.writeListBody(items, 0)
		}
	default:
		s.writeScalar(v, 0)
	}
	if s.err == nil {
		s.write("\n")
	}
}

func (s *encState) writeDictBody(d *Dict, indent int) {
	for i, e := range d.Entries() {
		if i > 0 {
			s.write("\n")
		}
		s.writeKVPair(e.Key, e.Value, indent)
	}
}

func (s *encState) writeListBody(items []Value, indent int) {
	// Only a root list (indent 0) can take the inline form here; a nested
	// list reaches this point after its key or list item chose multiline.
	if indent == 0 && allInlinable(items) && inlineFitsWithPrefix(items, "", indent) {
		s.writeInlineList(items)
		return
	}

	for i, item := range items {
		if i > 0 {
			s.write("\n")
		}
		s.write(strings.Repeat(" ", indent))
		s.write("- ")
		s.writeListItemValue(item, indent)
	}
}

func (s *encState) writeListItemValue(item Value, indent int) {
	switch item.Kind() {
	case KindList:
		sub, _ := item.AsList()
		switch {
		case len(sub) == 0:
			s.write(":: []")
		case allInlinable(sub) && inlineFitsWithPrefix(sub, "", indent+len("- :: ")):
			s.write(":: ")
			s.writeInlineList(sub)
		default:
			s.write("::\n")
			s.writeListBody(sub, indent+2)
		}
	case KindDict:
		sub, _ := item.AsDict()
		if sub.Len() == 0 {
			s.write(":: {}")
			return
		}
		s.write("::\n")
		s.writeDictBody(sub, indent+2)
	default:
		s.writeScalar(item, indent)
	}
}

func (s *encState) writeInlineList(items []Value) {
	for i, item := range items {
		if i > 0 {
			s.write(", ")
		}
		s.writeScalar(item, 0)
	}
}

// writeKVPair writes a complete key-value pair: indentation, the key, the
// ':' or '::' indicator, and the value.
func (s *encState) writeKVPair(key string, val Value, indent int) {
	s.write(strings.Repeat(" ", indent))
	s.write(quoteKeyIfNeeded(key))

	switch val.Kind() {
	case KindList:
		items, _ := val.AsList()
		switch {
		case len(items) == 0:
			s.write(":: []")
		case allInlinable(items) && inlineFitsWithPrefix(items, key, indent):
			s.write(":: ")
			s.writeInlineList(items)
		default:
			s.write("::\n")
			s.writeListBody(items, indent+2)
		}
	case KindDict:
		d, _ := val.AsDict()
		if d.Len() == 0 {
			s.write(":: {}")
		} else {
			s.write("::\n")
			s.writeDictBody(d, indent+2)
		}
	default:
		s.write(": ")
		s.writeScalar(val, indent)
	}
}

// allInlinable reports whether every item is a scalar that can sit on one
// comma-separated line: Lists and Dicts never qualify, and neither does a
// string that would need the whitespace-preserving multiline form.
func allInlinable(items []Value) bool {
	for _, it := range items {
		if it.Kind() == KindList || it.Kind() == KindDict {
			return false
		}
		if it.Kind() == KindString {
			s, _ := it.AsString()
			if needsMultiline(s) {
				return false
			}
		}
	}
	return true
}

// inlineFitsWithPrefix applies the inline-vs-multiline list width-budget
// rule: true when a "key:: v1, v2, ..." (or bare "v1, v2, ...") rendering
// fits within inlineListBudget columns.
func inlineFitsWithPrefix(items []Value, key string, indent int) bool {
	width := indent
	if key != "" {
		width += len(quoteKeyIfNeeded(key)) + len(":: ")
	}
	for i, it := range items {
		if i > 0 {
			width += len(", ")
		}
		width += scalarWidth(it)
		if width > inlineListBudget {
			return false
		}
	}
	return true
}

func scalarWidth(v Value) int {
	var buf bytes.Buffer
	s := newEncState(&buf)
	s.writeScalar(v, 0)
	putEncState(s)
	return buf.Len()
}

// writeScalar renders a scalar value in canonical form. v must not be a
// List or Dict. A string is rendered quoted when it fits on one line and
// has no control characters other than tab, otherwise in whitespace-preserving multiline
// form indented relative to indent.
func (s *encState) writeScalar(v Value, indent int) {
	switch v.Kind() {
	case KindNull:
		s.write("null")
	case KindBool:
		b, _ := v.AsBool()
		s.write(strconv.FormatBool(b))
	case KindInt:
		i, _ := v.AsInt()
		s.write(strconv.FormatInt(i, 10))
	case KindFloat:
		f, _ := v.AsFloat()
		switch {
		case math.IsNaN(f):
			s.write("nan")
		case math.IsInf(f, 1):
			s.write("inf")
		case math.IsInf(f, -1):
			s.write("-inf")
		default:
			s.write(formatFloat(f))
		}
	case KindString:
		str, _ := v.AsString()
		s.writeString(str, indent)
	}
}

// writeString renders str as a quoted single-line string, or, if it needs
// multiline form, as a "key: ```"-style block whose body is indented two
// spaces past indent and whose closing delimiter sits back at indent.
func (s *encState) writeString(str string, indent int) {
	if !needsMultiline(str) {
		s.write(quoteString(str))
		return
	}
	s.write("```\n")
	for _, line := range strings.Split(str, "\n") {
		s.write(strings.Repeat(" ", indent+2))
		s.write(line)
		s.write("\n")
	}
	s.write(strings.Repeat(" ", indent))
	s.write("```")
}

// needsMultiline reports whether str must be rendered in the
// whitespace-preserving multiline form: it contains a newline or a
// control character other than tab.
func needsMultiline(str string) bool {
	if strings.Contains(str, "\n") {
		return true
	}
	for _, r := range str {
		if r < 0x20 && r != '\t' {
			return true
		}
	}
	return false
}

// formatFloat renders the shortest round-trip decimal with a decimal
// point, per the canonical serializer rule (never bare "3", always "3.0").
func formatFloat(f float64) string {
	str := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(str, ".eE") {
		str += ".0"
	}
	return str
}

// quoteString escapes str using exactly the spec's escape set, preferring
// the readable two-character escapes and falling back to \u00XX only for
// other control characters.
func quoteString(str string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range str {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				const hex = "0123456789abcdef"
				b.WriteString(`\u00`)
				b.WriteByte(hex[(r>>4)&0xF])
				b.WriteByte(hex[r&0xF])
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// bareKeyRegex matches the bare-key grammar exactly: a leading letter or
// underscore, followed by letters, digits, underscores, or hyphens. (The
// teacher's equivalent regex incorrectly permitted a leading digit.)
var bareKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

func quoteKeyIfNeeded(key string) string {
	if bareKeyRegex.MatchString(key) {
		return key
	}
	return quoteString(key)
}
