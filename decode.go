// Package huml provides a parser and canonical serializer for HUML
// (Human-Usable Markup Language) documents.
//
// Parse turns HUML source text into a Document: an optional version string
// plus a root Value drawn from the tagged algebra Null, Bool, Int, Float,
// String, List, and Dict (see Value). Serialize turns a Document back into
// HUML's single canonical textual form. Parsing halts at the first error
// and reports it as a *ParseError carrying a byte offset, 1-based line and
// column, and a closed error Kind.
package huml

import (
	"bytes"
	"io"
)

// Decoder reads and decodes a HUML document from an input stream.
type Decoder struct {
	parser *streamParser
	done   bool
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{parser: newStreamParser(newLexer(r))}
}

// Decode reads one HUML document from the stream. A Decoder consumes the
// entirety of its reader on the first call; a second call returns io.EOF.
func (dec *Decoder) Decode() (*Document, error) {
	if dec.done {
		return nil, io.EOF
	}
	dec.done = true
	return dec.parser.parseDocument()
}

// Parse parses a complete HUML document from data.
//
// Empty input is accepted and produces a Document with no version and a
// Null root, per the boundary behavior for empty documents.
func Parse(data []byte) (*Document, error) {
	return NewDecoder(bytes.NewReader(data)).Decode()
}
