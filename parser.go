package huml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxDepth bounds recursion so a pathologically nested document fails with
// a clear error instead of exhausting the goroutine stack.
const maxDepth = 256

// dataType classifies the shape of a value about to be parsed.
type dataType int

const (
	typeScalar dataType = iota
	typeEmptyDict
	typeInlineDict
	typeMultilineDict
	typeEmptyList
	typeInlineList
	typeMultilineList
)

// streamParser parses tokens into a Document.
type streamParser struct {
	lexer *lexer
	depth int
}

// newStreamParser creates a new parser from a lexer.
func newStreamParser(l *lexer) *streamParser {
	return &streamParser{lexer: l}
}

func (p *streamParser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return &ParseError{
			Line:    p.lexer.lineNum,
			Column:  1,
			Kind:    InternalInvariant,
			Message: fmt.Sprintf("maximum nesting depth of %d exceeded", maxDepth),
		}
	}
	return nil
}

func (p *streamParser) leave() { p.depth-- }

// parseDocument parses the entire document, including an optional version
// header, and returns the result.
func (p *streamParser) parseDocument() (*Document, error) {
	// Force the lexer to process a leading version header, if any, before
	// inspecting sawVersion.
	tk, err := p.lexer.peek()
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	if p.lexer.sawVersion {
		if p.lexer.version != "v0.1.0" {
			return nil, &ParseError{
				Line:    1,
				Column:  1,
				Kind:    VersionFormat,
				Message: fmt.Sprintf("unsupported version '%s', expected 'v0.1.0'", p.lexer.version),
			}
		}
		doc.Version = strings.TrimPrefix(p.lexer.version, "v")
		tk, err = p.lexer.peek()
		if err != nil {
			return nil, err
		}
	}

	if tk.Type == TokenEOF {
		doc.Root = Null()
		return doc, nil
	}

	if tk.Indent != 0 {
		return nil, &ParseError{
			Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
			Kind: InvalidIndent, Message: "root element must not be indented",
		}
	}

	rootType, err := p.inferRootType()
	if err != nil {
		return nil, err
	}

	var result Value
	switch rootType {
	case typeScalar:
		result, err = p.parseRootScalar()
		if err != nil {
			return nil, err
		}
		result, err = p.assertRootEnd(result, "root scalar value")

	case typeEmptyList:
		p.lexer.next()
		if err = p.lexer.consumeLine(); err != nil {
			return nil, err
		}
		result, err = p.assertRootEnd(List(nil), "root list")

	case typeEmptyDict:
		p.lexer.next()
		if err = p.lexer.consumeLine(); err != nil {
			return nil, err
		}
		result, err = p.assertRootEnd(FromDict(NewDict()), "root dict")

	case typeMultilineList:
		result, err = p.parseMultilineList(0)

	case typeMultilineDict:
		result, err = p.parseMultilineDict(0)

	case typeInlineList:
		result, err = p.parseInlineList()
		if err != nil {
			return nil, err
		}
		if err = p.lexer.consumeLine(); err != nil {
			return nil, err
		}
		result, err = p.assertRootEnd(result, "root inline list")

	case typeInlineDict:
		result, err = p.parseInlineDict()
		if err != nil {
			return nil, err
		}
		if err = p.lexer.consumeLine(); err != nil {
			return nil, err
		}
		result, err = p.assertRootEnd(result, "root inline dict")

	default:
		return nil, &ParseError{Kind: InternalInvariant, Message: "unknown root type", Line: tk.Line, Column: tk.Column}
	}
	if err != nil {
		return nil, err
	}

	doc.Root = result
	return doc, nil
}

// parseRootScalar parses a scalar value at root level.
func (p *streamParser) parseRootScalar() (Value, error) {
	tk, err := p.lexer.peek()
	if err != nil {
		return Value{}, err
	}

	if tk.Type == TokenString && isMultilineMarker(tk.Value) {
		return p.parseMultilineStringBody(tk.Value, 0)
	}

	val, err := p.parseInlineValue()
	if err != nil {
		return Value{}, err
	}

	if err := p.lexer.consumeLine(); err != nil {
		return Value{}, err
	}

	return val, nil
}

// inferRootType determines the type of the root document.
func (p *streamParser) inferRootType() (dataType, error) {
	tk, err := p.lexer.peek()
	if err != nil {
		return typeScalar, err
	}

	if tk.Type == TokenEmptyList {
		return typeEmptyList, nil
	}
	if tk.Type == TokenEmptyDict {
		return typeEmptyDict, nil
	}
	if tk.Type == TokenListItem {
		return typeMultilineList, nil
	}

	if tk.Type == TokenKey || tk.Type == TokenQuotedKey {
		if p.hasVectorIndicatorAfterKey() {
			return typeMultilineDict, nil
		}
		if p.hasCommaOnLine() {
			return typeInlineDict, nil
		}
		return typeMultilineDict, nil
	}

	if isValueToken(tk.Type) {
		if p.hasCommaOnLine() {
			return typeInlineList, nil
		}
		return typeScalar, nil
	}

	return typeScalar, nil
}

// hasVectorIndicatorAfterKey checks if the first key on the line is followed by ::.
func (p *streamParser) hasVectorIndicatorAfterKey() bool {
	origPos := p.lexer.pos

	for p.lexer.pos < len(p.lexer.line) && p.lexer.line[p.lexer.pos] != ':' {
		p.lexer.pos++
	}

	result := false
	if p.lexer.pos+1 < len(p.lexer.line) && p.lexer.line[p.lexer.pos] == ':' && p.lexer.line[p.lexer.pos+1] == ':' {
		result = true
	}

	p.lexer.pos = origPos
	return result
}

// hasCommaOnLine checks if there's a comma on the current line, ignoring
// anything inside a quoted string and stopping at an unquoted '#' comment
// (a comma inside a trailing comment must not be mistaken for an inline
// list separator).
func (p *streamParser) hasCommaOnLine() bool {
	line := p.lexer.line
	inStr := false
	for i := p.lexer.pos; i < len(line); i++ {
		c := line[i]
		if inStr {
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '#':
			return false
		case ',':
			return true
		}
	}
	return false
}

// isValueToken returns true if the token type represents a value.
func isValueToken(t TokenType) bool {
	switch t {
	case TokenString, TokenInt, TokenFloat, TokenBool, TokenNull, TokenNaN, TokenInf:
		return true
	}
	return false
}

// assertRootEnd ensures no content follows a completed root element.
func (p *streamParser) assertRootEnd(val Value, description string) (Value, error) {
	tk, err := p.lexer.peek()
	if err != nil {
		return Value{}, err
	}
	if tk.Type != TokenEOF {
		return Value{}, &ParseError{
			Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
			Kind: UnexpectedToken, Message: fmt.Sprintf("unexpected content after %s", description),
		}
	}
	return val, nil
}

// parseMultilineDict parses a multi-line dict at a given indentation level.
func (p *streamParser) parseMultilineDict(indent int) (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()

	d := NewDict()

	for {
		tk, err := p.lexer.peek()
		if err != nil {
			return Value{}, err
		}

		if tk.Type == TokenEOF || tk.Indent < indent {
			break
		}

		if tk.Indent != indent {
			return Value{}, &ParseError{
				Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
				Kind: InvalidIndent, Message: fmt.Sprintf("bad indent %d, expected %d", tk.Indent, indent),
			}
		}

		if tk.Type != TokenKey && tk.Type != TokenQuotedKey {
			return Value{}, &ParseError{
				Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
				Kind: UnexpectedToken, Message: "expected a key",
			}
		}

		keyTk, _ := p.lexer.next()
		key := keyTk.Value

		if d.Has(key) {
			return Value{}, &ParseError{
				Offset: keyTk.Offset, Line: keyTk.Line, Column: keyTk.Column,
				Kind: DuplicateKey, Message: fmt.Sprintf("duplicate key '%s' in dict", key),
			}
		}

		indTk, err := p.lexer.next()
		if err != nil {
			return Value{}, err
		}

		var val Value
		switch indTk.Type {
		case TokenScalarInd:
			if err := p.lexer.skipRequiredSpace("after ':'"); err != nil {
				return Value{}, err
			}
			val, err = p.parseScalarValue(indent)
			if err != nil {
				return Value{}, err
			}
		case TokenVectorInd:
			val, err = p.parseVector(indent + 2)
			if err != nil {
				return Value{}, err
			}
		default:
			return Value{}, &ParseError{
				Offset: indTk.Offset, Line: indTk.Line, Column: indTk.Column,
				Kind: UnexpectedToken, Message: "expected ':' or '::' after key",
			}
		}

		d.Append(key, val)
	}

	return FromDict(d), nil
}

// parseMultilineList parses a multi-line list at a given indentation level.
func (p *streamParser) parseMultilineList(indent int) (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()

	out := make([]Value, 0, 8)

	for {
		tk, err := p.lexer.peek()
		if err != nil {
			return Value{}, err
		}

		if tk.Type == TokenEOF || tk.Indent < indent {
			break
		}

		if tk.Indent != indent {
			return Value{}, &ParseError{
				Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
				Kind: InvalidIndent, Message: fmt.Sprintf("bad indent %d, expected %d", tk.Indent, indent),
			}
		}

		if tk.Type != TokenListItem {
			break
		}

		p.lexer.next()

		nextTk, err := p.lexer.peek()
		if err != nil {
			return Value{}, err
		}

		var val Value
		if nextTk.Type == TokenVectorInd {
			p.lexer.next()
			val, err = p.parseVector(indent + 2)
		} else {
			val, err = p.parseListItemValue(indent)
		}
		if err != nil {
			return Value{}, err
		}

		out = append(out, val)
	}

	return List(out), nil
}

// parseListItemValue parses a value after "- ".
func (p *streamParser) parseListItemValue(indent int) (Value, error) {
	tk, err := p.lexer.peek()
	if err != nil {
		return Value{}, err
	}

	if tk.Type == TokenString && isMultilineMarker(tk.Value) {
		return p.parseMultilineStringBody(tk.Value, indent)
	}

	val, err := p.parseInlineValue()
	if err != nil {
		return Value{}, err
	}

	if err := p.lexer.consumeLine(); err != nil {
		return Value{}, err
	}

	return val, nil
}

// parseVector parses a vector after the :: indicator.
func (p *streamParser) parseVector(indent int) (Value, error) {
	if p.lexer.atEndOfLine() {
		if err := p.lexer.consumeLine(); err != nil {
			return Value{}, err
		}

		tk, err := p.lexer.peek()
		if err != nil {
			return Value{}, err
		}

		if tk.Type == TokenEOF || tk.Indent < indent {
			return Value{}, &ParseError{
				Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
				Kind: UnexpectedToken, Message: "ambiguous empty vector after '::'; use [] or {}",
			}
		}

		if tk.Type == TokenListItem {
			return p.parseMultilineList(indent)
		}

		return p.parseMultilineDict(indent)
	}

	if err := p.lexer.skipRequiredSpace("after '::'"); err != nil {
		return Value{}, err
	}

	return p.parseInlineVectorValue()
}

// parseInlineVectorValue parses an inline vector ([], {}, or comma-separated values).
func (p *streamParser) parseInlineVectorValue() (Value, error) {
	tk, err := p.lexer.peek()
	if err != nil {
		return Value{}, err
	}

	var val Value

	switch tk.Type {
	case TokenEmptyList:
		p.lexer.next()
		val = List(nil)
	case TokenEmptyDict:
		p.lexer.next()
		val = FromDict(NewDict())
	case TokenKey, TokenQuotedKey:
		val, err = p.parseInlineDict()
	default:
		val, err = p.parseInlineList()
	}

	if err != nil {
		return Value{}, err
	}
	if err := p.lexer.consumeLine(); err != nil {
		return Value{}, err
	}
	return val, nil
}

// parseInlineDict parses an inline dict (key: val, key: val). Spec 4.3:
// inline dicts may not nest multiline collections.
func (p *streamParser) parseInlineDict() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()

	d := NewDict()
	isFirst := true

	for {
		if p.lexer.atEndOfLine() {
			break
		}

		tk, err := p.lexer.peek()
		if err != nil {
			return Value{}, err
		}

		if tk.Type == TokenEOF {
			break
		}

		if !isFirst {
			if tk.Type != TokenComma {
				break
			}
			if tk.SpaceBefore {
				return Value{}, &ParseError{
					Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
					Kind: UnexpectedToken, Message: "no spaces allowed before comma",
				}
			}
			p.lexer.next()

			if err := p.lexer.skipRequiredSpace("after comma"); err != nil {
				return Value{}, err
			}

			tk, err = p.lexer.peek()
			if err != nil {
				return Value{}, err
			}
		}
		isFirst = false

		if tk.Type != TokenKey && tk.Type != TokenQuotedKey {
			return Value{}, &ParseError{
				Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
				Kind: UnexpectedToken, Message: "expected key in inline dict",
			}
		}

		keyTk, _ := p.lexer.next()
		key := keyTk.Value

		if d.Has(key) {
			return Value{}, &ParseError{
				Offset: keyTk.Offset, Line: keyTk.Line, Column: keyTk.Column,
				Kind: DuplicateKey, Message: fmt.Sprintf("duplicate key '%s' in dict", key),
			}
		}

		indTk, err := p.lexer.next()
		if err != nil {
			return Value{}, err
		}
		if indTk.Type != TokenScalarInd {
			if indTk.Type == TokenVectorInd {
				return Value{}, &ParseError{
					Offset: indTk.Offset, Line: indTk.Line, Column: indTk.Column,
					Kind: MixedCollectionForm, Message: "inline dicts may not nest multiline collections",
				}
			}
			return Value{}, &ParseError{
				Offset: indTk.Offset, Line: indTk.Line, Column: indTk.Column,
				Kind: UnexpectedToken, Message: "expected ':' in inline dict",
			}
		}

		if err := p.lexer.skipRequiredSpace("in inline dict"); err != nil {
			return Value{}, err
		}

		val, err := p.parseInlineValue()
		if err != nil {
			return Value{}, err
		}

		d.Append(key, val)
	}

	return FromDict(d), nil
}

// parseInlineList parses an inline list (val, val, val).
func (p *streamParser) parseInlineList() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()

	out := make([]Value, 0, 8)
	isFirst := true

	for {
		if p.lexer.atEndOfLine() {
			break
		}

		tk, err := p.lexer.peek()
		if err != nil {
			return Value{}, err
		}

		if tk.Type == TokenEOF {
			break
		}

		if !isFirst {
			if tk.Type != TokenComma {
				break
			}
			if tk.SpaceBefore {
				return Value{}, &ParseError{
					Offset: tk.Offset, Line: tk.Line, Column: tk.Column,
					Kind: UnexpectedToken, Message: "no spaces allowed before comma",
				}
			}
			p.lexer.next()

			if err := p.lexer.skipRequiredSpace("after comma"); err != nil {
				return Value{}, err
			}
		}
		isFirst = false

		val, err := p.parseInlineValue()
		if err != nil {
			return Value{}, err
		}

		out = append(out, val)
	}

	return List(out), nil
}

// parseInlineValue parses a single value in an inline context.
func (p *streamParser) parseInlineValue() (Value, error) {
	tk, err := p.lexer.next()
	if err != nil {
		return Value{}, err
	}

	return p.tokenToValue(tk)
}

// parseScalarValue parses a scalar value (handles multiline strings).
func (p *streamParser) parseScalarValue(keyIndent int) (Value, error) {
	tk, err := p.lexer.peek()
	if err != nil {
		return Value{}, err
	}

	if tk.Type == TokenString && isMultilineMarker(tk.Value) {
		return p.parseMultilineStringBody(tk.Value, keyIndent)
	}

	val, err := p.parseInlineValue()
	if err != nil {
		return Value{}, err
	}

	if err := p.lexer.consumeLine(); err != nil {
		return Value{}, err
	}

	return val, nil
}

// isMultilineMarker reports whether a string-typed token's raw value is
// one of the two multiline opener markers rather than an actual string.
func isMultilineMarker(v string) bool {
	return v == `"""` || v == "```"
}

// parseMultilineStringBody consumes a multiline string body after its
// opener marker has been peeked (not yet consumed). The "```" form is
// whitespace-preserving (only the block's base indent is stripped, by the
// lexer); the `"""` form additionally strips the minimum common leading
// indentation across body lines and trims leading/trailing blank lines.
func (p *streamParser) parseMultilineStringBody(delim string, keyIndent int) (Value, error) {
	p.lexer.next()
	mlTk, err := p.lexer.scanMultilineString(keyIndent, delim)
	if err != nil {
		return Value{}, err
	}
	if delim == `"""` {
		return String(stripCommonIndent(mlTk.Value)), nil
	}
	return String(mlTk.Value), nil
}

// tokenToValue converts a token to its Value.
func (p *streamParser) tokenToValue(tok Token) (Value, error) {
	switch tok.Type {
	case TokenString:
		return String(tok.Value), nil

	case TokenInt:
		return p.parseIntValue(tok)

	case TokenFloat:
		return p.parseFloatValue(tok)

	case TokenBool:
		return Bool(tok.Value == "true"), nil

	case TokenNull:
		return Null(), nil

	case TokenNaN:
		return Float(math.NaN()), nil

	case TokenInf:
		if tok.Value == "-" {
			return Float(math.Inf(-1)), nil
		}
		return Float(math.Inf(1)), nil

	case TokenVectorInd:
		return Value{}, &ParseError{
			Offset: tok.Offset, Line: tok.Line, Column: tok.Column,
			Kind: MixedCollectionForm, Message: "vector marker '::' not allowed inside an inline collection",
		}

	case TokenEOF:
		return Value{}, &ParseError{
			Offset: tok.Offset, Line: tok.Line, Column: tok.Column,
			Kind: UnexpectedToken, Message: "unexpected end of input, expected a value",
		}

	case TokenError:
		return Value{}, &ParseError{
			Offset: tok.Offset, Line: tok.Line, Column: tok.Column,
			Kind: UnexpectedToken, Message: tok.Value,
		}

	default:
		return Value{}, &ParseError{
			Offset: tok.Offset, Line: tok.Line, Column: tok.Column,
			Kind: UnexpectedToken, Message: fmt.Sprintf("unexpected token %s when parsing value", tok.String()),
		}
	}
}

// validateDigitSeparators enforces that '_' never begins or ends a numeric
// literal's digit run and never appears adjacent to another '_'.
func validateDigitSeparators(s string) error {
	isRunDigit := isDigit
	if digits := strings.TrimLeft(s, "+-"); len(digits) > 1 && (digits[1] == 'x' || digits[1] == 'X') {
		isRunDigit = isHex
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 {
			return fmt.Errorf("digit separator cannot be at the start or end of a number")
		}
		if !isRunDigit(s[i-1]) || !isRunDigit(s[i+1]) {
			return fmt.Errorf("digit separator must be between digits")
		}
	}
	return nil
}

// parseIntValue parses an integer value from a token, recording its source base.
func (p *streamParser) parseIntValue(tok Token) (Value, error) {
	s := tok.Value
	if err := validateDigitSeparators(s); err != nil {
		return Value{}, &ParseError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Kind: InvalidNumber, Message: err.Error()}
	}

	sign := int64(1)
	idx := 0
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		idx = 1
	}

	base := 10
	ibase := BaseDecimal
	if len(s)-idx > 2 {
		switch s[idx : idx+2] {
		case "0x", "0X":
			base, ibase, idx = 16, BaseHex, idx+2
		case "0o", "0O":
			base, ibase, idx = 8, BaseOctal, idx+2
		case "0b", "0B":
			base, ibase, idx = 2, BaseBinary, idx+2
		}
	}

	var val int64
	digits := 0
	for i := idx; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			continue
		}
		digits++

		var digit int64
		switch {
		case c >= '0' && c <= '9':
			digit = int64(c - '0')
		case c >= 'a' && c <= 'f':
			digit = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			digit = int64(c-'A') + 10
		default:
			return Value{}, &ParseError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Kind: InvalidNumber, Message: fmt.Sprintf("invalid digit '%c'", c)}
		}

		if digit >= int64(base) {
			return Value{}, &ParseError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Kind: InvalidNumber, Message: fmt.Sprintf("invalid digit '%c' for base %d", c, base)}
		}

		val = val*int64(base) + digit
	}

	if digits == 0 {
		return Value{}, &ParseError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Kind: InvalidNumber, Message: "empty digit run"}
	}

	return IntWithBase(sign*val, ibase), nil
}

// parseFloatValue parses a float value from a token, skipping underscores.
func (p *streamParser) parseFloatValue(tok Token) (Value, error) {
	s := tok.Value
	if err := validateDigitSeparators(s); err != nil {
		return Value{}, &ParseError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Kind: InvalidNumber, Message: err.Error()}
	}
	if strings.Contains(s, "_") {
		s = strings.ReplaceAll(s, "_", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, &ParseError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Kind: InvalidNumber, Message: err.Error()}
	}
	return Float(f), nil
}

// stripCommonIndent implements the whitespace-stripping multiline string
// algorithm (spec 4.3): the key-relative base indent has already been
// removed by the lexer; here the minimum remaining leading indentation
// across non-blank lines is removed uniformly, and leading/trailing blank
// lines are dropped.
func stripCommonIndent(raw string) string {
	if raw == "" {
		return raw
	}
	lines := strings.Split(raw, "\n")

	min := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		if min == -1 || n < min {
			min = n
		}
	}
	if min > 0 {
		for i, line := range lines {
			if len(line) >= min {
				lines[i] = line[min:]
			} else {
				lines[i] = strings.TrimLeft(line, " ")
			}
		}
	}

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}
