// Package lexer tokenizes and parses the two wire syntaxes the engine
// accepts: record syntax for ingest and selector/label_values syntax for
// queries (spec §4.1). Both share one byte-scanner; neither ever panics on
// malformed input — every failure is returned as a *ParseError naming the
// offending token (spec §4.1, §7).
package lexer

import (
	"fmt"
	"strings"

	"github.com/dreamware/labeldex/internal/record"
)

// ParseError is returned by ParseRecord and ParseQuery on malformed input.
// It carries the byte offset and a human-readable message naming the
// offending token; it is never a panic (spec §4.1, §7).
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %s", e.Pos, e.Msg)
}

func errAt(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// scanner is a left-to-right byte scanner shared by the record and query
// grammars, ported from the original's next_non_space_char/find_next
// helpers (_examples/original_source/src/lexer/mod.rs) and extended with
// escape-aware string scanning, which the original marks as a TODO.
type scanner struct {
	src []byte
	pos int
}

func newScanner(s string) *scanner {
	return &scanner{src: []byte(s)}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek() (byte, bool) {
	if s.eof() {
		return 0, false
	}
	return s.src[s.pos], true
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

// expect consumes b if it is the next non-space byte, otherwise returns a
// ParseError naming what was expected.
func (s *scanner) expect(b byte, what string) error {
	s.skipSpace()
	c, ok := s.peek()
	if !ok {
		return errAt(s.pos, "unexpected end of input, expected %s", what)
	}
	if c != b {
		return errAt(s.pos, "expected %s, got %q", what, c)
	}
	s.pos++
	return nil
}

// readBareword reads a key identifier matching [A-Za-z0-9_-]+.
func (s *scanner) readBareword() (string, error) {
	s.skipSpace()
	start := s.pos
	for !s.eof() && isBarewordByte(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return "", errAt(s.pos, "expected identifier")
	}
	return string(s.src[start:s.pos]), nil
}

func isBarewordByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9', b == '_', b == '-':
		return true
	default:
		return false
	}
}

// readQuotedString reads a double-quoted string literal, honoring the
// odd/even-backslash-run escaping rule from spec §4.1: a `"` is the
// closing quote only when preceded by an even number (including zero) of
// consecutive backslashes. `\"` is a literal quote; `\\` is a literal
// backslash.
func (s *scanner) readQuotedString() (string, error) {
	s.skipSpace()
	if err := s.expect('"', `opening '"'`); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		if s.eof() {
			return "", errAt(s.pos, "unterminated string literal")
		}
		c := s.src[s.pos]
		if c == '\\' {
			if s.pos+1 >= len(s.src) {
				return "", errAt(s.pos, "unterminated escape sequence")
			}
			next := s.src[s.pos+1]
			switch next {
			case '"', '\\':
				b.WriteByte(next)
				s.pos += 2
				continue
			default:
				// Not a recognized escape: keep the backslash literally and
				// continue scanning from the following byte, matching a
				// left-to-right scan that never treats an unescaped '"' as
				// part of an escape pair.
				b.WriteByte('\\')
				s.pos++
				continue
			}
		}
		if c == '"' {
			s.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		s.pos++
	}
}

func (s *scanner) consumeByte() (byte, bool) {
	c, ok := s.peek()
	if ok {
		s.pos++
	}
	return c, ok
}

// ParseRecord parses ingest record syntax: {k1="v1", k2="v2", ...}
// (spec §4.1). Whitespace is permitted between tokens; it never panics.
func ParseRecord(text string) (*record.Raw, error) {
	s := newScanner(text)
	if err := s.expect('{', "'{'"); err != nil {
		return nil, err
	}

	var pairs []record.LabelPair
	for {
		key, err := s.readBareword()
		if err != nil {
			return nil, err
		}
		if err := s.expect('=', "'='"); err != nil {
			return nil, err
		}
		val, err := s.readQuotedString()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, record.LabelPair{Key: key, Val: val})

		s.skipSpace()
		c, ok := s.consumeByte()
		if !ok {
			return nil, errAt(s.pos, "unterminated record, expected ',' or '}'")
		}
		switch c {
		case ',':
			continue
		case '}':
			return &record.Raw{Pairs: pairs}, nil
		default:
			return nil, errAt(s.pos-1, "expected ',' or '}', got %q", c)
		}
	}
}

// ParseQuery parses either a selector "{k1==\"v1\", k2=~\"re\"}" or a
// function call "label_values({...}, \"key\")" (spec §4.1).
func ParseQuery(text string) (*record.Query, error) {
	s := newScanner(text)
	s.skipSpace()

	if looksLikeLabelValues(s) {
		return parseLabelValues(s)
	}

	sel, err := parseSelector(s)
	if err != nil {
		return nil, err
	}
	if err := expectTrailingEOF(s); err != nil {
		return nil, err
	}
	return &record.Query{Kind: record.QuerySimple, Simple: sel}, nil
}

func looksLikeLabelValues(s *scanner) bool {
	const kw = "label_values"
	if s.pos+len(kw) > len(s.src) {
		return false
	}
	return string(s.src[s.pos:s.pos+len(kw)]) == kw
}

func parseLabelValues(s *scanner) (*record.Query, error) {
	kw, err := s.readBareword()
	if err != nil {
		return nil, err
	}
	if kw != "label_values" {
		return nil, errAt(s.pos, "expected 'label_values', got %q", kw)
	}
	if err := s.expect('(', "'('"); err != nil {
		return nil, err
	}
	sel, err := parseSelector(s)
	if err != nil {
		return nil, err
	}
	if err := s.expect(',', "','"); err != nil {
		return nil, err
	}
	key, err := s.readQuotedString()
	if err != nil {
		return nil, err
	}
	if err := s.expect(')', "')'"); err != nil {
		return nil, err
	}
	if err := expectTrailingEOF(s); err != nil {
		return nil, err
	}

	return &record.Query{
		Kind: record.QueryKeyValues,
		KeyValues: record.KeyValuesQuery{
			Selector: sel,
			KeyField: key,
		},
	}, nil
}

func expectTrailingEOF(s *scanner) error {
	s.skipSpace()
	if !s.eof() {
		return errAt(s.pos, "unexpected trailing input %q", string(s.src[s.pos:]))
	}
	return nil
}

// parseSelector parses "{k1==\"v1\", k2=~\"re\", ...}" into a Selector with
// default search options; the caller (the query planner, via
// record.DefaultSearchOptions) may override flags per invocation.
func parseSelector(s *scanner) (record.Selector, error) {
	if err := s.expect('{', "'{'"); err != nil {
		return record.Selector{}, err
	}

	sel := record.Selector{Options: record.DefaultSearchOptions()}

	s.skipSpace()
	if c, ok := s.peek(); ok && c == '}' {
		s.pos++
		return sel, nil
	}

	for {
		key, err := s.readBareword()
		if err != nil {
			return record.Selector{}, err
		}
		op, err := readOperation(s)
		if err != nil {
			return record.Selector{}, err
		}
		val, err := s.readQuotedString()
		if err != nil {
			return record.Selector{}, err
		}
		sel.Predicates = append(sel.Predicates, record.Predicate{Key: key, Val: val, Op: op})

		s.skipSpace()
		c, ok := s.consumeByte()
		if !ok {
			return record.Selector{}, errAt(s.pos, "unterminated selector, expected ',' or '}'")
		}
		switch c {
		case ',':
			continue
		case '}':
			return sel, nil
		default:
			return record.Selector{}, errAt(s.pos-1, "expected ',' or '}', got %q", c)
		}
	}
}

// readOperation reads "==" or "=~" at the current position.
func readOperation(s *scanner) (record.Operation, error) {
	s.skipSpace()
	if err := s.expect('=', "'=' or '=~'"); err != nil {
		return 0, err
	}
	c, ok := s.consumeByte()
	if !ok {
		return 0, errAt(s.pos, "unterminated operator, expected '=' or '~'")
	}
	switch c {
	case '=':
		return record.OpEq, nil
	case '~':
		return record.OpRe, nil
	default:
		return 0, errAt(s.pos-1, "unknown operator '=%c'", c)
	}
}
