// Package record defines the data model shared by the parser, store, and
// index: label pairs, records, and the predicate/selector shapes that make
// up a query. See spec §3 (Data model) and §4.1 (wire syntaxes).
package record

import (
	"hash/fnv"
	"strings"

	"github.com/dreamware/labeldex/internal/symbol"
)

// LabelPair is a single (key, value) pair as produced by the parser, before
// interning. It is parse-time, stack-friendly, and short-lived (spec §3).
type LabelPair struct {
	Key string
	Val string
}

// Raw is the parsed, un-interned form of a record: an ordered bag of label
// pairs. Two pairs with equal keys are permitted (spec §3: "no per-record
// key uniqueness constraint").
type Raw struct {
	Pairs []LabelPair
}

// InternedPair is a label pair whose key and value have been resolved to
// shared symbol handles.
type InternedPair struct {
	Key *symbol.Handle
	Val *symbol.Handle
}

// Record is the canonical, stored form of a record: an ordered sequence of
// interned label pairs, with its content hash computed once at
// construction and cached (spec §3 design invariant: "a record's hash is
// immutable after construction").
type Record struct {
	Pairs []InternedPair
	hash  uint64
}

// New builds a canonical Record from already-interned pairs, computing and
// caching its content hash. Order is preserved because two records with the
// same pairs in different orders are still the same multiset of labels, but
// hashing is order-sensitive here only as an implementation detail of
// dedup: since ingest always produces pairs in the same parse order for the
// same line, this is sufficient to detect duplicate lines (spec §3: "The
// hash-to-id map contains exactly one entry per stored record").
func New(pairs []InternedPair) *Record {
	r := &Record{Pairs: pairs}
	r.hash = computeHash(pairs)
	return r
}

// Hash returns the record's cached content hash.
func (r *Record) Hash() uint64 {
	return r.hash
}

// Equal reports whether two records carry the same ordered label pairs.
// Handles may come from different symbol.Tables (e.g. in tests), so
// comparison falls back to text equality rather than relying on pointer
// identity.
func (r *Record) Equal(other *Record) bool {
	if r == other {
		return true
	}
	if other == nil || len(r.Pairs) != len(other.Pairs) {
		return false
	}
	for i, p := range r.Pairs {
		op := other.Pairs[i]
		if p.Key.Text() != op.Key.Text() || p.Val.Text() != op.Val.Text() {
			return false
		}
	}
	return true
}

// String renders the record back into record wire syntax (spec §4.1),
// escaping values the same way the parser unescapes them. Used for timed
// query logging (SPEC_FULL §4) and the parser round-trip property test
// (spec §8).
func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range r.Pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Key.Text())
		b.WriteString(`="`)
		b.WriteString(EscapeValue(p.Val.Text()))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// EscapeValue escapes a value for embedding inside a double-quoted record
// or query string literal: backslashes and double quotes are backslash
// escaped, matching the odd/even-backslash-run rule the parser uses to
// recognize the closing quote (spec §4.1).
func EscapeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func computeHash(pairs []InternedPair) uint64 {
	h := fnv.New64a()
	for _, p := range pairs {
		_, _ = h.Write([]byte(p.Key.Text()))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p.Val.Text()))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
