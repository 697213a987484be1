package record

import "strings"

// Operation is the comparison a Predicate applies to a label value.
type Operation int

const (
	// OpEq is strict equality ("==").
	OpEq Operation = iota
	// OpRe is a whole-value regex match ("=~", implicitly anchored ^...$).
	OpRe
)

func (o Operation) String() string {
	if o == OpRe {
		return "=~"
	}
	return "=="
}

// Predicate is a single field comparison inside a selector: key <op> val.
type Predicate struct {
	Key string
	Val string
	Op  Operation
}

func (p Predicate) String() string {
	return p.Key + p.Op.String() + `"` + EscapeValue(p.Val) + `"`
}

// SearchOptions carries the per-query flags from the original's
// QueryFlags bitflags (SPEC_FULL §4): OptimizeRegex controls whether the
// index uses literal-prefix range scans for regex predicates instead of a
// full value-map scan; AbortEarly controls whether KeyValues prefers
// post-filtering records over intersecting every value's postings when the
// matched record set is smaller than the value alphabet.
//
// OptimizeRegex is semantics-preserving: the result set is identical
// whether or not it is set (spec §8). AbortEarly is too, except for
// records that repeat the target key: its post-filter path reads only the
// first pair with that key in each record. Default matches the original's
// QueryFlags::DEFAULT, which has both bits set.
type SearchOptions struct {
	OptimizeRegex bool
	AbortEarly    bool
}

// DefaultSearchOptions mirrors the original QueryFlags::DEFAULT.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{OptimizeRegex: true, AbortEarly: true}
}

// Selector is a conjunction of predicates over label keys (spec Glossary).
type Selector struct {
	Predicates []Predicate
	Options    SearchOptions
}

func (s Selector) String() string {
	parts := make([]string, len(s.Predicates))
	for i, p := range s.Predicates {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// KeyValuesQuery asks for the distinct values of KeyField among records
// matching Selector (spec §4.1, label_values(...)).
type KeyValuesQuery struct {
	Selector Selector
	KeyField string
}

func (q KeyValuesQuery) String() string {
	return q.Selector.String() + " by " + q.KeyField
}

// Query is the result of parsing query wire syntax: either a bare selector
// (Simple) or a label_values(...) call (KeyValues). Exactly one of Simple
// or KeyValues is populated, selected by Kind.
type Query struct {
	Kind      QueryKind
	Simple    Selector
	KeyValues KeyValuesQuery
}

// QueryKind discriminates the Query union.
type QueryKind int

const (
	// QuerySimple is a bare selector query.
	QuerySimple QueryKind = iota
	// QueryKeyValues is a label_values(...) query.
	QueryKeyValues
)
