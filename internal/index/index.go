// Package index implements the inverted index over label (key, value)
// pairs, and the query planner that sits on top of it (spec §4.4, §4.6).
// It is ported from the original's backend/index.rs Index/Field pair
// (_examples/original_source/src/backend/index.rs): one Field per label
// key, each holding a lexicographically ordered map of value to posting
// bitmap.
package index

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/dreamware/labeldex/internal/bitmap"
	"github.com/dreamware/labeldex/internal/record"
	"github.com/dreamware/labeldex/internal/regexopt"
)

// DefaultMatchAllLimit caps a match-all query (a selector with zero
// predicates) so an unconstrained query never materializes the whole
// corpus by accident (spec §4.6).
const DefaultMatchAllLimit = 10000

// Index maps label keys to Fields. It is owned by exactly one shard
// goroutine and never accessed concurrently (spec §4.2, §5).
type Index struct {
	fields map[string]*Field
}

// New returns an empty index.
func New() *Index {
	return &Index{fields: make(map[string]*Field)}
}

// Insert adds id to every (key, value) posting list named by rec's pairs,
// creating fields and value entries on demand (spec §4.4).
func (idx *Index) Insert(id uint32, rec *record.Record) {
	for _, pair := range rec.Pairs {
		key := pair.Key.Text()
		f, ok := idx.fields[key]
		if !ok {
			f = newField()
			idx.fields[key] = f
		}
		f.addPosting(pair.Val.Text(), id)
	}
}

// FieldCount reports the number of distinct label keys indexed, used for
// per-shard status reporting.
func (idx *Index) FieldCount() int {
	return len(idx.fields)
}

// FieldCardinalities reports, per label key, the number of distinct
// values indexed under that key (SPEC_FULL §4, "per-field cardinality
// counts per shard, not just aggregate counts"; grounded on the
// original's IndexStatus in backend/index.rs).
func (idx *Index) FieldCardinalities() map[string]int {
	out := make(map[string]int, len(idx.fields))
	for key, f := range idx.fields {
		out[key] = f.len()
	}
	return out
}

// Search evaluates selector and returns the matching record-id bitmap
// (spec §4.4). A selector with zero predicates returns an empty bitmap —
// the planner, not the index, is responsible for routing match-all
// queries to the record store instead.
func (idx *Index) Search(sel record.Selector) (*bitmap.Bitmap, error) {
	if len(sel.Predicates) == 0 {
		return bitmap.New(), nil
	}

	fields := make([]*Field, len(sel.Predicates))
	for i, p := range sel.Predicates {
		f, ok := idx.fields[p.Key]
		if !ok {
			return bitmap.New(), nil
		}
		fields[i] = f
	}

	results := make([]*bitmap.Bitmap, len(sel.Predicates))
	for i, p := range sel.Predicates {
		var (
			b   *bitmap.Bitmap
			err error
		)
		switch p.Op {
		case record.OpEq:
			b = fields[i].eqGet(p.Val)
		case record.OpRe:
			b, err = fields[i].reAggregatedGet(p.Val, sel.Options)
		default:
			return nil, fmt.Errorf("index: unknown operation %v", p.Op)
		}
		if err != nil {
			return nil, err
		}
		results[i] = b
	}

	// Intersect smallest-first: a performance tweak over the original's
	// fixed left-to-right fold, harmless since intersection is
	// commutative and associative.
	sort.Slice(results, func(i, j int) bool { return results[i].Cardinality() < results[j].Cardinality() })

	acc := results[0]
	for _, b := range results[1:] {
		if acc.IsEmpty() {
			break
		}
		acc = bitmap.And(acc, b)
	}
	return acc, nil
}

// KeyValuesKind discriminates a KeyValuesResult.
type KeyValuesKind int

const (
	// KeyValuesExact carries the resolved set of distinct values.
	KeyValuesExact KeyValuesKind = iota
	// KeyValuesDirty carries a record-id bitmap that the caller must
	// post-filter for target_key's value itself (spec §4.4 step 3).
	KeyValuesDirty
)

// KeyValuesResult is the outcome of Index.KeyValues.
type KeyValuesResult struct {
	Kind   KeyValuesKind
	Values []string
	IDs    *bitmap.Bitmap
}

// KeyValues implements spec §4.4's key-values search: the distinct values
// of keyField among records matching q.Selector.
func (idx *Index) KeyValues(q record.KeyValuesQuery) (KeyValuesResult, error) {
	matched, err := idx.Search(q.Selector)
	if err != nil {
		return KeyValuesResult{}, err
	}

	field, ok := idx.fields[q.KeyField]
	if !ok {
		return KeyValuesResult{Kind: KeyValuesExact, Values: nil}, nil
	}

	if q.Selector.Options.AbortEarly && uint64(field.len()) > matched.Cardinality() {
		return KeyValuesResult{Kind: KeyValuesDirty, IDs: matched}, nil
	}

	var values []string
	field.each(func(value string, postings *bitmap.Bitmap) {
		if !bitmap.And(matched, postings).IsEmpty() {
			values = append(values, value)
		}
	})
	return KeyValuesResult{Kind: KeyValuesExact, Values: values}, nil
}

// valueEntry is one (value, posting list) pair in a Field's ordered map.
type valueEntry struct {
	value    string
	postings *bitmap.Bitmap
}

// Field holds the ordered value map for one label key (spec §4.4). The
// original keeps a BTreeMap<Arc<str>, RoaringBitmap>; no ordered-map
// library appears anywhere in the example pack, so this is a sorted
// slice searched with sort.Search — O(log n) lookup, O(n) insert, same
// asymptotics the original's red-black tree loses to an unindexed array
// only at very large field cardinalities.
type Field struct {
	entries []valueEntry
}

func newField() *Field {
	return &Field{}
}

func (f *Field) search(value string) (int, bool) {
	i := sort.Search(len(f.entries), func(i int) bool { return f.entries[i].value >= value })
	if i < len(f.entries) && f.entries[i].value == value {
		return i, true
	}
	return i, false
}

func (f *Field) addPosting(value string, id uint32) {
	i, found := f.search(value)
	if found {
		f.entries[i].postings.Set(id)
		return
	}
	entry := valueEntry{value: value, postings: bitmap.New()}
	entry.postings.Set(id)
	f.entries = append(f.entries, valueEntry{})
	copy(f.entries[i+1:], f.entries[i:])
	f.entries[i] = entry
}

func (f *Field) len() int {
	return len(f.entries)
}

func (f *Field) each(fn func(value string, postings *bitmap.Bitmap)) {
	for _, e := range f.entries {
		fn(e.value, e.postings)
	}
}

func (f *Field) eqGet(value string) *bitmap.Bitmap {
	i, found := f.search(value)
	if !found {
		return bitmap.New()
	}
	return f.entries[i].postings.Clone()
}

// rangeFrom returns the index of the first entry whose value is >= prefix.
func (f *Field) rangeFrom(prefix string) int {
	return sort.Search(len(f.entries), func(i int) bool { return f.entries[i].value >= prefix })
}

// reAggregatedGet evaluates a regex predicate against this field's value
// map (spec §4.4). When opts.OptimizeRegex is set and the pattern yields
// usable literal prefixes, it does point lookups for Complete literals
// and bounded range scans for Cut literals instead of a full scan.
func (f *Field) reAggregatedGet(pattern string, opts record.SearchOptions) (*bitmap.Bitmap, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("index: invalid regex %q: %w", pattern, err)
	}

	result := bitmap.New()

	if opts.OptimizeRegex {
		lits, err := regexopt.Prefixes(pattern)
		if err != nil {
			return nil, fmt.Errorf("index: invalid regex %q: %w", pattern, err)
		}
		if len(lits) > 0 {
			for _, lit := range lits {
				if lit.Cut {
					start := f.rangeFrom(lit.Text)
					for i := start; i < len(f.entries); i++ {
						e := f.entries[i]
						if len(e.value) < len(lit.Text) || e.value[:len(lit.Text)] != lit.Text {
							break
						}
						if re.MatchString(e.value) {
							result.OrInPlace(e.postings)
						}
					}
				} else {
					if i, found := f.search(lit.Text); found {
						result.OrInPlace(f.entries[i].postings)
					}
				}
			}
			return result, nil
		}
	}

	for _, e := range f.entries {
		if re.MatchString(e.value) {
			result.OrInPlace(e.postings)
		}
	}
	return result, nil
}
