package index

import (
	"testing"

	"github.com/dreamware/labeldex/internal/record"
	"github.com/dreamware/labeldex/internal/symbol"
)

func loadTestData(t *testing.T, idx *Index, tbl *symbol.Table) {
	t.Helper()
	rows := [][][2]string{
		{{"keya", "val1"}, {"keyb", "val1"}, {"keyc", "val3"}},
		{{"keya", "val1"}, {"keyb", "val2"}, {"keyc", "val2"}},
		{{"keya", "val1"}, {"keyb", "val1"}, {"keyc", "val1"}},
	}
	for id, pairs := range rows {
		interned := make([]record.InternedPair, len(pairs))
		for i, p := range pairs {
			interned[i] = record.InternedPair{Key: tbl.Intern(p[0]), Val: tbl.Intern(p[1])}
		}
		idx.Insert(uint32(id), record.New(interned))
	}
}

func eqSelector(pairs ...[2]string) record.Selector {
	preds := make([]record.Predicate, len(pairs))
	for i, p := range pairs {
		preds[i] = record.Predicate{Key: p[0], Val: p[1], Op: record.OpEq}
	}
	return record.Selector{Predicates: preds, Options: record.DefaultSearchOptions()}
}

func assertIDs(t *testing.T, b interface{ ToSlice() []uint32 }, want ...uint32) {
	t.Helper()
	got := b.ToSlice()
	if len(got) != len(want) {
		t.Fatalf("got ids %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got ids %v, want %v", got, want)
		}
	}
}

func TestSearchSinglePredicate(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	b, err := idx.Search(eqSelector([2]string{"keya", "val1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, b, 0, 1, 2)

	b, err = idx.Search(eqSelector([2]string{"keyb", "val1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, b, 0, 2)
}

func TestSearchIntersectsPredicates(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	b, err := idx.Search(eqSelector([2]string{"keya", "val1"}, [2]string{"keya", "val1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, b, 0, 1, 2)

	b, err = idx.Search(eqSelector([2]string{"keya", "val1"}, [2]string{"keyb", "val1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, b, 0, 2)

	b, err = idx.Search(eqSelector([2]string{"keyc", "val3"}, [2]string{"keyb", "val1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, b, 0)
}

func TestSearchMissingKeyIsEmpty(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	b, err := idx.Search(eqSelector([2]string{"nope", "val1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.IsEmpty() {
		t.Fatalf("expected empty result for missing key")
	}
}

func TestFieldCardinalitiesReportsDistinctValuesPerKey(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	got := idx.FieldCardinalities()
	want := map[string]int{"keya": 1, "keyb": 2, "keyc": 3}
	for key, n := range want {
		if got[key] != n {
			t.Fatalf("FieldCardinalities()[%q] = %d, want %d (got %v)", key, got[key], n, got)
		}
	}
}

func TestSearchEmptySelectorIsEmpty(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	b, err := idx.Search(record.Selector{Options: record.DefaultSearchOptions()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.IsEmpty() {
		t.Fatalf("expected empty result for zero-predicate selector; match-all is the planner's job")
	}
}

func regexSelector(key, pattern string, opts record.SearchOptions) record.Selector {
	return record.Selector{
		Predicates: []record.Predicate{{Key: key, Val: pattern, Op: record.OpRe}},
		Options:    opts,
	}
}

func TestSearchRegexOptimizedAndUnoptimizedAgree(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	optimized := record.SearchOptions{OptimizeRegex: true}
	unoptimized := record.SearchOptions{OptimizeRegex: false}

	bOpt, err := idx.Search(regexSelector("keyc", "val[12]", optimized))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bFull, err := idx.Search(regexSelector("keyc", "val[12]", unoptimized))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, bOpt, bFull.ToSlice()...)
	assertIDs(t, bOpt, 1, 2)
}

func TestKeyValuesExact(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	res, err := idx.KeyValues(record.KeyValuesQuery{
		Selector: eqSelector([2]string{"keya", "val1"}),
		KeyField: "keyc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KeyValuesExact {
		t.Fatalf("expected Exact result")
	}
	want := map[string]bool{"val1": true, "val2": true, "val3": true}
	if len(res.Values) != len(want) {
		t.Fatalf("got %v, want keys of %v", res.Values, want)
	}
	for _, v := range res.Values {
		if !want[v] {
			t.Fatalf("unexpected value %q", v)
		}
	}
}

func TestKeyValuesMissingKeyIsEmptyExact(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	res, err := idx.KeyValues(record.KeyValuesQuery{
		Selector: eqSelector([2]string{"keya", "val1"}),
		KeyField: "nope",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KeyValuesExact || len(res.Values) != 0 {
		t.Fatalf("expected empty Exact result, got %+v", res)
	}
}

func TestKeyValuesAbortEarlyGoesDirty(t *testing.T) {
	idx := New()
	tbl := symbol.New()
	loadTestData(t, idx, tbl)

	opts := record.SearchOptions{OptimizeRegex: true, AbortEarly: true}
	res, err := idx.KeyValues(record.KeyValuesQuery{
		Selector: record.Selector{
			Predicates: []record.Predicate{{Key: "keyc", Val: "val1", Op: record.OpEq}},
			Options:    opts,
		},
		KeyField: "keyc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != KeyValuesDirty {
		t.Fatalf("expected Dirty result when |R| < distinct values, got %+v", res)
	}
	assertIDs(t, res.IDs, 2)
}
