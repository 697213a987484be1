package shard

import (
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/dreamware/labeldex/internal/record"
	"github.com/dreamware/labeldex/internal/telemetry"
)

func newTestShard() (*Shard, chan Request) {
	s := New(0, telemetry.NoopSink{}, zap.NewNop().Sugar())
	reqs := make(chan Request, 16)
	go s.Run(reqs)
	return s, reqs
}

func search(t *testing.T, reqs chan<- Request, sel record.Selector) []*record.Record {
	t.Helper()
	out := make(chan *record.Record, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	reqs <- Request{Kind: KindSearch, Selector: sel, RecordResp: out, Done: &wg}
	go func() { wg.Wait(); close(out) }()

	var got []*record.Record
	for rec := range out {
		got = append(got, rec)
	}
	return got
}

func keyValues(t *testing.T, reqs chan<- Request, q record.KeyValuesQuery) []string {
	t.Helper()
	out := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	reqs <- Request{Kind: KindKeyValuesSearch, KeyValues: q, ValueResp: out, Done: &wg}
	go func() { wg.Wait(); close(out) }()

	var got []string
	for v := range out {
		got = append(got, v)
	}
	return got
}

func status(t *testing.T, reqs chan<- Request) Status {
	t.Helper()
	out := make(chan Status, 1)
	reqs <- Request{Kind: KindStatus, StatusResp: out}
	return <-out
}

func TestRawAddThenSearchFindsRecord(t *testing.T) {
	_, reqs := newTestShard()

	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolkien", title="The Hobbit"}`}
	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolstoy", title="War and Peace"}`}

	got := search(t, reqs, record.Selector{
		Predicates: []record.Predicate{{Key: "author", Val: "Tolkien", Op: record.OpEq}},
		Options:    record.DefaultSearchOptions(),
	})
	if len(got) != 1 || got[0].Pairs[1].Val.Text() != "The Hobbit" {
		t.Fatalf("got %+v", got)
	}
}

func TestRawAddDiscardsMalformedLineWithoutAborting(t *testing.T) {
	_, reqs := newTestShard()

	reqs <- Request{Kind: KindRawAdd, Line: `not a record`}
	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolkien"}`}

	st := status(t, reqs)
	if st.Store.RecordCount != 1 {
		t.Fatalf("expected the malformed line to be skipped, store has %d records", st.Store.RecordCount)
	}
}

func TestRawAddDeduplicatesIdenticalRecords(t *testing.T) {
	_, reqs := newTestShard()

	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolkien"}`}
	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolkien"}`}

	st := status(t, reqs)
	if st.Store.RecordCount != 1 {
		t.Fatalf("expected duplicate insert to be a no-op, store has %d records", st.Store.RecordCount)
	}
}

func TestMatchAllSelectorServedFromStore(t *testing.T) {
	_, reqs := newTestShard()

	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolkien"}`}
	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolstoy"}`}

	got := search(t, reqs, record.Selector{Options: record.DefaultSearchOptions()})
	if len(got) != 2 {
		t.Fatalf("expected match-all to return every record, got %d", len(got))
	}
}

func TestKeyValuesSearchExact(t *testing.T) {
	_, reqs := newTestShard()

	reqs <- Request{Kind: KindRawAdd, Line: `{language="English", extension="pdf"}`}
	reqs <- Request{Kind: KindRawAdd, Line: `{language="English", extension="epub"}`}
	reqs <- Request{Kind: KindRawAdd, Line: `{language="French", extension="pdf"}`}

	got := keyValues(t, reqs, record.KeyValuesQuery{
		Selector: record.Selector{
			Predicates: []record.Predicate{{Key: "language", Val: "English", Op: record.OpEq}},
			Options:    record.DefaultSearchOptions(),
		},
		KeyField: "extension",
	})

	want := map[string]bool{"pdf": true, "epub": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want values from %v", got, want)
	}
	for _, v := range got {
		if !want[v] {
			t.Fatalf("unexpected value %q", v)
		}
	}
}

func TestStatusReportsInternedSymbolsAndFields(t *testing.T) {
	_, reqs := newTestShard()
	reqs <- Request{Kind: KindRawAdd, Line: `{author="Tolkien", language="English"}`}

	st := status(t, reqs)
	if st.FieldCount != 2 {
		t.Fatalf("expected 2 indexed fields, got %d", st.FieldCount)
	}
	if st.SymbolCount == 0 {
		t.Fatalf("expected interned symbols to be counted")
	}
	if st.FieldCardinality["author"] != 1 || st.FieldCardinality["language"] != 1 {
		t.Fatalf("expected per-field cardinality 1 for author and language, got %v", st.FieldCardinality)
	}
}
