package store

import (
	"strconv"
	"testing"

	"github.com/dreamware/labeldex/internal/record"
	"github.com/dreamware/labeldex/internal/symbol"
)

func makeRecord(tbl *symbol.Table, pairs ...[2]string) *record.Record {
	interned := make([]record.InternedPair, len(pairs))
	for i, p := range pairs {
		interned[i] = record.InternedPair{Key: tbl.Intern(p[0]), Val: tbl.Intern(p[1])}
	}
	return record.New(interned)
}

func TestAddAllocatesSequentialIDs(t *testing.T) {
	s := New()
	tbl := symbol.New()

	id0, ok := s.Add(makeRecord(tbl, [2]string{"k", "v0"}))
	if !ok || id0 != 0 {
		t.Fatalf("first id = %d, ok=%v, want 0, true", id0, ok)
	}
	id1, ok := s.Add(makeRecord(tbl, [2]string{"k", "v1"}))
	if !ok || id1 != 1 {
		t.Fatalf("second id = %d, ok=%v, want 1, true", id1, ok)
	}
}

func TestAddRejectsDuplicateContent(t *testing.T) {
	s := New()
	tbl := symbol.New()

	if _, ok := s.Add(makeRecord(tbl, [2]string{"k", "v"})); !ok {
		t.Fatalf("expected first insert to succeed")
	}
	if _, ok := s.Add(makeRecord(tbl, [2]string{"k", "v"})); ok {
		t.Fatalf("expected duplicate insert to report ok=false")
	}
	if s.Len() != 1 {
		t.Fatalf("duplicate insert must not allocate an id, Len() = %d", s.Len())
	}
}

func TestGetRoundTrips(t *testing.T) {
	s := New()
	tbl := symbol.New()
	rec := makeRecord(tbl, [2]string{"k", "v"})
	id, _ := s.Add(rec)

	got, ok := s.Get(id)
	if !ok || !got.Equal(rec) {
		t.Fatalf("Get(%d) = %+v, %v; want matching record", id, got, ok)
	}
}

func TestGetOutOfRangeMisses(t *testing.T) {
	s := New()
	if _, ok := s.Get(12345); ok {
		t.Fatalf("expected miss for out-of-range id on empty store")
	}
}

func TestMultiGetSkipsMisses(t *testing.T) {
	s := New()
	tbl := symbol.New()
	id0, _ := s.Add(makeRecord(tbl, [2]string{"k", "v0"}))

	got := s.MultiGet([]uint32{id0, 9999})
	if len(got) != 1 {
		t.Fatalf("expected 1 hit out of 2 requested ids, got %d", len(got))
	}
}

func TestGetAllRespectsLimitAndOrder(t *testing.T) {
	s := New()
	tbl := symbol.New()
	for i := 0; i < 5; i++ {
		s.Add(makeRecord(tbl, [2]string{"k", string(rune('a' + i))}))
	}

	got := s.GetAll(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, rec := range got {
		want := makeRecord(tbl, [2]string{"k", string(rune('a' + i))})
		if !rec.Equal(want) {
			t.Fatalf("record %d = %v, want %v", i, rec, want)
		}
	}
}

func TestChunkBoundaryCrossesIntoNewChunk(t *testing.T) {
	s := New()
	tbl := symbol.New()

	// Fill exactly one chunk plus one extra record, to exercise the
	// (chunk << 16 | offset) id encoding across a chunk boundary.
	var lastID uint32
	for i := 0; i < chunkSize+1; i++ {
		id, ok := s.Add(makeRecord(tbl, [2]string{"k", strconv.Itoa(i)}, [2]string{"n", "x"}))
		if !ok {
			t.Fatalf("unexpected duplicate at i=%d", i)
		}
		lastID = id
	}

	if lastID>>16 != 1 {
		t.Fatalf("expected the (chunkSize+1)th record to land in chunk 1, id = %#x", lastID)
	}
	if _, ok := s.Get(lastID); !ok {
		t.Fatalf("expected Get to find the record in the second chunk")
	}
	if s.Len() != chunkSize+1 {
		t.Fatalf("Len() = %d, want %d", s.Len(), chunkSize+1)
	}
}
