// Package shard implements the engine's unit of concurrency:
// thread-per-shard storage combining one symbol.Table, one store.Store,
// and one index.Index, driven by a single goroutine processing a Request
// channel in strict enqueue order (spec §4.7, §5). It is grounded on the
// original's shard_handler loop and SingleStorageBackend
// (_examples/original_source/src/storage/mod.rs), with torua's
// internal/shard package shaping the Go naming (Shard, New, Status) for a
// component that, unlike torua's, owns no locks at all — correctness
// here comes from never sharing a Shard across goroutines, not from
// mutual exclusion.
package shard

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/labeldex/internal/index"
	"github.com/dreamware/labeldex/internal/lexer"
	"github.com/dreamware/labeldex/internal/record"
	"github.com/dreamware/labeldex/internal/store"
	"github.com/dreamware/labeldex/internal/symbol"
	"github.com/dreamware/labeldex/internal/telemetry"
)

// Kind discriminates a Request (spec §4.7's "request variants").
type Kind int

const (
	// KindRawAdd parses and inserts one ingest line; fire-and-forget.
	KindRawAdd Kind = iota
	// KindStatus reports this shard's size statistics.
	KindStatus
	// KindSearch evaluates a selector and streams matching records.
	KindSearch
	// KindKeyValuesSearch evaluates a label_values query and streams
	// distinct values.
	KindKeyValuesSearch
)

// Request is one unit of work enqueued onto a shard's channel. Exactly
// the fields relevant to Kind are populated; the fan-out requests
// (Search, KeyValuesSearch) share response channels across every shard
// and signal completion via Done, since a Go channel — unlike the
// original's crossbeam Sender — does not close itself when the last
// goroutine stops sending to it.
type Request struct {
	Kind Kind

	Line      string
	Selector  record.Selector
	KeyValues record.KeyValuesQuery

	StatusResp chan<- Status
	RecordResp chan<- *record.Record
	ValueResp  chan<- string
	Done       *sync.WaitGroup
}

// Status summarizes one shard's size for the /status HTTP endpoint (spec
// §6), grounded on the original's RecordStoreStatus/IndexStatus, which
// report per-field cardinalities rather than just an aggregate field
// count (SPEC_FULL §4, "Per-shard status reporting").
type Status struct {
	ID               int            `json:"id"`
	Store            store.Status   `json:"store"`
	FieldCount       int            `json:"field_count"`
	FieldCardinality map[string]int `json:"field_cardinality"`
	SymbolCount      int            `json:"symbol_count"`
}

// Shard owns one symbol table, record store, and inverted index. It must
// be driven by exactly one goroutine calling Run; every other method is
// unsafe to call concurrently with Run.
type Shard struct {
	id        int
	symbols   *symbol.Table
	store     *store.Store
	index     *index.Index
	telemetry telemetry.Sink
	log       *zap.SugaredLogger
}

// New constructs a shard. log should already be tagged with the shard's
// id (e.g. via log.With("shard", id)).
func New(id int, sink telemetry.Sink, log *zap.SugaredLogger) *Shard {
	return &Shard{
		id:        id,
		symbols:   symbol.New(),
		store:     store.New(),
		index:     index.New(),
		telemetry: sink,
		log:       log,
	}
}

// Run drains reqs until the channel is closed, processing requests
// strictly in enqueue order (spec §5: "operations are strictly
// serialized in channel-enqueue order").
func (s *Shard) Run(reqs <-chan Request) {
	for req := range reqs {
		s.process(req)
	}
}

func (s *Shard) process(req Request) {
	switch req.Kind {
	case KindRawAdd:
		s.handleRawAdd(req.Line)
	case KindStatus:
		req.StatusResp <- s.status()
	case KindSearch:
		defer req.Done.Done()
		s.handleSearch(req.Selector, req.RecordResp)
	case KindKeyValuesSearch:
		defer req.Done.Done()
		s.handleKeyValues(req.KeyValues, req.ValueResp)
	}
}

// handleRawAdd parses line and inserts it, logging and discarding on a
// parse failure rather than aborting ingest (spec §6).
func (s *Shard) handleRawAdd(line string) {
	start := time.Now()
	defer func() { s.telemetry.Observe(telemetry.OpRawAdd, time.Since(start)) }()

	raw, err := lexer.ParseRecord(line)
	if err != nil {
		s.log.Warnw("discarding unparseable record", "line", line, "error", err)
		return
	}
	s.add(raw)
}

// add interns raw's pairs, stores the record (a no-op on duplicate
// content), and indexes it on a successful insert (spec §4.3, §4.4).
func (s *Shard) add(raw *record.Raw) (uint32, bool) {
	start := time.Now()
	defer func() { s.telemetry.Observe(telemetry.OpAdd, time.Since(start)) }()

	interned := make([]record.InternedPair, len(raw.Pairs))
	for i, p := range raw.Pairs {
		interned[i] = record.InternedPair{Key: s.symbols.Intern(p.Key), Val: s.symbols.Intern(p.Val)}
	}
	rec := record.New(interned)

	id, ok := s.store.Add(rec)
	if !ok {
		return 0, false
	}
	s.index.Insert(id, rec)
	return id, true
}

// handleSearch evaluates sel and streams every matching record to out.
// A zero-predicate selector is the planner's match-all case, served
// directly from the store (spec §4.6) rather than the index.
func (s *Shard) handleSearch(sel record.Selector, out chan<- *record.Record) {
	start := time.Now()
	defer func() { s.telemetry.Observe(telemetry.OpSearch, time.Since(start)) }()

	if len(sel.Predicates) == 0 {
		for _, rec := range s.store.GetAll(index.DefaultMatchAllLimit) {
			out <- rec
		}
		return
	}

	matched, err := s.index.Search(sel)
	if err != nil {
		s.log.Errorw("search failed", "selector", sel.String(), "error", err)
		return
	}
	for _, rec := range s.store.MultiGet(matched.ToSlice()) {
		out <- rec
	}
}

// handleKeyValues evaluates q and streams every distinct value to out.
// The Dirty path (spec §4.4 step 3) is resolved here, since only the
// shard has direct access to the store needed to post-filter records.
func (s *Shard) handleKeyValues(q record.KeyValuesQuery, out chan<- string) {
	start := time.Now()
	defer func() { s.telemetry.Observe(telemetry.OpKeyValuesSearch, time.Since(start)) }()

	res, err := s.index.KeyValues(q)
	if err != nil {
		s.log.Errorw("key_values_search failed", "query", q.String(), "error", err)
		return
	}

	switch res.Kind {
	case index.KeyValuesExact:
		for _, v := range res.Values {
			out <- v
		}
	case index.KeyValuesDirty:
		seen := make(map[string]bool)
		for _, rec := range s.store.MultiGet(res.IDs.ToSlice()) {
			for _, pair := range rec.Pairs {
				if pair.Key.Text() != q.KeyField {
					continue
				}
				v := pair.Val.Text()
				if !seen[v] {
					seen[v] = true
					out <- v
				}
				break
			}
		}
	}
}

func (s *Shard) status() Status {
	return Status{
		ID:               s.id,
		Store:            s.store.GetStatus(),
		FieldCount:       s.index.FieldCount(),
		FieldCardinality: s.index.FieldCardinalities(),
		SymbolCount:      s.symbols.Len(),
	}
}
