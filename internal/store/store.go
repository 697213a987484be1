// Package store implements the per-shard record store: the chunked id
// allocator and the content-hash dedup map (spec §4.3). It is ported from
// the original's store/mod.rs IdChunk/ChunkedIdStore/RecordStore
// (_examples/original_source/src/store/mod.rs), correcting get_all to
// iterate every chunk instead of only the last one, per spec §4.3's
// "iteration visits records in id order across all chunks."
package store

import "github.com/dreamware/labeldex/internal/record"

// chunkSize is the number of records per chunk; a record id packs the
// chunk index into the high 16 bits and the in-chunk offset into the low
// 16 bits (spec §4.3).
const chunkSize = 1 << 16

// idChunk holds up to chunkSize records, in insertion order.
type idChunk struct {
	records []*record.Record
}

func newIDChunk() *idChunk {
	return &idChunk{records: make([]*record.Record, 0, chunkSize)}
}

// push appends rec and returns its offset within the chunk, or false if
// the chunk is already full.
func (c *idChunk) push(rec *record.Record) (uint16, bool) {
	if len(c.records) >= chunkSize {
		return 0, false
	}
	c.records = append(c.records, rec)
	return uint16(len(c.records) - 1), true
}

func (c *idChunk) get(offset uint16) (*record.Record, bool) {
	if int(offset) >= len(c.records) {
		return nil, false
	}
	return c.records[offset], true
}

// chunkedIDStore is an append-only sequence of records addressed by a
// 32-bit id encoding (chunk << 16 | offset) (spec §4.3).
type chunkedIDStore struct {
	chunks []*idChunk
}

func newChunkedIDStore() *chunkedIDStore {
	return &chunkedIDStore{}
}

func (s *chunkedIDStore) push(rec *record.Record) uint32 {
	if len(s.chunks) == 0 {
		s.chunks = append(s.chunks, newIDChunk())
	}
	offset, ok := s.chunks[len(s.chunks)-1].push(rec)
	if !ok {
		c := newIDChunk()
		offset, _ = c.push(rec)
		s.chunks = append(s.chunks, c)
	}
	chunkIdx := uint32(len(s.chunks) - 1)
	return (chunkIdx << 16) | uint32(offset)
}

func (s *chunkedIDStore) get(id uint32) (*record.Record, bool) {
	chunkIdx := int(id >> 16)
	offset := uint16(id & 0xFFFF)
	if chunkIdx < 0 || chunkIdx >= len(s.chunks) {
		return nil, false
	}
	return s.chunks[chunkIdx].get(offset)
}

// len reports the total element count as (chunks-1)*chunkSize +
// len(lastChunk) (spec §4.3).
func (s *chunkedIDStore) len() int {
	if len(s.chunks) == 0 {
		return 0
	}
	return (len(s.chunks)-1)*chunkSize + len(s.chunks[len(s.chunks)-1].records)
}

// each visits records in id order across all chunks, stopping early if fn
// returns false.
func (s *chunkedIDStore) each(fn func(rec *record.Record) bool) {
	for _, c := range s.chunks {
		for _, rec := range c.records {
			if !fn(rec) {
				return
			}
		}
	}
}

// dedupEntry is one content-hash bucket entry: a hash collision between
// two distinct records is possible (FNV-64a, not cryptographic), so every
// candidate in the bucket is checked with record.Equal before accepting a
// match as a true duplicate.
type dedupEntry struct {
	id  uint32
	rec *record.Record
}

// Store is the per-shard record store: one chunked id allocator plus a
// content-hash dedup index (spec §4.3).
type Store struct {
	ids    *chunkedIDStore
	hashes map[uint64][]dedupEntry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ids:    newChunkedIDStore(),
		hashes: make(map[uint64][]dedupEntry),
	}
}

// Add inserts rec unless a content-identical record already exists, in
// which case it returns ok=false and no id is allocated (spec §4.3,
// §7: "not an error; the inserter learns via an explicit Duplicate
// result that no id was allocated").
func (s *Store) Add(rec *record.Record) (id uint32, ok bool) {
	h := rec.Hash()
	for _, e := range s.hashes[h] {
		if e.rec.Equal(rec) {
			return 0, false
		}
	}
	id = s.ids.push(rec)
	s.hashes[h] = append(s.hashes[h], dedupEntry{id: id, rec: rec})
	return id, true
}

// Get returns the record stored at id, or ok=false if id is out of range
// (spec §4.3).
func (s *Store) Get(id uint32) (*record.Record, bool) {
	return s.ids.get(id)
}

// MultiGet performs a best-effort batch lookup, silently skipping misses
// (spec §4.3, §7: "misses are not expected in normal operation").
func (s *Store) MultiGet(ids []uint32) []*record.Record {
	out := make([]*record.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// GetAll iterates the id space in insertion order up to limit (spec
// §4.3, §4.6: used by match-all queries).
func (s *Store) GetAll(limit int) []*record.Record {
	out := make([]*record.Record, 0, limit)
	s.ids.each(func(rec *record.Record) bool {
		if len(out) >= limit {
			return false
		}
		out = append(out, rec)
		return true
	})
	return out
}

// Len reports the total number of stored records.
func (s *Store) Len() int {
	return s.ids.len()
}

// Status summarizes per-shard store size for the /status HTTP endpoint
// (spec §6, the original's RecordStoreStatus).
type Status struct {
	RecordCount  int `json:"record_count"`
	DedupBuckets int `json:"dedup_buckets"`
}

// GetStatus reports the store's size characteristics.
func (s *Store) GetStatus() Status {
	return Status{
		RecordCount:  s.Len(),
		DedupBuckets: len(s.hashes),
	}
}
