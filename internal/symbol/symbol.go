// Package symbol implements per-shard string interning, deduplicating the
// label-key and label-value strings that appear across a shard's records
// into shared, immutable handles.
//
// A Table is owned by exactly one shard and is never touched by another
// goroutine, so lookups and inserts need no locking (see spec §4.2 and §5:
// the shard architecture replaces locking with single-goroutine ownership).
// Handles returned by the same Table for the same text are always the same
// pointer, so callers may compare handles by identity as a fast path and
// fall back to Handle.Text() equality only when comparing handles minted by
// different Tables (e.g. in tests).
package symbol

// Handle is an interned, reference-counted-by-the-runtime string. Two
// Handles minted by the same Table for equal input strings are the same
// pointer.
type Handle struct {
	text string
}

// Text returns the interned string.
func (h *Handle) Text() string {
	if h == nil {
		return ""
	}
	return h.text
}

func (h *Handle) String() string {
	return h.Text()
}

// Table interns strings for a single shard. Zero value is not usable; use
// New.
type Table struct {
	handles map[string]*Handle
}

// New creates an empty interning table with a pre-sized bucket count,
// tuned for the typical number of distinct label keys/values a shard sees
// early in its life.
func New() *Table {
	return &Table{handles: make(map[string]*Handle, 1024)}
}

// Intern returns the Handle for s, creating and caching one on first
// occurrence. Interning is append-only for the process lifetime: handles
// are never evicted or freed (spec §3, §9 "Symbol interning is append-only").
func (t *Table) Intern(s string) *Handle {
	if h, ok := t.handles[s]; ok {
		return h
	}
	h := &Handle{text: s}
	t.handles[s] = h
	return h
}

// Lookup returns the existing Handle for s without creating one, reporting
// whether it was found. Unlike Intern, a miss leaves the table unchanged.
func (t *Table) Lookup(s string) (*Handle, bool) {
	h, ok := t.handles[s]
	return h, ok
}

// Len reports the number of distinct interned strings, exposed for
// per-shard status reporting (SPEC_FULL §4).
func (t *Table) Len() int {
	return len(t.handles)
}
