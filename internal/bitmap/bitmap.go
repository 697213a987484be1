// Package bitmap provides the posting-list representation used by the
// inverted index: a compressed, sorted set of record ids backed by
// RoaringBitmap (spec §3, Glossary "Roaring bitmap"). It narrows the
// upstream API down to the operations the index actually needs so callers
// don't depend on roaring's full surface.
package bitmap

import "github.com/RoaringBitmap/roaring/v2"

// Bitmap is a compressed sorted set of 32-bit record ids.
type Bitmap struct {
	rb *roaring.Bitmap
}

// New returns an empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Set adds id to the bitmap.
func (b *Bitmap) Set(id uint32) {
	b.rb.Add(id)
}

// Contains reports whether id is present.
func (b *Bitmap) Contains(id uint32) bool {
	return b.rb.Contains(id)
}

// Cardinality returns the number of set bits.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// IsEmpty reports whether the bitmap has no set bits.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Clone returns an independent copy, used whenever a predicate's posting
// list is handed to a caller that will mutate it in place (e.g. via
// AndInPlace/OrInPlace during intersection/union folds).
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// AndInPlace intersects other into b.
func (b *Bitmap) AndInPlace(other *Bitmap) {
	b.rb.And(other.rb)
}

// OrInPlace unions other into b.
func (b *Bitmap) OrInPlace(other *Bitmap) {
	b.rb.Or(other.rb)
}

// And returns a new bitmap holding the intersection of a and b, without
// mutating either operand.
func And(a, b *Bitmap) *Bitmap {
	return &Bitmap{rb: roaring.And(a.rb, b.rb)}
}

// ToSlice materializes the bitmap as a sorted slice of ids.
func (b *Bitmap) ToSlice() []uint32 {
	return b.rb.ToArray()
}

// Iterate calls fn for every set id in ascending order, stopping early if
// fn returns false.
func (b *Bitmap) Iterate(fn func(id uint32) bool) {
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}
