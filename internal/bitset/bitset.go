// Package bitset provides fixed-universe sets of gene or pathway indices.
package bitset

import (
	"fmt"
	"strings"

	bits "github.com/bits-and-blooms/bitset"
)

// BitSet is a set of indices drawn from a fixed universe [0, Len()).
// Every set taking part in one operation must share the same universe.
type BitSet struct {
	bits *bits.BitSet
	size uint
}

// New creates an empty set over a universe of n indices
func New(n int) *BitSet {
	return &BitSet{bits: bits.New(uint(n)), size: uint(n)}
}

// Parse builds a set from a membership string such as "0110".
// Character i is the membership flag of index i.
func Parse(s string) (*BitSet, error) {
	b := New(len(s))
	for i, c := range s {
		switch c {
		case '1':
			b.bits.Set(uint(i))
		case '0':
		default:
			return nil, fmt.Errorf("invalid character %q at position %d", c, i)
		}
	}
	return b, nil
}

// FromIndices creates a set over n indices with the given members
func FromIndices(n int, indices ...int) *BitSet {
	b := New(n)
	for _, i := range indices {
		b.Set(i)
	}
	return b
}

// Len returns the size of the universe
func (b *BitSet) Len() int {
	return int(b.size)
}

// Count returns the number of members
func (b *BitSet) Count() int {
	return int(b.bits.Count())
}

// Any reports whether the set has at least one member
func (b *BitSet) Any() bool {
	return b.bits.Any()
}

// Test reports membership of index i
func (b *BitSet) Test(i int) bool {
	return b.bits.Test(uint(i))
}

// Set adds index i
func (b *BitSet) Set(i int) {
	b.bits.Set(uint(i))
}

// Clear removes index i
func (b *BitSet) Clear(i int) {
	b.bits.Clear(uint(i))
}

// Reset removes every member
func (b *BitSet) Reset() {
	b.bits.ClearAll()
}

// Union returns a new set holding the members of b and o
func (b *BitSet) Union(o *BitSet) *BitSet {
	return &BitSet{bits: b.bits.Union(o.bits), size: b.size}
}

// UnionWith adds the members of o to b
func (b *BitSet) UnionWith(o *BitSet) {
	b.bits.InPlaceUnion(o.bits)
}

// Intersection returns a new set holding the members common to b and o
func (b *BitSet) Intersection(o *BitSet) *BitSet {
	return &BitSet{bits: b.bits.Intersection(o.bits), size: b.size}
}

// IntersectionCount returns the number of members common to b and o
func (b *BitSet) IntersectionCount(o *BitSet) int {
	return int(b.bits.IntersectionCardinality(o.bits))
}

// IsSubsetOf reports whether every member of b is also in o.
// The empty set is a subset of every set.
func (b *BitSet) IsSubsetOf(o *BitSet) bool {
	return o.bits.IsSuperSet(b.bits)
}

// CopyFrom overwrites b with the members of o without allocating
func (b *BitSet) CopyFrom(o *BitSet) {
	o.bits.CopyFull(b.bits)
	b.size = o.size
}

// Clone returns an independent copy
func (b *BitSet) Clone() *BitSet {
	return &BitSet{bits: b.bits.Clone(), size: b.size}
}

// Equal reports whether b and o have the same universe and members
func (b *BitSet) Equal(o *BitSet) bool {
	if b.size != o.size {
		return false
	}
	return b.bits.Count() == o.bits.Count() && b.bits.IntersectionCardinality(o.bits) == b.bits.Count()
}

// ForEach calls fn for every member in ascending order
func (b *BitSet) ForEach(fn func(i int)) {
	for i, ok := b.bits.NextSet(0); ok; i, ok = b.bits.NextSet(i + 1) {
		fn(int(i))
	}
}

// Indices returns the members in ascending order
func (b *BitSet) Indices() []int {
	out := make([]int, 0, b.Count())
	b.ForEach(func(i int) {
		out = append(out, i)
	})
	return out
}

// String renders the set in the same form Parse accepts
func (b *BitSet) String() string {
	var sb strings.Builder
	sb.Grow(int(b.size))
	for i := uint(0); i < b.size; i++ {
		if b.bits.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
