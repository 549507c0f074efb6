package math32

import "math/bits"

// Bitset is a fixed-capacity bit array. The voxelizer sizes one to its
// grid's voxel count up front (the tile dimensions are known before
// rasterization starts), so unlike a growable set there is no resize path:
// out-of-range writes are discarded and out-of-range reads are false, which
// is exactly the clamp-at-the-grid-edge behavior dilation wants.
type Bitset struct {
	words []uint64
	bits  int
}

// NewBitset allocates a zeroed set holding n bits.
func NewBitset(n int) Bitset {
	if n <= 0 {
		return Bitset{}
	}
	return Bitset{words: make([]uint64, (n+63)/64), bits: n}
}

// Len returns the capacity in bits.
func (b Bitset) Len() int {
	return b.bits
}

// Test reports whether bit i is set; false out of range.
func (b Bitset) Test(i uint32) bool {
	if int(i) >= b.bits {
		return false
	}
	return b.words[i>>6]&(1<<(i&63)) != 0
}

// Set sets bit i; out-of-range indices are ignored.
func (b *Bitset) Set(i uint32) {
	if int(i) >= b.bits {
		return
	}
	b.words[i>>6] |= 1 << (i & 63)
}

// Clear clears bit i; out-of-range indices are ignored.
func (b *Bitset) Clear(i uint32) {
	if int(i) >= b.bits {
		return
	}
	b.words[i>>6] &^= 1 << (i & 63)
}

// Count returns how many bits are set — the voxelizer reports this as the
// blocked-voxel total per generated tile.
func (b Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clone returns an independent copy, used by dilation to read the
// pre-dilation occupancy while writing the dilated set in place.
func (b Bitset) Clone() Bitset {
	out := Bitset{words: make([]uint64, len(b.words)), bits: b.bits}
	copy(out.words, b.words)
	return out
}
