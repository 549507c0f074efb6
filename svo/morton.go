package svo

import (
	"math/bits"

	"github.com/o0olele/svonav/math32"
)

// MortonCode is a bit-interleaved encoding of a (x,y,z) coordinate triple,
// yielding space-filling-curve order. Components must lie in [0,63] (6 bits
// per axis), so the result fits in 18 bits.
type MortonCode uint32

// CoordMax is the largest coordinate component Morton encoding accepts.
const CoordMax = 63

// EncodeMorton interleaves the bits of a coordinate triple into a Morton
// code. Components must lie in [0,63] (callers must pre-clamp; out-of-range
// input is a programming error, not a runtime one).
func EncodeMorton(c math32.Vector3i) MortonCode {
	return MortonCode(splitBy3(uint32(c.X)) | splitBy3(uint32(c.Y))<<1 | splitBy3(uint32(c.Z))<<2)
}

// DecodeMorton is the inverse of EncodeMorton.
func DecodeMorton(m MortonCode) math32.Vector3i {
	return math32.Vector3i{
		X: int32(compact1By2(uint32(m))),
		Y: int32(compact1By2(uint32(m) >> 1)),
		Z: int32(compact1By2(uint32(m) >> 2)),
	}
}

// splitBy3 spreads the low 6 bits of v two bits apart so three shifted
// copies can be OR'd together without overlapping.
func splitBy3(v uint32) uint32 {
	x := v & 0x3f
	x = (x | x<<8) & 0x0300f
	x = (x | x<<4) & 0x30c3
	x = (x | x<<2) & 0x9249
	return x
}

// compact1By2 is the inverse of splitBy3.
func compact1By2(x uint32) uint32 {
	x &= 0x9249
	x = (x ^ (x >> 2)) & 0x30c3
	x = (x ^ (x >> 4)) & 0x0300f
	x = (x ^ (x >> 8)) & 0x3f
	return x
}

// Direction indexes the six face directions plus the Self pseudo-direction
// used by compact neighbor encoding.
type Direction uint8

const (
	DirPosX Direction = iota
	DirPosY
	DirPosZ
	DirNegX
	DirNegY
	DirNegZ
	DirSelf // same-tile neighbor, not an outward face direction
	dirCount
)

// opposite maps each face direction to the one facing back at it.
var opposite = [6]Direction{DirNegX, DirNegY, DirNegZ, DirPosX, DirPosY, DirPosZ}

// Opposite returns the direction facing back along d. Panics if d is
// DirSelf or out of range — callers only call this on real face directions.
func (d Direction) Opposite() Direction {
	return opposite[d]
}

// Delta returns the unit coordinate step for a face direction.
func (d Direction) Delta() math32.Vector3i {
	switch d {
	case DirPosX:
		return math32.Vector3i{X: 1}
	case DirNegX:
		return math32.Vector3i{X: -1}
	case DirPosY:
		return math32.Vector3i{Y: 1}
	case DirNegY:
		return math32.Vector3i{Y: -1}
	case DirPosZ:
		return math32.Vector3i{Z: 1}
	case DirNegZ:
		return math32.Vector3i{Z: -1}
	}
	return math32.Vector3i{}
}

// StepCoord moves c one unit along d within [0, CoordMax] per axis, and
// reports whether the step stayed in range. On overflow the original coord
// is returned unchanged (saturation), matching spec.md §4.1's "returns the
// same code when wrapping would occur".
func StepCoord(c math32.Vector3i, d Direction) (math32.Vector3i, bool) {
	delta := d.Delta()
	next := c.Add(delta)
	if next.X < 0 || next.X > CoordMax || next.Y < 0 || next.Y > CoordMax || next.Z < 0 || next.Z > CoordMax {
		return c, false
	}
	return next, true
}

// NextMorton returns the next Morton code >= code that lies inside the
// axis-aligned box [min,max] (inclusive), using the standard
// branch-on-bit/"litmax/bigmin" advance so an iterator never has to
// materialize codes outside the box. Where that bit-by-bit construction
// reaches a dead end, the next code is found by scanning upward from code.
// If no such code exists the result compares greater than EncodeMorton(max),
// signalling iteration is done.
func NextMorton(code MortonCode, min, max math32.Vector3i) MortonCode {
	maxCode := EncodeMorton(max)
	if DecodeMorton(code).InRange(min, max) {
		return code
	}

	// Greedy MSB-first digit construction (the interleaved-bit generalization
	// of BIGMIN): at each of the 18 interleaved bits we pick the smallest bit
	// value still consistent with (a) staying >= code while we haven't yet
	// diverged above it, and (b) staying within [min,max] on that bit's axis.
	// Once a bit diverges above code's matching bit, the "haven't diverged"
	// constraint drops away for every bit below it; once a bit diverges from
	// an axis bound, that axis's tightness drops the same way.
	minVal := [3]uint32{uint32(min.X), uint32(min.Y), uint32(min.Z)}
	maxVal := [3]uint32{uint32(max.X), uint32(max.Y), uint32(max.Z)}
	lit := uint32(code)

	tight := true
	loTight := [3]bool{true, true, true}
	hiTight := [3]bool{true, true, true}
	var result uint32

	for bit := 17; bit >= 0; bit-- {
		axis := bit % 3
		k := uint(bit / 3)

		litBit := (lit >> uint(bit)) & 1
		minBit := (minVal[axis] >> k) & 1
		maxBit := (maxVal[axis] >> k) & 1

		lower := uint32(0)
		if tight && litBit > lower {
			lower = litBit
		}
		if loTight[axis] && minBit > lower {
			lower = minBit
		}
		upper := uint32(1)
		if hiTight[axis] && maxBit < upper {
			upper = maxBit
		}
		b := lower
		if b > upper {
			b = upper
		}

		if tight && b > litBit {
			tight = false
		}
		if loTight[axis] && b > minBit {
			loTight[axis] = false
		}
		if hiTight[axis] && b < maxBit {
			hiTight[axis] = false
		}

		result |= b << uint(bit)
	}

	next := MortonCode(result)
	if next >= code && DecodeMorton(next).InRange(min, max) {
		return next
	}
	// The greedy pass reached a dead end (a bit forced below its lower
	// bound); scan upward for the first in-box code instead.
	for c := code; c <= maxCode; c++ {
		if DecodeMorton(c).InRange(min, max) {
			return c
		}
	}
	return maxCode + 1
}

// TileHash hashes a tile coordinate into a 32-bit tile id (reserving
// InvalidTileID). Coordinates are tile-grid coordinates, which may be
// negative — so the mix is FNV-1a over every byte of the three components.
func TileHash(coord math32.Vector3i) uint32 {
	h := uint32(2166136261)
	for _, v := range [3]int32{coord.X, coord.Y, coord.Z} {
		for shift := uint(0); shift < 32; shift += 8 {
			h = (h ^ (uint32(v)>>shift)&0xff) * 16777619
		}
	}
	if h == InvalidTileID {
		h--
	}
	return h
}

// CommonPrefixLength returns the number of leading bits shared by a and b,
// used by coarse spatial comparisons over Morton-ordered keys.
func CommonPrefixLength(a, b MortonCode) int {
	if a == b {
		return 32
	}
	return bits.LeadingZeros32(uint32(a ^ b))
}
