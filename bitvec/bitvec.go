// Package bitvec implements fixed-width bit vectors packed into 64-bit
// words, with bit 0 defined as the most-significant bit of word 0 (so
// lexicographic order on the bit string equals integer order on the words),
// and a contiguous Arena type that packs many same-width signatures
// back-to-back in one allocation — the representation the LSH engine uses
// for per-cell signature bits.
//
// No example library in this project's dependency survey offers this exact
// MSB-first, arbitrary-width packed layout with popcount-based Hamming
// distance (github.com/grailbio/base/bitset, used by circular/bitmap.go, is
// tuned for byte-granularity circular scans); this package follows the
// precedent of hand-coding a bit-level algorithm (biosimd) when no example
// library supplies the exact shape needed, bottoming out on
// math/bits.OnesCount64 the same way that SIMD fallback does.
package bitvec

import "math/bits"

const wordBits = 64

// Vector is a view over nbits bits stored MSB-first in words. It does not
// own its backing storage; Arena.Signature returns Vectors that alias the
// arena's slab.
type Vector struct {
	words []uint64
	nbits int
}

// New allocates a standalone Vector of nbits bits, all initially clear.
func New(nbits int) Vector {
	return Vector{words: make([]uint64, wordsFor(nbits)), nbits: nbits}
}

func wordsFor(nbits int) int {
	return (nbits + wordBits - 1) / wordBits
}

func bitLocation(i int) (word int, mask uint64) {
	word = i / wordBits
	shift := wordBits - 1 - i%wordBits
	return word, uint64(1) << uint(shift)
}

// Len returns the number of bits in the vector.
func (v Vector) Len() int { return v.nbits }

// Get returns the value of bit i.
func (v Vector) Get(i int) bool {
	w, mask := bitLocation(i)
	return v.words[w]&mask != 0
}

// Set sets bit i to 1.
func (v Vector) Set(i int) {
	w, mask := bitLocation(i)
	v.words[w] |= mask
}

// Clear sets bit i to 0.
func (v Vector) Clear(i int) {
	w, mask := bitLocation(i)
	v.words[w] &^= mask
}

// PutBit sets bit i to val.
func (v Vector) PutBit(i int, val bool) {
	if val {
		v.Set(i)
	} else {
		v.Clear(i)
	}
}

// GetBits returns the values of the bits at positions, in order.
func (v Vector) GetBits(positions []int) []bool {
	out := make([]bool, len(positions))
	for i, p := range positions {
		out[i] = v.Get(p)
	}
	return out
}

// Words exposes the backing words, for callers (e.g. the LSH signature
// builder) that want to fill a Vector word-at-a-time.
func (v Vector) Words() []uint64 { return v.words }

// CountMismatches returns the Hamming distance between a and b: the number
// of bit positions at which they differ. a and b must have equal length.
func CountMismatches(a, b Vector) int {
	if a.nbits != b.nbits {
		panic("bitvec: CountMismatches on vectors of different length")
	}
	total := 0
	for i := range a.words {
		total += bits.OnesCount64(a.words[i] ^ b.words[i])
	}
	return total
}
