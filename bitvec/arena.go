package bitvec

// Arena packs n fixed-width signatures of bitsPerSig bits each into one
// contiguous []uint64 allocation, avoiding the per-signature allocation
// (and resulting GC pressure) that n independent Vectors would incur when n
// is the number of cells in a large subset view.
type Arena struct {
	words       []uint64
	wordsPerSig int
	bitsPerSig  int
	n           int
}

// NewArena allocates an arena for n signatures of bitsPerSig bits each.
func NewArena(n, bitsPerSig int) *Arena {
	wps := wordsFor(bitsPerSig)
	return &Arena{
		words:       make([]uint64, wps*n),
		wordsPerSig: wps,
		bitsPerSig:  bitsPerSig,
		n:           n,
	}
}

// Len returns the number of signatures in the arena.
func (a *Arena) Len() int { return a.n }

// BitsPerSignature returns the configured signature width.
func (a *Arena) BitsPerSignature() int { return a.bitsPerSig }

// Signature returns a Vector view of the i-th signature. The Vector aliases
// the arena's backing slab; mutations through it are visible in the arena.
func (a *Arena) Signature(i int) Vector {
	start := i * a.wordsPerSig
	return Vector{words: a.words[start : start+a.wordsPerSig], nbits: a.bitsPerSig}
}

// Hamming returns the Hamming distance between signatures i and j.
func (a *Arena) Hamming(i, j int) int {
	return CountMismatches(a.Signature(i), a.Signature(j))
}
