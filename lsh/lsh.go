// Package lsh implements the random-hyperplane Locality-Sensitive Hashing
// engine: per-cell signature bit vectors whose Hamming distance estimates
// angular (and hence Pearson) similarity, per spec §4.6.
package lsh

import (
	"context"
	"math"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"

	"github.com/HIM72/ExpressionMatrix2/bitvec"
	"github.com/HIM72/ExpressionMatrix2/mt19937"
	"github.com/HIM72/ExpressionMatrix2/subset"
)

// Model is an LSH model over a fixed subset view: L random unit hyperplanes
// in gene space, ready to sign any cell of the view.
type Model struct {
	view        *subset.View
	bitCount    int
	hyperplanes [][]float64 // L vectors of length NumGenes, unit L2 norm.
	sums        []float64   // S_j = Σ_g U_{j,g}, per hyperplane.
}

// NewModel draws bitCount random unit hyperplanes in the view's gene space,
// seeded deterministically by seed via the Mersenne Twister, per spec §4.6
// step 1.
func NewModel(view *subset.View, bitCount int, seed uint64) *Model {
	m := view.NumGenes()
	rng := rand.New(mt19937.New(seed))
	hyperplanes := make([][]float64, bitCount)
	sums := make([]float64, bitCount)
	for j := 0; j < bitCount; j++ {
		vec := make([]float64, m)
		var norm2 float64
		for g := 0; g < m; g++ {
			v := rng.NormFloat64()
			vec[g] = v
			norm2 += v * v
		}
		norm := math.Sqrt(norm2)
		var sum float64
		if norm > 0 {
			for g := range vec {
				vec[g] /= norm
				sum += vec[g]
			}
		}
		hyperplanes[j] = vec
		sums[j] = sum
	}
	return &Model{view: view, bitCount: bitCount, hyperplanes: hyperplanes, sums: sums}
}

// BitCount returns L, the signature width in bits.
func (m *Model) BitCount() int { return m.bitCount }

// signCell computes the j-th signature bit for local cell index i: the sign
// of the centered scalar product ⟨U_j, x_c - μ_c·1⟩, exploiting sparsity by
// starting from -μ_c·S_j and only touching the cell's non-zero genes.
func (m *Model) signCell(i, j int) bool {
	row := m.view.Row(i)
	mu := m.view.Sum1(i) / float64(m.view.NumGenes())
	scalar := -mu * m.sums[j]
	u := m.hyperplanes[j]
	for _, e := range row {
		scalar += float64(e.Count) * u[e.LocalGene]
	}
	return scalar > 0
}

// Signatures computes the LSH signature of every cell in the view,
// partitioned across a worker pool with traverse.Each so the kernel is
// parallel and cooperatively cancellable at cell granularity, per spec
// §4.11. The result is bit-for-bit deterministic given (view, seed,
// bitCount).
func (m *Model) Signatures(ctx context.Context) (*bitvec.Arena, error) {
	n := m.view.NumCells()
	arena := bitvec.NewArena(n, m.bitCount)
	err := traverse.Each(n, func(i int) error {
		if ctx.Err() != nil {
			return errors.E(errors.Canceled, ctx.Err())
		}
		sig := arena.Signature(i)
		for j := 0; j < m.bitCount; j++ {
			sig.PutBit(j, m.signCell(i, j))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arena, nil
}

// EstimatedCorrelation converts a Hamming distance between two L-bit
// signatures to an estimated Pearson correlation via the angle
// approximation of spec §4.6 step 3.
func EstimatedCorrelation(hamming, bitCount int) float64 {
	angle := math.Pi * float64(hamming) / float64(bitCount)
	return math.Cos(angle)
}
