// Package infocontent computes Shannon-entropy-style gene information
// content over a (gene-set, cell-set, normalization) triple and derives a
// gene-set of the genes exceeding a threshold, per spec §4.8.
package infocontent

import (
	"math"

	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
	"github.com/HIM72/ExpressionMatrix2/subset"
)

// Normalization selects the whole-cell scaling applied to expression counts
// before they contribute to a gene's information content.
type Normalization int

const (
	None Normalization = iota
	L1
	L2
)

// scale returns the per-cell multiplier for norm, using the store's
// precomputed reciprocals so no division happens on this path.
func scale(st *store.Store, c store.CellId, norm Normalization) float64 {
	switch norm {
	case L1:
		return st.Norm1Inverse(c)
	case L2:
		return st.Norm2Inverse(c)
	default:
		return 1
	}
}

// Compute returns, for every gene in view.Genes (same order), its
// information content in bits over view's cell-set under norm:
//
//	I(g) = log|C| + Σ_{c∈C, x_{c,g}>0} p_c·log(p_c),  p_c = x_{c,g} / Σ_{c'∈C} x_{c',g}
//
// Sums accumulate in double precision; the result is converted to bits by
// dividing by log 2.
func Compute(st *store.Store, view *subset.View, norm Normalization) []float64 {
	numGenes := view.NumGenes()
	numCells := view.NumCells()
	total := make([]float64, numGenes)
	values := make([][]float64, numGenes)

	for i := 0; i < numCells; i++ {
		c := view.CellId(i)
		s := scale(st, c, norm)
		for _, e := range view.Row(i) {
			v := float64(e.Count) * s
			if v <= 0 {
				continue
			}
			total[e.LocalGene] += v
			values[e.LocalGene] = append(values[e.LocalGene], v)
		}
	}

	logC := math.Log(float64(numCells))
	result := make([]float64, numGenes)
	for g := 0; g < numGenes; g++ {
		entropy := 0.0
		for _, v := range values[g] {
			p := v / total[g]
			entropy += p * math.Log(p)
		}
		result[g] = (logC + entropy) / math.Log(2)
	}
	return result
}

// Select returns the subset of view.Genes with information content strictly
// greater than threshold bits, preserving the sorted order of view.Genes. An
// empty gene-set or empty cell-set in view produces an empty GeneSet with no
// error: Compute's entropy sum is vacuous in both cases, so no gene clears
// threshold.
func Select(st *store.Store, view *subset.View, norm Normalization, threshold float64) (sets.GeneSet, error) {
	ic := Compute(st, view, norm)
	var genes []store.GeneId
	for g, v := range ic {
		if v > threshold {
			genes = append(genes, view.Genes.Genes[g])
		}
	}
	return sets.GeneSet{Genes: genes}, nil
}
