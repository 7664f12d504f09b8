// Package subset builds a (gene-set, cell-set) projection of the expression
// store that reindexes expression counts to dense local gene ids and
// precomputes per-cell sums restricted to the gene-set, so similarity and
// LSH kernels never have to touch the full store, per spec §4.4.
package subset

import (
	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
)

// Entry is one non-zero expression entry within a View, keyed by the
// gene-set-local id rather than the store's global GeneId.
type Entry struct {
	LocalGene int
	Count     float32
}

// View is a dense, local-id projection of a gene-set x cell-set slice of the
// store's expression matrix.
type View struct {
	Genes sets.GeneSet
	Cells sets.CellSet

	rows []([]Entry)
	sum1 []float64
	sum2 []float64
}

// NewView builds the projection by intersecting each selected cell's sparse
// expression row against the gene-set, both already sorted by GeneId — the
// same sorted-merge pattern package sets uses for set intersection, applied
// here to suppress genes outside G rather than to intersect two id lists.
func NewView(st *store.Store, genes sets.GeneSet, cells sets.CellSet) *View {
	v := &View{
		Genes: genes,
		Cells: cells,
		rows:  make([][]Entry, len(cells.Cells)),
		sum1:  make([]float64, len(cells.Cells)),
		sum2:  make([]float64, len(cells.Cells)),
	}
	for i, c := range cells.Cells {
		full := st.ExpressionCounts(c)
		var row []Entry
		var s1, s2 float64
		gi := 0
		for _, e := range full {
			for gi < len(genes.Genes) && genes.Genes[gi] < e.Gene {
				gi++
			}
			if gi == len(genes.Genes) {
				break
			}
			if genes.Genes[gi] == e.Gene {
				row = append(row, Entry{LocalGene: gi, Count: e.Count})
				val := float64(e.Count)
				s1 += val
				s2 += val * val
			}
		}
		v.rows[i] = row
		v.sum1[i] = s1
		v.sum2[i] = s2
	}
	return v
}

// NumCells returns the number of cells in the view.
func (v *View) NumCells() int { return len(v.Cells.Cells) }

// NumGenes returns the number of genes in the view.
func (v *View) NumGenes() int { return len(v.Genes.Genes) }

// Row returns the gene-set-restricted expression entries for local cell
// index i, sorted by LocalGene.
func (v *View) Row(i int) []Entry { return v.rows[i] }

// Sum1 and Sum2 return the gene-set-restricted scalar sums for local cell
// index i.
func (v *View) Sum1(i int) float64 { return v.sum1[i] }
func (v *View) Sum2(i int) float64 { return v.sum2[i] }

// CellId returns the global CellId backing local cell index i.
func (v *View) CellId(i int) store.CellId { return v.Cells.Cells[i] }
