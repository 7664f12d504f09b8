// Package sets implements named, sorted gene-sets and cell-sets over the
// global ids of a store.Store: regex and explicit-name-list selection,
// meta-data predicate selection, union/intersection/difference, and seeded
// random down-sampling. Every operation is total and deterministic, per
// spec §4.3.
package sets

import (
	"sort"

	"github.com/HIM72/ExpressionMatrix2/store"
)

// GeneSet is an ordered (ascending), duplicate-free list of global GeneIds.
// Position in Genes is the local id used by subset views and numeric
// kernels.
type GeneSet struct {
	Name  string
	Genes []store.GeneId
}

// CellSet is an ordered (ascending), duplicate-free list of global CellIds.
type CellSet struct {
	Name  string
	Cells []store.CellId
}

// Len returns the number of genes in the set.
func (g GeneSet) Len() int { return len(g.Genes) }

// Len returns the number of cells in the set.
func (c CellSet) Len() int { return len(c.Cells) }

// LocalId returns id's position within the set, if present.
func (g GeneSet) LocalId(id store.GeneId) (int, bool) {
	i := sort.Search(len(g.Genes), func(i int) bool { return g.Genes[i] >= id })
	if i < len(g.Genes) && g.Genes[i] == id {
		return i, true
	}
	return 0, false
}

// LocalId returns id's position within the set, if present.
func (c CellSet) LocalId(id store.CellId) (int, bool) {
	i := sort.Search(len(c.Cells), func(i int) bool { return c.Cells[i] >= id })
	if i < len(c.Cells) && c.Cells[i] == id {
		return i, true
	}
	return 0, false
}
