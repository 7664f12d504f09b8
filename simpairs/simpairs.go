// Package simpairs builds and persists the per-cell capped top-k similar
// neighbor index (SimilarPairs), exact or LSH-approximated, per spec §4.7.
package simpairs

import (
	"context"
	"math"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"

	"github.com/HIM72/ExpressionMatrix2/bitvec"
	"github.com/HIM72/ExpressionMatrix2/lsh"
	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/similarity"
	"github.com/HIM72/ExpressionMatrix2/store"
	"github.com/HIM72/ExpressionMatrix2/subset"
)

// Neighbor is one entry of a cell's top-k list.
type Neighbor struct {
	Cell       store.CellId
	Similarity float32
}

// Options configures a Build call.
type Options struct {
	K                   int
	SimilarityThreshold float64

	// UseLSH selects LSH-approximated similarity (Hamming-distance-derived)
	// over exact Pearson correlation.
	UseLSH      bool
	LSHBitCount int
	LSHSeed     uint64
}

// Index is a built, in-memory SimilarPairs object: for every cell in a
// frozen cell-set, up to K neighbors ordered by decreasing similarity.
type Index struct {
	Name        string
	GeneSetName string
	Genes       sets.GeneSet
	Cells       sets.CellSet
	Threshold   float64
	K           int
	Neighbors   [][]Neighbor // per local cell index.
}

// Build constructs a SimilarPairs index over view by enumerating all
// unordered cell pairs, computing exact or LSH-approximated similarity per
// opts.UseLSH, and inserting pairs whose similarity is at or above
// opts.SimilarityThreshold (NaN similarities excluded) into each endpoint's
// bounded top-k list. Work is partitioned by outer cell index and run with
// traverse.Each so the O(n²) enumeration parallelizes across cores and is
// cooperatively cancellable, per spec §4.11.
func Build(ctx context.Context, view *subset.View, genes sets.GeneSet, cells sets.CellSet, opts Options) (*Index, error) {
	n := view.NumCells()

	var arena *lshArena
	if opts.UseLSH {
		model := lsh.NewModel(view, opts.LSHBitCount, opts.LSHSeed)
		sigs, err := model.Signatures(ctx)
		if err != nil {
			return nil, err
		}
		arena = &lshArena{model: model, sigs: sigs}
	}

	lists := make([][]Neighbor, n)
	mus := make([]sync.Mutex, n)

	insert := func(local int, n Neighbor) {
		mus[local].Lock()
		lists[local] = insertTopK(lists[local], n, opts.K)
		mus[local].Unlock()
	}

	err := traverse.Each(n, func(i int) error {
		if ctx.Err() != nil {
			return errors.E(errors.Canceled, ctx.Err())
		}
		ai := similarity.FromViewRow(view.Row(i))
		for j := i + 1; j < n; j++ {
			var sim float64
			if opts.UseLSH {
				h := arena.sigs.Hamming(i, j)
				sim = lsh.EstimatedCorrelation(h, arena.model.BitCount())
			} else {
				bj := similarity.FromViewRow(view.Row(j))
				sim = similarity.Pearson(ai, bj, view.Sum1(i), view.Sum2(i), view.Sum1(j), view.Sum2(j), view.NumGenes())
			}
			if math.IsNaN(sim) || sim < opts.SimilarityThreshold {
				continue
			}
			insert(i, Neighbor{Cell: view.CellId(j), Similarity: float32(sim)})
			insert(j, Neighbor{Cell: view.CellId(i), Similarity: float32(sim)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Index{
		Name: "", GeneSetName: genes.Name, Genes: genes, Cells: cells,
		Threshold: opts.SimilarityThreshold, K: opts.K, Neighbors: lists,
	}, nil
}

type lshArena struct {
	model *lsh.Model
	sigs  *bitvec.Arena
}

// less orders Neighbors by decreasing similarity, ties broken by ascending
// CellId.
func less(a, b Neighbor) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.Cell < b.Cell
}

// insertTopK inserts n into the already-sorted list, keeping it capped at k
// entries. A plain sorted insertion is used rather than a heap: k is small
// (tens) in practice, and the list must stay fully sorted at every point
// anyway (spec requires each cell's list sorted by decreasing similarity
// once built), so a heap would need an extra sort pass at the end for no
// benefit.
func insertTopK(list []Neighbor, n Neighbor, k int) []Neighbor {
	if k <= 0 {
		return list
	}
	pos := len(list)
	for pos > 0 && less(n, list[pos-1]) {
		pos--
	}
	if pos >= k {
		return list
	}
	if len(list) < k {
		list = append(list, Neighbor{})
	} else {
		list = list[:k]
	}
	copy(list[pos+1:], list[pos:len(list)-1])
	list[pos] = n
	return list
}
