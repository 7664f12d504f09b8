package simpairs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
)

func TestSimilarPairsCapScenario(t *testing.T) {
	var list []Neighbor
	candidates := []Neighbor{
		{Cell: 10, Similarity: 0.9},
		{Cell: 11, Similarity: 0.8},
		{Cell: 12, Similarity: 0.7},
		{Cell: 13, Similarity: 0.6},
	}
	for _, c := range candidates {
		list = insertTopK(list, c, 2)
	}
	require.Len(t, list, 2)
	require.Equal(t, float32(0.9), list[0].Similarity)
	require.Equal(t, float32(0.8), list[1].Similarity)
}

func TestInsertTopKTieBreakByCellId(t *testing.T) {
	var list []Neighbor
	list = insertTopK(list, Neighbor{Cell: 5, Similarity: 0.5}, 2)
	list = insertTopK(list, Neighbor{Cell: 2, Similarity: 0.5}, 2)
	require.Equal(t, store.CellId(2), list[0].Cell)
	require.Equal(t, store.CellId(5), list[1].Cell)
}

func TestSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := &Index{
		Name:        "test",
		GeneSetName: "AllGenes",
		Cells:       sets.CellSet{Cells: []store.CellId{0, 1}},
		Threshold:   0.5,
		K:           2,
		Neighbors: [][]Neighbor{
			{{Cell: 1, Similarity: 0.9}},
			{{Cell: 0, Similarity: 0.9}},
		},
	}
	require.NoError(t, idx.Save(dir))

	got, err := Open(dir, "test")
	require.NoError(t, err)
	require.Equal(t, "AllGenes", got.GeneSetName)
	require.Equal(t, 2, got.K)
	require.InDelta(t, 0.5, got.Threshold, 1e-12)
	require.Equal(t, []store.CellId{0, 1}, got.Cells.Cells)
	require.Equal(t, idx.Neighbors, got.Neighbors)
}
