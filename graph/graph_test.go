package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/simpairs"
	"github.com/HIM72/ExpressionMatrix2/store"
)

// twoCliquesIndex builds a literal SimilarPairs index over two disjoint
// triangles {0,1,2} and {3,4,5}, bridged by a single weaker edge 2-3.
func twoCliquesIndex() *simpairs.Index {
	nb := func(cell int, sim float32) simpairs.Neighbor {
		return simpairs.Neighbor{Cell: store.CellId(cell), Similarity: sim}
	}
	return &simpairs.Index{
		Name:        "test",
		GeneSetName: "AllGenes",
		Cells:       sets.CellSet{Cells: []store.CellId{0, 1, 2, 3, 4, 5}},
		Threshold:   0.1,
		K:           5,
		Neighbors: [][]simpairs.Neighbor{
			{nb(1, 0.95), nb(2, 0.93)},
			{nb(0, 0.95), nb(2, 0.92)},
			{nb(0, 0.93), nb(1, 0.92), nb(3, 0.3)},
			{nb(2, 0.3), nb(4, 0.94), nb(5, 0.93)},
			{nb(3, 0.94), nb(5, 0.91)},
			{nb(3, 0.93), nb(4, 0.91)},
		},
	}
}

func TestBuildDeduplicatesSymmetricEdges(t *testing.T) {
	g := Build(twoCliquesIndex(), 0.1)
	require.Equal(t, 6, g.NumVertices())
	// 3 edges per clique + 1 bridge = 7.
	require.Equal(t, 7, g.NumEdges())
}

func TestBuildRespectsThreshold(t *testing.T) {
	g := Build(twoCliquesIndex(), 0.5)
	require.Equal(t, 6, g.NumEdges())
}

func TestRemoveIsolated(t *testing.T) {
	idx := twoCliquesIndex()
	idx.Cells.Cells = append(idx.Cells.Cells, 6)
	idx.Neighbors = append(idx.Neighbors, nil)
	g := Build(idx, 0.1)
	require.Equal(t, 7, g.NumVertices())

	removed := g.RemoveIsolated()
	require.Equal(t, 1, removed)
	require.Equal(t, 6, g.NumVertices())
	for i := 0; i < g.NumVertices(); i++ {
		require.NotEqual(t, store.CellId(6), g.CellAt(i))
	}
}

func TestLabelPropagateTwoCliquesScenario(t *testing.T) {
	g := Build(twoCliquesIndex(), 0.1)
	g.LabelPropagate(ClusterOptions{MaxIterations: 50, Seed: 7})

	labels := make(map[store.CellId]uint32)
	for i := 0; i < g.NumVertices(); i++ {
		labels[g.CellAt(i)] = g.ClusterOf(i)
	}

	distinct := map[uint32]bool{}
	for _, l := range labels {
		distinct[l] = true
	}
	require.Len(t, distinct, 2)
	require.Equal(t, labels[0], labels[1])
	require.Equal(t, labels[1], labels[2])
	require.Equal(t, labels[3], labels[4])
	require.Equal(t, labels[4], labels[5])
	require.NotEqual(t, labels[0], labels[3])
}

func TestLabelPropagateDeterministicForSameSeed(t *testing.T) {
	g1 := Build(twoCliquesIndex(), 0.1)
	g1.LabelPropagate(ClusterOptions{MaxIterations: 50, Seed: 99})

	g2 := Build(twoCliquesIndex(), 0.1)
	g2.LabelPropagate(ClusterOptions{MaxIterations: 50, Seed: 99})

	for i := 0; i < g1.NumVertices(); i++ {
		require.Equal(t, g1.ClusterOf(i), g2.ClusterOf(i))
	}
}

func TestCollapseSmallClusters(t *testing.T) {
	idx := twoCliquesIndex()
	g := Build(idx, 0.1)
	g.LabelPropagate(ClusterOptions{MaxIterations: 50, Seed: 7, MinClusterSize: 10})
	for i := 0; i < g.NumVertices(); i++ {
		require.Equal(t, Unclustered, g.ClusterOf(i))
	}
}

func TestStoreClustersWritesMetaData(t *testing.T) {
	s, err := store.Create(context.Background(), t.TempDir()+"/s", store.Params{
		GeneCapacity: 8, CellCapacity: 8, CellMetaDataNameCapacity: 8, CellMetaDataValueCapacity: 8,
	})
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 6; i++ {
		name := string(rune('a' + i))
		_, err := s.AddCell(
			[]store.MetaDataPair{{Name: "CellName", Value: name}},
			[]store.GeneCount{{GeneName: "A", Count: 1}},
		)
		require.NoError(t, err)
	}

	g := Build(twoCliquesIndex(), 0.1)
	g.LabelPropagate(ClusterOptions{MaxIterations: 50, Seed: 7})
	require.NoError(t, g.StoreClusters(s, "Cluster"))

	v0, ok := s.CellMetaData(0, "Cluster")
	require.True(t, ok)
	v3, ok := s.CellMetaData(3, "Cluster")
	require.True(t, ok)
	require.NotEqual(t, v0, v3)
}
