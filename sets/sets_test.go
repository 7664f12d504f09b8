package sets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HIM72/ExpressionMatrix2/store"
)

func newTestStore(t *testing.T) (*store.Store, string) {
	dir := t.TempDir() + "/s"
	s, err := store.Create(context.Background(), dir, store.Params{
		GeneCapacity: 64, CellCapacity: 64,
		CellMetaDataNameCapacity: 32, CellMetaDataValueCapacity: 64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func geneIds(vs ...int) []store.GeneId {
	out := make([]store.GeneId, len(vs))
	for i, v := range vs {
		out[i] = store.GeneId(v)
	}
	return out
}

func TestSetAlgebraScenario(t *testing.T) {
	a := GeneSet{Name: "A", Genes: geneIds(1, 3, 5, 7)}
	b := GeneSet{Name: "B", Genes: geneIds(3, 4, 5, 6)}

	require.Equal(t, geneIds(3, 5), IntersectGenes(a, b).Genes)
	require.Equal(t, geneIds(1, 3, 4, 5, 6, 7), UnionGenes(a, b).Genes)
	require.Equal(t, geneIds(1, 7), DifferenceGenes(a, b).Genes)
}

func TestUnionCommutative(t *testing.T) {
	a := GeneSet{Genes: geneIds(1, 3, 5)}
	b := GeneSet{Genes: geneIds(2, 3, 4)}
	require.Equal(t, UnionGenes(a, b).Genes, UnionGenes(b, a).Genes)
	require.Equal(t, IntersectGenes(a, b).Genes, IntersectGenes(b, a).Genes)

	diff := DifferenceGenes(a, b)
	inter := IntersectGenes(a, b)
	require.Equal(t, a.Genes, UnionGenes(diff, inter).Genes)
}

func TestNewGeneSetByRegexAndNames(t *testing.T) {
	s, dir := newTestStore(t)
	_, _, err := s.AddGene("ACTB")
	require.NoError(t, err)
	_, _, err = s.AddGene("ACTG1")
	require.NoError(t, err)
	_, _, err = s.AddGene("GAPDH")
	require.NoError(t, err)

	reg, err := Open(s, dir)
	require.NoError(t, err)
	defer reg.Close()

	gs, ok, err := reg.NewGeneSetByRegex("actins", "ACT.*")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, gs.Genes, 2)

	gs2, ignored, empty, ok, err := reg.NewGeneSetByNames("picked", []string{"ACTB", "", "nonexistent", "GAPDH"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, ignored)
	require.Equal(t, 1, empty)
	require.Len(t, gs2.Genes, 2)

	_, ok, err = reg.NewGeneSetByRegex("actins", "ACT.*")
	require.NoError(t, err)
	require.False(t, ok) // NameExists, logged rather than returned as an error.
}

func TestDownSampleBoundaries(t *testing.T) {
	input := CellSet{Cells: []store.CellId{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
	s, dir := newTestStore(t)
	reg, err := Open(s, dir)
	require.NoError(t, err)
	defer reg.Close()

	full, ok, err := reg.DownSampleCellSet("full", input, 1.0, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, input.Cells, full.Cells)

	none, ok, err := reg.DownSampleCellSet("none", input, 0.0, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, none.Cells)
}

func TestDownSampleDeterministic(t *testing.T) {
	input := CellSet{Cells: []store.CellId{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}}
	s, dir := newTestStore(t)
	reg, err := Open(s, dir)
	require.NoError(t, err)
	defer reg.Close()

	a, _, err := reg.DownSampleCellSet("a", input, 0.5, 42)
	require.NoError(t, err)

	s2, dir2 := newTestStore(t)
	reg2, err := Open(s2, dir2)
	require.NoError(t, err)
	defer reg2.Close()
	b, _, err := reg2.DownSampleCellSet("a", input, 0.5, 42)
	require.NoError(t, err)

	require.Equal(t, a.Cells, b.Cells)
}
