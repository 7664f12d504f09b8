package infocontent

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
	"github.com/HIM72/ExpressionMatrix2/subset"
)

func newStore(t *testing.T) *store.Store {
	s, err := store.Create(context.Background(), t.TempDir()+"/s", store.Params{
		GeneCapacity: 8, CellCapacity: 8, CellMetaDataNameCapacity: 8, CellMetaDataValueCapacity: 8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestUniformGeneHasZeroInformationContent builds a gene expressed equally in
// every cell (uniform p_c = 1/|C|), so its entropy term equals -log|C| and
// I(g) collapses to exactly 0 bits — the minimum, not the maximum, of the
// measure: a gene is "informative" precisely when its expression is
// concentrated in a few cells, driving I(g) up from this uniform floor.
func TestUniformGeneHasZeroInformationContent(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 4; i++ {
		name := string(rune('a' + i))
		_, err := s.AddCell(
			[]store.MetaDataPair{{Name: "CellName", Value: name}},
			[]store.GeneCount{{GeneName: "Uniform", Count: 1}},
		)
		require.NoError(t, err)
	}
	genes := sets.GeneSet{Genes: []store.GeneId{0}}
	cells := sets.CellSet{Cells: []store.CellId{0, 1, 2, 3}}
	view := subset.NewView(s, genes, cells)

	ic := Compute(s, view, None)
	require.InDelta(t, 0, ic[0], 1e-9)
}

// TestConcentratedGeneHasHigherInformationContentThanUniform verifies the
// monotonic direction of the measure: a gene expressed in only one of many
// cells should score higher than one spread evenly across all of them.
func TestConcentratedGeneHasHigherInformationContentThanUniform(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 4; i++ {
		name := string(rune('a' + i))
		counts := []store.GeneCount{{GeneName: "Uniform", Count: 1}}
		if i == 0 {
			counts = append(counts, store.GeneCount{GeneName: "Concentrated", Count: 1})
		}
		_, err := s.AddCell([]store.MetaDataPair{{Name: "CellName", Value: name}}, counts)
		require.NoError(t, err)
	}
	genes := sets.GeneSet{Genes: []store.GeneId{0, 1}}
	cells := sets.CellSet{Cells: []store.CellId{0, 1, 2, 3}}
	view := subset.NewView(s, genes, cells)

	ic := Compute(s, view, None)
	require.Greater(t, ic[1], ic[0])
	require.InDelta(t, math.Log2(4), ic[1], 1e-9)
}

func TestSelectPreservesGeneSetOrderAndFiltersThreshold(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 4; i++ {
		name := string(rune('a' + i))
		counts := []store.GeneCount{{GeneName: "Uniform", Count: 1}}
		if i == 0 {
			counts = append(counts, store.GeneCount{GeneName: "Concentrated", Count: 1})
		}
		_, err := s.AddCell([]store.MetaDataPair{{Name: "CellName", Value: name}}, counts)
		require.NoError(t, err)
	}
	genes := sets.GeneSet{Genes: []store.GeneId{0, 1}}
	cells := sets.CellSet{Cells: []store.CellId{0, 1, 2, 3}}
	view := subset.NewView(s, genes, cells)

	gs, err := Select(s, view, None, 0.5)
	require.NoError(t, err)
	require.Equal(t, []store.GeneId{1}, gs.Genes)
}

func TestSelectOnEmptyCellSetReturnsEmptyGeneSet(t *testing.T) {
	s := newStore(t)
	genes := sets.GeneSet{Genes: []store.GeneId{}}
	cells := sets.CellSet{Cells: []store.CellId{}}
	view := subset.NewView(s, genes, cells)

	gs, err := Select(s, view, None, 0.5)
	require.NoError(t, err)
	require.Empty(t, gs.Genes)
}

func TestL1NormalizationChangesRanking(t *testing.T) {
	s := newStore(t)
	// Cell "a" has a big total count, so L2/L1 normalization shrinks its
	// contribution relative to cells with a single unit of expression.
	_, err := s.AddCell(
		[]store.MetaDataPair{{Name: "CellName", Value: "a"}},
		[]store.GeneCount{{GeneName: "G", Count: 100}, {GeneName: "Filler", Count: 100}},
	)
	require.NoError(t, err)
	_, err = s.AddCell(
		[]store.MetaDataPair{{Name: "CellName", Value: "b"}},
		[]store.GeneCount{{GeneName: "G", Count: 1}},
	)
	require.NoError(t, err)

	genes := sets.GeneSet{Genes: []store.GeneId{0}}
	cells := sets.CellSet{Cells: []store.CellId{0, 1}}
	view := subset.NewView(s, genes, cells)

	rawIC := Compute(s, view, None)
	l1IC := Compute(s, view, L1)
	require.NotEqual(t, rawIC[0], l1IC[0])
}
