package subset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
)

func TestViewRestrictsToGeneSet(t *testing.T) {
	s, err := store.Create(context.Background(), t.TempDir()+"/s", store.Params{
		GeneCapacity: 16, CellCapacity: 16, CellMetaDataNameCapacity: 8, CellMetaDataValueCapacity: 16,
	})
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.AddCell(
		[]store.MetaDataPair{{Name: "CellName", Value: "c1"}},
		[]store.GeneCount{{GeneName: "A", Count: 1}, {GeneName: "B", Count: 2}, {GeneName: "C", Count: 3}},
	)
	require.NoError(t, err)

	aId, _ := s.LookupGene("A")
	cId, _ := s.LookupGene("C")
	gs := sets.GeneSet{Name: "AC", Genes: []store.GeneId{aId, cId}}
	cs := sets.CellSet{Name: "all", Cells: []store.CellId{c1}}

	v := NewView(s, gs, cs)
	require.Equal(t, 1, v.NumCells())
	require.Equal(t, 2, v.NumGenes())
	row := v.Row(0)
	require.Len(t, row, 2)
	require.InDelta(t, 4.0, v.Sum1(0), 1e-9) // 1 (gene A) + 3 (gene C), gene B excluded.
	require.InDelta(t, 10.0, v.Sum2(0), 1e-9)
}
