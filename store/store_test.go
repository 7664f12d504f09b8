package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func smallParams() Params {
	return Params{
		GeneCapacity:              64,
		CellCapacity:              64,
		CellMetaDataNameCapacity:  32,
		CellMetaDataValueCapacity: 64,
	}
}

func TestCreateAddCellRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/store1"
	s, err := Create(ctx, dir, smallParams())
	require.NoError(t, err)

	c1, err := s.AddCell(
		[]MetaDataPair{{Name: "CellName", Value: "c1"}, {Name: "donor", Value: "A"}},
		[]GeneCount{{GeneName: "A", Count: 1}, {GeneName: "B", Count: 2}, {GeneName: "C", Count: 3}},
	)
	require.NoError(t, err)
	require.Equal(t, CellId(0), c1)
	require.Equal(t, 3, s.NumGenes())
	require.Equal(t, 1, s.NumCells())

	require.InDelta(t, 6.0, s.Sum1(c1), 1e-9)
	require.InDelta(t, 14.0, s.Sum2(c1), 1e-9)

	v, ok := s.CellMetaData(c1, "donor")
	require.True(t, ok)
	require.Equal(t, "A", v)
	_, ok = s.CellMetaData(c1, "nope")
	require.False(t, ok)

	require.NoError(t, s.Close())

	s2, err := Open(ctx, dir, true)
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, 1, s2.NumCells())
	require.Equal(t, 3, s2.NumGenes())
	require.InDelta(t, 6.0, s2.Sum1(c1), 1e-9)
	entries := s2.ExpressionCounts(c1)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Gene, entries[i].Gene)
	}
}

func TestAddCellMissingCellName(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddCell([]MetaDataPair{{Name: "donor", Value: "A"}}, nil)
	require.Error(t, err)
}

func TestAddCellDuplicateName(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c1"}}, nil)
	require.NoError(t, err)
	_, err = s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c1"}}, nil)
	require.Error(t, err)
}

func TestAddCellNegativeCountRejected(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddCell(
		[]MetaDataPair{{Name: "CellName", Value: "c1"}},
		[]GeneCount{{GeneName: "A", Count: -1}},
	)
	require.Error(t, err)
}

func TestAddCellZeroCountDropped(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.AddCell(
		[]MetaDataPair{{Name: "CellName", Value: "c1"}},
		[]GeneCount{{GeneName: "A", Count: 0}, {GeneName: "B", Count: 5}},
	)
	require.NoError(t, err)
	require.Len(t, s.ExpressionCounts(c1), 1)
}

func TestAddGeneIdempotent(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	id1, inserted1, err := s.AddGene("X")
	require.NoError(t, err)
	require.True(t, inserted1)
	id2, inserted2, err := s.AddGene("X")
	require.NoError(t, err)
	require.False(t, inserted2)
	require.Equal(t, id1, id2)
}

func TestSetCellMetaDataUpdateInPlace(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c1"}}, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetCellMetaData(c1, "cluster", "1"))
	v, ok := s.CellMetaData(c1, "cluster")
	require.True(t, ok)
	require.Equal(t, "1", v)

	require.NoError(t, s.SetCellMetaData(c1, "cluster", "2"))
	v, ok = s.CellMetaData(c1, "cluster")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestSetCellMetaDataOnNonTrailingRowRebuilds(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c1"}}, nil)
	require.NoError(t, err)
	c2, err := s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c2"}}, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetCellMetaData(c1, "cluster", "7"))
	v, ok := s.CellMetaData(c1, "cluster")
	require.True(t, ok)
	require.Equal(t, "7", v)
	_, ok = s.CellMetaData(c2, "cluster")
	require.False(t, ok)

	v1, ok := s.CellMetaData(c1, "CellName")
	require.True(t, ok)
	require.Equal(t, "c1", v1)
}

func TestLookupByNameOrIntegerString(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c1"}}, nil)
	require.NoError(t, err)

	got, ok := s.LookupCell("c1")
	require.True(t, ok)
	require.Equal(t, c1, got)

	got, ok = s.LookupCell("0")
	require.True(t, ok)
	require.Equal(t, c1, got)

	_, ok = s.LookupCell("99")
	require.False(t, ok)
	_, ok = s.LookupCell("nope")
	require.False(t, ok)
}

func TestOrthogonalCellsScenario(t *testing.T) {
	s, err := Create(context.Background(), t.TempDir()+"/s", smallParams())
	require.NoError(t, err)
	defer s.Close()

	c1, err := s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c1"}}, []GeneCount{{GeneName: "A", Count: 1}})
	require.NoError(t, err)
	c2, err := s.AddCell([]MetaDataPair{{Name: "CellName", Value: "c2"}}, []GeneCount{{GeneName: "B", Count: 1}})
	require.NoError(t, err)

	require.InDelta(t, 1.0, s.Sum1(c1), 1e-12)
	require.InDelta(t, 1.0, s.Sum2(c1), 1e-12)
	require.InDelta(t, 1.0, s.Sum1(c2), 1e-12)
	require.InDelta(t, 1.0, s.Sum2(c2), 1e-12)
	require.False(t, math.IsNaN(s.Sum1(c1))) // sanity: values are real, not NaN.
}

func TestExportImportSet(t *testing.T) {
	path := t.TempDir() + "/geneset.snappy"
	ids := []uint32{3, 1, 4, 1, 5, 9, 2, 6}
	require.NoError(t, ExportSet(path, ids))
	got, err := ImportSet(path)
	require.NoError(t, err)
	require.Equal(t, ids, got)
}
