package store

import (
	"math"

	"github.com/grailbio/base/errors"

	"github.com/HIM72/ExpressionMatrix2/mm"
)

// AddCell registers a new cell from an ordered meta-data list and a sparse
// set of (gene name, count) expression entries, per spec §4.2. metaData[0]
// must be a ("CellName", <name>) pair; it is promoted to index 0 of the
// stored meta-data (it already is, since callers must place it first).
// Previously unseen genes are auto-registered. Zero counts are dropped;
// negative counts and duplicate genes within the cell are rejected.
func (s *Store) AddCell(metaData []MetaDataPair, counts []GeneCount) (CellId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireWritable()

	if len(metaData) == 0 || metaData[0].Name != "CellName" {
		return 0, errors.E(errors.Invalid, "store: AddCell: MissingCellName")
	}
	cellName := metaData[0].Value
	if s.cellNames.Lookup(cellName) != mm.InvalidStringId {
		return 0, errors.E(errors.Exists, "store: AddCell: DuplicateName", cellName)
	}

	entries := make([]ExpressionEntry, 0, len(counts))
	for _, gc := range counts {
		if gc.Count < 0 {
			return 0, errors.E(errors.Invalid, "store: AddCell: InvalidCount", gc.GeneName)
		}
		if gc.Count == 0 {
			continue
		}
		gid, err := s.addGeneLocked(gc.GeneName)
		if err != nil {
			return 0, err
		}
		entries = append(entries, ExpressionEntry{Gene: gid, Count: gc.Count})
	}
	sortExpressionEntries(entries)
	for i := 1; i < len(entries); i++ {
		if entries[i].Gene == entries[i-1].Gene {
			return 0, errors.E(errors.Invalid, "store: AddCell: DuplicateGeneInCell", entries[i].Gene)
		}
	}

	var sum1, sum2 float64
	for _, e := range entries {
		v := float64(e.Count)
		sum1 += v
		sum2 += v * v
	}
	// Norms are computed in full before any inverse is taken; the original
	// source took 1/norm1 before norm1 was itself computed on one branch.
	norm1 := sum1
	norm2 := math.Sqrt(sum2)
	var norm1Inverse, norm2Inverse float64
	if norm1 != 0 {
		norm1Inverse = 1 / norm1
	}
	if norm2 != 0 {
		norm2Inverse = 1 / norm2
	}

	cellIdRaw, err := s.cellNames.Intern(cellName)
	if err != nil {
		return 0, err
	}
	id := CellId(cellIdRaw)

	if err := s.cells.PushBack(cellRecord{
		Sum1: sum1, Sum2: sum2, Norm2: norm2,
		Norm1Inverse: norm1Inverse, Norm2Inverse: norm2Inverse,
	}); err != nil {
		return 0, err
	}

	if err := s.cellExpressionCounts.AppendEmptyRow(); err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := s.cellExpressionCounts.AppendToLastRow(e); err != nil {
			return 0, err
		}
	}

	if err := s.cellMetaData.AppendEmptyRow(); err != nil {
		return 0, err
	}
	for _, md := range metaData {
		pair, err := s.internMetaPair(md.Name, md.Value)
		if err != nil {
			return 0, err
		}
		if err := s.cellMetaData.AppendToLastRow(pair); err != nil {
			return 0, err
		}
	}

	return id, nil
}

func sortExpressionEntries(e []ExpressionEntry) {
	// Insertion sort: cells carry at most a few thousand non-zero entries in
	// practice, and this avoids pulling in sort.Slice's reflection-based
	// comparator for a hot ingestion path.
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].Gene < e[j-1].Gene; j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

// internMetaName interns name into the meta-data name table, extending the
// usage-count vector in lockstep so every name id has a counter slot.
func (s *Store) internMetaName(name string) (uint32, error) {
	id, err := s.cellMetaDataNames.Intern(name)
	if err != nil {
		return 0, err
	}
	if int(id) == s.cellMetaDataNamesUsageCount.Len() {
		if err := s.cellMetaDataNamesUsageCount.PushBack(0); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (s *Store) bumpMetaNameUsage(id uint32) {
	s.cellMetaDataNamesUsageCount.Set(int(id), s.cellMetaDataNamesUsageCount.At(int(id))+1)
}

func (s *Store) internMetaPair(name, value string) (metaPair, error) {
	nameId, err := s.internMetaName(name)
	if err != nil {
		return metaPair{}, err
	}
	valueId, err := s.cellMetaDataValues.Intern(value)
	if err != nil {
		return metaPair{}, err
	}
	s.bumpMetaNameUsage(nameId)
	return metaPair{NameId: nameId, ValueId: valueId}, nil
}
