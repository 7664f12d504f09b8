package store

import "github.com/HIM72/ExpressionMatrix2/mm"

// CellMetaData returns the value associated with name for cell c, and
// whether the pair exists.
func (s *Store) CellMetaData(c CellId, name string) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameId := s.cellMetaDataNames.Lookup(name)
	if nameId == mm.InvalidStringId {
		return "", false
	}
	for _, p := range s.cellMetaData.Row(int(c)) {
		if p.NameId == nameId {
			v, _ := s.cellMetaDataValues.Name(p.ValueId)
			return v, true
		}
	}
	return "", false
}

// CellMetaDataPairs returns every (name, value) pair stored for cell c, in
// insertion order (index 0 is always CellName).
func (s *Store) CellMetaDataPairs(c CellId) []MetaDataPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.cellMetaData.Row(int(c))
	out := make([]MetaDataPair, len(row))
	for i, p := range row {
		name, _ := s.cellMetaDataNames.Name(p.NameId)
		value, _ := s.cellMetaDataValues.Name(p.ValueId)
		out[i] = MetaDataPair{Name: name, Value: value}
	}
	return out
}

// SetCellMetaData updates the (cell, name) pair's value in place if it
// already exists, otherwise appends it, incrementing name's usage counter.
// Appending to a cell other than the most recently added one rewrites the
// entire meta-data table, since the underlying jagged array only supports
// appending to its trailing row directly; this is expected to be rare
// (e.g. writing cluster assignments back once per clustering run) rather
// than a per-cell steady-state operation.
func (s *Store) SetCellMetaData(c CellId, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireWritable()

	nameId := s.cellMetaDataNames.Lookup(name)
	if nameId != mm.InvalidStringId {
		row := s.cellMetaData.Row(int(c))
		for i, p := range row {
			if p.NameId == nameId {
				valueId, err := s.cellMetaDataValues.Intern(value)
				if err != nil {
					return err
				}
				row[i].ValueId = valueId
				return nil
			}
		}
	}

	pair, err := s.internMetaPair(name, value)
	if err != nil {
		return err
	}
	if int(c) == s.cellMetaData.NumRows()-1 {
		return s.cellMetaData.AppendToLastRow(pair)
	}
	return s.appendMetaPairRebuild(int(c), pair)
}

// appendMetaPairRebuild grows cell c's meta-data row by copying every row
// out, appending pair to row c, and rebuilding the table with
// BeginBulkBuild/WriteRow.
func (s *Store) appendMetaPairRebuild(c int, pair metaPair) error {
	n := s.cellMetaData.NumRows()
	rows := make([][]metaPair, n)
	for i := 0; i < n; i++ {
		src := s.cellMetaData.Row(i)
		dst := make([]metaPair, len(src), len(src)+1)
		copy(dst, src)
		rows[i] = dst
	}
	rows[c] = append(rows[c], pair)

	counts := make([]uint32, n)
	for i, r := range rows {
		counts[i] = uint32(len(r))
	}
	if err := s.cellMetaData.BeginBulkBuild(counts); err != nil {
		return err
	}
	for i, r := range rows {
		s.cellMetaData.WriteRow(i, r)
	}
	return nil
}
