package store

import (
	"strconv"

	"github.com/HIM72/ExpressionMatrix2/mm"
)

// LookupGene resolves s as a gene: if s parses as a non-negative base-10
// integer less than the gene count, it is treated as a raw GeneId;
// otherwise it is looked up by name. Returns (InvalidGeneId, false) if
// neither resolves, per spec §4.13.
func (s *Store) LookupGene(arg string) (GeneId, bool) {
	if n, ok := parseDenseId(arg, s.NumGenes()); ok {
		return GeneId(n), true
	}
	id := s.geneNames.Lookup(arg)
	if id == mm.InvalidStringId {
		return InvalidGeneId, false
	}
	return GeneId(id), true
}

// LookupCell resolves arg as a cell, with the same name-or-integer-string
// convention as LookupGene.
func (s *Store) LookupCell(arg string) (CellId, bool) {
	if n, ok := parseDenseId(arg, s.NumCells()); ok {
		return CellId(n), true
	}
	id := s.cellNames.Lookup(arg)
	if id == mm.InvalidStringId {
		return InvalidCellId, false
	}
	return CellId(id), true
}

func parseDenseId(arg string, count int) (uint32, bool) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, false
	}
	if int(n) >= count {
		return 0, false
	}
	return uint32(n), true
}
