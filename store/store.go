// Package store implements the persistent, memory-mapped sparse expression
// store: genes, cells, per-cell meta-data, and per-cell sparse expression
// counts, all backed by package mm. It is single-writer, multi-reader per
// directory, matching the pam store's open/create/operate/close lifecycle
// (encoding/pam/pamwriter.go, encoding/pam/pamreader.go).
package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/HIM72/ExpressionMatrix2/manifestpb"
	"github.com/HIM72/ExpressionMatrix2/mm"
)

// GeneId is a dense, 32-bit global gene identifier.
type GeneId uint32

// CellId is a dense, 32-bit global cell identifier.
type CellId uint32

// InvalidGeneId and InvalidCellId are the sentinels LookupGene/LookupCell
// return on a failed lookup.
const (
	InvalidGeneId = GeneId(mm.InvalidStringId)
	InvalidCellId = CellId(mm.InvalidStringId)
)

// Params configures a newly created store's fixed interning-table and
// containers capacities, per spec §6.
type Params struct {
	GeneCapacity              int
	CellCapacity              int
	CellMetaDataNameCapacity  int
	CellMetaDataValueCapacity int
}

// DefaultParams returns reasonable capacities for small-to-medium stores.
func DefaultParams() Params {
	return Params{
		GeneCapacity:              1 << 16,
		CellCapacity:              1 << 20,
		CellMetaDataNameCapacity:  1 << 10,
		CellMetaDataValueCapacity: 1 << 16,
	}
}

// cellRecord is the fixed-size per-cell record of the "Cells" file. norm1 is
// not stored separately since it is always equal to Sum1.
type cellRecord struct {
	Sum1          float64
	Sum2          float64
	Norm2         float64
	Norm1Inverse  float64
	Norm2Inverse  float64
}

// metaPair is one (name-id, value-id) entry of a cell's meta-data list.
type metaPair struct {
	NameId  uint32
	ValueId uint32
}

// ExpressionEntry is one non-zero (gene, count) entry of a cell's sparse
// expression vector, keyed by global GeneId and sorted ascending by it.
type ExpressionEntry struct {
	Gene  GeneId
	Count float32
}

// MetaDataPair is one (name, value) pair supplied to AddCell. The first
// element of the slice passed to AddCell must have Name == "CellName".
type MetaDataPair struct {
	Name  string
	Value string
}

// GeneCount is one (gene name, count) entry of the expression counts
// supplied to AddCell; genes are auto-registered if previously unseen.
type GeneCount struct {
	GeneName string
	Count    float32
}

// Store is a handle onto one expression-matrix store directory. It is safe
// for concurrent readers and a single concurrent writer; Store itself
// serializes all mutating calls with mu, per spec §5.
type Store struct {
	dir      string
	writable bool
	mu       sync.Mutex

	manifest manifestpb.Manifest

	geneNames *mm.StringTable

	cells     *mm.Vector[cellRecord]
	cellNames *mm.StringTable

	cellMetaData                *mm.VectorOfVectors[metaPair, uint32]
	cellMetaDataNames           *mm.StringTable
	cellMetaDataValues          *mm.StringTable
	cellMetaDataNamesUsageCount *mm.Vector[uint32]

	cellExpressionCounts *mm.VectorOfVectors[ExpressionEntry, uint64]
}

func path(dir, name string) string { return fmt.Sprintf("%s/%s", dir, name) }

// Create creates a new, empty store directory at dir with the given
// capacities. It fails with an Exists-kind error if dir already exists.
func Create(ctx context.Context, dir string, p Params) (*Store, error) {
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return nil, errors.E(errors.Exists, err, dir)
		}
		return nil, errors.E(errors.IO, err, dir)
	}
	s := &Store{dir: dir, writable: true}
	var err error
	defer func() {
		if err != nil {
			s.closeQuiet()
			os.RemoveAll(dir) // nolint: errcheck
		}
	}()

	if s.geneNames, err = mm.CreateNewStringTable(path(dir, "GeneNames"), 2*p.GeneCapacity); err != nil {
		return nil, err
	}
	if s.cells, err = mm.CreateNew[cellRecord](path(dir, "Cells"), 0, p.CellCapacity); err != nil {
		return nil, err
	}
	if s.cellNames, err = mm.CreateNewStringTable(path(dir, "CellNames"), 2*p.CellCapacity); err != nil {
		return nil, err
	}
	if s.cellMetaData, err = mm.CreateNewVOV[metaPair, uint32](path(dir, "CellMetaData"), p.CellCapacity*4); err != nil {
		return nil, err
	}
	if s.cellMetaDataNames, err = mm.CreateNewStringTable(path(dir, "CellMetaDataNames"), 2*p.CellMetaDataNameCapacity); err != nil {
		return nil, err
	}
	if s.cellMetaDataValues, err = mm.CreateNewStringTable(path(dir, "CellMetaDataValues"), 2*p.CellMetaDataValueCapacity); err != nil {
		return nil, err
	}
	if s.cellMetaDataNamesUsageCount, err = mm.CreateNew[uint32](path(dir, "CellMetaDataNamesUsageCount"), 0, p.CellMetaDataNameCapacity); err != nil {
		return nil, err
	}
	if s.cellExpressionCounts, err = mm.CreateNewVOV[ExpressionEntry, uint64](path(dir, "CellExpressionCounts"), p.CellCapacity*8); err != nil {
		return nil, err
	}

	s.manifest = manifestpb.Manifest{
		Magic:                     manifestpb.Magic,
		Version:                   manifestpb.Version,
		GeneCapacity:              uint32(p.GeneCapacity),
		CellCapacity:              uint32(p.CellCapacity),
		CellMetaDataNameCapacity:  uint32(p.CellMetaDataNameCapacity),
		CellMetaDataValueCapacity: uint32(p.CellMetaDataValueCapacity),
		CreatedUnixNanos:          time.Now().UnixNano(),
	}
	if err = writeManifest(ctx, dir, s.manifest); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens a previously created store directory.
func Open(ctx context.Context, dir string, writable bool) (*Store, error) {
	m, err := readManifest(ctx, dir)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir, writable: writable, manifest: m}
	if s.geneNames, err = mm.AccessExistingStringTable(path(dir, "GeneNames"), writable); err != nil {
		return nil, err
	}
	if s.cells, err = mm.AccessExisting[cellRecord](path(dir, "Cells"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	if s.cellNames, err = mm.AccessExistingStringTable(path(dir, "CellNames"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	if s.cellMetaData, err = mm.AccessExistingVOV[metaPair, uint32](path(dir, "CellMetaData"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	if s.cellMetaDataNames, err = mm.AccessExistingStringTable(path(dir, "CellMetaDataNames"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	if s.cellMetaDataValues, err = mm.AccessExistingStringTable(path(dir, "CellMetaDataValues"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	if s.cellMetaDataNamesUsageCount, err = mm.AccessExisting[uint32](path(dir, "CellMetaDataNamesUsageCount"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	if s.cellExpressionCounts, err = mm.AccessExistingVOV[ExpressionEntry, uint64](path(dir, "CellExpressionCounts"), writable); err != nil {
		s.closeQuiet()
		return nil, err
	}
	return s, nil
}

func (s *Store) closeQuiet() {
	if err := s.Close(); err != nil {
		log.Error.Printf("store: error closing partially opened store %s: %v", s.dir, err)
	}
}

// Close unmaps and closes every backing file. The Store must not be used
// afterward.
func (s *Store) Close() error {
	var errp errors.Once
	closers := []interface{ Close() error }{
		s.geneNames, s.cells, s.cellNames, s.cellMetaData,
		s.cellMetaDataNames, s.cellMetaDataValues,
		s.cellMetaDataNamesUsageCount, s.cellExpressionCounts,
	}
	for _, c := range closers {
		if c == nil {
			continue
		}
		errp.Set(closeIfNotNil(c))
	}
	return errp.Err()
}

func closeIfNotNil(c interface{ Close() error }) error {
	return c.Close()
}

// NumGenes returns the number of registered genes.
func (s *Store) NumGenes() int { return s.geneNames.Count() }

// NumCells returns the number of registered cells.
func (s *Store) NumCells() int { return s.cellNames.Count() }

// GeneName returns the name of gene g.
func (s *Store) GeneName(g GeneId) string {
	name, _ := s.geneNames.Name(uint32(g))
	return name
}

// CellName returns the name of cell c.
func (s *Store) CellName(c CellId) string {
	name, _ := s.cellNames.Name(uint32(c))
	return name
}

// ExpressionCounts returns cell c's sparse expression vector, sorted by
// ascending GeneId. The returned slice aliases the mapped region.
func (s *Store) ExpressionCounts(c CellId) []ExpressionEntry {
	return s.cellExpressionCounts.Row(int(c))
}

// Sum1 and Sum2 return the precomputed per-cell scalar sums used by exact
// Pearson similarity (spec §4.5).
func (s *Store) Sum1(c CellId) float64 { return s.cells.At(int(c)).Sum1 }
func (s *Store) Sum2(c CellId) float64 { return s.cells.At(int(c)).Sum2 }

// Norm2 returns cell c's precomputed L2 norm.
func (s *Store) Norm2(c CellId) float64 { return s.cells.At(int(c)).Norm2 }

// Norm1Inverse and Norm2Inverse return the precomputed reciprocals used to
// apply L1/L2 normalization to a cell's expression counts without a
// division on the hot path (spec §4.3, §4.10).
func (s *Store) Norm1Inverse(c CellId) float64 { return s.cells.At(int(c)).Norm1Inverse }
func (s *Store) Norm2Inverse(c CellId) float64 { return s.cells.At(int(c)).Norm2Inverse }

// requireWritable panics if the store was opened read-only; mirrors
// mm.Vector's own read-only guard since Store composes several of them.
func (s *Store) requireWritable() {
	if !s.writable {
		log.Panicf("store: mutation attempted on read-only store %s", s.dir)
	}
}
