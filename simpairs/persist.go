package simpairs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grailbio/base/errors"

	"github.com/HIM72/ExpressionMatrix2/mm"
	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
)

type persistNeighbor struct {
	Cell       uint32
	Similarity float32
}

func basePath(dir, name string) string {
	return filepath.Join(dir, "SimilarPairs-"+name)
}

// Save persists idx to dir under SimilarPairs-<name>, recording the
// originating gene-set name and threshold so reuse can be validated
// (spec §4.7, §3 invariant on stored gene-set). idx.Name must be set.
func (idx *Index) Save(dir string) (err error) {
	if idx.Name == "" {
		return errors.E(errors.Invalid, "simpairs: Index.Name must be set before Save")
	}
	base := basePath(dir, idx.Name)

	metaFile, err := os.Create(base + "-Meta")
	if err != nil {
		return errors.E(errors.IO, err, base)
	}
	defer func() {
		if cerr := metaFile.Close(); err == nil {
			err = cerr
		}
	}()
	fmt.Fprintf(metaFile, "%s\n%d\n%.17g\n", idx.GeneSetName, idx.K, idx.Threshold)

	cellsVec, err := mm.CreateNew[uint32](base+"-Cells", 0, len(idx.Cells.Cells))
	if err != nil {
		return err
	}
	defer cellsVec.Close() // nolint: errcheck
	for _, c := range idx.Cells.Cells {
		if err := cellsVec.PushBack(uint32(c)); err != nil {
			return err
		}
	}

	counts := make([]uint32, len(idx.Neighbors))
	total := 0
	for i, l := range idx.Neighbors {
		counts[i] = uint32(len(l))
		total += len(l)
	}
	neighVec, err := mm.CreateNewVOV[persistNeighbor, uint32](base+"-Neighbors", total)
	if err != nil {
		return err
	}
	defer neighVec.Close() // nolint: errcheck
	if err := neighVec.BeginBulkBuild(counts); err != nil {
		return err
	}
	for i, l := range idx.Neighbors {
		row := make([]persistNeighbor, len(l))
		for k, nb := range l {
			row[k] = persistNeighbor{Cell: uint32(nb.Cell), Similarity: nb.Similarity}
		}
		neighVec.WriteRow(i, row)
	}
	return nil
}

// Open reads back a SimilarPairs index previously written by Save. Only the
// originating gene-set's name is restored (idx.Genes is left empty); reuse
// validation is up to the caller, by comparing idx.GeneSetName against a
// live registry lookup.
func Open(dir, name string) (*Index, error) {
	base := basePath(dir, name)

	metaFile, err := os.Open(base + "-Meta")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, err, base)
		}
		return nil, errors.E(errors.IO, err, base)
	}
	defer metaFile.Close()
	scanner := bufio.NewScanner(metaFile)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) < 3 {
		return nil, errors.E(errors.Other, "simpairs: corrupt meta file", base)
	}
	geneSetName := lines[0]
	k, err := strconv.Atoi(lines[1])
	if err != nil {
		return nil, errors.E(errors.Other, err, "simpairs: corrupt meta file", base)
	}
	threshold, err := strconv.ParseFloat(lines[2], 64)
	if err != nil {
		return nil, errors.E(errors.Other, err, "simpairs: corrupt meta file", base)
	}

	cellsVec, err := mm.AccessExisting[uint32](base+"-Cells", false)
	if err != nil {
		return nil, err
	}
	defer cellsVec.Close() // nolint: errcheck
	cellIds := make([]store.CellId, cellsVec.Len())
	for i, v := range cellsVec.Slice() {
		cellIds[i] = store.CellId(v)
	}

	neighVec, err := mm.AccessExistingVOV[persistNeighbor, uint32](base+"-Neighbors", false)
	if err != nil {
		return nil, err
	}
	defer neighVec.Close() // nolint: errcheck
	neighbors := make([][]Neighbor, neighVec.NumRows())
	for i := range neighbors {
		row := neighVec.Row(i)
		out := make([]Neighbor, len(row))
		for k, pn := range row {
			out[k] = Neighbor{Cell: store.CellId(pn.Cell), Similarity: pn.Similarity}
		}
		neighbors[i] = out
	}

	return &Index{
		Name: name, GeneSetName: geneSetName,
		Cells:     sets.CellSet{Name: "", Cells: cellIds},
		Threshold: threshold, K: k, Neighbors: neighbors,
	}, nil
}
