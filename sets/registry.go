package sets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/HIM72/ExpressionMatrix2/mm"
	"github.com/HIM72/ExpressionMatrix2/store"
)

var geneSetFilePattern = regexp.MustCompile(`^GeneSet-(.+)-GlobalIds$`)

// Registry owns a store directory's named gene-sets and cell-sets,
// discovering existing ones at Open via a directory scan, per spec §6's
// on-disk layout (GeneSet-<name>-GlobalIds at the store root, CellSets/<name>
// in a subdirectory).
type Registry struct {
	st   *store.Store
	dir  string
	mu   sync.Mutex
	gene map[string]*mm.Vector[uint32]
	cell map[string]*mm.Vector[uint32]
}

// Open scans dir for previously created named sets and returns a Registry
// over them.
func Open(st *store.Store, dir string) (*Registry, error) {
	r := &Registry{st: st, dir: dir, gene: map[string]*mm.Vector[uint32]{}, cell: map[string]*mm.Vector[uint32]{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.E(errors.IO, err, dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := geneSetFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := mm.AccessExisting[uint32](filepath.Join(dir, e.Name()), true)
		if err != nil {
			return nil, err
		}
		r.gene[m[1]] = v
	}

	cellSetsDir := filepath.Join(dir, "CellSets")
	cellEntries, err := os.ReadDir(cellSetsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.E(errors.IO, err, cellSetsDir)
	}
	for _, e := range cellEntries {
		if e.IsDir() {
			continue
		}
		v, err := mm.AccessExisting[uint32](filepath.Join(cellSetsDir, e.Name()), true)
		if err != nil {
			return nil, err
		}
		r.cell[e.Name()] = v
	}
	return r, nil
}

// Close unmaps every backing file.
func (r *Registry) Close() error {
	var errp errors.Once
	for _, v := range r.gene {
		errp.Set(v.Close())
	}
	for _, v := range r.cell {
		errp.Set(v.Close())
	}
	return errp.Err()
}

// GeneSetNames returns the names of all currently registered gene-sets.
func (r *Registry) GeneSetNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.gene))
	for n := range r.gene {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CellSetNames returns the names of all currently registered cell-sets.
func (r *Registry) CellSetNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.cell))
	for n := range r.cell {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GeneSet returns the named gene-set, if it exists.
func (r *Registry) GeneSet(name string) (GeneSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.gene[name]
	if !ok {
		return GeneSet{}, false
	}
	return GeneSet{Name: name, Genes: toGeneIds(v.Slice())}, true
}

// CellSet returns the named cell-set, if it exists.
func (r *Registry) CellSet(name string) (CellSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cell[name]
	if !ok {
		return CellSet{}, false
	}
	return CellSet{Name: name, Cells: toCellIds(v.Slice())}, true
}

// AllGenes returns the implicit set of every gene in the store.
func (r *Registry) AllGenes() GeneSet {
	n := r.st.NumGenes()
	ids := make([]store.GeneId, n)
	for i := range ids {
		ids[i] = store.GeneId(i)
	}
	return GeneSet{Name: "AllGenes", Genes: ids}
}

// AllCells returns the implicit set of every cell in the store.
func (r *Registry) AllCells() CellSet {
	n := r.st.NumCells()
	ids := make([]store.CellId, n)
	for i := range ids {
		ids[i] = store.CellId(i)
	}
	return CellSet{Name: "AllCells", Cells: ids}
}

func toGeneIds(raw []uint32) []store.GeneId {
	out := make([]store.GeneId, len(raw))
	for i, v := range raw {
		out[i] = store.GeneId(v)
	}
	return out
}

func toCellIds(raw []uint32) []store.CellId {
	out := make([]store.CellId, len(raw))
	for i, v := range raw {
		out[i] = store.CellId(v)
	}
	return out
}

// putGeneSet inserts gs under its name. The bool return is false, with a
// diagnostic logged, when the name is already taken — a user-driven naming
// conflict, not a fatal error (spec §7). A non-nil error indicates a genuine
// mutating I/O failure creating the backing file, which does propagate.
func (r *Registry) putGeneSet(gs GeneSet) (GeneSet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.gene[gs.Name]; exists {
		log.Error.Printf("sets: gene-set %q already exists", gs.Name)
		return GeneSet{}, false, nil
	}
	path := filepath.Join(r.dir, fmt.Sprintf("GeneSet-%s-GlobalIds", gs.Name))
	v, err := mm.CreateNew[uint32](path, 0, len(gs.Genes))
	if err != nil {
		return GeneSet{}, false, err
	}
	for _, id := range gs.Genes {
		if err := v.PushBack(uint32(id)); err != nil {
			v.Remove() // nolint: errcheck
			return GeneSet{}, false, err
		}
	}
	r.gene[gs.Name] = v
	return gs, true, nil
}

// putCellSet is putGeneSet's cell-set counterpart.
func (r *Registry) putCellSet(cs CellSet) (CellSet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cell[cs.Name]; exists {
		log.Error.Printf("sets: cell-set %q already exists", cs.Name)
		return CellSet{}, false, nil
	}
	cellSetsDir := filepath.Join(r.dir, "CellSets")
	if err := os.MkdirAll(cellSetsDir, 0755); err != nil {
		return CellSet{}, false, errors.E(errors.IO, err, cellSetsDir)
	}
	path := filepath.Join(cellSetsDir, cs.Name)
	v, err := mm.CreateNew[uint32](path, 0, len(cs.Cells))
	if err != nil {
		return CellSet{}, false, err
	}
	for _, id := range cs.Cells {
		if err := v.PushBack(uint32(id)); err != nil {
			v.Remove() // nolint: errcheck
			return CellSet{}, false, err
		}
	}
	r.cell[cs.Name] = v
	return cs, true, nil
}

// RemoveGeneSet deletes a named gene-set's backing file. It reports false,
// with a diagnostic logged, if name is not registered.
func (r *Registry) RemoveGeneSet(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.gene[name]
	if !ok {
		log.Error.Printf("sets: gene-set %q not found", name)
		return false, nil
	}
	delete(r.gene, name)
	if err := v.Remove(); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveCellSet deletes a named cell-set's backing file. It reports false,
// with a diagnostic logged, if name is not registered.
func (r *Registry) RemoveCellSet(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cell[name]
	if !ok {
		log.Error.Printf("sets: cell-set %q not found", name)
		return false, nil
	}
	delete(r.cell, name)
	if err := v.Remove(); err != nil {
		return false, err
	}
	return true, nil
}

// resolveGeneSets looks up every named gene-set. It reports false, with a
// diagnostic logged for the first missing name, if any name is unregistered.
func (r *Registry) resolveGeneSets(names []string) ([]GeneSet, bool) {
	out := make([]GeneSet, len(names))
	for i, n := range names {
		gs, ok := r.GeneSet(n)
		if !ok {
			log.Error.Printf("sets: gene-set %q not found", n)
			return nil, false
		}
		out[i] = gs
	}
	return out, true
}

// resolveCellSets is resolveGeneSets's cell-set counterpart.
func (r *Registry) resolveCellSets(names []string) ([]CellSet, bool) {
	out := make([]CellSet, len(names))
	for i, n := range names {
		cs, ok := r.CellSet(n)
		if !ok {
			log.Error.Printf("sets: cell-set %q not found", n)
			return nil, false
		}
		out[i] = cs
	}
	return out, true
}
