package sets

import (
	"math/rand"
	"regexp"

	"github.com/grailbio/base/errors"

	"github.com/HIM72/ExpressionMatrix2/mt19937"
	"github.com/HIM72/ExpressionMatrix2/store"
)

// fullMatch reports whether re matches the entirety of s (regexp.MatchString
// only requires a substring match, not a full match).
func fullMatch(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

func compileFull(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "sets: malformed regex", pattern)
	}
	return re, nil
}

// NewGeneSetByRegex creates a named gene-set containing every gene whose
// name fully matches pattern. The bool return is false, with a diagnostic
// logged, if name is already taken.
func (r *Registry) NewGeneSetByRegex(name, pattern string) (GeneSet, bool, error) {
	re, err := compileFull(pattern)
	if err != nil {
		return GeneSet{}, false, err
	}
	n := r.st.NumGenes()
	var ids []store.GeneId
	for g := 0; g < n; g++ {
		gid := store.GeneId(g)
		if fullMatch(re, r.st.GeneName(gid)) {
			ids = append(ids, gid)
		}
	}
	return r.putGeneSet(GeneSet{Name: name, Genes: ids})
}

// NewGeneSetByNames creates a named gene-set from an explicit list of gene
// names, ignoring empty strings and names unknown to the store; it reports
// how many of each were encountered. ok is false, with a diagnostic logged,
// if name is already taken.
func (r *Registry) NewGeneSetByNames(name string, names []string) (gs GeneSet, ignoredCount, emptyCount int, ok bool, err error) {
	var ids []store.GeneId
	for _, n := range names {
		if n == "" {
			emptyCount++
			continue
		}
		id, found := r.st.LookupGene(n)
		if !found {
			ignoredCount++
			continue
		}
		ids = append(ids, id)
	}
	ids = sortDedup(ids)
	gs, ok, err = r.putGeneSet(GeneSet{Name: name, Genes: ids})
	return
}

// NewCellSetByNames is NewGeneSetByNames's cell-set counterpart.
func (r *Registry) NewCellSetByNames(name string, names []string) (cs CellSet, ignoredCount, emptyCount int, ok bool, err error) {
	var ids []store.CellId
	for _, n := range names {
		if n == "" {
			emptyCount++
			continue
		}
		id, found := r.st.LookupCell(n)
		if !found {
			ignoredCount++
			continue
		}
		ids = append(ids, id)
	}
	ids = sortDedup(ids)
	cs, ok, err = r.putCellSet(CellSet{Name: name, Cells: ids})
	return
}

// NewCellSetByMetaDataRegex creates a named cell-set containing every cell
// that has a meta-data pair (field, v) with v fully matching pattern.
func (r *Registry) NewCellSetByMetaDataRegex(name, field, pattern string) (CellSet, bool, error) {
	re, err := compileFull(pattern)
	if err != nil {
		return CellSet{}, false, err
	}
	n := r.st.NumCells()
	var ids []store.CellId
	for c := 0; c < n; c++ {
		cid := store.CellId(c)
		if v, ok := r.st.CellMetaData(cid, field); ok && fullMatch(re, v) {
			ids = append(ids, cid)
		}
	}
	return r.putCellSet(CellSet{Name: name, Cells: ids})
}

// UnionGeneSets creates name as the union of the named input gene-sets. The
// bool return is false, with a diagnostic logged, if any input name is
// unregistered or name is already taken.
func (r *Registry) UnionGeneSets(name string, inputs ...string) (GeneSet, bool, error) {
	resolved, ok := r.resolveGeneSets(inputs)
	if !ok {
		return GeneSet{}, false, nil
	}
	merged := UnionGenes(resolved...)
	merged.Name = name
	return r.putGeneSet(merged)
}

// IntersectGeneSets creates name as the intersection of the named input
// gene-sets.
func (r *Registry) IntersectGeneSets(name string, inputs ...string) (GeneSet, bool, error) {
	resolved, ok := r.resolveGeneSets(inputs)
	if !ok {
		return GeneSet{}, false, nil
	}
	merged := IntersectGenes(resolved...)
	merged.Name = name
	return r.putGeneSet(merged)
}

// DifferenceGeneSets creates name as aName \ bName.
func (r *Registry) DifferenceGeneSets(name, aName, bName string) (GeneSet, bool, error) {
	resolved, ok := r.resolveGeneSets([]string{aName, bName})
	if !ok {
		return GeneSet{}, false, nil
	}
	merged := DifferenceGenes(resolved[0], resolved[1])
	merged.Name = name
	return r.putGeneSet(merged)
}

// UnionCellSets creates name as the union of the named input cell-sets.
func (r *Registry) UnionCellSets(name string, inputs ...string) (CellSet, bool, error) {
	resolved, ok := r.resolveCellSets(inputs)
	if !ok {
		return CellSet{}, false, nil
	}
	merged := UnionCells(resolved...)
	merged.Name = name
	return r.putCellSet(merged)
}

// IntersectCellSets creates name as the intersection of the named input
// cell-sets.
func (r *Registry) IntersectCellSets(name string, inputs ...string) (CellSet, bool, error) {
	resolved, ok := r.resolveCellSets(inputs)
	if !ok {
		return CellSet{}, false, nil
	}
	merged := IntersectCells(resolved...)
	merged.Name = name
	return r.putCellSet(merged)
}

// DifferenceCellSets creates name as aName \ bName.
func (r *Registry) DifferenceCellSets(name, aName, bName string) (CellSet, bool, error) {
	resolved, ok := r.resolveCellSets([]string{aName, bName})
	if !ok {
		return CellSet{}, false, nil
	}
	merged := DifferenceCells(resolved[0], resolved[1])
	merged.Name = name
	return r.putCellSet(merged)
}

// DownSampleCellSet creates name by including each element of input
// independently with probability p, visited in ascending CellId order, using
// a Mersenne-Twister PRNG seeded by seed — bit-for-bit reproducible given
// (input, p, seed). p outside [0,1] is a genuine invalid-input error; name
// already taken is reported via the bool return with a diagnostic logged.
func (r *Registry) DownSampleCellSet(name string, input CellSet, p float64, seed uint64) (CellSet, bool, error) {
	if p < 0 || p > 1 {
		return CellSet{}, false, errors.E(errors.Invalid, "sets: probability outside [0,1]", p)
	}
	rng := rand.New(mt19937.New(seed))
	var ids []store.CellId
	for _, c := range input.Cells { // input.Cells is already ascending CellId.
		if rng.Float64() < p {
			ids = append(ids, c)
		}
	}
	return r.putCellSet(CellSet{Name: name, Cells: ids})
}

func sortDedup[T ordered](ids []T) []T {
	if len(ids) == 0 {
		return ids
	}
	out := append([]T(nil), ids...)
	insertionSort(out)
	dedup := out[:1]
	for _, v := range out[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

func insertionSort[T ordered](a []T) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
