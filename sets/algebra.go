package sets

import "github.com/HIM72/ExpressionMatrix2/store"

type ordered interface{ ~uint32 }

// unionSorted returns the sorted, de-duplicated union of any number of
// already-sorted, duplicate-free lists, via a k-way merge.
func unionSorted[T ordered](lists ...[]T) []T {
	idx := make([]int, len(lists))
	var out []T
	for {
		best := -1
		for i, l := range lists {
			if idx[i] >= len(l) {
				continue
			}
			if best == -1 || l[idx[i]] < lists[best][idx[best]] {
				best = i
			}
		}
		if best == -1 {
			return out
		}
		v := lists[best][idx[best]]
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
		idx[best]++
	}
}

// intersectSorted returns the sorted intersection of any number of
// already-sorted, duplicate-free lists.
func intersectSorted[T ordered](lists ...[]T) []T {
	if len(lists) == 0 {
		return nil
	}
	out := append([]T(nil), lists[0]...)
	for _, l := range lists[1:] {
		out = intersectTwoSorted(out, l)
		if len(out) == 0 {
			break
		}
	}
	return out
}

func intersectTwoSorted[T ordered](a, b []T) []T {
	var out []T
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// differenceSorted returns the elements of a not present in b.
func differenceSorted[T ordered](a, b []T) []T {
	var out []T
	i, j := 0, 0
	for i < len(a) {
		for j < len(b) && b[j] < a[i] {
			j++
		}
		if j < len(b) && b[j] == a[i] {
			i++
			continue
		}
		out = append(out, a[i])
		i++
	}
	return out
}

// UnionGenes returns the sorted union of sets, unnamed (callers set Name).
func UnionGenes(sets ...GeneSet) GeneSet {
	lists := make([][]store.GeneId, len(sets))
	for i, s := range sets {
		lists[i] = s.Genes
	}
	return GeneSet{Genes: unionSorted(lists...)}
}

// IntersectGenes returns the sorted intersection of sets.
func IntersectGenes(sets ...GeneSet) GeneSet {
	lists := make([][]store.GeneId, len(sets))
	for i, s := range sets {
		lists[i] = s.Genes
	}
	return GeneSet{Genes: intersectSorted(lists...)}
}

// DifferenceGenes returns a \ b.
func DifferenceGenes(a, b GeneSet) GeneSet {
	return GeneSet{Genes: differenceSorted(a.Genes, b.Genes)}
}

// UnionCells returns the sorted union of sets.
func UnionCells(sets ...CellSet) CellSet {
	lists := make([][]store.CellId, len(sets))
	for i, s := range sets {
		lists[i] = s.Cells
	}
	return CellSet{Cells: unionSorted(lists...)}
}

// IntersectCells returns the sorted intersection of sets.
func IntersectCells(sets ...CellSet) CellSet {
	lists := make([][]store.CellId, len(sets))
	for i, s := range sets {
		lists[i] = s.Cells
	}
	return CellSet{Cells: intersectSorted(lists...)}
}

// DifferenceCells returns a \ b.
func DifferenceCells(a, b CellSet) CellSet {
	return CellSet{Cells: differenceSorted(a.Cells, b.Cells)}
}
