// Package similarity computes exact Pearson correlation between sparse
// expression vectors over a shared gene dimension, per spec §4.5.
package similarity

import (
	"math"

	"github.com/HIM72/ExpressionMatrix2/store"
	"github.com/HIM72/ExpressionMatrix2/subset"
)

// Entry is one non-zero sparse entry, keyed generically so Pearson can be
// computed equally over a view's local gene ids or the store's global ids.
type Entry struct {
	Gene  int
	Count float32
}

// FromViewRow converts a subset.View row to Entry form.
func FromViewRow(row []subset.Entry) []Entry {
	out := make([]Entry, len(row))
	for i, e := range row {
		out[i] = Entry{Gene: e.LocalGene, Count: e.Count}
	}
	return out
}

// FromStoreRow converts a store.Store expression row to Entry form.
func FromStoreRow(row []store.ExpressionEntry) []Entry {
	out := make([]Entry, len(row))
	for i, e := range row {
		out[i] = Entry{Gene: int(e.Gene), Count: e.Count}
	}
	return out
}

// Pearson computes the Pearson correlation between two sparse vectors over
// a shared gene dimension of size n, given their precomputed sum1/sum2. The
// denominator is assumed positive (both vectors have non-constant
// expression); when it is not, the correlation is undefined and NaN is
// returned, per spec §4.5, so callers must exclude NaN results from pair
// selection.
func Pearson(a, b []Entry, sum1a, sum2a, sum1b, sum2b float64, n int) float64 {
	s := dotIntersect(a, b)
	fn := float64(n)
	num := fn*s - sum1a*sum1b
	denomA := fn*sum2a - sum1a*sum1a
	denomB := fn*sum2b - sum1b*sum1b
	denom := denomA * denomB
	if denom <= 0 {
		return math.NaN()
	}
	return num / math.Sqrt(denom)
}

// dotIntersect computes Σ a_g·b_g via a two-pointer merge of the two sorted
// sparse vectors, touching only the non-zero entries each carries.
func dotIntersect(a, b []Entry) float64 {
	var s float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Gene < b[j].Gene:
			i++
		case a[i].Gene > b[j].Gene:
			j++
		default:
			s += float64(a[i].Count) * float64(b[j].Count)
			i++
			j++
		}
	}
	return s
}
