package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTinyExactSimilarityScenario(t *testing.T) {
	c1 := []Entry{{0, 1}, {1, 2}, {2, 3}}
	c2 := []Entry{{0, 2}, {1, 4}, {2, 6}} // identical shape, scaled by 2.

	sum1 := func(e []Entry) float64 {
		var s float64
		for _, x := range e {
			s += float64(x.Count)
		}
		return s
	}
	sum2 := func(e []Entry) float64 {
		var s float64
		for _, x := range e {
			s += float64(x.Count) * float64(x.Count)
		}
		return s
	}

	got := Pearson(c1, c2, sum1(c1), sum2(c1), sum1(c2), sum2(c2), 3)
	require.InDelta(t, 1.0, got, 1e-9)

	identical := Pearson(c1, c1, sum1(c1), sum2(c1), sum1(c1), sum2(c1), 3)
	require.InDelta(t, 1.0, identical, 1e-9)
}

func TestOrthogonalCellsScenario(t *testing.T) {
	c1 := []Entry{{0, 1}} // gene A only, in gene space [A, B].
	c2 := []Entry{{1, 1}} // gene B only.

	got := Pearson(c1, c2, 1, 1, 1, 1, 2)
	require.InDelta(t, -1.0, got, 1e-9)
}

func TestZeroDenominatorIsNaN(t *testing.T) {
	c1 := []Entry{{0, 5}}
	c2 := []Entry{{0, 5}}
	// Constant vector over n=1: n*sum2 - sum1^2 == 0.
	got := Pearson(c1, c2, 5, 25, 5, 25, 1)
	require.True(t, math.IsNaN(got))
}
