package bitvec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitOrderMSBFirst(t *testing.T) {
	v := New(128)
	v.Set(0)
	require.Equal(t, uint64(1)<<63, v.Words()[0])
	v.Clear(0)
	v.Set(63)
	require.Equal(t, uint64(1), v.Words()[0])
	v.Set(64)
	require.Equal(t, uint64(1)<<63, v.Words()[1])
}

func TestGetSetClearRoundTrip(t *testing.T) {
	v := New(70)
	for i := 0; i < 70; i++ {
		require.False(t, v.Get(i))
	}
	v.Set(5)
	v.Set(69)
	require.True(t, v.Get(5))
	require.True(t, v.Get(69))
	v.Clear(5)
	require.False(t, v.Get(5))
	require.True(t, v.Get(69))
}

func TestGetBits(t *testing.T) {
	v := New(10)
	v.Set(1)
	v.Set(4)
	got := v.GetBits([]int{0, 1, 2, 4})
	require.Equal(t, []bool{false, true, false, true}, got)
}

func TestCountMismatchesIdenticalIsZero(t *testing.T) {
	a := New(200)
	b := New(200)
	for _, i := range []int{3, 10, 199} {
		a.Set(i)
		b.Set(i)
	}
	require.Equal(t, 0, CountMismatches(a, b))
}

func TestCountMismatchesCountsDifferences(t *testing.T) {
	a := New(128)
	b := New(128)
	a.Set(0)
	b.Set(1)
	b.Set(2)
	require.Equal(t, 3, CountMismatches(a, b))
}

func TestArenaSignaturesAreIndependent(t *testing.T) {
	arena := NewArena(4, 37)
	arena.Signature(0).Set(0)
	arena.Signature(1).Set(36)
	require.True(t, arena.Signature(0).Get(0))
	require.False(t, arena.Signature(1).Get(0))
	require.True(t, arena.Signature(1).Get(36))
	require.Equal(t, 2, arena.Hamming(0, 1))
}
