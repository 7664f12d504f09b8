package mm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorCreateAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v")

	v, err := CreateNew[int64](path, 3, 8)
	require.NoError(t, err)
	v.Set(0, 10)
	v.Set(1, 20)
	v.Set(2, 30)
	require.NoError(t, v.PushBack(40))
	require.Equal(t, 4, v.Len())
	require.NoError(t, v.SyncToDisk())
	require.NoError(t, v.Close())

	v2, err := AccessExisting[int64](path, false)
	require.NoError(t, err)
	defer v2.Close()
	require.Equal(t, []int64{10, 20, 30, 40}, v2.Slice())
}

func TestVectorGrowthBeyondInitialCapacity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v")
	v, err := CreateNew[int32](path, 0, 1)
	require.NoError(t, err)
	defer v.Close()
	for i := int32(0); i < 100; i++ {
		require.NoError(t, v.PushBack(i))
	}
	require.Equal(t, 100, v.Len())
	require.True(t, v.Cap() >= 100)
	for i := 0; i < 100; i++ {
		require.Equal(t, int32(i), v.At(i))
	}
}

func TestVectorObjectSizeMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v")
	v, err := CreateNew[int64](path, 1, 1)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, err = AccessExisting[int32](path, false)
	require.Error(t, err)
}

func TestVectorCreateNewRejectsExistingPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v")
	v, err := CreateNew[int64](path, 1, 1)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, err = CreateNew[int64](path, 1, 1)
	require.Error(t, err)
}

func TestVectorOfVectorsBulkBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vv")
	vv, err := CreateNewVOV[int32, uint32](path, 0)
	require.NoError(t, err)
	defer vv.Close()

	counts := []uint32{2, 0, 3}
	require.NoError(t, vv.BeginBulkBuild(counts))
	vv.WriteRow(0, []int32{1, 2})
	vv.WriteRow(1, nil)
	vv.WriteRow(2, []int32{7, 8, 9})

	require.Equal(t, 3, vv.NumRows())
	require.Equal(t, []int32{1, 2}, vv.Row(0))
	require.Empty(t, vv.Row(1))
	require.Equal(t, []int32{7, 8, 9}, vv.Row(2))
}

func TestVectorOfVectorsAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vv")
	vv, err := CreateNewVOV[byte, uint32](path, 0)
	require.NoError(t, err)
	defer vv.Close()

	require.NoError(t, vv.AppendEmptyRow())
	for _, b := range []byte("hello") {
		require.NoError(t, vv.AppendToLastRow(b))
	}
	require.NoError(t, vv.AppendEmptyRow())
	for _, b := range []byte("hi") {
		require.NoError(t, vv.AppendToLastRow(b))
	}
	require.Equal(t, "hello", string(vv.Row(0)))
	require.Equal(t, "hi", string(vv.Row(1)))
}

func TestStringTableInternAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "st")
	st, err := CreateNewStringTable(path, 16)
	require.NoError(t, err)
	defer st.Close()

	id1, err := st.Intern("alpha")
	require.NoError(t, err)
	id2, err := st.Intern("beta")
	require.NoError(t, err)
	id1Again, err := st.Intern("alpha")
	require.NoError(t, err)
	require.Equal(t, id1, id1Again)
	require.NotEqual(t, id1, id2)

	require.Equal(t, id1, st.Lookup("alpha"))
	require.Equal(t, InvalidStringId, st.Lookup("gamma"))

	name, ok := st.Name(id2)
	require.True(t, ok)
	require.Equal(t, "beta", name)
}

func TestStringTableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "st")
	st, err := CreateNewStringTable(path, 16)
	require.NoError(t, err)
	id, err := st.Intern("persisted")
	require.NoError(t, err)
	require.NoError(t, st.SyncToDisk())
	require.NoError(t, st.Close())

	st2, err := AccessExistingStringTable(path, false)
	require.NoError(t, err)
	defer st2.Close()
	require.Equal(t, id, st2.Lookup("persisted"))
}
