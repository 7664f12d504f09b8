package mm

import "github.com/grailbio/base/errors"

// Integer is the set of types usable as VectorOfVectors table-of-contents
// offsets (and as StringTable arena offsets).
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// VectorOfVectors is a jagged array: a flat data Vector plus a
// table-of-contents Vector of row-start offsets (size = rowCount+1). It
// backs every per-cell or per-entity variable-length field in the store
// (expression counts, meta-data pairs, interned name bytes).
type VectorOfVectors[T any, I Integer] struct {
	data *Vector[T]
	toc  *Vector[I]
}

// CreateNewVOV creates a new, empty (zero rows) VectorOfVectors rooted at
// basePath (basePath+".data" and basePath+".toc" are created).
// dataCapacityHint sizes the initial data Vector to avoid early remaps.
func CreateNewVOV[T any, I Integer](basePath string, dataCapacityHint int) (*VectorOfVectors[T, I], error) {
	toc, err := CreateNew[I](basePath+".toc", 1, 1)
	if err != nil {
		return nil, err
	}
	data, err := CreateNew[T](basePath+".data", 0, dataCapacityHint)
	if err != nil {
		toc.Remove() // nolint: errcheck
		return nil, err
	}
	return &VectorOfVectors[T, I]{data: data, toc: toc}, nil
}

// AccessExistingVOV opens a previously created VectorOfVectors.
func AccessExistingVOV[T any, I Integer](basePath string, writable bool) (*VectorOfVectors[T, I], error) {
	toc, err := AccessExisting[I](basePath+".toc", writable)
	if err != nil {
		return nil, err
	}
	data, err := AccessExisting[T](basePath+".data", writable)
	if err != nil {
		toc.Close() // nolint: errcheck
		return nil, err
	}
	return &VectorOfVectors[T, I]{data: data, toc: toc}, nil
}

// NumRows returns the number of outer rows.
func (vv *VectorOfVectors[T, I]) NumRows() int { return vv.toc.Len() - 1 }

// Row returns the entries of row i. The returned slice aliases the mapped
// data region, per the aliasing caveat documented on Vector.Slice.
func (vv *VectorOfVectors[T, I]) Row(i int) []T {
	start := int(vv.toc.At(i))
	end := int(vv.toc.At(i + 1))
	return vv.data.Slice()[start:end]
}

// RowLen returns len(Row(i)) without materializing the slice.
func (vv *VectorOfVectors[T, I]) RowLen(i int) int {
	return int(vv.toc.At(i+1)) - int(vv.toc.At(i))
}

// AppendEmptyRow appends a new, empty trailing row.
func (vv *VectorOfVectors[T, I]) AppendEmptyRow() error {
	last := vv.toc.At(vv.toc.Len() - 1)
	return vv.toc.PushBack(last)
}

// AppendToLastRow appends val to the current last row.
func (vv *VectorOfVectors[T, I]) AppendToLastRow(val T) error {
	if vv.toc.Len() < 2 {
		return errors.E(errors.Precondition, "mm: AppendToLastRow with no rows")
	}
	if err := vv.data.PushBack(val); err != nil {
		return err
	}
	vv.toc.Set(vv.toc.Len()-1, I(vv.data.Len()))
	return nil
}

// BeginBulkBuild implements the two-pass bulk-build scheme: given the final
// per-row counts (pass 1 output), it prefix-sums them into the
// table-of-contents and preallocates the data vector to the total size
// (pass 2 can then call WriteRow for each row, including concurrently,
// since rows own disjoint byte ranges).
func (vv *VectorOfVectors[T, I]) BeginBulkBuild(rowCounts []I) error {
	n := len(rowCounts)
	if err := vv.toc.Resize(n + 1); err != nil {
		return err
	}
	var sum I
	for i, c := range rowCounts {
		vv.toc.Set(i, sum)
		sum += c
	}
	vv.toc.Set(n, sum)
	return vv.data.Resize(int(sum))
}

// WriteRow overwrites the entries of row i in place. Requires a prior
// BeginBulkBuild call establishing row i's byte range, and len(values) ==
// the count passed for row i.
func (vv *VectorOfVectors[T, I]) WriteRow(i int, values []T) {
	start := int(vv.toc.At(i))
	copy(vv.data.Slice()[start:start+len(values)], values)
}

// SyncToDisk flushes both backing vectors.
func (vv *VectorOfVectors[T, I]) SyncToDisk() error {
	var errp errors.Once
	errp.Set(vv.data.SyncToDisk())
	errp.Set(vv.toc.SyncToDisk())
	return errp.Err()
}

// Close unmaps both backing vectors.
func (vv *VectorOfVectors[T, I]) Close() error {
	var errp errors.Once
	errp.Set(vv.data.Close())
	errp.Set(vv.toc.Close())
	return errp.Err()
}

// Remove closes and deletes both backing files.
func (vv *VectorOfVectors[T, I]) Remove() error {
	var errp errors.Once
	errp.Set(vv.data.Remove())
	errp.Set(vv.toc.Remove())
	return errp.Err()
}
