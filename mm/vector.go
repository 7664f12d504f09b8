package mm

import (
	"os"
	"unsafe"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"golang.org/x/sys/unix"
)

// Vector is a contiguous, file-backed array of fixed-layout T, memory-mapped
// for the lifetime of the handle. T must be a fixed-size value type (no
// pointers, no slices/maps/strings) since its bytes are addressed directly
// inside the mapped region.
//
// Vector is not safe for concurrent use; the Entity Store serializes all
// mutation through a single writer, per spec.
type Vector[T any] struct {
	path     string
	f        *os.File
	data     []byte
	writable bool
	hdr      fileHeader
}

func sizeofT[T any]() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

// CreateNew creates a new Vector file at path with n initial elements
// (zero-valued) and room for at least capacity elements without remapping.
// It fails if path already exists.
func CreateNew[T any](path string, n, capacity int) (*Vector[T], error) {
	if n < 0 || capacity < 0 {
		return nil, errors.E(errors.Invalid, "mm.CreateNew: negative size", path)
	}
	if capacity < n {
		capacity = n
	}
	objSize := sizeofT[T]()
	fileSize := pageAlign(HeaderSize + objSize*uint64(capacity))
	capacity = int((fileSize - HeaderSize) / objSize)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.E(errors.Exists, err, path)
		}
		return nil, errors.E(errors.IO, err, path)
	}
	v, err := finishCreate[T](f, path, uint64(n), uint64(capacity), objSize, fileSize)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return v, nil
}

func finishCreate[T any](f *os.File, path string, n, capacity, objSize, fileSize uint64) (*Vector[T], error) {
	if err := f.Truncate(int64(fileSize)); err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, "truncate", path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fileSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, "mmap", path)
	}
	v := &Vector[T]{
		path:     path,
		f:        f,
		data:     data,
		writable: true,
		hdr: fileHeader{
			Magic:       Magic,
			HeaderSize:  HeaderSize,
			ObjectSize:  objSize,
			ObjectCount: n,
			PageCount:   fileSize / PageSize,
			FileSize:    fileSize,
			Capacity:    capacity,
		},
	}
	v.writeHeader()
	return v, nil
}

// AccessExisting opens a previously created Vector file. If writable is
// false, mutating methods panic.
func AccessExisting[T any](path string, writable bool) (*Vector[T], error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, err, path)
		}
		return nil, errors.E(errors.IO, err, path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, path)
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.E(errors.IO, err, "mmap", path)
	}
	hdr, err := decodeHeader(data)
	if err != nil {
		unix.Munmap(data) // nolint: errcheck
		f.Close()
		_ = os.Remove(path) // incomplete sentinel header: undefined but recoverable, per spec §5.
		return nil, err
	}
	if hdr.ObjectSize != sizeofT[T]() {
		unix.Munmap(data) // nolint: errcheck
		f.Close()
		return nil, errors.E(errors.Other, "mm: object size mismatch", path)
	}
	if hdr.FileSize != uint64(info.Size()) {
		unix.Munmap(data) // nolint: errcheck
		f.Close()
		return nil, errors.E(errors.Other, "mm: file size mismatch", path)
	}
	return &Vector[T]{path: path, f: f, data: data, writable: writable, hdr: hdr}, nil
}

func (v *Vector[T]) writeHeader() {
	v.hdr.encodeInto(v.data[:HeaderSize])
}

func (v *Vector[T]) objects() []T {
	if v.hdr.Capacity == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&v.data[HeaderSize])), v.hdr.Capacity)
}

// Len returns the number of live elements.
func (v *Vector[T]) Len() int { return int(v.hdr.ObjectCount) }

// Cap returns the number of elements storable before a remap is needed.
func (v *Vector[T]) Cap() int { return int(v.hdr.Capacity) }

// At returns the element at index i.
func (v *Vector[T]) At(i int) T { return v.objects()[i] }

// Set overwrites the element at index i, which must be < Len().
func (v *Vector[T]) Set(i int, val T) { v.objects()[i] = val }

// Slice returns the live prefix of the backing array. The returned slice
// aliases the memory-mapped region and is invalidated by any subsequent
// growth (PushBack/Resize/Reserve) on this Vector.
func (v *Vector[T]) Slice() []T { return v.objects()[:v.hdr.ObjectCount] }

func (v *Vector[T]) requireWritable() {
	if !v.writable {
		log.Panicf("mm.Vector: mutation on read-only handle %s", v.path)
	}
}

// PushBack appends val, growing the backing file if necessary. On overflow
// the new capacity is 1.5x the new size, per spec; growth that cannot be
// satisfied (e.g. disk full) surfaces as a CapacityExhausted-kind error.
func (v *Vector[T]) PushBack(val T) error {
	v.requireWritable()
	if v.hdr.ObjectCount >= v.hdr.Capacity {
		newSize := v.hdr.ObjectCount + 1
		newCap := uint64(1.5 * float64(newSize))
		if newCap <= newSize {
			newCap = newSize
		}
		if err := v.Reserve(int(newCap)); err != nil {
			return err
		}
	}
	v.objects()[v.hdr.ObjectCount] = val
	v.hdr.ObjectCount++
	v.writeHeader()
	return nil
}

// Resize sets the live length to n. Growing zero-fills the new entries;
// shrinking merely reduces ObjectCount (the bytes are left in place but are
// no longer addressable via Slice/At).
func (v *Vector[T]) Resize(n int) error {
	v.requireWritable()
	if n < 0 {
		return errors.E(errors.Invalid, "mm.Resize: negative size")
	}
	if uint64(n) > v.hdr.Capacity {
		if err := v.Reserve(n); err != nil {
			return err
		}
	}
	if uint64(n) > v.hdr.ObjectCount {
		objs := v.objects()
		var zero T
		for i := v.hdr.ObjectCount; i < uint64(n); i++ {
			objs[i] = zero
		}
	}
	v.hdr.ObjectCount = uint64(n)
	v.writeHeader()
	return nil
}

// Reserve ensures the backing file can hold at least capacity elements
// without further remapping, remapping immediately if necessary.
func (v *Vector[T]) Reserve(capacity int) error {
	v.requireWritable()
	if capacity < 0 {
		return errors.E(errors.Invalid, "mm.Reserve: negative capacity")
	}
	if uint64(capacity) <= v.hdr.Capacity {
		return nil
	}
	newFileSize := pageAlign(HeaderSize + v.hdr.ObjectSize*uint64(capacity))
	if err := unix.Munmap(v.data); err != nil {
		return errors.E(errors.IO, err, "munmap", v.path)
	}
	if err := v.f.Truncate(int64(newFileSize)); err != nil {
		// Re-map at the old size so the handle remains usable.
		if data, remapErr := unix.Mmap(int(v.f.Fd()), 0, int(v.hdr.FileSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); remapErr == nil {
			v.data = data
		}
		return errors.E(errors.Precondition, err, "CapacityExhausted", v.path)
	}
	data, err := unix.Mmap(int(v.f.Fd()), 0, int(newFileSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.E(errors.IO, err, "mmap", v.path)
	}
	v.data = data
	v.hdr.Capacity = (newFileSize - HeaderSize) / v.hdr.ObjectSize
	v.hdr.FileSize = newFileSize
	v.hdr.PageCount = newFileSize / PageSize
	v.writeHeader()
	return nil
}

// SyncToDisk forces the mapped region (including the header) to durable
// storage.
func (v *Vector[T]) SyncToDisk() error {
	v.writeHeader()
	if err := unix.Msync(v.data, unix.MS_SYNC); err != nil {
		return errors.E(errors.IO, err, "msync", v.path)
	}
	return nil
}

// Close unmaps and closes the backing file. The handle must not be used
// afterward.
func (v *Vector[T]) Close() error {
	var errp errors.Once
	if v.data != nil {
		errp.Set(unix.Munmap(v.data))
		v.data = nil
	}
	if v.f != nil {
		errp.Set(v.f.Close())
		v.f = nil
	}
	return errp.Err()
}

// Remove closes the Vector (if still open) and deletes its backing file.
func (v *Vector[T]) Remove() error {
	path := v.path
	_ = v.Close()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.E(errors.IO, err, "remove", path)
	}
	return nil
}

// RemoveVectorFile deletes the file at path without requiring an open
// handle, for callers (e.g. named-set deletion) that never mapped it in
// this process.
func RemoveVectorFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.E(errors.IO, err, "remove", path)
	}
	return nil
}
