// Package mm implements the fixed-layout, memory-mapped containers that
// back the expression matrix store: Vector[T], VectorOfVectors[T] and
// StringTable. Every file this package creates begins with a 256-byte
// self-describing header (magic number, object size/count, page/file size,
// capacity) followed by the raw payload, mapped directly into the process
// address space with golang.org/x/sys/unix.Mmap.
package mm

import (
	"encoding/binary"

	"github.com/grailbio/base/errors"
)

// HeaderSize is the fixed size, in bytes, of every container's leading
// header block.
const HeaderSize = 256

// PageSize is the page granularity every container's backing file is
// truncated to.
const PageSize = 4096

// Magic identifies a well-formed container file. A mismatch on open means
// the file was never fully written, or is the wrong kind of file.
const Magic = uint64(0xA3756FD4B5D8BCC1)

// fileHeader is the decoded form of the leading HeaderSize bytes of a
// container file. Field order here is the on-disk field order.
type fileHeader struct {
	Magic       uint64
	HeaderSize  uint64
	ObjectSize  uint64
	ObjectCount uint64
	PageCount   uint64
	FileSize    uint64
	Capacity    uint64
}

const headerFieldCount = 7
const headerEncodedSize = headerFieldCount * 8

func (h fileHeader) encodeInto(buf []byte) {
	if len(buf) < HeaderSize {
		panic("mm: header buffer too small")
	}
	binary.LittleEndian.PutUint64(buf[0:8], h.Magic)
	binary.LittleEndian.PutUint64(buf[8:16], h.HeaderSize)
	binary.LittleEndian.PutUint64(buf[16:24], h.ObjectSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.ObjectCount)
	binary.LittleEndian.PutUint64(buf[32:40], h.PageCount)
	binary.LittleEndian.PutUint64(buf[40:48], h.FileSize)
	binary.LittleEndian.PutUint64(buf[48:56], h.Capacity)
	for i := headerEncodedSize; i < HeaderSize; i++ {
		buf[i] = 0
	}
}

func decodeHeader(buf []byte) (fileHeader, error) {
	if len(buf) < HeaderSize {
		return fileHeader{}, errors.E(errors.Other, "mm: truncated header")
	}
	h := fileHeader{
		Magic:       binary.LittleEndian.Uint64(buf[0:8]),
		HeaderSize:  binary.LittleEndian.Uint64(buf[8:16]),
		ObjectSize:  binary.LittleEndian.Uint64(buf[16:24]),
		ObjectCount: binary.LittleEndian.Uint64(buf[24:32]),
		PageCount:   binary.LittleEndian.Uint64(buf[32:40]),
		FileSize:    binary.LittleEndian.Uint64(buf[40:48]),
		Capacity:    binary.LittleEndian.Uint64(buf[48:56]),
	}
	if h.Magic != Magic {
		return fileHeader{}, errors.E(errors.Other, "mm: corrupt file, magic mismatch")
	}
	if h.HeaderSize != HeaderSize {
		return fileHeader{}, errors.E(errors.Other, "mm: corrupt file, header size mismatch")
	}
	return h, nil
}

// pageAlign rounds n up to the next multiple of PageSize.
func pageAlign(n uint64) uint64 {
	return (n + PageSize - 1) / PageSize * PageSize
}
