// Package manifestpb defines the small store manifest record (format
// version and capacities) that is framed with github.com/grailbio/base/recordio
// and written to the store directory's "manifest" file, mirroring exactly
// how encoding/pam/pamutil frames its PAMShardIndex: protobuf payload inside
// a single-block, zstd-compressed recordio file. The bulk columnar data
// (names, counts, expression rows) never goes through this path — only this
// one small piece of store-wide metadata does.
//
// Encoding is done directly against github.com/gogo/protobuf/proto's Buffer
// primitive rather than against protoc-generated code, since this project's
// build does not invoke protoc; the wire format produced is standard
// protobuf (field 1 = magic, 2 = version, 3 = gene capacity, 4 = cell
// capacity, 5 = meta-data name capacity, 6 = meta-data value capacity, 7 =
// created-at unix nanos), decodable by any protobuf implementation.
package manifestpb

import (
	"github.com/gogo/protobuf/proto"
	"github.com/grailbio/base/errors"
)

// Magic identifies a well-formed manifest record, independent of the
// mmap-container Magic in package mm.
const Magic = uint64(0x456D3278324D6632) // ASCII "Em2x2Mf2".

// Version is the manifest schema version written by this package.
const Version = "EM2-1"

// Manifest is the store-wide metadata record.
type Manifest struct {
	Magic                     uint64
	Version                   string
	GeneCapacity              uint32
	CellCapacity              uint32
	CellMetaDataNameCapacity  uint32
	CellMetaDataValueCapacity uint32
	CreatedUnixNanos          int64
}

const (
	tagMagic           = 1<<3 | 0
	tagVersion         = 2<<3 | 2
	tagGeneCapacity    = 3<<3 | 0
	tagCellCapacity    = 4<<3 | 0
	tagMetaNameCap     = 5<<3 | 0
	tagMetaValueCap    = 6<<3 | 0
	tagCreatedUnixNano = 7<<3 | 0
)

// Marshal encodes m as a protobuf message.
func (m Manifest) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	if err := buf.EncodeVarint(tagMagic); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(m.Magic); err != nil {
		return nil, err
	}
	if err := buf.EncodeVarint(tagVersion); err != nil {
		return nil, err
	}
	if err := buf.EncodeStringBytes(m.Version); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		tag uint64
		val uint64
	}{
		{tagGeneCapacity, uint64(m.GeneCapacity)},
		{tagCellCapacity, uint64(m.CellCapacity)},
		{tagMetaNameCap, uint64(m.CellMetaDataNameCapacity)},
		{tagMetaValueCap, uint64(m.CellMetaDataValueCapacity)},
		{tagCreatedUnixNano, uint64(m.CreatedUnixNanos)},
	} {
		if err := buf.EncodeVarint(f.tag); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(f.val); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data produced by Marshal.
func (m *Manifest) Unmarshal(data []byte) error {
	buf := proto.NewBuffer(data)
	for {
		tag, err := buf.DecodeVarint()
		if err != nil {
			break // clean EOF at a field boundary.
		}
		switch tag {
		case tagMagic:
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: magic")
			}
			m.Magic = v
		case tagVersion:
			v, err := buf.DecodeStringBytes()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: version")
			}
			m.Version = v
		case tagGeneCapacity:
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: gene capacity")
			}
			m.GeneCapacity = uint32(v)
		case tagCellCapacity:
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: cell capacity")
			}
			m.CellCapacity = uint32(v)
		case tagMetaNameCap:
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: meta name capacity")
			}
			m.CellMetaDataNameCapacity = uint32(v)
		case tagMetaValueCap:
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: meta value capacity")
			}
			m.CellMetaDataValueCapacity = uint32(v)
		case tagCreatedUnixNano:
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.E(errors.Other, err, "manifestpb: created at")
			}
			m.CreatedUnixNanos = int64(v)
		default:
			return errors.E(errors.Other, "manifestpb: unknown field tag", tag)
		}
	}
	if m.Magic != Magic {
		return errors.E(errors.Other, "manifestpb: magic mismatch")
	}
	return nil
}
