package store

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
)

// ExportSet writes the sorted id list of a gene-set or cell-set to path as
// a portable, snappy-compressed blob, so it can be copied between store
// directories or processes. Grounded on the streaming use of
// snappy.NewBufferedWriter/NewReader for compact shard records in
// encoding/bampair/disk_mate_shard.go, though here the payload is a flat
// uint32 id list rather than marshaled BAM records.
func ExportSet(path string, ids []uint32) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.E(errors.IO, err, path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := snappy.NewBufferedWriter(f)
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, uint32(len(ids)))
	if _, err = w.Write(hdr); err != nil {
		return errors.E(errors.IO, err, path)
	}
	buf := make([]byte, 4)
	for _, id := range ids {
		binary.LittleEndian.PutUint32(buf, id)
		if _, err = w.Write(buf); err != nil {
			return errors.E(errors.IO, err, path)
		}
	}
	if err = w.Close(); err != nil {
		return errors.E(errors.IO, err, path)
	}
	return nil
}

// ImportSet reads back an id list written by ExportSet.
func ImportSet(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, err, path)
		}
		return nil, errors.E(errors.IO, err, path)
	}
	defer f.Close()

	r := snappy.NewReader(f)
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, errors.E(errors.Other, err, "corrupt exported set", path)
	}
	n := binary.LittleEndian.Uint32(hdr)
	ids := make([]uint32, n)
	buf := make([]byte, 4)
	for i := range ids {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.E(errors.Other, err, "corrupt exported set", path)
		}
		ids[i] = binary.LittleEndian.Uint32(buf)
	}
	return ids, nil
}
