package store

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/HIM72/ExpressionMatrix2/manifestpb"
)

func init() {
	recordiozstd.Init()
}

func manifestPath(dir string) string {
	return fmt.Sprintf("%s/manifest", dir)
}

// writeManifest serializes m into a single-block, zstd-compressed recordio
// file, exactly as encoding/pam/pamutil.WriteShardIndex frames its shard
// index: a protobuf payload inside one recordio record.
func writeManifest(ctx context.Context, dir string, m manifestpb.Manifest) error {
	path := manifestPath(dir)
	data, err := m.Marshal()
	if err != nil {
		return errors.E(errors.Other, err, "marshal manifest")
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(errors.IO, err, path)
	}
	e := errorreporter.T{}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.Append(data)
	e.Set(w.Finish())
	e.Set(out.Close(ctx))
	if e.Err() != nil {
		return errors.E(errors.IO, e.Err(), "write manifest", path)
	}
	return nil
}

// readManifest reads back a manifest written by writeManifest.
func readManifest(ctx context.Context, dir string) (m manifestpb.Manifest, err error) {
	path := manifestPath(dir)
	in, err := file.Open(ctx, path)
	if err != nil {
		return m, errors.E(errors.NotExist, err, path)
	}
	defer file.CloseAndReport(ctx, in, &err)

	scanner := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	defer scanner.Finish() // nolint: errcheck
	if !scanner.Scan() {
		return m, errors.E(errors.Other, scanner.Err(), "empty manifest", path)
	}
	if err := m.Unmarshal(scanner.Get().([]byte)); err != nil {
		return m, errors.E(errors.Other, err, "corrupt manifest", path)
	}
	return m, scanner.Err()
}
