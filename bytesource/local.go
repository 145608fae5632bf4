package bytesource

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/quay/zlog"
	"github.com/ulikunitz/xz"

	"github.com/Lab700xOrg/aisbom"
)

// Local wraps a file handle on the local filesystem.
type Local struct {
	path string
	f    *os.File
}

var _ Source = (*Local)(nil)

// OpenLocal opens path for random access.
//
// If path ends in ".xz" or ".zst", the returned Source transparently
// decompresses it and reports the decompressed size/content, so a format
// inspector never needs to know the underlying file was compressed for
// transport (spec.md's suffix classification in §4.7 still runs against
// the *inner* name, with the compression suffix stripped — see
// walker.stripCompressionSuffix).
func OpenLocal(ctx context.Context, path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &aisbom.Error{Op: "bytesource.OpenLocal", Kind: aisbom.ErrIO, Inner: err}
	}
	switch {
	case strings.HasSuffix(path, ".xz"):
		return newDecompressed(ctx, path, f, func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) })
	case strings.HasSuffix(path, ".zst"):
		return newDecompressed(ctx, path, f, func(r io.Reader) (io.Reader, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		})
	default:
		return &Local{path: path, f: f}, nil
	}
}

func (l *Local) ReadAt(p []byte, off int64) (int, error) { return l.f.ReadAt(p, off) }

func (l *Local) Size(ctx context.Context) (int64, error) {
	fi, err := l.f.Stat()
	if err != nil {
		return -1, &aisbom.Error{Op: "bytesource.Local.Size", Kind: aisbom.ErrIO, Inner: err}
	}
	return fi.Size(), nil
}

func (l *Local) Reader(ctx context.Context) (io.ReadCloser, error) {
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return nil, &aisbom.Error{Op: "bytesource.Local.Reader", Kind: aisbom.ErrIO, Inner: err}
	}
	return io.NopCloser(l.f), nil
}

func (l *Local) Close() error { return l.f.Close() }

// decompressed materializes a bounded, transparently-decompressed copy of
// a local file into memory. This is only used for the .xz/.zst shard
// transparency supplement (SPEC_FULL.md DOMAIN STACK). Memory use is
// bounded here, by maxDecompressedShard: decompressed content beyond that
// cap is dropped, and Size reports the truncated length.
type decompressed struct {
	path string
	buf  *bytes.Reader
	size int64
	raw  *os.File
}

var _ Source = (*decompressed)(nil)

const maxDecompressedShard = 100 << 20 // mirrors hashsum's 100MiB cap

func newDecompressed(ctx context.Context, path string, raw *os.File, wrap func(io.Reader) (io.Reader, error)) (Source, error) {
	r, err := wrap(raw)
	if err != nil {
		raw.Close()
		return nil, &aisbom.Error{Op: "bytesource.OpenLocal", Kind: aisbom.ErrParse, Message: "decompressing " + path, Inner: err}
	}
	data, err := io.ReadAll(io.LimitReader(r, maxDecompressedShard+1))
	if err != nil {
		raw.Close()
		return nil, &aisbom.Error{Op: "bytesource.OpenLocal", Kind: aisbom.ErrIO, Message: "decompressing " + path, Inner: err}
	}
	if len(data) > maxDecompressedShard {
		data = data[:maxDecompressedShard]
		zlog.Debug(ctx).Str("path", path).Msg("decompressed shard truncated at cap")
	}
	return &decompressed{path: path, buf: bytes.NewReader(data), size: int64(len(data)), raw: raw}, nil
}

func (d *decompressed) ReadAt(p []byte, off int64) (int, error) { return d.buf.ReadAt(p, off) }

func (d *decompressed) Size(ctx context.Context) (int64, error) { return d.size, nil }

func (d *decompressed) Reader(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(io.NewSectionReader(d.buf, 0, d.size)), nil
}

func (d *decompressed) Close() error { return d.raw.Close() }
