// Package bytesource provides uniform random-access reads over local
// files and remote HTTP Range resources, the leaf capability every
// inspector and the hasher build on (spec.md §4.1, component C1).
package bytesource

import (
	"context"
	"io"
)

// Source is a byte-addressable resource: a local file or a remote HTTP
// object reachable by Range request. Implementations must be safe to use
// from a single goroutine at a time; callers that fan out across files
// should open one Source per file, not share one across goroutines.
type Source interface {
	// ReadAt reads len(p) bytes starting at off, following io.ReaderAt
	// semantics (short reads at EOF return io.EOF).
	ReadAt(p []byte, off int64) (int, error)
	// Size reports the total size of the resource, or -1 if unknown.
	Size(ctx context.Context) (int64, error)
	// Reader returns a forward-streaming reader starting at the
	// beginning of the resource. Callers that only need a bounded
	// prefix (the hasher, the pickle scanner) should prefer this over
	// ReadAt plus a growing buffer.
	Reader(ctx context.Context) (io.ReadCloser, error)
	// Close releases any held file handle or HTTP connection. Every
	// exit path, including error paths, must call Close exactly once.
	Close() error
}
