// Package hashsum computes the bounded-prefix SHA-256 content hash that
// every ArtifactRecord carries (spec.md §4.2, component C2).
package hashsum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/quay/zlog"

	"github.com/Lab700xOrg/aisbom/bytesource"
)

// DefaultCeiling is the default bound on how much of a resource gets
// hashed: 100MiB, per spec.md §3/§5.
const DefaultCeiling = 100 << 20

// ErrorSentinel is the exact string returned on any I/O or permission
// failure while hashing. Tests rely on this exact value (spec.md §4.2,
// §8 "Sentinel stability").
const ErrorSentinel = "hash_error"

// SHA256Prefix returns the lowercase hex SHA-256 digest of the first
// ceiling bytes of src, or ErrorSentinel on any I/O failure. It never
// returns an error: a failed hash is itself a result the caller records.
func SHA256Prefix(ctx context.Context, src bytesource.Source, ceiling int64) string {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	r, err := src.Reader(ctx)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("hashsum: failed to open reader")
		return ErrorSentinel
	}
	defer r.Close()

	h := sha256.New()
	if _, err := io.Copy(h, io.LimitReader(r, ceiling)); err != nil {
		zlog.Debug(ctx).Err(err).Msg("hashsum: failed reading for hash")
		return ErrorSentinel
	}
	return hex.EncodeToString(h.Sum(nil))
}
