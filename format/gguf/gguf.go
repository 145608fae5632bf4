// Package gguf inspects the GGUF container format: a typed key/value
// binary header in front of the tensor data (spec.md §4.6, §6, component
// C6).
package gguf

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/quay/zlog"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/bytesource"
	"github.com/Lab700xOrg/aisbom/hashsum"
	"github.com/Lab700xOrg/aisbom/internal/obs"
	"github.com/Lab700xOrg/aisbom/license"
)

var magic = [4]byte{'G', 'G', 'U', 'F'}

// GGUF value types, per spec.md §4.6/§6.
const (
	typeUint8   = 0
	typeInt8    = 1
	typeUint16  = 2
	typeInt16   = 3
	typeUint32  = 4
	typeInt32   = 5
	typeFloat32 = 6
	typeBool    = 7
	typeString  = 8
	typeArray   = 9
	typeUint64  = 10
	typeInt64   = 11
	typeFloat64 = 12
)

// scalarSize is the fixed byte width of each scalar numeric type, per
// spec.md §4.6.
var scalarSize = map[uint32]int64{
	typeUint8: 1, typeInt8: 1, typeBool: 1,
	typeUint16: 2, typeInt16: 2,
	typeUint32: 4, typeInt32: 4, typeFloat32: 4,
	typeUint64: 8, typeInt64: 8, typeFloat64: 8,
}

// Inspect reads name (a path within the scanned tree, for logging) backed
// by src, and returns a populated ArtifactRecord. It never returns an
// error: a malformed header is captured in the record itself.
func Inspect(ctx context.Context, name string, src bytesource.Source) aisbom.ArtifactRecord {
	ctx = obs.WithContext(ctx, "format/gguf.Inspect", name)

	rec := aisbom.ArtifactRecord{
		Name:        name,
		Framework:   aisbom.FrameworkGGUF,
		RiskLevel:   aisbom.RiskLow.String(),
		LegalStatus: string(aisbom.LegalUnknown),
		License:     "Unknown",
		Details:     map[string]any{},
	}
	rec.ContentHash = hashsum.SHA256Prefix(ctx, src, hashsum.DefaultCeiling)

	r, err := src.Reader(ctx)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("gguf: unable to open reader")
		rec.RiskLevel = aisbom.RiskUnknown.String()
		rec.Error = err.Error()
		return rec
	}
	defer r.Close()

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil || hdr != magic {
		rec.RiskLevel = "Invalid Header"
		if err != nil {
			rec.Error = err.Error()
		}
		return rec
	}

	var version uint32
	var tensorCount, kvCount uint64
	for _, v := range []any{&version, &tensorCount, &kvCount} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			rec.RiskLevel = "Invalid Header"
			rec.Error = err.Error()
			return rec
		}
	}
	rec.Details["version"] = version
	rec.Details["tensor_count"] = tensorCount

	lic := ""
	kvRead := uint64(0)
	for ; kvRead < kvCount; kvRead++ {
		key, val, ok := readKV(r)
		if !ok {
			break
		}
		if key == "general.license" {
			if s, ok := val.(string); ok {
				lic = s
			}
		}
	}
	rec.Details["kv_parsed"] = kvRead

	if lic == "" {
		lic = "Unknown"
	}
	rec.License = lic
	status, qualifier := license.Classify(lic)
	rec.LegalStatus = license.Qualify(status, qualifier)

	return rec
}

// readKV reads one GGUF key/value entry. ok is false if the stream ended
// or the entry's type stopped parsing (array, or unknown type — spec.md
// §4.6: "the engine does not claim GGUF array support"). On ok == false
// the caller stops reading further entries entirely, since the byte
// offset of anything after an unparsed value is unrecoverable.
func readKV(r io.Reader) (key string, val any, ok bool) {
	var keyLen uint64
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return "", nil, false
	}
	keyBytes := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyBytes); err != nil {
		return "", nil, false
	}
	key = string(keyBytes)

	var valType uint32
	if err := binary.Read(r, binary.LittleEndian, &valType); err != nil {
		return "", nil, false
	}

	switch valType {
	case typeString:
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return "", nil, false
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return "", nil, false
		}
		return key, string(b), true
	case typeArray:
		// Not supported: stop parsing further KV entries.
		return "", nil, false
	default:
		if sz, known := scalarSize[valType]; known {
			b := make([]byte, sz)
			if _, err := io.ReadFull(r, b); err != nil {
				return "", nil, false
			}
			return key, nil, true
		}
		// Unknown type: stop parsing further KV entries.
		return "", nil, false
	}
}
