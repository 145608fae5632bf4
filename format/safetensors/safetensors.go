// Package safetensors inspects the SafeTensors container format: a
// length-prefixed JSON header followed by an opaque tensor payload
// (spec.md §4.6, §6, component C6). The format is safe by design — it
// carries no executable bytecode — so risk is LOW whenever the header
// parses (a header that can't be read or parsed yields UNKNOWN plus an
// error); the interesting work is extracting license metadata for the
// legal-risk classification.
package safetensors

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/quay/zlog"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/bytesource"
	"github.com/Lab700xOrg/aisbom/hashsum"
	"github.com/Lab700xOrg/aisbom/internal/obs"
	"github.com/Lab700xOrg/aisbom/license"
)

// Inspect reads name (a path within the scanned tree, for logging) backed
// by src, and returns a populated ArtifactRecord. It never returns an
// error: a malformed header is captured in the record itself.
func Inspect(ctx context.Context, name string, src bytesource.Source) aisbom.ArtifactRecord {
	ctx = obs.WithContext(ctx, "format/safetensors.Inspect", name)

	rec := aisbom.ArtifactRecord{
		Name:        name,
		Framework:   aisbom.FrameworkSafeTensors,
		RiskLevel:   aisbom.RiskLow.String(),
		LegalStatus: string(aisbom.LegalUnknown),
		License:     "Unknown",
		Details:     map[string]any{},
	}
	rec.ContentHash = hashsum.SHA256Prefix(ctx, src, hashsum.DefaultCeiling)

	r, err := src.Reader(ctx)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("safetensors: unable to open reader")
		rec.RiskLevel = aisbom.RiskUnknown.String()
		rec.Error = err.Error()
		return rec
	}
	defer r.Close()

	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		zlog.Debug(ctx).Err(err).Msg("safetensors: unable to read header length")
		rec.RiskLevel = aisbom.RiskUnknown.String()
		rec.Error = err.Error()
		return rec
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		zlog.Debug(ctx).Err(err).Msg("safetensors: unable to read header body")
		rec.RiskLevel = aisbom.RiskUnknown.String()
		rec.Error = err.Error()
		return rec
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(header, &doc); err != nil {
		zlog.Debug(ctx).Err(err).Msg("safetensors: unable to parse header JSON")
		rec.RiskLevel = aisbom.RiskUnknown.String()
		rec.Error = err.Error()
		return rec
	}

	tensorCount := 0
	for k := range doc {
		if k != "__metadata__" {
			tensorCount++
		}
	}
	rec.Details["tensors"] = tensorCount

	meta := map[string]string{}
	if raw, ok := doc["__metadata__"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			zlog.Debug(ctx).Err(err).Msg("safetensors: unable to parse __metadata__")
		}
	}
	rec.Details["metadata"] = meta

	lic := meta["license"]
	if lic == "" {
		lic = "Unknown"
	}
	rec.License = lic
	status, qualifier := license.Classify(lic)
	rec.LegalStatus = license.Qualify(status, qualifier)

	return rec
}
