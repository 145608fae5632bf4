package gguf

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/Lab700xOrg/aisbom/bytesource"
)

type memSource struct{ data []byte }

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	return n, nil
}
func (m *memSource) Size(ctx context.Context) (int64, error) { return int64(len(m.data)), nil }
func (m *memSource) Reader(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}
func (m *memSource) Close() error { return nil }

var _ bytesource.Source = (*memSource)(nil)

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint64(len(s)))
	buf.WriteString(s)
}

func buildGGUF(t *testing.T, kvs map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, uint64(len(kvs)))
	for k, v := range kvs {
		writeString(&buf, k)
		binary.Write(&buf, binary.LittleEndian, uint32(typeString))
		writeString(&buf, v)
	}
	return buf.Bytes()
}

func TestInspectLegalRiskFromGeneralLicense(t *testing.T) {
	// spec.md §8 scenario 3.
	data := buildGGUF(t, map[string]string{"general.license": "cc-by-nc-sa-4.0"})

	rec := Inspect(context.Background(), "model.gguf", &memSource{data: data})
	if rec.RiskLevel != "LOW" {
		t.Errorf("got risk_level %q, want LOW", rec.RiskLevel)
	}
	if len(rec.LegalStatus) < len("LEGAL RISK") || rec.LegalStatus[:len("LEGAL RISK")] != "LEGAL RISK" {
		t.Errorf("got legal_status %q, want a LEGAL RISK prefix", rec.LegalStatus)
	}
}

func TestInspectBadMagicIsInvalidHeader(t *testing.T) {
	// spec.md §8 scenario 4.
	data := []byte("BAD_MAGIC_HEADER")

	rec := Inspect(context.Background(), "model.gguf", &memSource{data: data})
	if rec.RiskLevel != "Invalid Header" {
		t.Errorf("got risk_level %q, want %q", rec.RiskLevel, "Invalid Header")
	}
}

func TestInspectArrayTypeHaltsFurtherKVParsing(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, uint64(2))

	writeString(&buf, "some.array")
	binary.Write(&buf, binary.LittleEndian, uint32(typeArray))

	writeString(&buf, "general.license")
	binary.Write(&buf, binary.LittleEndian, uint32(typeString))
	writeString(&buf, "MIT")

	rec := Inspect(context.Background(), "model.gguf", &memSource{data: buf.Bytes()})
	if rec.License != "Unknown" {
		t.Errorf("got license %q, want Unknown since array entry halts parsing before the license KV is reached", rec.License)
	}
	if rec.Details["kv_parsed"] != uint64(0) {
		t.Errorf("got kv_parsed=%v, want 0", rec.Details["kv_parsed"])
	}
}

func TestInspectNoLicenseKVYieldsUnknown(t *testing.T) {
	data := buildGGUF(t, map[string]string{"general.architecture": "llama"})

	rec := Inspect(context.Background(), "model.gguf", &memSource{data: data})
	if rec.License != "Unknown" {
		t.Errorf("got license %q, want Unknown", rec.License)
	}
	if rec.LegalStatus != "UNKNOWN" {
		t.Errorf("got legal_status %q, want UNKNOWN", rec.LegalStatus)
	}
}
