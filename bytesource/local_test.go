package bytesource

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

func TestOpenLocalPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	want := []byte("some artifact bytes, read at random offsets")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenLocal(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	size, err := src.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(want)) {
		t.Errorf("got size %d, want %d", size, len(want))
	}

	buf := make([]byte, 4)
	n, err := src.ReadAt(buf, 5)
	if err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if string(buf[:n]) != string(want[5:9]) {
		t.Errorf("got %q, want %q", buf[:n], want[5:9])
	}

	r, err := src.Reader(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOpenLocalTransparentXZDecompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.gguf.xz")
	want := []byte("gguf-shaped payload compressed for transport")

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenLocal(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	r, err := src.Reader(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOpenLocalTransparentZstdDecompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.safetensors.zst")
	want := []byte("safetensors-shaped payload compressed for transport")

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll(want, nil)
	enc.Close()
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenLocal(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	size, err := src.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(want)) {
		t.Errorf("got size %d, want %d", size, len(want))
	}

	got := make([]byte, len(want))
	if _, err := src.ReadAt(got, 0); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOpenLocalMissingFile(t *testing.T) {
	_, err := OpenLocal(context.Background(), filepath.Join(t.TempDir(), "nope.bin"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
