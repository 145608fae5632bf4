package walker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/Lab700xOrg/aisbom"
)

func TestClassifyRecognizesArtifactExtensions(t *testing.T) {
	cases := []struct {
		name         string
		wantArtifact bool
		wantManifest bool
	}{
		{"model.pt", true, false},
		{"model.pth", true, false},
		{"pytorch_model.bin", true, false},
		{"model.safetensors", true, false},
		{"model.gguf", true, false},
		{"requirements.txt", false, true},
		{"README.md", false, false},
		{"model.safetensors.xz", true, false},
		{"model.gguf.zst", true, false},
	}
	for _, c := range cases {
		gotArtifact, gotManifest := classify(c.name)
		if gotArtifact != c.wantArtifact || gotManifest != c.wantManifest {
			t.Errorf("classify(%q) = (%v, %v), want (%v, %v)", c.name, gotArtifact, gotManifest, c.wantArtifact, c.wantManifest)
		}
	}
}

func TestStripCompressionSuffix(t *testing.T) {
	if got := stripCompressionSuffix("model.gguf.xz"); got != "model.gguf" {
		t.Errorf("got %q", got)
	}
	if got := stripCompressionSuffix("model.gguf.zst"); got != "model.gguf" {
		t.Errorf("got %q", got)
	}
	if got := stripCompressionSuffix("model.gguf"); got != "model.gguf" {
		t.Errorf("got %q", got)
	}
}

func TestScanAggregatesArtifactsDependenciesAndErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(rel string, data []byte) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("model.pt", []byte{0x00, 0x01, 0x02, 0xff})
	write("weights.safetensors", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	write("README.md", []byte("not interesting"))
	write("requirements.txt", []byte("torch==2.1.0\n# a comment\nnumpy>=1.20\n"))

	w := New(Options{})
	inv, err := w.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if inv.RunID == "" {
		t.Error("expected a non-empty RunID")
	}
	if len(inv.Artifacts) != 2 {
		t.Fatalf("got %d artifacts, want 2: %+v", len(inv.Artifacts), inv.Artifacts)
	}
	if len(inv.Dependencies) != 2 {
		t.Fatalf("got %d dependencies, want 2: %+v", len(inv.Dependencies), inv.Dependencies)
	}
	for _, dep := range inv.Dependencies {
		if dep.Type != "library" {
			t.Errorf("got dependency type %q, want library", dep.Type)
		}
	}
	if len(inv.Errors) != 0 {
		t.Errorf("got scan errors=%+v, want none for a parseable manifest", inv.Errors)
	}
}

func TestScanPreservesDirectoryWalkOrderForSameTypeArtifacts(t *testing.T) {
	// spec.md §5: "inventory order within a single scan follows
	// directory-walk order for determinism of test fixtures." Several
	// same-extension files exercise this independent of classify()
	// dispatch, since a bug here would otherwise hide behind goroutine
	// completion order rather than enumeration order.
	dir := t.TempDir()
	names := []string{"a.pt", "b.pt", "c.pt", "d.pt", "e.pt", "f.pt", "g.pt", "h.pt"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte{0x00, 0x01, 0x02, 0xff}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w := New(Options{})
	inv, err := w.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if len(inv.Artifacts) != len(names) {
		t.Fatalf("got %d artifacts, want %d: %+v", len(inv.Artifacts), len(names), inv.Artifacts)
	}
	for i, want := range names {
		if got := inv.Artifacts[i].Name; got != want {
			t.Errorf("artifact[%d] = %q, want %q (directory-walk order)", i, got, want)
		}
	}
}

func TestScanFoldsManifestParserErrorIntoInventoryErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("torch==2.1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctrl := gomock.NewController(t)
	mp := NewMockManifestParser(ctrl)
	mp.EXPECT().ParseManifest(gomock.Any(), gomock.Any()).Return(nil, errors.New("unparseable manifest"))

	w := New(Options{Manifest: mp})
	inv, err := w.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan returned an error: %v", err)
	}
	if len(inv.Dependencies) != 0 {
		t.Errorf("got dependencies=%+v, want none", inv.Dependencies)
	}
	if len(inv.Errors) != 1 {
		t.Fatalf("got %d scan errors, want 1: %+v", len(inv.Errors), inv.Errors)
	}
	if inv.Errors[0].File != filepath.Join(dir, "requirements.txt") {
		t.Errorf("got error file %q", inv.Errors[0].File)
	}
}

func TestScanReturnsErrorForUnreadableRoot(t *testing.T) {
	w := New(Options{})
	_, err := w.Scan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error for a nonexistent root")
	}
	var aerr *aisbom.Error
	if !errors.As(err, &aerr) {
		t.Fatalf("expected an *aisbom.Error, got %T: %v", err, err)
	}
}
