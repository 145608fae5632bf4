// Package walker drives artifact discovery: it enumerates a local tree or
// a remote repository, classifies each file by extension, dispatches to
// the right format inspector, and aggregates the results into an
// Inventory (spec.md §4.7, component C7).
package walker

import (
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quay/zlog"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/bytesource"
	"github.com/Lab700xOrg/aisbom/format/gguf"
	"github.com/Lab700xOrg/aisbom/format/pytorch"
	"github.com/Lab700xOrg/aisbom/format/safetensors"
	"github.com/Lab700xOrg/aisbom/internal/obs"
)

// ManifestParser is the external collaborator that turns a
// requirements-manifest file into DependencyRecords (spec.md §1, §6,
// §9 — "this specification leaves manifest parsing entirely out of the
// core"). The walker only ever depends on this interface; a caller can
// substitute a fuller parser (e.g. one that resolves transitive
// dependencies) without touching anything else in this package.
type ManifestParser interface {
	// ParseManifest reads data (the contents of a file named
	// "requirements.txt") and returns the dependencies it declares.
	ParseManifest(ctx context.Context, data []byte) ([]aisbom.DependencyRecord, error)
}

// Options configures a Walker. The zero value is ready to use: local
// filesystem walking, blocklist-mode safety scanning, no lint pass, the
// DefaultManifestParser, concurrency fan-out capped at
// DefaultConcurrency.
type Options struct {
	// StrictSafety switches the PyTorch inspector's safety scanner to
	// strict-allowlist mode.
	StrictSafety bool
	// Lint enables the migration-lint pass on pickle blobs.
	Lint bool
	// Manifest is the manifest parser used for requirements.txt files.
	// If nil, DefaultManifestParser{} is used.
	Manifest ManifestParser
	// Concurrency bounds how many files are inspected in parallel. If
	// zero, DefaultConcurrency is used.
	Concurrency int
}

// DefaultConcurrency is used when Options.Concurrency is zero.
const DefaultConcurrency = 8

// recognizedExtensions classifies a file by its lowercased suffix, per
// spec.md §4.7. Compression-suffix transparency (.xz/.zst) is applied
// before this lookup — see stripCompressionSuffix.
var recognizedExtensions = map[string]aisbom.Framework{
	".pt":          aisbom.FrameworkPyTorch,
	".pth":         aisbom.FrameworkPyTorch,
	".bin":         aisbom.FrameworkPyTorch,
	".safetensors": aisbom.FrameworkSafeTensors,
	".gguf":        aisbom.FrameworkGGUF,
}

const manifestFilename = "requirements.txt"

// Walker enumerates a root (a local path or a remote URL) and produces an
// Inventory. The zero value is ready to use.
type Walker struct {
	Options
}

// New constructs a Walker with the given options.
func New(opts Options) *Walker {
	if opts.Manifest == nil {
		opts.Manifest = DefaultManifestParser{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Walker{Options: opts}
}

// candidate is one file the enumeration phase found, ready for dispatch.
type candidate struct {
	// name is the path as observed by the walker (spec.md §3).
	name string
	// open returns a Source for this candidate; it's deferred so that
	// local vs. remote resolution doesn't need a single shared
	// abstraction at enumeration time.
	open func(ctx context.Context) (bytesource.Source, error)
	// manifest is true if this candidate is a requirements.txt, not an
	// artifact.
	manifest bool
}

// Scan walks root, dispatches every recognized artifact to its format
// inspector, and aggregates the results. The only error it returns is for
// a root that can't be enumerated at all (spec.md §4.9's per-scan error
// taxonomy item 2); every per-artifact failure instead becomes a
// populated ArtifactRecord.
func (w *Walker) Scan(ctx context.Context, root string) (*aisbom.Inventory, error) {
	w.ensureDefaults()

	runID := uuid.NewString()
	ctx = obs.WithRun(ctx, runID)
	zlog.Debug(ctx).Str("root", root).Msg("walker: starting scan")

	var candidates []candidate
	var err error
	switch {
	case strings.HasPrefix(root, "http://"), strings.HasPrefix(root, "https://"):
		candidates, err = w.listRemoteTree(ctx, root)
	case strings.HasPrefix(root, "hf://"):
		candidates, err = w.listHuggingFace(ctx, root)
	default:
		candidates, err = w.listLocalTree(ctx, root)
	}
	if err != nil {
		return nil, err
	}

	// Each candidate's outcome is written to its own slot by index, never
	// appended to the inventory directly, so that goroutine completion
	// order (which has nothing to do with directory-walk order once work
	// is fanned out) can't leak into the result. The single-threaded pass
	// below re-assembles the inventory in candidates' enumeration order,
	// per spec.md §5's "inventory order within a single scan follows
	// directory-walk order for determinism of test fixtures."
	results := make([]result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Concurrency)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			results[i] = w.inspectOne(gctx, c)
			return nil
		})
	}
	// Errors are never returned from inspectOne's goroutines — every
	// per-file failure is folded into a record or the Errors list — so
	// g.Wait() returns nil once every candidate has been inspected.
	waitErr := g.Wait()

	inv := &aisbom.Inventory{RunID: runID}
	for _, r := range results {
		switch {
		case r.artifact != nil:
			inv.Artifacts = append(inv.Artifacts, *r.artifact)
		case r.scanErr != nil:
			inv.Errors = append(inv.Errors, *r.scanErr)
		}
		inv.Dependencies = append(inv.Dependencies, r.dependencies...)
	}
	if waitErr != nil {
		return inv, waitErr
	}
	return inv, nil
}

func (w *Walker) ensureDefaults() {
	if w.Manifest == nil {
		w.Manifest = DefaultManifestParser{}
	}
	if w.Concurrency <= 0 {
		w.Concurrency = DefaultConcurrency
	}
}

// result is one candidate's outcome, written by exactly one goroutine to
// its own slice slot — never shared or appended to concurrently.
type result struct {
	artifact     *aisbom.ArtifactRecord
	dependencies []aisbom.DependencyRecord
	scanErr      *aisbom.ScanError
}

func (w *Walker) inspectOne(ctx context.Context, c candidate) result {
	ctx = obs.WithContext(ctx, "walker.inspectOne", c.name)

	src, err := c.open(ctx)
	if err != nil {
		zlog.Debug(ctx).Err(err).Str("artifact", c.name).Msg("walker: unable to open byte source")
		if c.manifest {
			return result{scanErr: &aisbom.ScanError{File: c.name, Error: err.Error()}}
		}
		return result{artifact: &aisbom.ArtifactRecord{
			Name:        filepath.Base(c.name),
			Framework:   aisbom.FrameworkUnknown,
			RiskLevel:   aisbom.RiskUnknown.String(),
			LegalStatus: string(aisbom.LegalUnknown),
			Error:       err.Error(),
		}}
	}
	defer src.Close()

	if c.manifest {
		return w.inspectManifest(ctx, c.name, src)
	}

	rec := w.inspectArtifact(ctx, c.name, src)
	return result{artifact: &rec}
}

func (w *Walker) inspectArtifact(ctx context.Context, name string, src bytesource.Source) aisbom.ArtifactRecord {
	base := filepath.Base(stripCompressionSuffix(name))
	ext := strings.ToLower(filepath.Ext(base))
	switch recognizedExtensions[ext] {
	case aisbom.FrameworkPyTorch:
		return pytorch.Inspect(ctx, filepath.Base(name), src, pytorch.Options{StrictSafety: w.StrictSafety, Lint: w.Lint})
	case aisbom.FrameworkSafeTensors:
		return safetensors.Inspect(ctx, filepath.Base(name), src)
	case aisbom.FrameworkGGUF:
		return gguf.Inspect(ctx, filepath.Base(name), src)
	default:
		return aisbom.ArtifactRecord{
			Name:        filepath.Base(name),
			Framework:   aisbom.FrameworkUnknown,
			RiskLevel:   aisbom.RiskUnknown.String(),
			LegalStatus: string(aisbom.LegalUnknown),
		}
	}
}

func (w *Walker) inspectManifest(ctx context.Context, name string, src bytesource.Source) result {
	r, err := src.Reader(ctx)
	if err != nil {
		return result{scanErr: &aisbom.ScanError{File: name, Error: err.Error()}}
	}
	defer r.Close()
	data, err := readAllBounded(r, 8<<20)
	if err != nil {
		return result{scanErr: &aisbom.ScanError{File: name, Error: err.Error()}}
	}
	deps, err := w.Manifest.ParseManifest(ctx, data)
	if err != nil {
		return result{scanErr: &aisbom.ScanError{File: name, Error: err.Error()}}
	}
	return result{dependencies: deps}
}

// classify reports whether name (as observed by directory walking)
// should be treated as an artifact candidate, a manifest candidate, or
// ignored, per spec.md §4.7.
func classify(name string) (isArtifact, isManifest bool) {
	base := filepath.Base(name)
	if base == manifestFilename {
		return false, true
	}
	ext := strings.ToLower(filepath.Ext(stripCompressionSuffix(base)))
	_, ok := recognizedExtensions[ext]
	return ok, false
}

// stripCompressionSuffix removes a trailing .xz/.zst so that the
// extension-classification rule (spec.md §4.7) runs against the inner
// artifact name, per the transparent-decompression supplement.
func stripCompressionSuffix(name string) string {
	for _, suf := range []string{".xz", ".zst"} {
		if strings.HasSuffix(name, suf) {
			return strings.TrimSuffix(name, suf)
		}
	}
	return name
}

func (w *Walker) listLocalTree(ctx context.Context, root string) ([]candidate, error) {
	var out []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		isArtifact, isManifest := classify(path)
		if !isArtifact && !isManifest {
			return nil
		}
		p := path
		out = append(out, candidate{
			name:     p,
			manifest: isManifest,
			open: func(ctx context.Context) (bytesource.Source, error) {
				return bytesource.OpenLocal(ctx, p)
			},
		})
		return nil
	})
	if err != nil {
		return nil, &aisbom.Error{Op: "walker.Scan", Kind: aisbom.ErrIO, Message: "walking " + root, Inner: err}
	}
	return out, nil
}

func readAllBounded(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max))
	if err != nil {
		return data, &aisbom.Error{Op: "walker.inspectManifest", Kind: aisbom.ErrIO, Inner: err}
	}
	return data, nil
}
