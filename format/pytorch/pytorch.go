// Package pytorch inspects PyTorch checkpoint files (.pt, .pth, .bin),
// which are usually a ZIP archive containing one or more pickle blobs
// (spec.md §4.6, component C6).
package pytorch

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
	"github.com/quay/zlog"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/bytesource"
	"github.com/Lab700xOrg/aisbom/hashsum"
	"github.com/Lab700xOrg/aisbom/internal/obs"
	"github.com/Lab700xOrg/aisbom/lint"
	"github.com/Lab700xOrg/aisbom/pickle"
	"github.com/Lab700xOrg/aisbom/safety"
)

// MaxPickleRead is the maximum number of bytes read from the first .pkl
// member found inside the archive, per spec.md §4.6/§5.
const MaxPickleRead = 10 << 20

// legacyProbeSize is how many leading bytes of a non-ZIP file are probed
// to decide between "Legacy Binary" and "Python Path Config"
// (spec.md §9's open question, resolved per SPEC_FULL.md).
const legacyProbeSize = 4096

func init() {
	// Register klauspost/compress's faster flate implementation as the
	// zip package's Deflate decompressor, for large checkpoint archives.
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// Options configures Inspect. The zero value is ready to use.
type Options struct {
	// StrictSafety runs the safety scanner in strict-allowlist mode
	// instead of the default blocklist mode.
	StrictSafety bool
	// Lint, when true, attaches a migration-lint report to the
	// record's details wherever a pickle blob was examined.
	Lint bool
}

// Inspect examines name (a path within the scanned tree, used only for
// logging) backed by src, and returns a populated ArtifactRecord. It
// never returns an error: any failure is captured in the record itself,
// per spec.md §4.9.
func Inspect(ctx context.Context, name string, src bytesource.Source, opts Options) aisbom.ArtifactRecord {
	ctx = obs.WithContext(ctx, "format/pytorch.Inspect", name)

	rec := aisbom.ArtifactRecord{
		Name:        name,
		Framework:   aisbom.FrameworkPyTorch,
		RiskLevel:   aisbom.RiskUnknown.String(),
		LegalStatus: string(aisbom.LegalUnknown),
		Details:     map[string]any{},
	}
	rec.ContentHash = hashsum.SHA256Prefix(ctx, src, hashsum.DefaultCeiling)

	size, err := src.Size(ctx)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("pytorch: unable to stat artifact")
		rec.Error = err.Error()
		return rec
	}

	r, err := src.Reader(ctx)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("pytorch: unable to open reader")
		rec.Error = err.Error()
		return rec
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("pytorch: unable to read artifact")
		rec.Error = err.Error()
		return rec
	}

	zr, zerr := zip.NewReader(bytes.NewReader(data), size)
	if zerr != nil {
		inspectNonZip(ctx, data, opts, &rec)
		return rec
	}

	var pklEntry *zip.File
	internal := 0
	for _, f := range zr.File {
		internal++
		if pklEntry == nil && strings.HasSuffix(f.Name, ".pkl") {
			pklEntry = f
		}
	}
	rec.Details["internal_files"] = internal

	if pklEntry == nil {
		rec.RiskLevel = aisbom.RiskLow.Qualify("No bytecode found")
		return rec
	}

	rc, err := pklEntry.Open()
	if err != nil {
		zlog.Debug(ctx).Err(err).Str("member", pklEntry.Name).Msg("pytorch: unable to open pickle member")
		rec.RiskLevel = aisbom.RiskUnknown.String()
		rec.Error = err.Error()
		return rec
	}
	defer rc.Close()
	pkl, err := io.ReadAll(io.LimitReader(rc, MaxPickleRead))
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("pytorch: unable to read pickle member")
		rec.Error = err.Error()
		return rec
	}

	mode := safety.ModeBlocklist
	if opts.StrictSafety {
		mode = safety.ModeStrict
	}
	ops := pickle.Disassemble(pkl)
	threats := safety.Scan(ops, mode)
	rec.Details["threats"] = renderThreats(threats)

	switch {
	case len(threats) > 0:
		rec.RiskLevel = aisbom.RiskCritical.Qualify("RCE Detected: " + joinThreats(threats))
	default:
		rec.RiskLevel = aisbom.RiskMedium.Qualify("Pickle Present")
	}

	if opts.Lint {
		diags := lint.Lint(pkl)
		rec.Details["lint"] = diags
	}

	return rec
}

func inspectNonZip(ctx context.Context, data []byte, opts Options, rec *aisbom.ArtifactRecord) {
	probe := data
	if len(probe) > legacyProbeSize {
		probe = probe[:legacyProbeSize]
	}
	if looksLikePathConfig(probe) {
		rec.RiskLevel = aisbom.RiskLow.Qualify("Python Path Config")
		return
	}
	rec.RiskLevel = aisbom.RiskCritical.Qualify("Legacy Binary")
	if opts.Lint {
		rec.Details["lint"] = lint.Lint(data)
	}
}

// looksLikePathConfig reports whether probe decodes as UTF-8 text where
// every non-blank line looks like a filesystem path — the
// spec.md §9 open-question resolution for distinguishing a plain-text
// ".pth" sys.path configuration file from a genuine legacy pickle binary.
func looksLikePathConfig(probe []byte) bool {
	if len(probe) == 0 || !utf8.Valid(probe) {
		return false
	}
	lines := strings.Split(string(probe), "\n")
	sawLine := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "import ") {
			continue
		}
		sawLine = true
		for _, r := range line {
			if r < 0x20 && r != '\t' {
				return false
			}
		}
	}
	return sawLine
}

func renderThreats(threats []aisbom.Threat) []string {
	out := make([]string, len(threats))
	for i, t := range threats {
		out[i] = t.String()
	}
	return out
}

func joinThreats(threats []aisbom.Threat) string {
	return strings.Join(renderThreats(threats), ", ")
}
