package walker

import (
	"context"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/package-url/packageurl-go"

	"github.com/Lab700xOrg/aisbom"
)

// PURLType is the package type used for pip-installable dependencies
// declared in a requirements.txt, following the same generated-PURL idiom
// as the teacher's per-ecosystem purl.go files.
const PURLType = "pypi"

// DefaultManifestParser is a minimal line-oriented requirements.txt
// reader: one requirement per line, "name==version" or "name>=version"
// etc, blank lines and "#"-comments skipped, environment markers
// (";...") and extras ("[extra]") stripped. It exists so the walker is
// usable standalone without a caller-supplied parser (SPEC_FULL.md's
// supplemented-features note); anything beyond flat pinned/ranged
// requirements is out of scope — a caller who needs dependency
// resolution, constraints files, or -r includes supplies its own
// ManifestParser.
type DefaultManifestParser struct{}

var _ ManifestParser = DefaultManifestParser{}

func (DefaultManifestParser) ParseManifest(ctx context.Context, data []byte) ([]aisbom.DependencyRecord, error) {
	var out []aisbom.DependencyRecord
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-") {
			// Option lines like "-r other.txt" or "--index-url ..." carry
			// no resolvable dependency.
			continue
		}
		if i := strings.IndexByte(line, ';'); i != -1 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		name, version := splitRequirement(line)
		if name == "" {
			continue
		}

		rec := aisbom.DependencyRecord{
			Name:    name,
			Version: version,
			Type:    "library",
		}
		rec.PURL = buildPURL(name, version)
		out = append(out, rec)
	}
	return out, nil
}

// splitRequirement extracts the distribution name and, if present, a
// pinned "==" version from a single requirements.txt entry. Extras
// ("name[extra]==1.0") are dropped along with the brackets; any other
// version specifier (>=, ~=, etc) is dropped and Version is left empty,
// since this parser makes no attempt at range resolution.
func splitRequirement(line string) (name, version string) {
	name = line
	if i := strings.IndexByte(name, '['); i != -1 {
		if j := strings.IndexByte(name, ']'); j != -1 && j > i {
			name = name[:i] + name[j+1:]
		}
	}

	for _, op := range []string{"==", ">=", "<=", "~=", "!=", ">", "<"} {
		if i := strings.Index(name, op); i != -1 {
			rest := strings.TrimSpace(name[i+len(op):])
			name = strings.TrimSpace(name[:i])
			if op == "==" {
				version = rest
			}
			return name, version
		}
	}
	return strings.TrimSpace(name), ""
}

// buildPURL renders a pkg:pypi purl for name/version. A version that
// parses with semver.NewVersion is normalized (e.g. "1.0" becomes
// "1.0.0"); any other non-empty version is kept as written, and an empty
// version yields a purl with no version.
func buildPURL(name, version string) string {
	p := packageurl.PackageURL{
		Type: PURLType,
		Name: strings.ToLower(name),
	}
	if version != "" {
		if v, err := semver.NewVersion(version); err == nil {
			p.Version = v.String()
		} else {
			p.Version = version
		}
	}
	return p.ToString()
}
