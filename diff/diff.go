// Package diff reconciles two inventories serialized as CycloneDX-ish
// documents and classifies the drift between them (spec.md §4.8,
// component C8).
package diff

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/hashsum"
)

// Component is one entry of a diff input document's "components" array.
type Component struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Hashes      []Hash `json:"hashes"`
}

// Hash is one entry of a Component's "hashes" array.
type Hash struct {
	Alg     string `json:"alg"`
	Content string `json:"content"`
}

// sha256 returns the content of the first SHA-256 hash entry, or "" if
// none is present (spec.md §6: "hash comparison uses only entries with
// alg == \"SHA-256\"").
func (c Component) sha256() string {
	for _, h := range c.Hashes {
		if h.Alg == "SHA-256" {
			return h.Content
		}
	}
	return ""
}

// Document is a diff input: a CycloneDX-ish bag of components.
type Document struct {
	Components []Component `json:"components"`
}

// ParseDocument unmarshals a diff input document. A document missing
// "components" entirely is still valid (an empty inventory); malformed
// JSON is the only error case.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, &aisbom.Error{Op: "diff.ParseDocument", Kind: aisbom.ErrInvalid, Inner: err}
	}
	return doc, nil
}

// FromInventory renders a walker-produced Inventory as a diff input
// Document, encoding each artifact's risk/legal/license classification
// into the same "Risk: ... | Legal: ... | License: ..." description
// format Compare parses back out, and its content hash as the component's
// SHA-256 entry. This lets a stored scan-history run (see package store)
// stand in for either side of a Compare without a bespoke conversion at
// every caller.
func FromInventory(inv *aisbom.Inventory) Document {
	doc := Document{Components: make([]Component, 0, len(inv.Artifacts))}
	for _, a := range inv.Artifacts {
		c := Component{
			Name:        a.Name,
			Description: fmt.Sprintf("Risk: %s | Legal: %s | License: %s", a.Risk().String(), a.LegalStatus, a.License),
		}
		if a.ContentHash != "" && a.ContentHash != hashsum.ErrorSentinel {
			c.Hashes = []Hash{{Alg: "SHA-256", Content: a.ContentHash}}
		}
		doc.Components = append(doc.Components, c)
	}
	return doc
}

// HashDiff captures an old/new pair of unequal, both-present SHA-256
// hashes (spec.md §4.8: "Hash drift is recorded only if both hashes are
// non-empty and unequal").
type HashDiff struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// FieldDiff captures an old/new pair for any other compared field.
type FieldDiff struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ComponentDiff is one changed component, with only the fields that
// actually differ populated (spec.md §4: "changed: list of
// ComponentDiff values, each carrying optional (old, new) pairs").
type ComponentDiff struct {
	Name          string     `json:"name"`
	VersionDiff   *FieldDiff `json:"version_diff,omitempty"`
	RiskDiff      *FieldDiff `json:"risk_diff,omitempty"`
	LicenseDiff   *FieldDiff `json:"license_diff,omitempty"`
	LegalDiff     *FieldDiff `json:"legal_diff,omitempty"`
	HashDiff      *HashDiff  `json:"hash_diff,omitempty"`
	RiskIncreased bool       `json:"risk_increased"`
}

// Result is the full output of Compare.
type Result struct {
	Added         []Component     `json:"added"`
	Removed       []Component     `json:"removed"`
	Changed       []ComponentDiff `json:"changed"`
	RiskIncreased bool            `json:"risk_increased"`
	HashDrifted   bool            `json:"hash_drifted"`
}

var (
	riskToken    = regexp.MustCompile(`Risk:\s*([A-Z]+)`)
	legalToken   = regexp.MustCompile(`Legal:\s*([^|]*)`)
	licenseToken = regexp.MustCompile(`License:\s*([^|]*)`)
)

// parsedFields is what the diff engine can recover out of a component's
// free-text description (spec.md §4.8, §9's "description-encoded side
// channel").
type parsedFields struct {
	risk    string
	legal   string
	license string
}

func parseDescription(desc string) parsedFields {
	pf := parsedFields{risk: "UNKNOWN", legal: "Unknown", license: "Unknown"}
	if m := riskToken.FindStringSubmatch(desc); m != nil {
		pf.risk = strings.TrimSpace(m[1])
	}
	if m := legalToken.FindStringSubmatch(desc); m != nil {
		pf.legal = strings.TrimSpace(m[1])
	}
	if m := licenseToken.FindStringSubmatch(desc); m != nil {
		pf.license = strings.TrimSpace(m[1])
	}
	return pf
}

// riskRank orders the bare risk words parsed out of a description, per
// spec.md §4's total risk ordering (UNKNOWN < LOW < MEDIUM < HIGH <
// CRITICAL). Unrecognized words rank as UNKNOWN.
func riskRank(word string) int {
	return int(aisbom.ParseRiskLevel(word))
}

// Compare joins old and new by component name and classifies the drift
// between them, per spec.md §4.8.
func Compare(old, new Document) Result {
	oldByName := make(map[string]Component, len(old.Components))
	for _, c := range old.Components {
		oldByName[c.Name] = c
	}
	newByName := make(map[string]Component, len(new.Components))
	for _, c := range new.Components {
		newByName[c.Name] = c
	}

	var res Result

	for _, c := range old.Components {
		if _, ok := newByName[c.Name]; !ok {
			res.Removed = append(res.Removed, c)
		}
	}

	for _, c := range new.Components {
		oc, present := oldByName[c.Name]
		if !present {
			res.Added = append(res.Added, c)
			if parseDescription(c.Description).risk == aisbom.RiskCritical.String() {
				res.RiskIncreased = true
			}
			continue
		}

		cd := ComponentDiff{Name: c.Name}
		changed := false

		if oc.Version != c.Version {
			cd.VersionDiff = &FieldDiff{Old: oc.Version, New: c.Version}
			changed = true
		}

		oldFields, newFields := parseDescription(oc.Description), parseDescription(c.Description)

		if oldFields.risk != newFields.risk {
			cd.RiskDiff = &FieldDiff{Old: oldFields.risk, New: newFields.risk}
			changed = true
		}
		if riskRank(newFields.risk) > riskRank(oldFields.risk) && newFields.risk == aisbom.RiskCritical.String() {
			cd.RiskIncreased = true
			res.RiskIncreased = true
		}

		if oldFields.license != newFields.license {
			cd.LicenseDiff = &FieldDiff{Old: oldFields.license, New: newFields.license}
			changed = true
		}
		if oldFields.legal != newFields.legal {
			cd.LegalDiff = &FieldDiff{Old: oldFields.legal, New: newFields.legal}
			changed = true
		}

		oldHash, newHash := oc.sha256(), c.sha256()
		if oldHash != "" && newHash != "" && oldHash != newHash {
			cd.HashDiff = &HashDiff{Old: oldHash, New: newHash}
			res.HashDrifted = true
			changed = true
		}

		if changed {
			res.Changed = append(res.Changed, cd)
		}
	}

	return res
}

// VersionTransition classifies an old/new version pair as an upgrade,
// downgrade, or unordered change, using semver where both sides parse.
// This is a DOMAIN STACK addition beyond spec.md's bare field-equality
// comparison: it lets a caller distinguish a routine patch bump from a
// major-version jump without re-parsing a VersionDiff's Old/New strings
// itself.
type VersionTransition string

const (
	VersionUpgrade   VersionTransition = "upgrade"
	VersionDowngrade VersionTransition = "downgrade"
	VersionUnordered VersionTransition = "unordered"
)

// ClassifyVersionTransition compares old and new as semantic versions.
// If either fails to parse, it returns VersionUnordered.
func ClassifyVersionTransition(old, new string) VersionTransition {
	ov, err := semver.NewVersion(old)
	if err != nil {
		return VersionUnordered
	}
	nv, err := semver.NewVersion(new)
	if err != nil {
		return VersionUnordered
	}
	switch {
	case nv.GreaterThan(ov):
		return VersionUpgrade
	case nv.LessThan(ov):
		return VersionDowngrade
	default:
		return VersionUnordered
	}
}
