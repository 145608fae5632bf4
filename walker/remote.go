package walker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Lab700xOrg/aisbom/bytesource"
)

// listRemoteTree resolves a single http(s):// root to at most one
// candidate: a bare URL is treated as one artifact, not a tree to crawl,
// since there is no generic directory-listing protocol over plain HTTP
// (spec.md §4.7, §9 — resolved in favor of "one URL, one artifact" unless
// the hf:// scheme applies). A URL whose name is neither a recognized
// artifact nor a requirements.txt yields no candidates.
func (w *Walker) listRemoteTree(ctx context.Context, root string) ([]candidate, error) {
	u := root
	isArtifact, isManifest := classify(root)
	if !isArtifact && !isManifest {
		return nil, nil
	}
	return []candidate{{
		name:     root,
		manifest: isManifest,
		open: func(ctx context.Context) (bytesource.Source, error) {
			return bytesource.NewRemote(u, http.DefaultClient, nil), nil
		},
	}}, nil
}

// hfTreeEntry mirrors the subset of the Hugging Face Hub's
// /api/models/{repo}/tree/{revision} response this walker needs.
type hfTreeEntry struct {
	Type string `json:"type"` // "file" or "directory"
	Path string `json:"path"`
}

// listHuggingFace resolves an hf://org/repo (optionally hf://org/repo@rev)
// root to its file tree via the Hub's tree-listing API, then builds one
// remote candidate per recognized file, each backed by the repo's
// resolve-by-path download URL (spec.md §4.7's supplemented hf:// scheme).
func (w *Walker) listHuggingFace(ctx context.Context, root string) ([]candidate, error) {
	repoSpec := strings.TrimPrefix(root, "hf://")
	repo, rev := repoSpec, "main"
	if i := strings.LastIndexByte(repoSpec, '@'); i != -1 {
		repo, rev = repoSpec[:i], repoSpec[i+1:]
	}

	listURL := fmt.Sprintf("https://huggingface.co/api/models/%s/tree/%s", repo, url.PathEscape(rev))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("walker: hf tree listing for %s returned %s", repo, resp.Status)
	}

	var entries []hfTreeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("walker: decoding hf tree listing for %s: %w", repo, err)
	}

	var out []candidate
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		isArtifact, isManifest := classify(e.Path)
		if !isArtifact && !isManifest {
			continue
		}
		fileURL := fmt.Sprintf("https://huggingface.co/%s/resolve/%s/%s", repo, url.PathEscape(rev), path.Clean(e.Path))
		name := path.Join(repo, e.Path)
		out = append(out, candidate{
			name:     name,
			manifest: isManifest,
			open: func(ctx context.Context) (bytesource.Source, error) {
				return bytesource.NewRemote(fileURL, http.DefaultClient, nil), nil
			},
		})
	}
	return out, nil
}
