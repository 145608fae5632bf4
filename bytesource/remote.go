package bytesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Lab700xOrg/aisbom"
)

// DefaultRangeTimeout is the implementation-chosen timeout for a single
// HTTP Range request, per spec.md §5 ("Timeouts apply only to remote
// range reads (implementation-chosen default, e.g. a few seconds)").
const DefaultRangeTimeout = 5 * time.Second

// RemoteLimiter caps the rate of outbound Range requests a Remote source
// issues, so a walker fanning out over an hf:// tree doesn't hammer the
// origin. A nil *rate.Limiter (the zero value of Remote.Limiter) disables
// limiting.
type RemoteLimiter = rate.Limiter

// Remote is a byte source over an HTTP resource accessed via Range
// requests.
type Remote struct {
	URL     string
	Client  *http.Client
	Limiter *RemoteLimiter

	size    int64
	sizeSet bool
}

var _ Source = (*Remote)(nil)

// NewRemote constructs a Remote source. client may be nil, in which case
// http.DefaultClient is used.
func NewRemote(u string, client *http.Client, limiter *RemoteLimiter) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{URL: u, Client: client, Limiter: limiter, size: -1}
}

func (r *Remote) wait(ctx context.Context) error {
	if r.Limiter == nil {
		return nil
	}
	return r.Limiter.Wait(ctx)
}

func (r *Remote) ReadAt(p []byte, off int64) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRangeTimeout)
	defer cancel()
	if err := r.wait(ctx); err != nil {
		return 0, &aisbom.Error{Op: "bytesource.Remote.ReadAt", Kind: aisbom.ErrNetwork, Inner: err}
	}
	end := off + int64(len(p)) - 1
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return 0, &aisbom.Error{Op: "bytesource.Remote.ReadAt", Kind: aisbom.ErrNetwork, Inner: err}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, &aisbom.Error{Op: "bytesource.Remote.ReadAt", Kind: aisbom.ErrNetwork, Inner: err}
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusPartialContent, http.StatusOK:
	default:
		return 0, &aisbom.Error{
			Op:      "bytesource.Remote.ReadAt",
			Kind:    aisbom.ErrNetwork,
			Message: fmt.Sprintf("unexpected status %q for %s", resp.Status, r.URL),
		}
	}
	n, err := io.ReadFull(resp.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, &aisbom.Error{Op: "bytesource.Remote.ReadAt", Kind: aisbom.ErrNetwork, Inner: err}
	}
	return n, nil
}

func (r *Remote) Size(ctx context.Context) (int64, error) {
	if r.sizeSet {
		return r.size, nil
	}
	if err := r.wait(ctx); err != nil {
		return -1, &aisbom.Error{Op: "bytesource.Remote.Size", Kind: aisbom.ErrNetwork, Inner: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.URL, nil)
	if err != nil {
		return -1, &aisbom.Error{Op: "bytesource.Remote.Size", Kind: aisbom.ErrNetwork, Inner: err}
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return -1, &aisbom.Error{Op: "bytesource.Remote.Size", Kind: aisbom.ErrNetwork, Inner: err}
	}
	defer resp.Body.Close()
	size, err := parseContentRangeOrLength(resp)
	if err != nil {
		return -1, &aisbom.Error{Op: "bytesource.Remote.Size", Kind: aisbom.ErrNetwork, Inner: err}
	}
	r.size, r.sizeSet = size, true
	return size, nil
}

// Reader returns a forward streaming reader over the full resource,
// implemented as a single unranged GET.
func (r *Remote) Reader(ctx context.Context) (io.ReadCloser, error) {
	if err := r.wait(ctx); err != nil {
		return nil, &aisbom.Error{Op: "bytesource.Remote.Reader", Kind: aisbom.ErrNetwork, Inner: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, &aisbom.Error{Op: "bytesource.Remote.Reader", Kind: aisbom.ErrNetwork, Inner: err}
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, &aisbom.Error{Op: "bytesource.Remote.Reader", Kind: aisbom.ErrNetwork, Inner: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &aisbom.Error{
			Op:      "bytesource.Remote.Reader",
			Kind:    aisbom.ErrNetwork,
			Message: fmt.Sprintf("unexpected status %q for %s", resp.Status, r.URL),
		}
	}
	return resp.Body, nil
}

// Close is a no-op: Remote holds no persistent connection between calls.
func (r *Remote) Close() error { return nil }

func parseContentRangeOrLength(resp *http.Response) (int64, error) {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndexByte(cr, '/'); i != -1 && i+1 < len(cr) {
			if n, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return n, nil
			}
		}
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return n, nil
		}
	}
	return -1, fmt.Errorf("bytesource: no usable Content-Range/Content-Length header")
}
