package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// Upstream responses larger than this are treated as malformed.
const maxUpstreamBody = 8 << 20

var errUpstreamBodyTooLarge = errors.New("upstream response exceeds size limit")

// Upstream is a thin client for the reasoning service. It keeps no state
// besides the resolved base URL.
type Upstream struct {
	base   string
	client *http.Client
}

type UpstreamResponse struct {
	Status int
	Body   []byte
}

func (r *UpstreamResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func NewUpstream(baseURL string, client *http.Client) (*Upstream, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid upstream base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("upstream base URL must be absolute: %q", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Upstream{
		base:   strings.TrimRight(u.String(), "/"),
		client: client,
	}, nil
}

// URL returns the absolute upstream URL for path, which must start with "/".
func (u *Upstream) URL(path string) string {
	return u.base + path
}

// Do issues one request. A non-2xx status is not an error; only transport
// failures are.
func (u *Upstream) Do(ctx context.Context, method, path string, body []byte) (*UpstreamResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.URL(path), reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build upstream request %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "upstream %s %s failed", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody+1))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read upstream %s %s response", method, path)
	}
	if len(data) > maxUpstreamBody {
		return nil, errUpstreamBodyTooLarge
	}
	return &UpstreamResponse{Status: resp.StatusCode, Body: data}, nil
}
