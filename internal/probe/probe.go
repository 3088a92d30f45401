// Package probe checks asset URLs for liveness and remembers the
// results in a persistent cache so repeated scans stay cheap.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a probed response we keep. Probes only
// need headers plus a small body sample for diagnostics.
const maxBodyBytes = 4096

// Result is the outcome of probing one asset URL. A transport-level
// failure leaves Status zero and records the error.
type Result struct {
	URL           string `json:"url"`
	Status        int    `json:"status"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	Body          []byte `json:"-"`
	Err           string `json:"error,omitempty"`
}

// OK reports whether the probe saw a success status.
func (r Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Prober issues bounded GET requests against asset URLs.
type Prober struct {
	http *http.Client
}

// NewProber returns a prober with a bounded request timeout.
func NewProber() *Prober {
	return &Prober{http: &http.Client{Timeout: 15 * time.Second}}
}

// SetHTTPClient replaces the underlying HTTP client. Useful for testing.
func (p *Prober) SetHTTPClient(h *http.Client) { p.http = h }

// Probe fetches url and summarizes the response. Transport failures are
// folded into the result rather than returned, so callers always get a
// Result they can cache.
func (p *Prober) Probe(ctx context.Context, url, apiKey string) Result {
	res := Result{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	res.ContentType = resp.Header.Get("Content-Type")
	res.ContentLength = resp.ContentLength

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err == nil {
		res.Body = body
		if res.ContentLength < 0 {
			res.ContentLength = int64(len(body))
		}
	}
	return res
}
