package mediux

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Digital-Shane/kometa-resolve/internal/logging"
)

// DefaultAPIBase is the public MediUX API endpoint.
const DefaultAPIBase = "https://api.mediux.pro"

// requestTimeout bounds every API call so one unreachable host cannot
// stall a whole scan.
const requestTimeout = 15 * time.Second

// HTTPDoer matches *http.Client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches asset listings from a MediUX-style API. All fetch
// failures are recovered as empty results; the client never propagates
// network or decode errors to callers.
type Client struct {
	apiBase string
	apiKey  string
	http    HTTPDoer
	limiter *rate.Limiter
}

// NewClient creates a client for the given API base. apiKey may be empty.
func NewClient(apiBase, apiKey string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		apiBase: apiBase,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// SetHTTPClient replaces the underlying HTTP client. Useful for testing.
func (c *Client) SetHTTPClient(h HTTPDoer) { c.http = h }

// APIBase returns the configured API base URL.
func (c *Client) APIBase() string { return c.apiBase }

// ConstructAssetURL joins an API base and an asset identifier under the
// /assets/ segment, normalizing to exactly one slash between segments.
func ConstructAssetURL(apiBase, assetID string) string {
	return strings.TrimRight(apiBase, "/") + "/assets/" + assetID
}

// extractors are the ordered response-shape strategies: each inspects a
// decoded JSON document and returns the raw asset list it holds, or nil.
var extractors = []func(any) []any{
	func(doc any) []any { // {"assets": [...]}
		if m, ok := doc.(map[string]any); ok {
			if list, ok := m["assets"].([]any); ok {
				return list
			}
		}
		return nil
	},
	func(doc any) []any { // {"data": {"assets": [...]}}
		if m, ok := doc.(map[string]any); ok {
			if data, ok := m["data"].(map[string]any); ok {
				if list, ok := data["assets"].([]any); ok {
					return list
				}
			}
		}
		return nil
	},
	func(doc any) []any { // {"data": [...]}
		if m, ok := doc.(map[string]any); ok {
			if list, ok := m["data"].([]any); ok {
				return list
			}
		}
		return nil
	},
	func(doc any) []any { // bare list
		if list, ok := doc.([]any); ok {
			return list
		}
		return nil
	},
}

// FetchSetAssets retrieves and normalizes the asset list for a set.
// Any network error, non-success status, or undecodable body yields an
// empty slice.
func (c *Client) FetchSetAssets(ctx context.Context, setID string) []Asset {
	url := fmt.Sprintf("%s/sets/%s/assets", strings.TrimRight(c.apiBase, "/"), setID)

	doc, err := c.getJSON(ctx, url)
	if err != nil {
		logging.Warn("mediux: fetch assets for set %s: %v", setID, err)
		return nil
	}

	for _, extract := range extractors {
		if list := extract(doc); list != nil {
			return NormalizeAssets(list)
		}
	}

	logging.Debug("mediux: set %s: unrecognized response shape", setID)
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}
