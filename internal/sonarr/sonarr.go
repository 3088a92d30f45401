// Package sonarr talks to a Sonarr instance to prioritize recently
// aired series during scans and to request refreshes after writes.
// Sonarr integration is strictly best-effort: every failure degrades to
// "no information" rather than interrupting a scan.
package sonarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/kometa-resolve/internal/logging"
)

// Config holds the connection settings for one Sonarr instance.
type Config struct {
	URL    string
	APIKey string
	// Days bounds the calendar window used for prioritization.
	Days int
}

// Enabled reports whether the config points at a reachable instance.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Client issues Sonarr v3 API calls.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: 15 * time.Second}}
}

// SetHTTPClient replaces the underlying HTTP client. Useful for testing.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

type calendarEntry struct {
	Series struct {
		TvdbID any `json:"tvdbId"`
	} `json:"series"`
}

// RecentlyAired returns the distinct TVDB IDs of series with episodes in
// the calendar window ending now. An unconfigured client or any request
// failure yields nil.
func (c *Client) RecentlyAired(ctx context.Context) []int {
	if !c.cfg.Enabled() {
		return nil
	}
	days := c.cfg.Days
	if days <= 0 {
		days = 7
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/api/v3/calendar?start=%s&end=%s",
		strings.TrimRight(c.cfg.URL, "/"),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logging.Warn("sonarr: calendar: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn("sonarr: calendar: unexpected status %d", resp.StatusCode)
		return nil
	}

	var entries []calendarEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		logging.Warn("sonarr: calendar: decode: %v", err)
		return nil
	}

	seen := make(map[int]bool)
	var ids []int
	for _, e := range entries {
		id, ok := tvdbID(e.Series.TvdbID)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// tvdbID accepts the numeric and string encodings Sonarr has used for
// tvdbId across versions.
func tvdbID(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Notify asks Sonarr to refresh its series metadata after path was
// rewritten. It reports whether the command was accepted.
func (c *Client) Notify(ctx context.Context, path string) bool {
	if !c.cfg.Enabled() {
		return false
	}

	payload, err := json.Marshal(map[string]any{"name": "RefreshSeries"})
	if err != nil {
		return false
	}

	url := strings.TrimRight(c.cfg.URL, "/") + "/api/v3/command"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logging.Warn("sonarr: notify for %s: %v", path, err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn("sonarr: notify for %s: unexpected status %d", path, resp.StatusCode)
		return false
	}
	logging.Info("sonarr: refresh requested after updating %s", path)
	return true
}
