// Package scrape defines the optional browser-scrape fallback used when
// the MediUX API returns no assets for a set. The default scraper is a
// no-op; a real implementation drives a browser session and returns the
// rendered page source for asset extraction.
package scrape

import (
	"context"
	"regexp"
)

// Options carries the credentials and browser settings a scraper needs.
type Options struct {
	Username         string
	Password         string
	Nickname         string
	Headless         bool
	ProfilePath      string
	ChromedriverPath string
}

// AssetScraper fetches the rendered page source for a set URL.
type AssetScraper interface {
	ScrapeSet(ctx context.Context, setURL string, opts Options) (string, error)
}

// Noop is the default scraper. It always reports no content.
type Noop struct{}

func (Noop) ScrapeSet(ctx context.Context, setURL string, opts Options) (string, error) {
	return "", nil
}

// AssetRef is an asset reference recovered from scraped page source.
// FileType is "unknown" when the source carried no type information.
type AssetRef struct {
	ID       string
	FileType string
}

var (
	// {"id": "...", ... "fileType": "..."} within one JSON-ish object.
	objWithTypeRegex = regexp.MustCompile(`(?s)\{[^{}]*"id"\s*:\s*"([0-9a-fA-F-]{36})"[^{}]*"fileType"\s*:\s*"([^"]+)"[^{}]*\}`)
	// {"id": "..."} with no usable type nearby.
	objIDOnlyRegex = regexp.MustCompile(`"id"\s*:\s*"([0-9a-fA-F-]{36})"`)
	// Bare UUID tokens anywhere in the page.
	bareUUIDRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// ExtractAssetRefs recovers asset references from page source using
// progressively looser patterns: full id+fileType objects first, then
// id-only fields, then bare UUID tokens. The first sighting of each ID
// wins, so a typed match is never downgraded by a later loose match.
func ExtractAssetRefs(source string) []AssetRef {
	seen := make(map[string]bool)
	var refs []AssetRef

	add := func(id, fileType string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		refs = append(refs, AssetRef{ID: id, FileType: fileType})
	}

	for _, m := range objWithTypeRegex.FindAllStringSubmatch(source, -1) {
		add(m[1], m[2])
	}
	for _, m := range objIDOnlyRegex.FindAllStringSubmatch(source, -1) {
		add(m[1], "unknown")
	}
	for _, id := range bareUUIDRegex.FindAllString(source, -1) {
		add(id, "unknown")
	}

	return refs
}
