package mediux

import (
	"context"
	"fmt"

	"github.com/Digital-Shane/kometa-resolve/internal/logging"
	"github.com/Digital-Shane/kometa-resolve/internal/scrape"
)

// FetchSetAssetsWithScrape tries the API first and, when that comes back
// empty and scraping is enabled, falls back to extracting asset
// references from the set's rendered page. Scrape failures degrade to an
// empty result like every other fetch failure.
func (c *Client) FetchSetAssetsWithScrape(ctx context.Context, setID string, scraper scrape.AssetScraper, opts scrape.Options, useScrape bool) []Asset {
	assets := c.FetchSetAssets(ctx, setID)
	if len(assets) > 0 || !useScrape || scraper == nil {
		return assets
	}

	setURL := fmt.Sprintf("https://mediux.pro/sets/%s", setID)
	source, err := scraper.ScrapeSet(ctx, setURL, opts)
	if err != nil {
		logging.Warn("mediux: scrape set %s: %v", setID, err)
		return nil
	}
	if source == "" {
		return nil
	}

	refs := scrape.ExtractAssetRefs(source)
	if len(refs) == 0 {
		return nil
	}
	logging.Info("mediux: set %s: recovered %d asset refs from page source", setID, len(refs))

	scraped := make([]Asset, 0, len(refs))
	for _, r := range refs {
		a := Asset{ID: r.ID, Raw: map[string]any{}}
		if r.FileType != "unknown" {
			a.Type = r.FileType
		}
		scraped = append(scraped, a)
	}
	return scraped
}
