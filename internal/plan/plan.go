// Package plan builds per-file change plans: which metadata nodes
// should receive an asset URL, backed by which probe result.
package plan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Digital-Shane/kometa-resolve/internal/activity"
	"github.com/Digital-Shane/kometa-resolve/internal/kometa"
	"github.com/Digital-Shane/kometa-resolve/internal/logging"
	"github.com/Digital-Shane/kometa-resolve/internal/mediux"
	"github.com/Digital-Shane/kometa-resolve/internal/probe"
)

// TargetField is the metadata field planned changes insert.
const TargetField = "url_poster"

// Change is one proposed field insertion at a path inside a file.
type Change struct {
	Path  []string          `json:"path"`
	Add   map[string]string `json:"add"`
	Probe *probe.Result     `json:"probe,omitempty"`
}

// FilePlan lists every proposed change for one metadata file.
type FilePlan struct {
	File    string   `json:"file"`
	SetIDs  []string `json:"set_ids"`
	Changes []Change `json:"changes"`
}

// AssetFetcher resolves a set identifier to its asset records.
type AssetFetcher interface {
	FetchSetAssets(ctx context.Context, setID string) []mediux.Asset
}

// Prober checks whether an asset URL is reachable.
type Prober interface {
	Probe(ctx context.Context, url, apiKey string) probe.Result
}

// Planner proposes changes for metadata files. Set lookups and probes
// are memoized for the lifetime of the planner so one scan never asks
// the same question twice.
type Planner struct {
	Fetcher  AssetFetcher
	Prober   Prober
	Cache    *probe.Cache // optional persistent probe cache
	Activity *activity.Tracker

	APIBase  string
	APIKey   string
	CacheTTL time.Duration

	memo *gocache.Cache
}

// NewPlanner wires a planner around its collaborators. cache and
// tracker may be nil.
func NewPlanner(fetcher AssetFetcher, prober Prober, cache *probe.Cache, tracker *activity.Tracker, apiBase, apiKey string, cacheTTL time.Duration) *Planner {
	return &Planner{
		Fetcher:  fetcher,
		Prober:   prober,
		Cache:    cache,
		Activity: tracker,
		APIBase:  apiBase,
		APIKey:   apiKey,
		CacheTTL: cacheTTL,
		memo:     gocache.New(30*time.Minute, time.Hour),
	}
}

// ProposeChangesForFile builds the plan for one file. Malformed YAML,
// files without set references, and files with nothing to patch all
// yield a nil plan and nil error. A missing file is a caller mistake
// and returns an error satisfying errors.Is(err, fs.ErrNotExist).
func (p *Planner) ProposeChangesForFile(ctx context.Context, path string) (*FilePlan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("plan %s: %w", path, err)
		}
		logging.Warn("plan: read %s: %v", path, err)
		return nil, nil
	}
	p.touch()

	doc, err := kometa.Parse(path, raw)
	if err != nil {
		logging.Warn("plan: %v", err)
		return nil, nil
	}

	setIDs := mediux.FindSetIDs(string(raw))
	if len(setIDs) == 0 {
		return nil, nil
	}

	assetURL, probed := p.resolveBestAsset(ctx, setIDs)
	if assetURL == "" {
		logging.Info("plan: %s: sets %v yielded no usable assets", path, setIDs)
		return nil, nil
	}

	var changes []Change
	for _, nodePath := range doc.GatherPaths() {
		if !patchable(doc, nodePath) {
			continue
		}
		changes = append(changes, Change{
			Path:  nodePath,
			Add:   map[string]string{TargetField: assetURL},
			Probe: probed,
		})
	}
	if len(changes) == 0 {
		return nil, nil
	}

	return &FilePlan{File: path, SetIDs: setIDs, Changes: changes}, nil
}

// patchable reports whether the node at path should receive the target
// field: a mapping inside a metadata entry, not a seasons/episodes
// grouping node, and not already carrying the field.
func patchable(doc *kometa.Document, path []string) bool {
	if len(path) < 2 || path[0] != "metadata" {
		return false
	}
	switch path[len(path)-1] {
	case "seasons", "episodes":
		return false
	}
	node, ok := doc.Lookup(path)
	if !ok {
		return false
	}
	_, has := node[TargetField]
	return !has
}

// resolveBestAsset fetches assets for each set until one ranks, then
// probes the constructed URL for the top candidate.
func (p *Planner) resolveBestAsset(ctx context.Context, setIDs []string) (string, *probe.Result) {
	for _, setID := range setIDs {
		assets := p.setAssets(ctx, setID)
		ranked := mediux.RankAssets(assets)
		if len(ranked) == 0 {
			continue
		}
		url := mediux.ConstructAssetURL(p.APIBase, ranked[0])
		res := p.probeURL(ctx, url)
		return url, &res
	}
	return "", nil
}

func (p *Planner) setAssets(ctx context.Context, setID string) []mediux.Asset {
	key := "set:" + setID
	if cached, ok := p.memo.Get(key); ok {
		return cached.([]mediux.Asset)
	}
	assets := p.Fetcher.FetchSetAssets(ctx, setID)
	p.memo.Set(key, assets, gocache.DefaultExpiration)
	return assets
}

// probeURL consults the persistent cache before issuing a live probe,
// and records fresh results back into it.
func (p *Planner) probeURL(ctx context.Context, url string) probe.Result {
	if p.Cache != nil {
		if res, ok := p.Cache.Get(url, p.CacheTTL); ok {
			logging.Debug("plan: probe cache hit for %s", url)
			return res
		}
	}

	key := "probe:" + url
	if cached, ok := p.memo.Get(key); ok {
		return cached.(probe.Result)
	}

	res := p.Prober.Probe(ctx, url, p.APIKey)
	p.memo.Set(key, res, gocache.DefaultExpiration)
	if p.Cache != nil {
		p.Cache.Put(url, res)
	}
	return res
}

func (p *Planner) touch() {
	if p.Activity != nil {
		p.Activity.Touch(1)
	}
}
