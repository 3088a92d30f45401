package plan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Digital-Shane/kometa-resolve/internal/logging"
)

// ErrInvalidRoot marks a scan root that is missing or not a directory.
var ErrInvalidRoot = fmt.Errorf("invalid scan root")

// ScanOptions narrows and orders a root scan.
type ScanOptions struct {
	// File restricts the scan to paths whose base name matches.
	File string
	// RecentSeriesIDs moves files referencing these TVDB IDs to the
	// front of the scan so recently aired shows resolve first.
	RecentSeriesIDs []int
}

// ScanRoot plans every metadata file under root. Per-file problems are
// logged and skipped; only an unusable root is an error.
func (p *Planner) ScanRoot(ctx context.Context, root string, opts ScanOptions) ([]FilePlan, error) {
	files, err := collectMetadataFiles(root, opts.File)
	if err != nil {
		return nil, err
	}
	prioritize(files, opts.RecentSeriesIDs)

	var plans []FilePlan
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return plans, err
		}
		fp, err := p.ProposeChangesForFile(ctx, path)
		if err != nil {
			logging.Warn("scan: %v", err)
			continue
		}
		if fp != nil {
			plans = append(plans, *fp)
		}
	}
	logging.Info("scan: %d of %d files have proposed changes", len(plans), len(files))
	return plans, nil
}

// collectMetadataFiles gathers .yml/.yaml files under root, skipping
// backups, in sorted path order.
func collectMetadataFiles(root, only string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("scan: walk %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		if strings.Contains(name, ".bak.") {
			return nil
		}
		if only != "" && name != only && path != only {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// prioritize stably moves files naming a recently aired series ID to
// the front of the scan order.
func prioritize(files []string, recentIDs []int) {
	if len(recentIDs) == 0 {
		return
	}
	recent := make(map[string]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[strconv.Itoa(id)] = true
	}
	sort.SliceStable(files, func(i, j int) bool {
		return mentionsRecent(files[i], recent) && !mentionsRecent(files[j], recent)
	})
}

func mentionsRecent(path string, recent map[string]bool) bool {
	base := filepath.Base(path)
	for id := range recent {
		if strings.Contains(base, id) {
			return true
		}
	}
	return false
}
