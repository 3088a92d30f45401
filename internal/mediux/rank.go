package mediux

import (
	"sort"
	"strings"
)

// Priority tiers for metadata slots, best first. An asset is classified
// by its type field when recognizable, falling back to a case-insensitive
// substring search of its name.
var rankTiers = [][]string{
	{"title_card", "title-card", "titlecard"},
	{"poster"},
	{"backdrop", "background"},
}

var unrankedTier = len(rankTiers)

// RankAssets orders asset identifiers by desirability for a single
// metadata slot: title cards before posters before backdrops before
// everything else. Ties within a tier preserve input order, except that
// a known positive file size promotes an asset over a smaller one in the
// same tier. Assets without an identifier never appear in the result.
func RankAssets(assets []Asset) []string {
	type ranked struct {
		id   string
		size int64
	}

	tiers := make([][]ranked, unrankedTier+1)
	for _, a := range assets {
		if a.ID == "" {
			continue
		}
		t := classify(a)
		tiers[t] = append(tiers[t], ranked{id: a.ID, size: a.Size})
	}

	ids := make([]string, 0, len(assets))
	for _, tier := range tiers {
		// Size is only a secondary key: assets with a positive size
		// reorder by size among the slots they already occupy, while
		// assets without one never move.
		slots := make([]int, 0, len(tier))
		sized := make([]ranked, 0, len(tier))
		for i, r := range tier {
			if r.size > 0 {
				slots = append(slots, i)
				sized = append(sized, r)
			}
		}
		sort.SliceStable(sized, func(i, j int) bool {
			return sized[i].size > sized[j].size
		})
		for k, i := range slots {
			tier[i] = sized[k]
		}
		for _, r := range tier {
			ids = append(ids, r.id)
		}
	}
	return ids
}

func classify(a Asset) int {
	if t := strings.ToLower(a.Type); t != "" {
		for i, keywords := range rankTiers {
			for _, kw := range keywords {
				if strings.Contains(t, kw) {
					return i
				}
			}
		}
	}
	if n := strings.ToLower(a.Name); n != "" {
		for i, keywords := range rankTiers {
			for _, kw := range keywords {
				if strings.Contains(n, kw) {
					return i
				}
			}
		}
	}
	return unrankedTier
}
