package mediux

import (
	"regexp"
	"sort"
)

// Asset is the canonical record for a single image resource in a MediUX
// set, normalized from whatever shape the upstream API returned.
// ID is the only field guaranteed to be present; records without a
// derivable identifier are dropped during normalization.
type Asset struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"` // poster, backdrop, title_card, ... empty when unknown
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"` // file size in bytes when reported, 0 otherwise

	Raw map[string]any `json:"-"`
}

// uuidRegex matches UUID-shaped tokens used as asset identifiers.
var uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Field names tried in order when extracting each attribute from a raw
// upstream record.
var (
	idFields   = []string{"id", "uuid", "asset_id"}
	nameFields = []string{"name", "filename", "title"}
	typeFields = []string{"type", "asset_type", "fileType"}
	sizeFields = []string{"file_size", "fileSize", "size"}
)

// NormalizeAsset converts one raw upstream record into an Asset.
// Returns false when no identifier can be derived.
func NormalizeAsset(raw map[string]any) (Asset, bool) {
	a := Asset{Raw: raw}

	for _, f := range idFields {
		if s, ok := stringField(raw, f); ok {
			a.ID = s
			break
		}
	}
	if a.ID == "" {
		// Fall back to a UUID-shaped token anywhere in the record.
		a.ID = findUUID(raw)
	}
	if a.ID == "" {
		return Asset{}, false
	}

	for _, f := range nameFields {
		if s, ok := stringField(raw, f); ok {
			a.Name = s
			break
		}
	}
	for _, f := range typeFields {
		if s, ok := stringField(raw, f); ok {
			a.Type = s
			break
		}
	}
	for _, f := range sizeFields {
		if n, ok := intField(raw, f); ok {
			a.Size = n
			break
		}
	}

	return a, true
}

// NormalizeAssets normalizes a list of raw records, skipping entries that
// are not mappings or have no derivable identifier.
func NormalizeAssets(raws []any) []Asset {
	assets := make([]Asset, 0, len(raws))
	for _, r := range raws {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if a, ok := NormalizeAsset(m); ok {
			assets = append(assets, a)
		}
	}
	return assets
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func intField(m map[string]any, key string) (int64, bool) {
	switch v := m[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// findUUID scans nested mapping values depth-first for the first
// UUID-shaped string.
func findUUID(v any) string {
	switch val := v.(type) {
	case string:
		return uuidRegex.FindString(val)
	case map[string]any:
		// Sorted keys keep discovery deterministic across runs.
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if id := findUUID(val[k]); id != "" {
				return id
			}
		}
	case []any:
		for _, nested := range val {
			if id := findUUID(nested); id != "" {
				return id
			}
		}
	}
	return ""
}
