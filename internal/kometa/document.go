// Package kometa reads and rewrites Kometa metadata YAML files.
package kometa

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a parsed metadata file with all mapping keys normalized
// to strings. Kometa files key entries by TMDb/TVDb IDs, which the YAML
// decoder would otherwise surface as ints.
type Document struct {
	Path string
	Root map[string]any
}

// Load reads and parses the metadata file at path. Missing files and
// unparseable YAML both return errors; callers distinguish them with
// errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}
	return Parse(path, raw)
}

// Parse decodes raw YAML into a normalized document. A document whose
// top level is not a mapping is rejected.
func Parse(path string, raw []byte) (*Document, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	root, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: top level is not a mapping", path)
	}
	return &Document{Path: path, Root: root}, nil
}

// Marshal renders the document back to YAML.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d.Root)
}

// Lookup walks the document along path, returning the mapping at the
// end of it. It reports false when any segment is missing or not a
// mapping.
func (d *Document) Lookup(path []string) (map[string]any, bool) {
	cur := d.Root
	for _, seg := range path {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// normalize rewrites every mapping key to its string form so the rest
// of the package only ever sees map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
