package kometa

import "sort"

// GatherPaths performs a depth-first traversal of the document,
// returning the path of the root and of every nested mapping reachable
// through mapping values. List values are not descended into. Keys are
// visited in sorted order so repeated runs over the same file produce
// identical traversals.
func (d *Document) GatherPaths() [][]string {
	var paths [][]string
	gather(d.Root, nil, &paths)
	return paths
}

func gather(node map[string]any, path []string, paths *[][]string) {
	*paths = append(*paths, append([]string(nil), path...))

	for _, key := range sortedKeys(node) {
		child, ok := node[key].(map[string]any)
		if !ok {
			continue
		}
		gather(child, append(append([]string(nil), path...), key), paths)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
