package mediux

import "regexp"

// setURLRegex matches MediUX set URLs embedded in arbitrary text, with or
// without a scheme and trailing slash. The capture group is the numeric
// set identifier.
var setURLRegex = regexp.MustCompile(`mediux\.pro/sets/([0-9]+)`)

// FindSetIDs scans raw text for MediUX set URLs and returns the numeric
// identifiers in first-seen order with duplicates removed.
func FindSetIDs(text string) []string {
	matches := setURLRegex.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
