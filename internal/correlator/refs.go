// internal/correlator/refs.go
package correlator

import (
	"regexp"
	"strconv"
)

// refPattern matches task references of the form "Ref #123" in
// commit messages and pull-request text, case-insensitively.
var refPattern = regexp.MustCompile(`(?i)ref\s+#(\d+)`)

// ExtractTaskRefs returns the distinct task ids referenced in text,
// in first-mention order. It is a pure function so reference parsing
// stays trivially testable on its own.
func ExtractTaskRefs(text string) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, match := range refPattern.FindAllStringSubmatch(text, -1) {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
