// Package strings holds small string helpers for configuration parsing.
package strings

import "strings"

// SplitList splits a comma-separated environment value into its trimmed,
// non-empty entries. Repeated entries are kept once, in first-seen order.
func SplitList(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
