// Package hsn decodes the goods_hsns column of the GST snapshot and matches
// HSN codes against user-requested prefixes.
package hsn

import (
	"strings"
)

// ParsePrefixes splits comma-separated user input into HSN prefixes.
// Blank entries are dropped and duplicates keep their first position.
func ParsePrefixes(input string) []string {
	parts := strings.Split(input, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return UniquePrefixes(parts)
}

// UniquePrefixes drops empty and repeated prefixes, keeping first-seen order.
func UniquePrefixes(prefixes []string) []string {
	var out []string
	seen := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// MatchPrefixes returns the requested prefixes that at least one code starts
// with, in request order. Matching is on the string form of the code, so
// "1001" matches "100110" but not "01001". A nil code list matches nothing.
func MatchPrefixes(codes []string, prefixes []string) []string {
	matched := []string{}
	if codes == nil {
		return matched
	}
	for _, prefix := range prefixes {
		for _, code := range codes {
			if strings.HasPrefix(code, prefix) {
				matched = append(matched, prefix)
				break
			}
		}
	}
	return matched
}

// FormatCodeList renders codes as a list literal in the same shape the
// snapshot stores them, e.g. ['1001', '2002'].
func FormatCodeList(codes []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range codes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(c, `\`, `\\`), `'`, `\'`))
		sb.WriteByte('\'')
	}
	sb.WriteByte(']')
	return sb.String()
}
