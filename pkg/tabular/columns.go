package tabular

import "strings"

// normalizeName reduces a column name to lowercase alphanumerics so that
// "ENCRYPTED_PAT_ID", "Encrypted Pat ID" and "encrypted.pat.id" all match.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindColumn resolves a prioritized candidate list against a header.
// Every candidate is tried for an exact normalized match before any
// candidate is tried for a substring match.
func FindColumn(header []string, candidates []string) (string, bool) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeName(h)
	}

	for _, cand := range candidates {
		want := normalizeName(cand)
		if want == "" {
			continue
		}
		for i, have := range normalized {
			if have == want {
				return header[i], true
			}
		}
	}

	for _, cand := range candidates {
		want := normalizeName(cand)
		if want == "" {
			continue
		}
		for i, have := range normalized {
			if strings.Contains(have, want) {
				return header[i], true
			}
		}
	}

	return "", false
}
