package identifier

import (
	"regexp"
	"strings"
)

var floatArtifact = regexp.MustCompile(`^(\d+)\.0+$`)

// DefaultBlankTokens are the placeholder values legacy exports use for
// "no identifier". Matched case-insensitively after trimming.
var DefaultBlankTokens = []string{"", "nan", "none", "null", "na", "n/a", ".", "-", "--", "unknown"}

// Normalizer canonicalizes raw identifier strings. It never fails; the
// worst case is the empty string.
type Normalizer struct {
	blanks map[string]struct{}
}

func New(blankTokens []string) *Normalizer {
	if len(blankTokens) == 0 {
		blankTokens = DefaultBlankTokens
	}
	blanks := make(map[string]struct{}, len(blankTokens))
	for _, tok := range blankTokens {
		blanks[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return &Normalizer{blanks: blanks}
}

func Default() *Normalizer {
	return New(nil)
}

func (n *Normalizer) Normalize(raw string) string {
	s := strings.ReplaceAll(raw, " ", " ")
	s = strings.TrimSpace(s)

	if _, blank := n.blanks[strings.ToLower(s)]; blank {
		return ""
	}

	// Spreadsheet exports render integer identifiers as floats ("123.0").
	if m := floatArtifact.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
