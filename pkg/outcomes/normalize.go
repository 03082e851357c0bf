package outcomes

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical treatment signals.
const (
	TreatmentNone         = "NO TREATMENT"
	TreatmentNonOperative = "NON-OPERATIVE"
	TreatmentReoperation  = "REOPERATION"
	TreatmentRehosp       = "REHOSPITALIZATION"
	TreatmentUnknown      = "UNKNOWN"
)

// Canonical classification signals.
const (
	ClassMinor   = "MINOR"
	ClassMajor   = "MAJOR"
	ClassUnknown = "UNKNOWN"
)

var innerSpace = regexp.MustCompile(`\s+`)

func normUpper(raw string) string {
	s := strings.ReplaceAll(raw, " ", " ")
	s = strings.TrimSpace(s)
	return innerSpace.ReplaceAllString(strings.ToUpper(s), " ")
}

// NormalizeTreatment maps raw treatment cells onto the canonical signal
// set. Anything non-blank that does not map cleanly becomes UNKNOWN
// rather than inventing a signal.
func NormalizeTreatment(raw string) string {
	s := normUpper(raw)
	if s == "" {
		return ""
	}

	switch {
	case strings.Contains(s, "REHOSP") || strings.Contains(s, "RE-HOSP") || strings.Contains(s, "RE HOSP"):
		return TreatmentRehosp
	case strings.Contains(s, "REOP") || strings.Contains(s, "RE-OP") || strings.Contains(s, "RE OP") || strings.Contains(s, "RETURN TO OR"):
		return TreatmentReoperation
	case strings.Contains(s, "NON") && strings.Contains(s, "OPER"):
		return TreatmentNonOperative
	case s == "NO TREATMENT" || s == "NONE" || s == "NO TX" || s == "NO-TREATMENT" || strings.Contains(s, "NO TREAT"):
		return TreatmentNone
	default:
		return TreatmentUnknown
	}
}

// NormalizeClassification maps raw classification cells onto
// MINOR / MAJOR / UNKNOWN / "".
func NormalizeClassification(raw string) string {
	s := normUpper(raw)
	if s == "" {
		return ""
	}

	switch {
	case strings.Contains(s, "MAJOR"):
		return ClassMajor
	case strings.Contains(s, "MINOR"):
		return ClassMinor
	default:
		return ClassUnknown
	}
}

// To01 coerces common boolean renderings to 0/1. Blank and unparsable
// values are 0, never indeterminate.
func To01(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "1", "y", "yes", "true", "t":
		return 1
	case "", "0", "n", "no", "false", "f":
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v != 0 {
		return 1
	}
	return 0
}
