package constants

import (
	"strings"
)

// Family identifies one of the known laboratory report templates.
type Family string

const (
	LABEXIA       Family = "LABEXIA"
	LABECarrefour Family = "LABE_CARREFOUR"
)

// DefaultFamily is selected whenever a hint carries no family token.
const DefaultFamily = LABEXIA

var allFamilies = []Family{
	LABEXIA,
	LABECarrefour,
}

// carrefourToken marks a LABE-Carrefour report in a file name.
const carrefourToken = "carrefour"

func AsStringSlice() []string {
	result := make([]string, len(allFamilies))
	for i, f := range allFamilies {
		result[i] = string(f)
	}
	return result
}

// SelectFamily picks the report family from a hint, typically the uploaded file name.
// It never fails: hints without the carrefour token select DefaultFamily.
func SelectFamily(hint string) Family {
	if strings.Contains(strings.ToLower(hint), carrefourToken) {
		return LABECarrefour
	}
	return DefaultFamily
}

// ParseFamily resolves a user-supplied family name (CLI flag, config, API field).
func ParseFamily(input string) (Family, bool) {
	if input == "" {
		return DefaultFamily, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Family{
		"labexia":        LABEXIA,
		"labex":          LABEXIA,
		"carrefour":      LABECarrefour,
		"labe-carrefour": LABECarrefour,
		"labe carrefour": LABECarrefour,
		"labe_carrefour": LABECarrefour,
	}

	if f, ok := synonyms[normalized]; ok {
		return f, true
	}

	for _, f := range allFamilies {
		if normalized == strings.ToLower(string(f)) {
			return f, true
		}
	}

	return DefaultFamily, false
}

// Label is the human-readable family name used in sheet titles and tables.
func (f Family) Label() string {
	switch f {
	case LABECarrefour:
		return "LABE-Carrefour"
	default:
		return "LABEXIA"
	}
}
