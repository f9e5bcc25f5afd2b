package vocab

import (
	"sort"
	"strings"
)

// Variety codes.
const (
	VarietySauvignonBlanc = "SAB"
	VarietyPinotNoir      = "PIN"
	VarietyChardonnay     = "CHR"
	VarietyRose           = "ROS"
	VarietyPinotGris      = "PIG"
	VarietyGruner         = "GRU"
	VarietyLateHarvest    = "LHS"
	VarietyRiesling       = "RIES"
)

// Varieties is the closed variety enumeration.
var Varieties = []string{
	VarietySauvignonBlanc, VarietyPinotNoir, VarietyChardonnay, VarietyRose,
	VarietyPinotGris, VarietyGruner, VarietyLateHarvest, VarietyRiesling,
}

var varietyNames = map[string]string{
	VarietySauvignonBlanc: "Sauvignon Blanc",
	VarietyPinotNoir:      "Pinot Noir",
	VarietyChardonnay:     "Chardonnay",
	VarietyRose:           "Rosé",
	VarietyPinotGris:      "Pinot Gris",
	VarietyGruner:         "Grüner Veltliner",
	VarietyLateHarvest:    "Late Harvest Sauvignon",
	VarietyRiesling:       "Riesling",
}

var varietyMap = map[string]string{
	"SAB":                    VarietySauvignonBlanc,
	"SB":                     VarietySauvignonBlanc,
	"SAUVIGNON BLANC":        VarietySauvignonBlanc,
	"SAUV BLANC":             VarietySauvignonBlanc,
	"PIN":                    VarietyPinotNoir,
	"PN":                     VarietyPinotNoir,
	"PINOT NOIR":             VarietyPinotNoir,
	"CHR":                    VarietyChardonnay,
	"CHA":                    VarietyChardonnay,
	"CHARDONNAY":             VarietyChardonnay,
	"ROS":                    VarietyRose,
	"ROSE":                   VarietyRose,
	"ROSÉ":                   VarietyRose,
	"PINOT ROSE":             VarietyRose,
	"PIG":                    VarietyPinotGris,
	"PG":                     VarietyPinotGris,
	"PINOT GRIS":             VarietyPinotGris,
	"PINOT GRIGIO":           VarietyPinotGris,
	"GRU":                    VarietyGruner,
	"GRUNER":                 VarietyGruner,
	"GRÜNER":                 VarietyGruner,
	"GRUNER VELTLINER":       VarietyGruner,
	"GRÜNER VELTLINER":       VarietyGruner,
	"LHS":                    VarietyLateHarvest,
	"LATE HARVEST":           VarietyLateHarvest,
	"LATE HARVEST SAUVIGNON": VarietyLateHarvest,
	"LATE HARVEST SAUV":      VarietyLateHarvest,
	"RIES":                   VarietyRiesling,
	"RIESLING":               VarietyRiesling,
}

var varietyKeysLongestFirst = func() []string {
	keys := make([]string, 0, len(varietyMap))
	for k := range varietyMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// VarietyName returns the human name for a code, or "" if unknown.
func VarietyName(code string) string {
	return varietyNames[strings.ToUpper(code)]
}

// IsVarietyCode reports whether s is exactly one of the canonical codes.
func IsVarietyCode(s string) bool {
	_, ok := varietyNames[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// ExactVariety matches s against the variety map without any partial matching.
func ExactVariety(s string) (string, bool) {
	code, ok := varietyMap[collapseSpaces(strings.ToUpper(s))]
	return code, ok
}

// VarietyCode resolves free text to one of the canonical codes.
func VarietyCode(raw string) (string, bool) {
	text := collapseSpaces(strings.ToUpper(raw))
	if text == "" {
		return "", false
	}
	if code, ok := varietyMap[text]; ok {
		return code, true
	}

	// late harvest must win over the plain sauvignon rule below
	if strings.Contains(text, "LATE HARVEST") || strings.Contains(text, "LATE HARV") {
		return VarietyLateHarvest, true
	}

	for _, key := range varietyKeysLongestFirst {
		if len(key) >= 3 && containsWord(text, key) {
			return varietyMap[key], true
		}
	}

	// the other direction only counts when the fragment names a single variety,
	// "PINOT" alone is left to the synonym rules
	if len(text) >= 4 {
		candidate := ""
		for _, key := range varietyKeysLongestFirst {
			if !containsWord(key, text) {
				continue
			}
			code := varietyMap[key]
			if candidate != "" && candidate != code {
				candidate = ""
				break
			}
			candidate = code
		}
		if candidate != "" {
			return candidate, true
		}
	}

	return varietySynonym(text)
}

func varietySynonym(text string) (string, bool) {
	switch {
	case strings.Contains(text, "PINOT") && (strings.Contains(text, "GRIGIO") || strings.Contains(text, "GRIS")):
		return VarietyPinotGris, true
	case strings.Contains(text, "ROSE") || strings.Contains(text, "ROSÉ"):
		return VarietyRose, true
	case strings.Contains(text, "PINOT"):
		return VarietyPinotNoir, true
	case strings.Contains(text, "CHARD"):
		return VarietyChardonnay, true
	case strings.Contains(text, "SAUV"):
		return VarietySauvignonBlanc, true
	case strings.Contains(text, "RIESL"):
		return VarietyRiesling, true
	case strings.Contains(text, "GRUN") || strings.Contains(text, "GRÜN") || text == "GV":
		return VarietyGruner, true
	}
	return "", false
}

// NormalizeVariety maps free text onto a variety code; unmatched text is returned
// upper-cased rather than rejected.
func NormalizeVariety(raw string) string {
	if code, ok := VarietyCode(raw); ok {
		return code
	}
	return collapseSpaces(strings.ToUpper(raw))
}

// containsWord reports whether needle occurs in s on word boundaries.
func containsWord(s, needle string) bool {
	if needle == "" || len(needle) > len(s) {
		return false
	}
	for from := 0; from <= len(s)-len(needle); {
		idx := strings.Index(s[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)
		leftOK := start == 0 || !isWordByte(s[start-1])
		rightOK := end == len(s) || !isWordByte(s[end])
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 0x80
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
