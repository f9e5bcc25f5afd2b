package vocab

import (
	"sort"
	"strings"
)

// Canonical market codes.
const (
	MarketUSA     = "usa"
	MarketAU      = "au"
	MarketAUB     = "au-b"
	MarketAUC     = "au-c"
	MarketNZL     = "nzl"
	MarketIreland = "ire"
	MarketKorea   = "kor"
)

// Markets is the closed market enumeration.
var Markets = []string{MarketUSA, MarketAU, MarketAUB, MarketAUC, MarketNZL, MarketIreland, MarketKorea}

var marketAliases = map[string]string{
	"US":            MarketUSA,
	"USA":           MarketUSA,
	"UNITED STATES": MarketUSA,
	"AU":            MarketAU,
	"AUS":           MarketAU,
	"AUSTRALIA":     MarketAU,
	"AU-B":          MarketAUB,
	"AU/B":          MarketAUB,
	"AU_B":          MarketAUB,
	"AUB":           MarketAUB,
	"AU-C":          MarketAUC,
	"AU/C":          MarketAUC,
	"AU_C":          MarketAUC,
	"AUC":           MarketAUC,
	"NZ":            MarketNZL,
	"NZL":           MarketNZL,
	"NEW ZEALAND":   MarketNZL,
	"IRE":           MarketIreland,
	"IRL":           MarketIreland,
	"IE":            MarketIreland,
	"IRELAND":       MarketIreland,
	"KO":            MarketKorea,
	"KOR":           MarketKorea,
	"KOREA":         MarketKorea,
}

// aliasesLongestFirst keeps "AU-B" ahead of "AU" during partial matching.
var aliasesLongestFirst = func() []string {
	keys := make([]string, 0, len(marketAliases))
	for k := range marketAliases {
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

// IsMarketToken reports whether s on its own is a known market alias or code.
func IsMarketToken(s string) bool {
	_, ok := exactMarket(s)
	return ok
}

func exactMarket(s string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	if code, ok := marketAliases[key]; ok {
		return code, true
	}
	// canonical codes are accepted as-is
	for _, code := range Markets {
		if strings.EqualFold(key, code) {
			return code, true
		}
	}
	return "", false
}

// LookupMarket resolves free text to a canonical market code. ok is false when nothing
// in the text matches the alias table.
func LookupMarket(raw string) (string, bool) {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}
	if code, ok := exactMarket(text); ok {
		return code, true
	}

	parts := strings.Fields(text)
	if len(parts) > 1 {
		for i := len(parts) - 1; i >= 0; i-- {
			if code, ok := exactMarket(parts[i]); ok {
				return code, true
			}
		}
	}

	for _, alias := range aliasesLongestFirst {
		if containsSegment(text, alias) {
			return marketAliases[alias], true
		}
	}
	return "", false
}

// NormalizeMarket maps free text onto the market enumeration, degrading to a lower-cased,
// hyphen-free copy of the input when no alias matches.
func NormalizeMarket(raw string) string {
	if code, ok := LookupMarket(raw); ok {
		return code
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "")
}

// AvailableMarkets returns the sorted unique normalized codes, always including au-c.
func AvailableMarkets(codes []string) []string {
	seen := map[string]struct{}{MarketAUC: {}}
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			continue
		}
		seen[NormalizeMarket(c)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LeadTimeMonths is the assumed transit duration for shipments into a market.
func LeadTimeMonths(market string) int {
	code := NormalizeMarket(market)
	switch {
	case strings.HasPrefix(code, "au"):
		return 1
	case code == MarketUSA:
		return 2
	case code == MarketIreland:
		return 3
	}
	return 2
}

func isSegmentBoundary(b byte) bool {
	switch b {
	case '-', '_', '/', ' ', '\t':
		return true
	}
	return false
}

// containsSegment reports whether needle occurs in s bounded on both sides by a separator
// or the string edge.
func containsSegment(s, needle string) bool {
	for from := 0; from <= len(s)-len(needle); {
		idx := strings.Index(s[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)
		leftOK := start == 0 || isSegmentBoundary(s[start-1])
		rightOK := end == len(s) || isSegmentBoundary(s[end])
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
	return false
}
