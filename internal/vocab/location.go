package vocab

import (
	"regexp"
	"strings"
)

// matches "XX - rest" and "XXX rest"
var countryPrefixRe = regexp.MustCompile(`^([A-Za-z]{2,3})(?:\s*-\s*|\s+)(.+)$`)

// CleanLocation strips a leading two or three letter country-code prefix from a location
// or customer name. The prefix is only removed when it is a known market alias so that
// names such as "The Wine Co" stay intact.
func CleanLocation(raw string) string {
	text := strings.TrimSpace(raw)
	m := countryPrefixRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	if !IsMarketToken(m[1]) {
		return text
	}
	return strings.TrimSpace(m[2])
}

// ItemKey builds the aggregation key for a distributor and variety.
func ItemKey(distributor, varietyCode string) string {
	return strings.ToLower(collapseSpaces(distributor)) + "_" + strings.ToUpper(strings.TrimSpace(varietyCode))
}

// Australian state codes recognized in column headers and location fields.
var States = []string{"NSW", "VIC", "QLD", "SA", "WA", "TAS", "NT", "ACT"}

// StateCode returns the state token in s, if any.
func StateCode(s string) (string, bool) {
	upper := strings.ToUpper(s)
	for _, st := range States {
		if containsWord(upper, st) {
			return st, true
		}
	}
	return "", false
}
