package vocab

import (
	"sort"
	"strings"
)

// Brand is an entry of the closed brand enumeration.
type Brand struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	BrandJulesTaylor = Brand{Code: "JT", Name: "Jules Taylor"}
	BrandOnTheQuiet  = Brand{Code: "OTQ", Name: "On The Quiet"}
)

// Brands lists every known brand.
var Brands = []Brand{BrandJulesTaylor, BrandOnTheQuiet}

var brandAliases = map[string]Brand{
	"JT":           BrandJulesTaylor,
	"JTW":          BrandJulesTaylor,
	"JULES":        BrandJulesTaylor,
	"JULES TAYLOR": BrandJulesTaylor,
	"JULES TAYLER": BrandJulesTaylor,
	"JULE TAYLOR":  BrandJulesTaylor,
	"JULESTAYLOR":  BrandJulesTaylor,
	"OTQ":          BrandOnTheQuiet,
	"ON THE QUIET": BrandOnTheQuiet,
	"ONTHEQUIET":   BrandOnTheQuiet,
	"QUIET":        BrandOnTheQuiet,
}

var brandAliasesLongestFirst = func() []string {
	keys := make([]string, 0, len(brandAliases))
	for k := range brandAliases {
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

// BrandAlias matches a single token (or joined tokens) exactly.
func BrandAlias(token string) (Brand, bool) {
	b, ok := brandAliases[collapseSpaces(strings.ToUpper(token))]
	return b, ok
}

// DetectBrand finds a brand anywhere in free text, preferring the longest alias.
func DetectBrand(text string) (Brand, bool) {
	upper := collapseSpaces(strings.ToUpper(text))
	if upper == "" {
		return Brand{}, false
	}
	if b, ok := brandAliases[upper]; ok {
		return b, true
	}
	for _, alias := range brandAliasesLongestFirst {
		if containsWord(upper, alias) {
			return brandAliases[alias], true
		}
	}
	return Brand{}, false
}

// BrandByCode returns the brand with the given code.
func BrandByCode(code string) (Brand, bool) {
	for _, b := range Brands {
		if strings.EqualFold(b.Code, code) {
			return b, true
		}
	}
	return Brand{}, false
}

// DisplayName reconstructs a human product name from brand and variety, best-effort.
func DisplayName(brand Brand, varietyCode string) string {
	parts := make([]string, 0, 2)
	if brand.Name != "" {
		parts = append(parts, brand.Name)
	}
	if name := VarietyName(varietyCode); name != "" {
		parts = append(parts, name)
	} else if varietyCode != "" {
		parts = append(parts, varietyCode)
	}
	return strings.Join(parts, " ")
}
