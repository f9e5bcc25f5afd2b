// Package descriptor parses free-text product/SKU descriptors such as
// "JT 22 SAB AU/B 12pck 750ml" into structured fields.
package descriptor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockfloat/internal/vocab"
)

const (
	// CanonicalPack is the pack size every quantity is converted into.
	CanonicalPack = 12
	// DefaultVolumeML is assumed when no bottle size is present.
	DefaultVolumeML = 750
)

// Options tunes parsing for the caller's context.
type Options struct {
	// UnitIsCases defaults the pack count to 12 when nothing in the text names one.
	UnitIsCases bool
}

// Descriptor is the structured result of Parse. Every field other than FullDescriptor is
// optional; zero values mean "not found".
type Descriptor struct {
	FullDescriptor string `json:"fullDescriptor"`
	BrandCode      string `json:"brandCode,omitempty"`
	BrandName      string `json:"brandName,omitempty"`
	Vintage        string `json:"vintage,omitempty"`
	VarietyCode    string `json:"varietyCode,omitempty"`
	VarietyName    string `json:"varietyName,omitempty"`
	MarketCode     string `json:"marketCode,omitempty"`
	PackCount      int    `json:"packCount,omitempty"`
	VolumeML       int    `json:"volumeMl"`
	// CaseSize is the bottle count per case when the text names one ("6x750ml").
	CaseSize int `json:"caseSize,omitempty"`
}

var (
	packRe     = regexp.MustCompile(`(?i)(?:^|[\s/])(\d{1,3})\s*(?:PACK|PCK|PK|P)\b`)
	multiRe    = regexp.MustCompile(`(?i)\b(\d{1,3})\s*[X×]\s*(\d{2,4})\s*ML\b`)
	volumeRe   = regexp.MustCompile(`(?i)(?:^|[^\d])(\d{2,4})\s*ML\b`)
	packWordRe = regexp.MustCompile(`(?i)^(?:PACK|PCK|PK|P)$`)
	singleRe   = regexp.MustCompile(`(?i)\bSINGLE\b`)
	magnumRe   = regexp.MustCompile(`(?i)\bMAGNUM\b`)
	demiRe     = regexp.MustCompile(`(?i)\bDEMI\b`)
	twoDigitRe = regexp.MustCompile(`^\d{2}$`)
	fourYearRe = regexp.MustCompile(`^(?:19|20)\d{2}$`)
)

// Parse never fails: undetected fields are left empty.
func Parse(raw string, opts Options) Descriptor {
	full := strings.TrimSpace(raw)
	d := Descriptor{FullDescriptor: full, VolumeML: DefaultVolumeML}
	if full == "" {
		if opts.UnitIsCases {
			d.PackCount = CanonicalPack
		}
		return d
	}

	raws := strings.Fields(full)
	subs := subTokens(raws)

	if b, ok := findBrand(subs); ok {
		d.BrandCode, d.BrandName = b.Code, b.Name
	}
	d.Vintage = findVintage(subs)
	if code, ok := findVariety(subs, full); ok {
		d.VarietyCode = code
		d.VarietyName = vocab.VarietyName(code)
	}
	d.MarketCode = findMarket(raws, subs)
	d.PackCount, d.CaseSize = findPack(full, opts)
	d.VolumeML = findVolume(full)
	return d
}

// CaseEquivalents converts a quantity expressed in packs of the given size into 12-pack
// case equivalents. Unknown pack sizes count as already canonical.
func CaseEquivalents(qty float64, pack int) float64 {
	if qty <= 0 {
		return 0
	}
	if pack <= 0 || pack == CanonicalPack {
		return qty
	}
	return qty * float64(pack) / CanonicalPack
}

// PivotYear expands a two digit year using the 50/50 century pivot.
func PivotYear(twoDigits int) int {
	if twoDigits >= 50 {
		return 1900 + twoDigits
	}
	return 2000 + twoDigits
}

func subTokens(raws []string) []string {
	out := make([]string, 0, len(raws))
	for _, tok := range raws {
		for _, part := range strings.FieldsFunc(tok, func(r rune) bool { return r == '/' || r == ',' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToUpper(part))
			}
		}
	}
	return out
}

func findBrand(tokens []string) (vocab.Brand, bool) {
	for i := range tokens {
		if i+2 < len(tokens) {
			if b, ok := vocab.BrandAlias(strings.Join(tokens[i:i+3], " ")); ok {
				return b, true
			}
		}
		if i+1 < len(tokens) {
			if b, ok := vocab.BrandAlias(tokens[i] + " " + tokens[i+1]); ok {
				return b, true
			}
		}
		if b, ok := vocab.BrandAlias(tokens[i]); ok {
			return b, true
		}
	}
	return vocab.Brand{}, false
}

func findVintage(tokens []string) string {
	for i, tok := range tokens {
		// "12 PK" is a pack count, not a vintage
		if i+1 < len(tokens) && packWordRe.MatchString(tokens[i+1]) {
			continue
		}
		switch {
		case twoDigitRe.MatchString(tok):
			n, _ := strconv.Atoi(tok)
			return strconv.Itoa(PivotYear(n))
		case fourYearRe.MatchString(tok):
			n, _ := strconv.Atoi(tok[2:])
			return strconv.Itoa(PivotYear(n))
		}
	}
	return ""
}

func findVariety(tokens []string, full string) (string, bool) {
	for _, tok := range tokens {
		if vocab.IsVarietyCode(tok) {
			return strings.ToUpper(tok), true
		}
	}
	for n := 3; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			if code, ok := vocab.ExactVariety(strings.Join(tokens[i:i+n], " ")); ok {
				return code, true
			}
		}
	}
	return vocab.VarietyCode(full)
}

// findMarket scans backward so a trailing specific code beats an earlier broad one.
func findMarket(raws, subs []string) string {
	for _, tokens := range [][]string{raws, subs} {
		for i := len(tokens) - 1; i >= 0; i-- {
			if vocab.IsMarketToken(tokens[i]) {
				code, _ := vocab.LookupMarket(tokens[i])
				return code
			}
		}
	}
	return ""
}

func findPack(full string, opts Options) (pack, caseSize int) {
	if m := packRe.FindStringSubmatch(full); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, n
		}
	}
	if m := multiRe.FindStringSubmatch(full); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, n
		}
	}
	if singleRe.MatchString(full) {
		return 1, 1
	}
	if opts.UnitIsCases {
		return CanonicalPack, 0
	}
	return 0, 0
}

func findVolume(full string) int {
	if m := volumeRe.FindStringSubmatch(full); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	switch {
	case magnumRe.MatchString(full):
		return 1500
	case demiRe.MatchString(full):
		return 375
	}
	return DefaultVolumeML
}
