package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

var quantitySanitizer = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "$", "", "'", "")

// ParseQuantity parses a spreadsheet cell into a non-negative quantity. ok is false when
// the cell holds no number at all; negative and accounting-style "(12)" values become 0.
func ParseQuantity(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = quantitySanitizer.Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if negative || d.IsNegative() {
		return 0, true
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt parses a whole number, tolerating decimal formatting such as "3.0".
func ParseInt(raw string) (int, bool) {
	s := quantitySanitizer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return int(d.Round(0).IntPart()), true
}

const monthNamePattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	monYearRe  = regexp.MustCompile(`(?i)\b` + monthNamePattern + `[\s\-_/'.,]*(\d{4}|\d{2})\b`)
	isoMonthRe = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
	monthYrRe  = regexp.MustCompile(`^(\d{1,2})[-/](\d{4})$`)
)

// ParsePeriod extracts a calendar month from a header, cell or sheet title. Accepted forms
// include "Jan-25", "January 2025", "2025-01", "01/2025", full dates and Excel date serials.
func ParsePeriod(raw string) (domain.Period, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Period{}, false
	}
	if t, ok := ParseDate(s); ok {
		return domain.PeriodOf(t), true
	}
	if m := monYearRe.FindStringSubmatch(s); m != nil {
		month := domain.MonthNumber(m[1])
		year := expandYear(m[2])
		if month > 0 && year > 0 {
			return domain.NewPeriod(year, month), true
		}
	}
	if m := isoMonthRe.FindStringSubmatch(s); m != nil {
		if p, ok := periodFromParts(m[1], m[2]); ok {
			return p, true
		}
	}
	if m := monthYrRe.FindStringSubmatch(s); m != nil {
		if p, ok := periodFromParts(m[2], m[1]); ok {
			return p, true
		}
	}
	return domain.Period{}, false
}

// PeriodFromYearMonth combines separate year and month cells.
func PeriodFromYearMonth(yearRaw, monthRaw string) (domain.Period, bool) {
	year := expandYear(strings.TrimSpace(yearRaw))
	if year == 0 {
		return domain.Period{}, false
	}
	month := domain.MonthNumber(monthRaw)
	if month == 0 {
		if n, ok := ParseInt(monthRaw); ok && n >= 1 && n <= 12 {
			month = n
		}
	}
	if month == 0 {
		return domain.Period{}, false
	}
	return domain.NewPeriod(year, month), true
}

func periodFromParts(yearRaw, monthRaw string) (domain.Period, bool) {
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return domain.Period{}, false
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil || month < 1 || month > 12 {
		return domain.Period{}, false
	}
	return domain.NewPeriod(year, month), true
}

func expandYear(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	switch {
	case len(raw) == 2:
		if n >= 50 {
			return 1900 + n
		}
		return 2000 + n
	case len(raw) == 4 && n >= 1900 && n < 2200:
		return n
	}
	return 0
}

// Sources come from NZ and AU offices, so slash dates are read day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02-01-2006",
	"02-01-06",
	"2-1-06",
	"02.01.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
}

// excel serials between 1954 and 2119
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses a date cell. Excel serial numbers are accepted.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
		return excelEpoch.AddDate(0, 0, int(f)), true
	}
	return time.Time{}, false
}
