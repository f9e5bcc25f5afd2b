// internal/domain/record.go
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category identifies the kind of report an upload carries.
type Category string

const (
	CategoryStockOnHand    Category = "stock-on-hand"
	CategoryExports        Category = "exports"
	CategorySalesDepletion Category = "sales-depletion"
)

// Categories lists every known category in a stable order.
var Categories = []Category{CategoryStockOnHand, CategoryExports, CategorySalesDepletion}

// ParseCategory accepts the canonical names plus a few loose spellings used by uploaders.
func ParseCategory(raw string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))) {
	case "stock-on-hand", "stock", "soh", "inventory":
		return CategoryStockOnHand, true
	case "exports", "export", "shipments", "shipment":
		return CategoryExports, true
	case "sales-depletion", "sales", "depletion", "depletions":
		return CategorySalesDepletion, true
	}
	return "", false
}

var monthAbbrevs = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthAbbrev returns the three letter abbreviation for a 1-based month, or "" when out of range.
func MonthAbbrev(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthAbbrevs[month-1]
}

// MonthNumber is the inverse of MonthAbbrev; it also accepts full month names.
func MonthNumber(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0
	}
	for i, abbrev := range monthAbbrevs {
		if strings.HasPrefix(name, strings.ToLower(abbrev)) {
			return i + 1
		}
	}
	return 0
}

// Period is a calendar month.
type Period struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

// NewPeriod builds a Period from numeric year and month.
func NewPeriod(year, month int) Period {
	return Period{Month: MonthAbbrev(month), Year: strconv.Itoa(year)}
}

// PeriodOf returns the calendar month containing t.
func PeriodOf(t time.Time) Period {
	return NewPeriod(t.Year(), int(t.Month()))
}

// YearMonth returns the numeric year and month; ok is false for malformed periods.
func (p Period) YearMonth() (year, month int, ok bool) {
	year, err := strconv.Atoi(p.Year)
	if err != nil {
		return 0, 0, false
	}
	month = MonthNumber(p.Month)
	if month == 0 {
		return 0, 0, false
	}
	return year, month, true
}

// Key renders the period as YYYY-MM, which sorts chronologically.
func (p Period) Key() string {
	year, month, ok := p.YearMonth()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Index is a monotonically increasing month counter (year*12 + month-1).
func (p Period) Index() int {
	year, month, ok := p.YearMonth()
	if !ok {
		return -1
	}
	return year*12 + month - 1
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	year, month, ok := p.YearMonth()
	if !ok {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts the period by n calendar months.
func (p Period) AddMonths(n int) Period {
	start := p.Start()
	if start.IsZero() {
		return p
	}
	return PeriodOf(start.AddDate(0, n, 0))
}

func (p Period) String() string {
	return p.Month + " " + p.Year
}

// CanonicalRecord is the unified row every source format is normalized into.
type CanonicalRecord struct {
	MarketCode         string            `json:"marketCode"`
	VarietyCode        string            `json:"varietyCode"`
	BrandCode          string            `json:"brandCode,omitempty"`
	BrandName          string            `json:"brandName,omitempty"`
	Vintage            string            `json:"vintage,omitempty"`
	Location           string            `json:"location"`
	DistributorKey     string            `json:"distributorKey"`
	ProductDisplayName string            `json:"productDisplayName,omitempty"`
	Channel            string            `json:"channel,omitempty"`
	Quantity           float64           `json:"quantity"`
	Period             *Period           `json:"period,omitempty"`
	ShippedDate        *time.Time        `json:"shippedDate,omitempty"`
	SourceSheet        string            `json:"sourceSheet"`
	RawRow             map[string]string `json:"rawRow,omitempty"`
}

// EffectivePeriod returns the record's period, deriving it from the shipped date for
// transaction-level records.
func (r CanonicalRecord) EffectivePeriod() (Period, bool) {
	if r.Period != nil {
		if _, _, ok := r.Period.YearMonth(); ok {
			return *r.Period, true
		}
	}
	if r.ShippedDate != nil && !r.ShippedDate.IsZero() {
		return PeriodOf(*r.ShippedDate), true
	}
	return Period{}, false
}

// Distributor returns the key used to group the record by selling location.
func (r CanonicalRecord) Distributor() string {
	if r.DistributorKey != "" {
		return r.DistributorKey
	}
	return r.Location
}

// ShipmentStatus is the collapsed lifecycle of an export shipment.
type ShipmentStatus string

const (
	ShipmentActive   ShipmentStatus = "active"
	ShipmentComplete ShipmentStatus = "complete"
)

// ShipmentRecord is the exports specialization of CanonicalRecord.
type ShipmentRecord struct {
	CanonicalRecord
	Customer              string         `json:"customer"`
	CasesInCanonicalUnits float64        `json:"casesInCanonicalUnits"`
	Status                ShipmentStatus `json:"status"`
	RawStatus             string         `json:"rawStatus,omitempty"`
	ArrivalDate           *time.Time     `json:"arrivalDate,omitempty"`
	FreightForwarder      string         `json:"freightForwarder,omitempty"`
	LeadTimeMonths        int            `json:"leadTimeMonths"`
	// TransitMonths is an explicit per-record transit duration; nil means use LeadTimeMonths.
	TransitMonths *int `json:"transitMonths,omitempty"`
}

// IsActive reports whether the shipment still counts as in transit.
func (s ShipmentRecord) IsActive() bool {
	return s.Status == ShipmentActive
}
