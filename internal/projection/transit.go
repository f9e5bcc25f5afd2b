package projection

import (
	"strings"
	"time"
	"unicode"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

// TransitItem identifies an item that has stock arriving but may have no stock row.
type TransitItem struct {
	Key         string
	Distributor string
	VarietyCode string
	MarketCode  string
}

// TransitSchedule buckets active shipment cases by expected arrival period.
type TransitSchedule struct {
	buckets map[string]map[string]float64
	Items   map[string]TransitItem
}

// Cases returns the cases arriving for item key in period.
func (s TransitSchedule) Cases(period, key string) float64 {
	return s.buckets[period][key]
}

// Total sums every item arriving in period, in key order.
func (s TransitSchedule) Total(period string) float64 {
	total := 0.0
	bucket := s.buckets[period]
	for _, k := range sortedKeys(bucket) {
		total += bucket[k]
	}
	return total
}

// Keys lists the item keys arriving in period, sorted.
func (s TransitSchedule) Keys(period string) []string {
	return sortedKeys(s.buckets[period])
}

// Periods lists every period with arrivals, sorted.
func (s TransitSchedule) Periods() []string {
	return sortedKeys(s.buckets)
}

// ArrivalPeriod resolves when a shipment lands: its arrival date when known, otherwise
// the shipped date moved forward by the transit duration, otherwise the current month
// for a shipment whose status says it is in transit or waiting. The second result is
// false when none of these apply.
func ArrivalPeriod(s domain.ShipmentRecord, now time.Time) (domain.Period, bool) {
	if s.ArrivalDate != nil && !s.ArrivalDate.IsZero() {
		return domain.PeriodOf(*s.ArrivalDate), true
	}
	if s.ShippedDate != nil && !s.ShippedDate.IsZero() {
		return domain.PeriodOf(addMonthsClamped(*s.ShippedDate, transitMonths(s))), true
	}
	if awaitingArrival(s.RawStatus) {
		return domain.PeriodOf(now), true
	}
	return domain.Period{}, false
}

var awaitingWords = map[string]bool{
	"transit": true, "waiting": true, "awaiting": true, "pending": true,
	"booked": true, "shipped": true, "shipping": true, "sailing": true,
}

func awaitingArrival(raw string) bool {
	for _, w := range strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if awaitingWords[w] {
			return true
		}
	}
	return false
}

func transitMonths(s domain.ShipmentRecord) int {
	if s.TransitMonths != nil && *s.TransitMonths >= 0 {
		return *s.TransitMonths
	}
	if s.LeadTimeMonths > 0 {
		return s.LeadTimeMonths
	}
	return vocab.LeadTimeMonths(s.MarketCode)
}

// addMonthsClamped moves t by n months, keeping the day inside the target month so
// Jan 31 + 1 month lands in February rather than March.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ScheduleTransit buckets every active shipment by arrival period and item key.
func ScheduleTransit(shipments []domain.ShipmentRecord, now time.Time) TransitSchedule {
	sched := TransitSchedule{
		buckets: make(map[string]map[string]float64),
		Items:   make(map[string]TransitItem),
	}
	for _, s := range shipments {
		if !s.IsActive() {
			continue
		}
		cases := nonNegative(s.CasesInCanonicalUnits)
		if cases == 0 {
			continue
		}
		dist := distributorName(shipmentDistributor(s))
		variety := strings.ToUpper(strings.TrimSpace(s.VarietyCode))
		key := vocab.ItemKey(dist, variety)
		arrival, ok := ArrivalPeriod(s, now)
		if !ok {
			continue
		}
		period := arrival.Key()

		bucket, ok := sched.buckets[period]
		if !ok {
			bucket = make(map[string]float64)
			sched.buckets[period] = bucket
		}
		bucket[key] += cases
		if _, ok := sched.Items[key]; !ok {
			sched.Items[key] = TransitItem{Key: key, Distributor: dist, VarietyCode: variety, MarketCode: vocab.NormalizeMarket(s.MarketCode)}
		}
	}
	return sched
}
