package projection

import (
	"strings"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/store"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

// Filtered is the subset of a store selected by the active filters.
type Filtered struct {
	Stock     []domain.CanonicalRecord
	Depletion []domain.CanonicalRecord
	Shipments []domain.ShipmentRecord
	// HasDepletion is true when the store carries a sales-depletion category at all,
	// even if the filters removed every depletion record.
	HasDepletion bool
}

// History returns the records the forecast is built from: depletions when the store
// has them, otherwise stock records.
func (f Filtered) History() []domain.CanonicalRecord {
	if f.HasDepletion {
		return f.Depletion
	}
	return f.Stock
}

type matcher struct {
	market       string
	distributors map[string]struct{}
	varieties    map[string]struct{}
	years        map[string]struct{}
	from, to     int
	dated        bool
}

func newMatcher(f domain.Filters) matcher {
	m := matcher{from: -1, to: -1}
	if mk := strings.TrimSpace(f.Market); mk != "" && !strings.EqualFold(mk, "all") {
		m.market = vocab.NormalizeMarket(mk)
	}
	m.distributors = lowerSet(f.Distributors, strings.ToLower)
	m.varieties = lowerSet(f.Varieties, func(s string) string { return vocab.NormalizeVariety(s) })
	m.years = lowerSet(f.Years, func(s string) string { return s })
	if f.Mode == domain.ModeHistorical {
		if f.From != nil {
			m.from = f.From.Index()
			m.dated = true
		}
		if f.To != nil {
			m.to = f.To.Index()
			m.dated = true
		}
	}
	return m
}

func lowerSet(values []string, norm func(string) string) map[string]struct{} {
	var out map[string]struct{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "all") {
			continue
		}
		if out == nil {
			out = make(map[string]struct{}, len(values))
		}
		out[norm(v)] = struct{}{}
	}
	return out
}

func (m matcher) match(r domain.CanonicalRecord, distributor string, checkDates bool) bool {
	if m.market != "" && r.MarketCode != m.market {
		return false
	}
	if m.distributors != nil {
		if _, ok := m.distributors[distributorName(distributor)]; !ok {
			return false
		}
	}
	if m.varieties != nil {
		if _, ok := m.varieties[strings.ToUpper(r.VarietyCode)]; !ok {
			return false
		}
	}
	if m.years != nil {
		if _, ok := m.years[r.Vintage]; !ok {
			return false
		}
	}
	if checkDates && m.dated {
		// records without any period are not excluded by a date range
		if p, ok := r.EffectivePeriod(); ok {
			idx := p.Index()
			if m.from >= 0 && idx < m.from {
				return false
			}
			if m.to >= 0 && idx > m.to {
				return false
			}
		}
	}
	return true
}

// distributorName is the cleaned, lower-cased distributor used in aggregation keys.
func distributorName(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(vocab.CleanLocation(raw)), " "))
}

// Filter applies the user's filters to a store snapshot. Stock and depletion records
// are date-filtered in historical mode; shipments never are, since transit is bucketed
// by arrival period downstream.
func Filter(cs store.CanonicalStore, f domain.Filters) Filtered {
	m := newMatcher(f)
	out := Filtered{HasDepletion: len(cs.SalesDepletion) > 0}
	for _, r := range cs.StockOnHand {
		if m.match(r, r.Distributor(), true) {
			out.Stock = append(out.Stock, r)
		}
	}
	for _, r := range cs.SalesDepletion {
		if m.match(r, r.Distributor(), true) {
			out.Depletion = append(out.Depletion, r)
		}
	}
	for _, s := range cs.Shipments {
		if m.match(s.CanonicalRecord, shipmentDistributor(s), false) {
			out.Shipments = append(out.Shipments, s)
		}
	}
	return out
}

func shipmentDistributor(s domain.ShipmentRecord) string {
	if s.Customer != "" {
		return s.Customer
	}
	return s.Distributor()
}

// Options lists the selectable filter values present in a store.
func Options(cs store.CanonicalStore) domain.FilterOptions {
	markets := make([]string, 0)
	distributors := make(map[string]struct{})
	varieties := make(map[string]struct{})
	years := make(map[string]struct{})
	add := func(r domain.CanonicalRecord, distributor string) {
		markets = append(markets, r.MarketCode)
		if d := distributorName(distributor); d != "" {
			distributors[d] = struct{}{}
		}
		if r.VarietyCode != "" {
			varieties[r.VarietyCode] = struct{}{}
		}
		if r.Vintage != "" {
			years[r.Vintage] = struct{}{}
		}
	}
	for _, r := range cs.StockOnHand {
		add(r, r.Distributor())
	}
	for _, r := range cs.SalesDepletion {
		add(r, r.Distributor())
	}
	for _, s := range cs.Shipments {
		add(s.CanonicalRecord, shipmentDistributor(s))
	}
	return domain.FilterOptions{
		Markets:      vocab.AvailableMarkets(markets),
		Distributors: sortedSet(distributors),
		Varieties:    sortedSet(varieties),
		Years:        sortedSet(years),
	}
}
