package projection

import (
	"sort"
	"strings"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

// BaseEntry is one (distributor, variety) row of the stock-float base table.
type BaseEntry struct {
	Key         string  `json:"key"`
	Distributor string  `json:"distributor"`
	VarietyCode string  `json:"varietyCode"`
	MarketCode  string  `json:"marketCode"`
	Stock       float64 `json:"stock"`
	InTransit   float64 `json:"inTransit"`
}

// ShipmentGroup is one (market, customer, variety) sum of active shipments.
type ShipmentGroup struct {
	MarketCode  string  `json:"marketCode"`
	Distributor string  `json:"distributor"`
	VarietyCode string  `json:"varietyCode"`
	Cases       float64 `json:"cases"`
}

// BaseTable is the merged stock and shipment aggregation, sorted by key.
type BaseTable struct {
	Entries   []BaseEntry
	Shipments []ShipmentGroup
	index     map[string]int
}

// Lookup returns the entry for an item key.
func (t BaseTable) Lookup(key string) (BaseEntry, bool) {
	i, ok := t.index[key]
	if !ok {
		return BaseEntry{}, false
	}
	return t.Entries[i], true
}

// TotalStock sums stock over every entry in key order.
func (t BaseTable) TotalStock() float64 {
	total := 0.0
	for _, e := range t.Entries {
		total += e.Stock
	}
	return total
}

type stockGroup struct {
	distributor string
	variety     string
	qty         float64
	byMarket    map[string]float64
}

// Aggregate groups stock by (distributor, variety) and active shipments by
// (market, customer, variety), then merges both on (distributor, variety).
func Aggregate(stock []domain.CanonicalRecord, shipments []domain.ShipmentRecord) BaseTable {
	groups := make(map[string]*stockGroup)
	for _, r := range stock {
		dist := distributorName(r.Distributor())
		key := vocab.ItemKey(dist, r.VarietyCode)
		g, ok := groups[key]
		if !ok {
			g = &stockGroup{distributor: dist, variety: strings.ToUpper(strings.TrimSpace(r.VarietyCode)), byMarket: make(map[string]float64)}
			groups[key] = g
		}
		qty := nonNegative(r.Quantity)
		g.qty += qty
		g.byMarket[r.MarketCode] += qty
	}

	type shipKey struct{ market, dist, variety string }
	shipIndex := make(map[shipKey]int)
	var shipGroups []ShipmentGroup
	for _, s := range shipments {
		if !s.IsActive() {
			continue
		}
		k := shipKey{
			market:  vocab.NormalizeMarket(s.MarketCode),
			dist:    distributorName(shipmentDistributor(s)),
			variety: strings.ToUpper(strings.TrimSpace(s.VarietyCode)),
		}
		i, ok := shipIndex[k]
		if !ok {
			i = len(shipGroups)
			shipIndex[k] = i
			shipGroups = append(shipGroups, ShipmentGroup{MarketCode: k.market, Distributor: k.dist, VarietyCode: k.variety})
		}
		shipGroups[i].Cases += nonNegative(s.CasesInCanonicalUnits)
	}
	sort.SliceStable(shipGroups, func(i, j int) bool {
		a, b := shipGroups[i], shipGroups[j]
		if a.MarketCode != b.MarketCode {
			return a.MarketCode < b.MarketCode
		}
		if a.Distributor != b.Distributor {
			return a.Distributor < b.Distributor
		}
		return a.VarietyCode < b.VarietyCode
	})

	merged := make(map[string]*BaseEntry, len(groups))
	for key, g := range groups {
		merged[key] = &BaseEntry{
			Key:         key,
			Distributor: g.distributor,
			VarietyCode: g.variety,
			MarketCode:  dominantMarket(g.byMarket),
			Stock:       g.qty,
		}
	}
	for _, sg := range shipGroups {
		key := vocab.ItemKey(sg.Distributor, sg.VarietyCode)
		e, ok := merged[key]
		if !ok {
			e = &BaseEntry{Key: key, Distributor: sg.Distributor, VarietyCode: sg.VarietyCode, MarketCode: sg.MarketCode}
			merged[key] = e
		}
		e.InTransit += sg.Cases
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	table := BaseTable{Entries: make([]BaseEntry, 0, len(keys)), Shipments: shipGroups, index: make(map[string]int, len(keys))}
	for i, k := range keys {
		table.Entries = append(table.Entries, *merged[k])
		table.index[k] = i
	}
	return table
}

// dominantMarket picks the market holding the most quantity, breaking ties lexically.
func dominantMarket(byMarket map[string]float64) string {
	best, bestQty := "", -1.0
	for _, m := range sortedKeys(byMarket) {
		if byMarket[m] > bestQty {
			best, bestQty = m, byMarket[m]
		}
	}
	return best
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(m map[string]struct{}) []string {
	return sortedKeys(m)
}
