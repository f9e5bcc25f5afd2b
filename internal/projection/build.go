package projection

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

// maxPeriods caps how many months a single projection may walk.
const maxPeriods = 120

// Periods returns the calendar months to project. Historical mode walks the date range,
// filling a missing bound from the history span; forward mode takes Horizon months
// starting with the current one.
func Periods(f domain.Filters, now time.Time, history []domain.CanonicalRecord) []domain.Period {
	current := domain.PeriodOf(now)
	if f.Mode != domain.ModeHistorical {
		n := f.Horizon
		if n <= 0 {
			n = domain.DefaultForwardHorizon
		}
		if n > maxPeriods {
			n = maxPeriods
		}
		out := make([]domain.Period, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, current.AddMonths(i))
		}
		return out
	}

	first, last, ok := historySpan(history)
	from, to := first, last
	if f.From != nil && f.From.Index() >= 0 {
		from = *f.From
	}
	if f.To != nil && f.To.Index() >= 0 {
		to = *f.To
	}
	if !ok && (f.From == nil || f.To == nil) {
		if f.From == nil && f.To == nil {
			return []domain.Period{current}
		}
		if f.From == nil {
			from = to
		} else {
			to = from
		}
	}
	if from.Index() > to.Index() {
		from, to = to, from
	}
	n := to.Index() - from.Index() + 1
	if n > maxPeriods {
		n = maxPeriods
	}
	out := make([]domain.Period, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, from.AddMonths(i))
	}
	return out
}

func historySpan(history []domain.CanonicalRecord) (first, last domain.Period, ok bool) {
	for _, r := range history {
		p, has := r.EffectivePeriod()
		if !has {
			continue
		}
		if !ok || p.Index() < first.Index() {
			first = p
		}
		if !ok || p.Index() > last.Index() {
			last = p
		}
		ok = true
	}
	return first, last, ok
}

// BuildOptions controls one projection walk.
type BuildOptions struct {
	// Market is the active market filter; it selects the aggregate forecast.
	Market string
	// Forward marks every period as forward-looking (no actuals, no accuracy).
	Forward bool
	// Now separates past from future periods in historical mode.
	Now time.Time
}

// BuildProjection produces one point per period. Per-item predicted sales split the
// market average by each item's pre-prediction share of stock plus arriving transit.
func BuildProjection(base BaseTable, transit TransitSchedule, model ForecastModel, periods []domain.Period, opts BuildOptions) []domain.ProjectionPoint {
	points := make([]domain.ProjectionPoint, 0, len(periods))
	current := domain.PeriodOf(opts.Now).Index()
	predicted := model.Aggregate(opts.Market)

	for _, p := range periods {
		key := p.Key()
		items := periodItems(base, transit, key)

		pt := domain.ProjectionPoint{
			Period:         key,
			Label:          p.String(),
			Forward:        opts.Forward || p.Index() > current,
			StockOnHand:    base.TotalStock(),
			InTransit:      transit.Total(key),
			PredictedSales: predicted,
			Forecast:       predicted,
			Breakdown:      items,
		}
		pt.UnclampedFloat = pt.StockOnHand + pt.InTransit - pt.PredictedSales
		pt.StockFloat = clamp(pt.UnclampedFloat)

		distributePrediction(pt.Breakdown, model)

		if !pt.Forward {
			if actual, ok := model.Actual(key); ok {
				a := actual
				pt.Actual = &a
				pt.Accuracy = ScoreAccuracy(predicted, actual)
			}
		}
		points = append(points, pt)
	}
	return points
}

// periodItems combines base entries with the items arriving in period, adding
// zero-stock rows for transit-only items.
func periodItems(base BaseTable, transit TransitSchedule, period string) []domain.DistributorVarietyProjection {
	items := make([]domain.DistributorVarietyProjection, 0, len(base.Entries))
	for _, e := range base.Entries {
		items = append(items, domain.DistributorVarietyProjection{
			Key:         e.Key,
			Distributor: e.Distributor,
			VarietyCode: e.VarietyCode,
			MarketCode:  e.MarketCode,
			StockOnHand: e.Stock,
			InTransit:   transit.Cases(period, e.Key),
		})
	}
	added := false
	for _, k := range transit.Keys(period) {
		if _, ok := base.Lookup(k); ok {
			continue
		}
		ti := transit.Items[k]
		items = append(items, domain.DistributorVarietyProjection{
			Key:         k,
			Distributor: ti.Distributor,
			VarietyCode: ti.VarietyCode,
			MarketCode:  ti.MarketCode,
			InTransit:   transit.Cases(period, k),
		})
		added = true
	}
	if added {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	}
	return items
}

// distributePrediction assigns each item its share of its market's average, computed
// once from the pre-prediction totals.
func distributePrediction(items []domain.DistributorVarietyProjection, model ForecastModel) {
	type group struct {
		idx   []int
		total float64
	}
	groups := make(map[string]*group)
	for i, it := range items {
		g, ok := groups[it.MarketCode]
		if !ok {
			g = &group{}
			groups[it.MarketCode] = g
		}
		g.idx = append(g.idx, i)
		g.total += it.StockOnHand + it.InTransit
	}
	for _, market := range sortedKeys(groups) {
		g := groups[market]
		avg := model.ForMarket(market)
		for _, i := range g.idx {
			share := 1 / float64(len(g.idx))
			if g.total > 0 {
				share = (items[i].StockOnHand + items[i].InTransit) / g.total
			}
			items[i].PredictedSales = avg * share
			items[i].UnclampedFloat = items[i].StockOnHand + items[i].InTransit - items[i].PredictedSales
			items[i].StockFloat = clamp(items[i].UnclampedFloat)
		}
	}
}

func clamp(v float64) float64 {
	return math.Max(0, v)
}
