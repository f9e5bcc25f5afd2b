// Package projection turns a canonical store and a filter selection into stock-float
// projection points, alerts and KPIs. Every function here is pure: the same store,
// filters and clock always give the same result.
package projection

import (
	"strings"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/store"
)

// ProjectOptions carries the clock; a nil Now means time.Now.
type ProjectOptions struct {
	Now func() time.Time
}

func (o ProjectOptions) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now()
}

// Empty is the result returned when required inputs are missing.
func Empty() domain.ProjectionResult {
	return domain.ProjectionResult{
		Points: []domain.ProjectionPoint{},
		Alerts: []domain.Alert{},
	}
}

// Project runs filter, aggregate, transit, forecast, projection, alerts and KPI in one
// pass. Without both stock-on-hand and exports data it returns an empty result rather
// than numbers built from partial inputs.
func Project(cs store.CanonicalStore, filters domain.Filters, opts ProjectOptions) domain.ProjectionResult {
	if !cs.Has(domain.CategoryStockOnHand) || !cs.Has(domain.CategoryExports) {
		return Empty()
	}
	f := filters.WithDefaults()
	now := opts.now()

	filtered := Filter(cs, f)
	base := Aggregate(filtered.Stock, filtered.Shipments)
	transit := ScheduleTransit(filtered.Shipments, now)
	history := filtered.History()
	model := Forecast(history)

	periods := Periods(f, now, history)
	market := strings.TrimSpace(f.Market)
	if strings.EqualFold(market, "all") {
		market = ""
	}
	points := BuildProjection(base, transit, model, periods, BuildOptions{
		Market:  market,
		Forward: f.Mode == domain.ModeForward,
		Now:     now,
	})
	alerts := GenerateAlerts(points, f.Threshold)
	return domain.ProjectionResult{
		Points: points,
		Alerts: alerts,
		KPI:    ComputeKPI(points, alerts),
	}
}
