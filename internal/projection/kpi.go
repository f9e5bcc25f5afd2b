package projection

import (
	"github.com/andresuchdata/stockfloat/internal/domain"
)

// ComputeKPI summarizes the last two points. AvgFloat is the mean item float of a point;
// critical and at-risk counts come from that point's item alerts.
func ComputeKPI(points []domain.ProjectionPoint, alerts []domain.Alert) domain.KPISummary {
	var k domain.KPISummary
	if len(points) == 0 {
		return k
	}
	now := points[len(points)-1]
	k.AvgFloatNow = avgFloat(now)
	k.ForecastAccNow = now.Accuracy
	k.CriticalNow, k.AtRiskNow = countAlerts(alerts, now.Period)

	if len(points) > 1 {
		prev := points[len(points)-2]
		k.AvgFloatPrev = avgFloat(prev)
		k.ForecastAccPrev = prev.Accuracy
		k.CriticalPrev, k.AtRiskPrev = countAlerts(alerts, prev.Period)
	}
	return k
}

func avgFloat(pt domain.ProjectionPoint) float64 {
	if len(pt.Breakdown) == 0 {
		return pt.StockFloat
	}
	sum := 0.0
	for _, it := range pt.Breakdown {
		sum += it.StockFloat
	}
	return sum / float64(len(pt.Breakdown))
}

func countAlerts(alerts []domain.Alert, period string) (critical, atRisk int) {
	for _, a := range alerts {
		if a.Period != period || a.Scope != domain.AlertScopeItem {
			continue
		}
		atRisk++
		if a.Severity == domain.SeverityCritical {
			critical++
		}
	}
	return critical, atRisk
}
