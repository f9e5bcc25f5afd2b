package projection

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("stockfloat/alerts"))

// Severity grades a float against the threshold using the value before clamping.
func Severity(unclamped, threshold float64) domain.Severity {
	switch {
	case unclamped < 0:
		return domain.SeverityCritical
	case unclamped < threshold/2:
		return domain.SeverityWarning
	default:
		return domain.SeverityInfo
	}
}

func alertID(scope domain.AlertScope, period, distributor, variety string) string {
	name := strings.Join([]string{string(scope), period, distributor, variety}, "|")
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}

// GenerateAlerts emits item alerts for every breakdown row below threshold and one
// aggregate alert per period whose total float is below threshold. Output follows
// point order, items first within a period.
func GenerateAlerts(points []domain.ProjectionPoint, threshold float64) []domain.Alert {
	if threshold <= 0 {
		threshold = domain.DefaultAlertThreshold
	}
	alerts := make([]domain.Alert, 0)
	for _, pt := range points {
		for _, it := range pt.Breakdown {
			if it.StockFloat >= threshold {
				continue
			}
			sev := Severity(it.UnclampedFloat, threshold)
			alerts = append(alerts, domain.Alert{
				ID:            alertID(domain.AlertScopeItem, pt.Period, it.Distributor, it.VarietyCode),
				Scope:         domain.AlertScopeItem,
				Distributor:   it.Distributor,
				VarietyOrCode: it.VarietyCode,
				Period:        pt.Period,
				StockFloat:    it.StockFloat,
				Severity:      sev,
				Description:   describe(it.Distributor, it.VarietyCode, pt.Label, it.UnclampedFloat, threshold),
			})
		}
		if pt.StockFloat < threshold {
			alerts = append(alerts, domain.Alert{
				ID:            alertID(domain.AlertScopeAggregate, pt.Period, "", ""),
				Scope:         domain.AlertScopeAggregate,
				Distributor:   "all",
				VarietyOrCode: "all",
				Period:        pt.Period,
				StockFloat:    pt.StockFloat,
				Severity:      Severity(pt.UnclampedFloat, threshold),
				Description:   describe("all distributors", "", pt.Label, pt.UnclampedFloat, threshold),
			})
		}
	}
	return alerts
}

func describe(distributor, variety, label string, unclamped, threshold float64) string {
	who := distributor
	if variety != "" {
		who += " " + variety
	}
	if unclamped < 0 {
		return fmt.Sprintf("%s runs out in %s (short %.0f cases)", who, label, -unclamped)
	}
	return fmt.Sprintf("%s float %.0f cases in %s, below %.0f", who, unclamped, label, threshold)
}
