package domain

// DistributorVarietyProjection is one per-item row of a projection point.
type DistributorVarietyProjection struct {
	Key            string  `json:"key"`
	Distributor    string  `json:"distributor"`
	VarietyCode    string  `json:"varietyCode"`
	MarketCode     string  `json:"marketCode"`
	StockOnHand    float64 `json:"stockOnHand"`
	InTransit      float64 `json:"inTransit"`
	PredictedSales float64 `json:"predictedSales"`
	StockFloat     float64 `json:"stockFloat"`
	// UnclampedFloat keeps the value before the zero floor so alerting can tell a
	// stock-out from a merely low float.
	UnclampedFloat float64 `json:"unclampedFloat"`
}

// ProjectionPoint is the aggregate projection for one period.
type ProjectionPoint struct {
	Period         string                         `json:"period"`
	Label          string                         `json:"label"`
	Forward        bool                           `json:"forward"`
	StockOnHand    float64                        `json:"stockOnHand"`
	InTransit      float64                        `json:"inTransit"`
	PredictedSales float64                        `json:"predictedSales"`
	StockFloat     float64                        `json:"stockFloat"`
	UnclampedFloat float64                        `json:"unclampedFloat"`
	Forecast       float64                        `json:"forecast"`
	Actual         *float64                       `json:"actual"`
	Accuracy       *int                           `json:"accuracy"`
	Breakdown      []DistributorVarietyProjection `json:"breakdown"`
}

// Severity of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// AlertScope separates per-item alerts from the legacy aggregate alerts.
type AlertScope string

const (
	AlertScopeItem      AlertScope = "item"
	AlertScopeAggregate AlertScope = "aggregate"
)

// Alert flags a projected low stock float.
type Alert struct {
	ID            string     `json:"id"`
	Scope         AlertScope `json:"scope"`
	Distributor   string     `json:"distributor"`
	VarietyOrCode string     `json:"varietyOrCode"`
	Period        string     `json:"period"`
	StockFloat    float64    `json:"stockFloat"`
	Severity      Severity   `json:"severity"`
	Description   string     `json:"description"`
}

// KPISummary compares the last two projection points.
type KPISummary struct {
	AvgFloatNow     float64 `json:"avgFloatNow"`
	AvgFloatPrev    float64 `json:"avgFloatPrev"`
	ForecastAccNow  *int    `json:"forecastAccNow"`
	ForecastAccPrev *int    `json:"forecastAccPrev"`
	CriticalNow     int     `json:"criticalNow"`
	CriticalPrev    int     `json:"criticalPrev"`
	AtRiskNow       int     `json:"atRiskNow"`
	AtRiskPrev      int     `json:"atRiskPrev"`
}

// ProjectionResult is the full output of one recompute.
type ProjectionResult struct {
	Points []ProjectionPoint `json:"points"`
	Alerts []Alert           `json:"alerts"`
	KPI    KPISummary        `json:"kpi"`
}

// Empty reports whether the result carries no projection at all.
func (r ProjectionResult) Empty() bool {
	return len(r.Points) == 0
}
