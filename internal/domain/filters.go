package domain

// ProjectionMode selects between a historical date-range walk and a forward horizon.
type ProjectionMode string

const (
	ModeHistorical ProjectionMode = "historical"
	ModeForward    ProjectionMode = "forward"
)

// DefaultAlertThreshold is the case-equivalent float below which alerts fire.
const DefaultAlertThreshold = 500.0

// DefaultForwardHorizon is the number of months projected in forward mode.
const DefaultForwardHorizon = 6

// Filters is the user's active filter selection.
type Filters struct {
	Market       string         `json:"market,omitempty" form:"market"`
	Distributors []string       `json:"distributors,omitempty" form:"distributor"`
	Varieties    []string       `json:"varieties,omitempty" form:"variety"`
	Years        []string       `json:"years,omitempty" form:"year"`
	From         *Period        `json:"from,omitempty"`
	To           *Period        `json:"to,omitempty"`
	Mode         ProjectionMode `json:"mode,omitempty" form:"mode"`
	Horizon      int            `json:"horizon,omitempty" form:"horizon"`
	Threshold    float64        `json:"threshold,omitempty" form:"threshold"`
}

// WithDefaults fills unset mode, horizon and threshold.
func (f Filters) WithDefaults() Filters {
	if f.Mode == "" {
		if f.From != nil || f.To != nil {
			f.Mode = ModeHistorical
		} else {
			f.Mode = ModeForward
		}
	}
	if f.Horizon <= 0 {
		f.Horizon = DefaultForwardHorizon
	}
	if f.Threshold <= 0 {
		f.Threshold = DefaultAlertThreshold
	}
	return f
}

// FilterOptions lists the selectable values present in the store.
type FilterOptions struct {
	Markets      []string `json:"markets"`
	Distributors []string `json:"distributors"`
	Varieties    []string `json:"varieties"`
	Years        []string `json:"years"`
}

// UploadStatus is the terminal status of one upload action.
type UploadStatus struct {
	Category    Category       `json:"category"`
	FileName    string         `json:"fileName"`
	SheetCount  int            `json:"sheetCount"`
	RecordCount int            `json:"recordCount"`
	SheetCounts map[string]int `json:"sheetCounts,omitempty"`
	Message     string         `json:"message"`
	Err         string         `json:"error,omitempty"`
}
