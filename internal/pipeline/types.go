package pipeline

import (
	"strconv"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/ingest"
)

// Config holds configuration for the ingestion pipeline
type Config struct {
	WorkerCount int           // Number of sheets parsed concurrently
	Debounce    time.Duration // Delay before a filter change triggers a recompute
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		Debounce:    150 * time.Millisecond,
	}
}

// RunStatus represents the current state of an ingestion run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run tracks one upload of one category
type Run struct {
	ID              int64           `db:"id" json:"id"`
	Category        domain.Category `db:"category" json:"category"`
	FileName        string          `db:"file_name" json:"fileName"`
	Status          RunStatus       `db:"status" json:"status"`
	TotalSheets     int             `db:"total_sheets" json:"totalSheets"`
	ProcessedSheets int             `db:"processed_sheets" json:"processedSheets"`
	TotalRecords    int             `db:"total_records" json:"totalRecords"`
	DroppedRows     int             `db:"dropped_rows" json:"droppedRows"`
	StartedAt       time.Time       `db:"started_at" json:"startedAt"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
	ErrorMessage    string          `db:"error_message" json:"errorMessage,omitempty"`
}

// Upload is one workbook or table handed to the orchestrator.
type Upload struct {
	Category domain.Category
	FileName string
	Sheets   []ingest.Sheet
}

// SheetOutcome is the parsed result of a single sheet.
type SheetOutcome struct {
	Sheet     string                   `json:"sheet"`
	Layout    ingest.Layout            `json:"layout,omitempty"`
	Records   []domain.CanonicalRecord `json:"-"`
	Shipments []domain.ShipmentRecord  `json:"-"`
	Count     int                      `json:"count"`
	Dropped   int                      `json:"dropped"`
	Err       error                    `json:"-"`
}

// Report summarizes one completed ingestion.
type Report struct {
	Run             Run            `json:"run"`
	Sheets          []SheetOutcome `json:"sheets"`
	RecordCount     int            `json:"recordCount"`
	CombinedDropped bool           `json:"combinedDropped"`
}

// Status renders the terminal upload status shown to the user.
func (r Report) Status(err error) domain.UploadStatus {
	st := domain.UploadStatus{
		Category:    r.Run.Category,
		FileName:    r.Run.FileName,
		SheetCount:  len(r.Sheets),
		RecordCount: r.RecordCount,
		SheetCounts: make(map[string]int, len(r.Sheets)),
	}
	for _, s := range r.Sheets {
		st.SheetCounts[s.Sheet] = s.Count
	}
	if err != nil {
		st.Err = err.Error()
		st.Message = "error: " + err.Error()
		return st
	}
	st.Message = "processed " + strconv.Itoa(r.RecordCount) + " records"
	return st
}
