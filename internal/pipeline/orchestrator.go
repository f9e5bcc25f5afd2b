package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/events"
	"github.com/andresuchdata/stockfloat/internal/ingest"
	"github.com/andresuchdata/stockfloat/internal/store"
)

// ErrNoRecords is returned when an upload produced nothing to store.
var ErrNoRecords = errors.New("no records found")

// Orchestrator coordinates parsing, persistence and change notification for uploads.
type Orchestrator struct {
	store  *store.Store
	bus    *events.Bus
	runs   RunLog
	worker *Worker
	now    func() time.Time
}

// NewOrchestrator creates a new Orchestrator. runs may be nil.
func NewOrchestrator(st *store.Store, bus *events.Bus, runs RunLog, cfg Config) *Orchestrator {
	if runs == nil {
		runs = NewMemoryRunLog()
	}
	return &Orchestrator{
		store:  st,
		bus:    bus,
		runs:   runs,
		worker: NewWorker(nil, cfg),
		now:    time.Now,
	}
}

// Runs exposes the run log.
func (o *Orchestrator) Runs() RunLog {
	return o.runs
}

// IngestWorkbook parses every sheet of a workbook for category and replaces those
// sheets in the store.
func (o *Orchestrator) IngestWorkbook(ctx context.Context, category domain.Category, sheets []ingest.Sheet) (Report, error) {
	return o.Ingest(ctx, Upload{Category: category, Sheets: sheets})
}

// Ingest runs one upload end to end: parse sheets, save the batch, publish a
// data-changed event. The category is left untouched when nothing parsed.
func (o *Orchestrator) Ingest(ctx context.Context, up Upload) (Report, error) {
	run := Run{
		Category:    up.Category,
		FileName:    up.FileName,
		Status:      StatusPending,
		TotalSheets: len(up.Sheets),
		StartedAt:   o.now().UTC(),
	}
	if err := o.runs.CreateRun(ctx, &run); err != nil {
		log.Warn().Err(err).Msg("pipeline: could not record run")
	}
	report := Report{Run: run}

	fail := func(err error) (Report, error) {
		report.Run.Status = StatusFailed
		report.Run.ErrorMessage = err.Error()
		o.finish(ctx, &report.Run)
		return report, err
	}

	report.Run.Status = StatusProcessing
	outcomes, err := o.worker.ProcessSheets(ctx, up.Category, up.Sheets)
	if err != nil {
		return fail(fmt.Errorf("parse sheets: %w", err))
	}
	report.Sheets = outcomes

	batch := store.Batch{}
	for _, out := range outcomes {
		report.Run.DroppedRows += out.Dropped
		if out.Err != nil {
			continue
		}
		report.Run.ProcessedSheets++
		batch.Sheets = append(batch.Sheets, store.SheetBatch{Name: out.Sheet, Records: out.Records, Shipments: out.Shipments})
	}
	report.RecordCount = batch.RecordCount()
	report.Run.TotalRecords = report.RecordCount
	if report.RecordCount == 0 {
		return fail(ErrNoRecords)
	}

	saved, err := o.store.SaveCategory(ctx, up.Category, batch)
	if err != nil {
		return fail(fmt.Errorf("save %s: %w", up.Category, err))
	}
	report.CombinedDropped = saved.CombinedDropped

	report.Run.Status = StatusCompleted
	o.finish(ctx, &report.Run)

	if o.bus != nil {
		o.bus.Publish(events.DataChanged{
			Category:    up.Category,
			SheetCount:  len(batch.Sheets),
			RecordCount: report.RecordCount,
		})
	}
	log.Info().
		Str("category", string(up.Category)).
		Str("file", up.FileName).
		Int("sheets", len(batch.Sheets)).
		Int("records", report.RecordCount).
		Int("dropped", report.Run.DroppedRows).
		Msg("upload ingested")
	return report, nil
}

func (o *Orchestrator) finish(ctx context.Context, run *Run) {
	now := o.now().UTC()
	run.CompletedAt = &now
	if run.ID == 0 {
		return
	}
	if err := o.runs.UpdateRun(ctx, run); err != nil {
		log.Warn().Err(err).Int64("run", run.ID).Msg("pipeline: could not update run")
	}
}
