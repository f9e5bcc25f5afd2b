package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/ingest"
)

var defaultRegistry = ingest.NewRegistry()

// IngestStockOnHand parses one stock-on-hand sheet.
func IngestStockOnHand(rows [][]string, sheetName string) []domain.CanonicalRecord {
	return defaultRegistry.Parse(ingest.Sheet{Name: sheetName, Rows: rows}).Records
}

// IngestSalesDepletion parses one sales/depletion sheet. Depletion reports share the
// regional layouts with stock reports.
func IngestSalesDepletion(rows [][]string, sheetName string) []domain.CanonicalRecord {
	return defaultRegistry.Parse(ingest.Sheet{Name: sheetName, Rows: rows}).Records
}

// IngestExports parses one exports sheet into shipments.
func IngestExports(rows [][]string, sheetName string) []domain.ShipmentRecord {
	return ingest.ParseShipments(ingest.Sheet{Name: sheetName, Rows: rows}).Shipments
}

// Worker parses the sheets of one upload
type Worker struct {
	registry *ingest.Registry
	config   Config
}

// NewWorker creates a new sheet worker
func NewWorker(registry *ingest.Registry, config Config) *Worker {
	if registry == nil {
		registry = defaultRegistry
	}
	return &Worker{registry: registry, config: config}
}

// ParseSheet runs the strategy for category on one sheet.
func (w *Worker) ParseSheet(category domain.Category, sheet ingest.Sheet) SheetOutcome {
	start := time.Now()
	out := SheetOutcome{Sheet: sheet.Name}

	switch category {
	case domain.CategoryExports:
		res := ingest.ParseShipments(sheet)
		out.Layout = ingest.LayoutShipments
		out.Shipments = res.Shipments
		out.Count = len(res.Shipments)
		out.Dropped = res.Dropped
		out.Err = res.Err
	case domain.CategoryStockOnHand, domain.CategorySalesDepletion:
		res := w.registry.Parse(sheet)
		out.Layout = res.Layout
		out.Records = res.Records
		out.Count = len(res.Records)
		out.Dropped = res.Dropped
		out.Err = res.Err
	default:
		out.Err = fmt.Errorf("unknown category %q", category)
	}

	ev := log.Info()
	if out.Err != nil {
		ev = log.Warn().Err(out.Err)
	}
	ev.Str("category", string(category)).
		Str("sheet", sheet.Name).
		Str("layout", string(out.Layout)).
		Int("records", out.Count).
		Int("dropped", out.Dropped).
		Dur("took", time.Since(start)).
		Msg("sheet parsed")
	return out
}

// ProcessSheets parses sheets on a bounded pool. Outcomes keep the input order; a
// failing sheet never affects its siblings.
func (w *Worker) ProcessSheets(ctx context.Context, category domain.Category, sheets []ingest.Sheet) ([]SheetOutcome, error) {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	outcomes := make([]SheetOutcome, len(sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)
	for i, sheet := range sheets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = w.ParseSheet(category, sheet)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
