package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/events"
	"github.com/andresuchdata/stockfloat/internal/ingest"
	"github.com/andresuchdata/stockfloat/internal/store"
)

var matrixRows = [][]string{
	{"State", "Wine", "Jan-25", "Feb-25"},
	{"NSW", "JT SAB 22", "100", "150"},
}

var exportRows = [][]string{
	{"Customer", "Market", "Product", "Cases", "Status", "ETD"},
	{"US - Southern Glazers", "USA", "JT SAB 24 12pk", "600", "In transit", "2025-01-05"},
}

func TestCategoryEntryPoints(t *testing.T) {
	t.Parallel()

	stock := IngestStockOnHand(matrixRows, "AUS")
	if len(stock) != 2 || stock[0].MarketCode != "au" {
		t.Fatalf("stock records = %+v", stock)
	}
	depletion := IngestSalesDepletion(matrixRows, "AUS")
	if len(depletion) != len(stock) {
		t.Errorf("depletion should share the stock layouts, got %d records", len(depletion))
	}
	ships := IngestExports(exportRows, "Exports")
	if len(ships) != 1 || ships[0].CasesInCanonicalUnits != 600 {
		t.Fatalf("shipments = %+v", ships)
	}
}

func TestIngestWorkbookSavesAndPublishes(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemoryKV(0))
	bus := events.NewBus()
	var got []events.DataChanged
	bus.Subscribe(func(e events.DataChanged) { got = append(got, e) })

	runs := NewMemoryRunLog()
	o := NewOrchestrator(st, bus, runs, Config{WorkerCount: 2})
	sheets := []ingest.Sheet{
		{Name: "AUS", Rows: matrixRows},
		{Name: "USA", Rows: [][]string{{"hello"}, {"world"}}},
	}
	report, err := o.IngestWorkbook(ctx, domain.CategoryStockOnHand, sheets)
	if err != nil {
		t.Fatalf("IngestWorkbook: %v", err)
	}
	if report.RecordCount != 2 || report.Run.ProcessedSheets != 1 {
		t.Errorf("report = %+v", report.Run)
	}
	if report.Sheets[1].Err == nil {
		t.Errorf("headerless sheet should carry its error")
	}

	cs, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.StockOnHand) != 2 {
		t.Errorf("stored %d records, want 2", len(cs.StockOnHand))
	}
	if len(got) != 1 || got[0].Category != domain.CategoryStockOnHand || got[0].RecordCount != 2 || got[0].SheetCount != 1 {
		t.Errorf("events = %+v", got)
	}

	listed, _ := runs.ListRuns(ctx, 10)
	if len(listed) != 1 || listed[0].Status != StatusCompleted || listed[0].CompletedAt == nil {
		t.Errorf("run log = %+v", listed)
	}
	if msg := report.Status(nil).Message; msg != "processed 2 records" {
		t.Errorf("status message = %q", msg)
	}
}

func TestIngestEmptyUploadKeepsPreviousData(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemoryKV(0))
	o := NewOrchestrator(st, nil, nil, DefaultConfig())

	if _, err := o.IngestWorkbook(ctx, domain.CategoryExports, []ingest.Sheet{{Name: "Exports", Rows: exportRows}}); err != nil {
		t.Fatal(err)
	}
	report, err := o.IngestWorkbook(ctx, domain.CategoryExports, []ingest.Sheet{{Name: "Exports", Rows: [][]string{{"nothing"}}}})
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
	if st := report.Status(err); st.Message != "error: no records found" {
		t.Errorf("status = %q", st.Message)
	}
	cs, _ := st.Load(ctx)
	if len(cs.Shipments) != 1 {
		t.Errorf("previous exports lost: %+v", cs.Shipments)
	}
}

func TestProcessSheetsHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWorker(nil, Config{WorkerCount: 1})
	if _, err := w.ProcessSheets(ctx, domain.CategoryStockOnHand, []ingest.Sheet{{Name: "AUS", Rows: matrixRows}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type staticSource struct{ cs store.CanonicalStore }

func (s staticSource) Load(context.Context) (store.CanonicalStore, error) { return s.cs, nil }

func TestSchedulerDebouncesFilterEdits(t *testing.T) {
	var calls atomic.Int32
	results := make(chan Snapshot, 4)
	s := NewScheduler(staticSource{}, SchedulerOptions{
		Debounce: 20 * time.Millisecond,
		Project: func(_ store.CanonicalStore, f domain.Filters) domain.ProjectionResult {
			calls.Add(1)
			return domain.ProjectionResult{}
		},
		OnResult: func(snap Snapshot) { results <- snap },
	})
	defer s.Stop()

	for _, m := range []string{"au", "usa", "nzl"} {
		s.SetFilters(domain.Filters{Market: m})
	}

	select {
	case snap := <-results:
		if snap.Filters.Market != "nzl" {
			t.Errorf("published filters = %+v, want the last edit", snap.Filters)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no recompute published")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("project ran %d times, want 1", n)
	}
}

func TestSchedulerDiscardsSupersededRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var published []string

	s := NewScheduler(staticSource{}, SchedulerOptions{
		Debounce: 5 * time.Millisecond,
		Project: func(_ store.CanonicalStore, f domain.Filters) domain.ProjectionResult {
			if f.Market == "au" {
				once.Do(func() { close(started) })
				<-release
			}
			return domain.ProjectionResult{}
		},
		OnResult: func(snap Snapshot) {
			mu.Lock()
			published = append(published, snap.Filters.Market)
			mu.Unlock()
		},
	})

	s.SetFilters(domain.Filters{Market: "au"})
	<-started
	s.SetFilters(domain.Filters{Market: "usa"})

	deadline := time.After(2 * time.Second)
	for {
		if snap, ok := s.Latest(); ok && snap.Filters.Market == "usa" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("newer run never published")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(release)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 1 || published[0] != "usa" {
		t.Errorf("published = %v, want only the newer run", published)
	}
	if snap, _ := s.Latest(); snap.Filters.Market != "usa" {
		t.Errorf("superseded run overwrote latest: %+v", snap.Filters)
	}
}

func TestSchedulerInvalidateUsesCurrentFilters(t *testing.T) {
	results := make(chan Snapshot, 2)
	s := NewScheduler(staticSource{}, SchedulerOptions{
		Debounce: 5 * time.Millisecond,
		Project:  func(store.CanonicalStore, domain.Filters) domain.ProjectionResult { return domain.ProjectionResult{} },
		OnResult: func(snap Snapshot) { results <- snap },
	})
	defer s.Stop()

	s.SetFilters(domain.Filters{Market: "ire"})
	<-results
	s.Invalidate()
	select {
	case snap := <-results:
		if snap.Filters.Market != "ire" || snap.Generation != 2 {
			t.Errorf("snapshot = %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("invalidate did not recompute")
	}
}
