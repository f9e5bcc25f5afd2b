package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/events"
	"github.com/andresuchdata/stockfloat/internal/pipeline"
	"github.com/andresuchdata/stockfloat/internal/storage"
	"github.com/andresuchdata/stockfloat/internal/store"
)

const (
	stockCSV   = "State,Wine,Jan-25,Feb-25\nNSW,JT SAB 22,1000,1500\n"
	exportsCSV = "Customer,Market,Product,Cases,Status,ETD\nUS - Southern Glazers,USA,JT SAB 24 12pk,600,In transit,2025-01-05\n"
)

type countingCache struct {
	mu          sync.Mutex
	entries     map[string]domain.ProjectionResult
	gets, hits  int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[string]domain.ProjectionResult)}
}

func (c *countingCache) key(version string, f domain.Filters) string {
	return version + "|" + f.Market + "|" + string(f.Mode)
}

func (c *countingCache) Get(_ context.Context, version string, f domain.Filters) (domain.ProjectionResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.entries[c.key(version, f)]
	if ok {
		c.hits++
	}
	return r, ok, nil
}

func (c *countingCache) Set(_ context.Context, version string, f domain.Filters, r domain.ProjectionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(version, f)] = r
	return nil
}

func (c *countingCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = make(map[string]domain.ProjectionResult)
	return nil
}

type fixture struct {
	store   *store.Store
	bus     *events.Bus
	objects *storage.MemoryStorage
	ingest  *IngestService
}

func newFixture() fixture {
	st := store.New(store.NewMemoryKV(0))
	bus := events.NewBus()
	objects := storage.NewMemoryStorage()
	o := pipeline.NewOrchestrator(st, bus, nil, pipeline.DefaultConfig())
	return fixture{store: st, bus: bus, objects: objects, ingest: NewIngestService(o, storage.NewArchive(objects))}
}

func (f fixture) load(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, up := range []struct {
		category domain.Category
		name     string
		body     string
	}{
		{domain.CategoryStockOnHand, "AUS.csv", stockCSV},
		{domain.CategoryExports, "Exports.csv", exportsCSV},
	} {
		status, err := f.ingest.IngestReader(ctx, up.category, up.name, strings.NewReader(up.body))
		if err != nil {
			t.Fatalf("ingest %s: %v", up.name, err)
		}
		if !strings.HasPrefix(status.Message, "processed ") {
			t.Fatalf("status = %+v", status)
		}
	}
}

func TestIngestArchivesAndReports(t *testing.T) {
	f := newFixture()
	f.load(t)
	ctx := context.Background()

	archived, err := f.ingest.Archived(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 2 {
		t.Fatalf("archived = %+v", archived)
	}

	status, err := f.ingest.Reingest(ctx, archived[0].Key)
	if err != nil {
		t.Fatalf("Reingest: %v", err)
	}
	if status.RecordCount == 0 {
		t.Errorf("reingest status = %+v", status)
	}
	if again, _ := f.ingest.Archived(ctx, ""); len(again) != 2 {
		t.Errorf("reingest should not archive again, got %d objects", len(again))
	}

	runs, err := f.ingest.Runs(ctx, 10)
	if err != nil || len(runs) != 3 {
		t.Errorf("runs = %d, %v", len(runs), err)
	}
}

func TestIngestFailureStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	status, err := f.ingest.IngestBytes(ctx, domain.CategoryExports, "notes.docx", []byte("x"))
	if err == nil || !strings.HasPrefix(status.Message, "error: ") {
		t.Errorf("unsupported file: status %+v err %v", status, err)
	}

	status, err = f.ingest.IngestBytes(ctx, domain.CategoryExports, "Exports.csv", []byte("nothing here\n"))
	if err == nil || status.Message != "error: no records found" {
		t.Errorf("empty upload: status %+v err %v", status, err)
	}
	if archived, _ := f.ingest.Archived(ctx, ""); len(archived) != 0 {
		t.Errorf("failed uploads must not be archived: %+v", archived)
	}
}

func TestProjectionServiceCachesByVersion(t *testing.T) {
	f := newFixture()
	f.load(t)
	ctx := context.Background()

	c := newCountingCache()
	svc := NewProjectionService(f.store, c, config.EngineConfig{AlertThreshold: 500, ForwardHorizon: 3, DebounceMS: 5})
	defer svc.Close()
	svc.now = func() time.Time { return time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC) }
	unsubscribe := svc.Subscribe(f.bus)
	defer unsubscribe()

	first, err := svc.Project(ctx, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Points) != 3 || first.Points[0].Period != "2025-01" {
		t.Fatalf("points = %+v", first.Points)
	}
	if _, err := svc.Project(ctx, domain.Filters{}); err != nil {
		t.Fatal(err)
	}
	if c.hits != 1 {
		t.Errorf("cache hits = %d, want 1", c.hits)
	}

	f.load(t)
	if c.invalidated != 2 {
		t.Errorf("invalidations = %d, want 2", c.invalidated)
	}

	markets, err := svc.Markets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(markets, ",")
	for _, want := range []string{"au", "au-c", "usa"} {
		if !strings.Contains(","+joined+",", ","+want+",") {
			t.Errorf("markets %v missing %s", markets, want)
		}
	}
}

func TestProjectionServiceEmptyWithoutExports(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.ingest.IngestReader(ctx, domain.CategoryStockOnHand, "AUS.csv", strings.NewReader(stockCSV)); err != nil {
		t.Fatal(err)
	}
	svc := NewProjectionService(f.store, nil, config.EngineConfig{})
	defer svc.Close()

	result, err := svc.Project(ctx, domain.Filters{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Empty() || result.Points == nil || result.Alerts == nil {
		t.Errorf("expected empty non-nil result, got %+v", result)
	}
}

func TestLiveProjection(t *testing.T) {
	f := newFixture()
	f.load(t)

	svc := NewProjectionService(f.store, nil, config.EngineConfig{ForwardHorizon: 2, DebounceMS: 5})
	defer svc.Close()
	svc.now = func() time.Time { return time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC) }

	svc.SetLiveFilters(domain.Filters{Market: "au"})
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, ok := svc.Live()
		if ok {
			if snap.Filters.Market != "au" || len(snap.Result.Points) != 2 {
				t.Errorf("snapshot = %+v", snap)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("live projection never published")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if svc.LiveFilters().Market != "au" {
		t.Errorf("live filters = %+v", svc.LiveFilters())
	}
}
