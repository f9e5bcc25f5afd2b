package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func testBatch() Batch {
	p := domain.NewPeriod(2025, 1)
	return Batch{Sheets: []SheetBatch{
		{Name: "AUS", Records: []domain.CanonicalRecord{
			{MarketCode: "au", VarietyCode: "SAB", Location: "NSW", DistributorKey: "NSW", Quantity: 100, Period: &p, SourceSheet: "AUS"},
			{MarketCode: "au", VarietyCode: "PIN", Location: "VIC", DistributorKey: "VIC", Quantity: 40, Period: &p, SourceSheet: "AUS"},
		}},
		{Name: "NZL", Records: []domain.CanonicalRecord{
			{MarketCode: "nzl", VarietyCode: "SAB", Location: "Foodstuffs", DistributorKey: "Foodstuffs", Quantity: 70, SourceSheet: "NZL"},
		}},
	}}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryKV(0))
	s.now = fixedClock()

	res, err := s.SaveCategory(ctx, domain.CategoryStockOnHand, testBatch())
	if err != nil {
		t.Fatalf("SaveCategory: %v", err)
	}
	if res.CombinedDropped {
		t.Fatalf("combined key should fit in an unlimited store")
	}
	if got := res.Meta.SheetCounts["AUS"]; got != 2 {
		t.Errorf("SheetCounts[AUS] = %d, want 2", got)
	}

	cs, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cs.StockOnHand) != 3 {
		t.Fatalf("expected 3 stock records, got %d", len(cs.StockOnHand))
	}
	if cs.StockOnHand[0].Period == nil || cs.StockOnHand[0].Period.Key() != "2025-01" {
		t.Errorf("period lost in round trip: %+v", cs.StockOnHand[0])
	}
	if cs.Has(domain.CategoryExports) {
		t.Errorf("exports were never saved")
	}
}

func TestCapacityFallsBackToPerSheetKeys(t *testing.T) {
	ctx := context.Background()

	probe := NewMemoryKV(0)
	ps := New(probe)
	ps.now = fixedClock()
	if _, err := ps.SaveCategory(ctx, domain.CategoryStockOnHand, testBatch()); err != nil {
		t.Fatalf("probe save: %v", err)
	}
	all, _, _ := probe.Get(ctx, combinedKey(domain.CategoryStockOnHand))

	// room for everything except the combined document
	kv := NewMemoryKV(probe.Used() - len(all))
	s := New(kv)
	s.now = fixedClock()

	res, err := s.SaveCategory(ctx, domain.CategoryStockOnHand, testBatch())
	if err != nil {
		t.Fatalf("SaveCategory must swallow capacity failures, got %v", err)
	}
	if !res.CombinedDropped {
		t.Fatalf("expected combined key to be dropped")
	}
	if _, ok, _ := kv.Get(ctx, combinedKey(domain.CategoryStockOnHand)); ok {
		t.Errorf("combined key still present")
	}

	cs, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cs.StockOnHand) != 3 {
		t.Fatalf("per-sheet fallback lost records: got %d", len(cs.StockOnHand))
	}
}

func TestUploadsReplaceOnlyTheirSheets(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	s := New(kv)

	aus := Batch{Sheets: []SheetBatch{{Name: "AUS", Records: []domain.CanonicalRecord{
		{MarketCode: "au", VarietyCode: "SAB", Quantity: 100, SourceSheet: "AUS"},
		{MarketCode: "au", VarietyCode: "PIN", Quantity: 40, SourceSheet: "AUS"},
	}}}}
	nzl := Batch{Sheets: []SheetBatch{{Name: "NZL", Records: []domain.CanonicalRecord{
		{MarketCode: "nzl", VarietyCode: "SAB", Quantity: 70, SourceSheet: "NZL"},
	}}}}
	for _, b := range []Batch{aus, nzl} {
		if _, err := s.SaveCategory(ctx, domain.CategoryStockOnHand, b); err != nil {
			t.Fatal(err)
		}
	}

	cs, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.StockOnHand) != 3 {
		t.Fatalf("separate uploads should accumulate, got %+v", cs.StockOnHand)
	}
	if got := cs.Meta[domain.CategoryStockOnHand].SheetNames; len(got) != 2 {
		t.Errorf("SheetNames = %v, want AUS and NZL", got)
	}

	reupload := Batch{Sheets: []SheetBatch{{Name: "AUS", Records: []domain.CanonicalRecord{
		{MarketCode: "au", VarietyCode: "SAB", Quantity: 5, SourceSheet: "AUS"},
	}}}}
	res, err := s.SaveCategory(ctx, domain.CategoryStockOnHand, reupload)
	if err != nil {
		t.Fatal(err)
	}
	if res.Meta.SheetCounts["AUS"] != 1 || res.Meta.SheetCounts["NZL"] != 1 {
		t.Errorf("SheetCounts = %v", res.Meta.SheetCounts)
	}

	cs, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byMarket := map[string]float64{}
	for _, r := range cs.StockOnHand {
		byMarket[r.MarketCode] += r.Quantity
	}
	if len(cs.StockOnHand) != 2 || byMarket["au"] != 5 || byMarket["nzl"] != 70 {
		t.Errorf("re-upload should replace only AUS: %+v", cs.StockOnHand)
	}

	// the per-sheet fallback sees the same records as the combined key
	if err := kv.Remove(ctx, combinedKey(domain.CategoryStockOnHand)); err != nil {
		t.Fatal(err)
	}
	batch, _, err := s.LoadCategory(ctx, domain.CategoryStockOnHand)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 2 {
		t.Errorf("per-sheet load = %+v", batch.Records)
	}
}

func TestShipmentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryKV(0))
	shipped := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	batch := Batch{Sheets: []SheetBatch{{Name: "Exports", Shipments: []domain.ShipmentRecord{{
		CanonicalRecord:       domain.CanonicalRecord{MarketCode: "usa", VarietyCode: "SAB", ShippedDate: &shipped},
		Customer:              "Southern Glazers",
		CasesInCanonicalUnits: 600,
		Status:                domain.ShipmentActive,
		LeadTimeMonths:        2,
	}}}}}
	if _, err := s.SaveCategory(ctx, domain.CategoryExports, batch); err != nil {
		t.Fatal(err)
	}
	cs, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.Shipments) != 1 || cs.Shipments[0].ShippedDate == nil || !cs.Shipments[0].ShippedDate.Equal(shipped) {
		t.Fatalf("shipment not restored: %+v", cs.Shipments)
	}
	if cs.Version() == (CanonicalStore{}).Version() {
		t.Errorf("version should change once data is saved")
	}
}

func TestLoadCategoryNotFound(t *testing.T) {
	_, _, err := New(NewMemoryKV(0)).LoadCategory(context.Background(), domain.CategoryExports)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryKVCapacity(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(10)
	if err := kv.Set(ctx, "a", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "b", []byte("1234567")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	// replacing a key only counts the difference
	if err := kv.Set(ctx, "a", []byte("1234567890")); err != nil {
		t.Fatalf("replacement should fit: %v", err)
	}
	if err := kv.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if kv.Used() != 0 {
		t.Errorf("Used = %d after remove", kv.Used())
	}
}
