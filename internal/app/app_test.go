package app

import (
	"context"
	"strings"
	"testing"

	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/domain"
)

func TestNewMemoryBackend(t *testing.T) {
	cfg := &config.Config{
		KV:     config.KVConfig{Backend: config.KVMemory},
		Engine: config.EngineConfig{ForwardHorizon: 2, DebounceMS: 5, IngestWorkers: 2},
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.DriveHandler() != nil {
		t.Error("drive should be disabled without credentials")
	}

	ctx := context.Background()
	csv := "Customer,Market,Product,Cases,Status,ETD\nUS - Southern Glazers,USA,JT SAB 24 12pk,600,In transit,2025-01-05\n"
	status, err := a.Ingest.IngestReader(ctx, domain.CategoryExports, "Exports.csv", strings.NewReader(csv))
	if err != nil || status.RecordCount != 1 {
		t.Fatalf("status %+v err %v", status, err)
	}
	cs, err := a.Store.Load(ctx)
	if err != nil || len(cs.Shipments) != 1 {
		t.Errorf("shipments %d err %v", len(cs.Shipments), err)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{KV: config.KVConfig{Backend: "etcd"}})
	if err == nil {
		t.Fatal("expected error")
	}
}
